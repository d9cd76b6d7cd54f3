package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noor-academy/manhaj-api/internal/models"
)

// RetakeFilter narrows retake request queries.
type RetakeFilter struct {
	ExamID    *uint
	StudentID *uint
	Status    *string
}

// RetakeRepository defines persistence operations for retake requests.
type RetakeRepository interface {
	List(ctx context.Context, filter RetakeFilter) ([]models.RetakeRequest, error)
	GetByID(ctx context.Context, id uint) (models.RetakeRequest, error)
	GetPending(ctx context.Context, studentID, examID uint) (models.RetakeRequest, error)
	Create(ctx context.Context, request *models.RetakeRequest) error
	Update(ctx context.Context, request *models.RetakeRequest) error
}

type retakeRepository struct {
	db *gorm.DB
}

// NewRetakeRepository instantiates the repository.
func NewRetakeRepository(db *gorm.DB) RetakeRepository {
	return &retakeRepository{db: db}
}

func (r *retakeRepository) List(ctx context.Context, filter RetakeFilter) ([]models.RetakeRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.RetakeRequest{})

	if filter.ExamID != nil {
		query = query.Where("exam_id = ?", *filter.ExamID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var requests []models.RetakeRequest
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *retakeRepository) GetByID(ctx context.Context, id uint) (models.RetakeRequest, error) {
	var request models.RetakeRequest
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return models.RetakeRequest{}, err
	}

	return request, nil
}

func (r *retakeRepository) GetPending(ctx context.Context, studentID, examID uint) (models.RetakeRequest, error) {
	var request models.RetakeRequest
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("exam_id = ?", examID).
		Where("status = ?", models.RetakeStatusPending).
		First(&request).Error; err != nil {
		return models.RetakeRequest{}, err
	}

	return request, nil
}

func (r *retakeRepository) Create(ctx context.Context, request *models.RetakeRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *retakeRepository) Update(ctx context.Context, request *models.RetakeRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}
