package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noor-academy/manhaj-api/internal/models"
)

// ExamResultRepository defines data operations for attempt rows.
type ExamResultRepository interface {
	GetByID(ctx context.Context, id uint) (models.ExamResult, error)
	GetLatest(ctx context.Context, studentID, examID uint) (models.ExamResult, error)
	ListByExam(ctx context.Context, examID uint) ([]models.ExamResult, error)
	ListLatestBySemester(ctx context.Context, studentID, semesterID uint) ([]models.ExamResult, error)
	CreateAttempt(ctx context.Context, result *models.ExamResult) error
	Update(ctx context.Context, result *models.ExamResult) error
	SetCanRetake(ctx context.Context, id uint, canRetake bool) error
}

type examResultRepository struct {
	db *gorm.DB
}

// NewExamResultRepository instantiates the repository.
func NewExamResultRepository(db *gorm.DB) ExamResultRepository {
	return &examResultRepository{db: db}
}

func (r *examResultRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ExamResult{}).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
}

func (r *examResultRepository) GetByID(ctx context.Context, id uint) (models.ExamResult, error) {
	var result models.ExamResult
	if err := r.baseQuery(ctx).First(&result, id).Error; err != nil {
		return models.ExamResult{}, err
	}

	return result, nil
}

func (r *examResultRepository) GetLatest(ctx context.Context, studentID, examID uint) (models.ExamResult, error) {
	var result models.ExamResult
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Where("exam_id = ?", examID).
		Where("is_latest = ?", true).
		First(&result).Error; err != nil {
		return models.ExamResult{}, err
	}

	return result, nil
}

func (r *examResultRepository) ListByExam(ctx context.Context, examID uint) ([]models.ExamResult, error) {
	var results []models.ExamResult
	if err := r.baseQuery(ctx).
		Where("exam_id = ?", examID).
		Order("submitted_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (r *examResultRepository) ListLatestBySemester(ctx context.Context, studentID, semesterID uint) ([]models.ExamResult, error) {
	var results []models.ExamResult
	if err := r.db.WithContext(ctx).Model(&models.ExamResult{}).
		Where("student_id = ?", studentID).
		Where("semester_id = ?", semesterID).
		Where("is_latest = ?", true).
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

// CreateAttempt supersedes any prior attempts and inserts the new row as one
// transaction. Prior rows are locked first so two concurrent submissions
// cannot both become the latest attempt.
func (r *examResultRepository) CreateAttempt(ctx context.Context, result *models.ExamResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		// sqlite has no row locks; skip the clause so the test driver works
		if tx.Dialector.Name() == "postgres" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var prior []models.ExamResult
		if err := query.
			Where("student_id = ?", result.StudentID).
			Where("exam_id = ?", result.ExamID).
			Order("attempt_number DESC").
			Find(&prior).Error; err != nil {
			return err
		}

		result.AttemptNumber = 1
		if len(prior) > 0 {
			result.AttemptNumber = prior[0].AttemptNumber + 1

			if err := tx.Model(&models.ExamResult{}).
				Where("student_id = ?", result.StudentID).
				Where("exam_id = ?", result.ExamID).
				Where("is_latest = ?", true).
				Update("is_latest", false).Error; err != nil {
				return err
			}
		}

		result.IsLatest = true
		return tx.Create(result).Error
	})
}

func (r *examResultRepository) Update(ctx context.Context, result *models.ExamResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(result).Error; err != nil {
			return err
		}
		for i := range result.Answers {
			if err := tx.Save(&result.Answers[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *examResultRepository) SetCanRetake(ctx context.Context, id uint, canRetake bool) error {
	result := r.db.WithContext(ctx).Model(&models.ExamResult{}).
		Where("id = ?", id).
		Update("can_retake", canRetake)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
