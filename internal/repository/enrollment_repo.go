package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noor-academy/manhaj-api/internal/models"
)

// EnrollmentRepository tracks program enrollments and lesson completion.
type EnrollmentRepository interface {
	Get(ctx context.Context, studentID, programID uint) (models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Update(ctx context.Context, enrollment *models.Enrollment) error
	CompletedLessonIDs(ctx context.Context, studentID uint, lessonIDs []uint) (map[uint]struct{}, error)
	MarkLessonCompleted(ctx context.Context, progress *models.LessonProgress) error
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository instantiates the repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Get(ctx context.Context, studentID, programID uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("program_id = ?", programID).
		First(&enrollment).Error; err != nil {
		return models.Enrollment{}, err
	}

	return enrollment, nil
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Save(enrollment).Error
}

// CompletedLessonIDs returns which of the given lessons the student has
// finished, as a set keyed by lesson id.
func (r *enrollmentRepository) CompletedLessonIDs(ctx context.Context, studentID uint, lessonIDs []uint) (map[uint]struct{}, error) {
	completed := make(map[uint]struct{}, len(lessonIDs))
	if len(lessonIDs) == 0 {
		return completed, nil
	}

	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.LessonProgress{}).
		Where("student_id = ?", studentID).
		Where("lesson_id IN ?", lessonIDs).
		Pluck("lesson_id", &ids).Error; err != nil {
		return nil, err
	}

	for _, id := range ids {
		completed[id] = struct{}{}
	}

	return completed, nil
}

// MarkLessonCompleted upserts the completion row, making repeat completions
// idempotent.
func (r *enrollmentRepository) MarkLessonCompleted(ctx context.Context, progress *models.LessonProgress) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "lesson_id"}},
		DoNothing: true,
	}).Create(progress).Error
}
