package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noor-academy/manhaj-api/internal/models"
)

// ProgramRepository defines persistence operations for programs, semesters
// and lessons.
type ProgramRepository interface {
	List(ctx context.Context, publishedOnly bool) ([]models.Program, error)
	GetByID(ctx context.Context, id uint) (models.Program, error)
	GetSemester(ctx context.Context, id uint) (models.Semester, error)
	GetSemesterByNumber(ctx context.Context, programID uint, number int) (models.Semester, error)
	GetLesson(ctx context.Context, id uint) (models.Lesson, error)
	Create(ctx context.Context, program *models.Program) error
}

type programRepository struct {
	db *gorm.DB
}

// NewProgramRepository instantiates a GORM-backed repository.
func NewProgramRepository(db *gorm.DB) ProgramRepository {
	return &programRepository{db: db}
}

func (r *programRepository) List(ctx context.Context, publishedOnly bool) ([]models.Program, error) {
	query := r.db.WithContext(ctx).Model(&models.Program{})
	if publishedOnly {
		query = query.Where("published = ?", true)
	}

	var programs []models.Program
	if err := query.Order("created_at ASC").Find(&programs).Error; err != nil {
		return nil, err
	}

	return programs, nil
}

func (r *programRepository) GetByID(ctx context.Context, id uint) (models.Program, error) {
	var program models.Program
	if err := r.db.WithContext(ctx).
		Preload("Semesters", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Preload("Semesters.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&program, id).Error; err != nil {
		return models.Program{}, err
	}

	return program, nil
}

func (r *programRepository) GetSemester(ctx context.Context, id uint) (models.Semester, error) {
	var semester models.Semester
	if err := r.db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&semester, id).Error; err != nil {
		return models.Semester{}, err
	}

	return semester, nil
}

func (r *programRepository) GetSemesterByNumber(ctx context.Context, programID uint, number int) (models.Semester, error) {
	var semester models.Semester
	if err := r.db.WithContext(ctx).
		Where("program_id = ?", programID).
		Where("number = ?", number).
		First(&semester).Error; err != nil {
		return models.Semester{}, err
	}

	return semester, nil
}

func (r *programRepository) GetLesson(ctx context.Context, id uint) (models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).First(&lesson, id).Error; err != nil {
		return models.Lesson{}, err
	}

	return lesson, nil
}

func (r *programRepository) Create(ctx context.Context, program *models.Program) error {
	return r.db.WithContext(ctx).Create(program).Error
}
