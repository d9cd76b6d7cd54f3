package models

import (
	"time"

	"gorm.io/datatypes"
)

// Exam lifecycle states.
const (
	ExamStatusDraft     = "draft"
	ExamStatusPublished = "published"
	ExamStatusCompleted = "completed"
)

// Question types.
const (
	QuestionTypeMCQ   = "mcq"
	QuestionTypeShort = "short"
	QuestionTypeLong  = "long"
)

// Exam defines a graded assessment owned by either a standalone course or a
// program semester (mutually exclusive).
type Exam struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	CourseID        *uint      `gorm:"index" json:"course_id"`
	SemesterID      *uint      `gorm:"index" json:"semester_id"`
	CreatedBy       uint       `gorm:"not null;index" json:"created_by"`
	TotalMarks      int        `gorm:"not null" json:"total_marks"`
	PassMarks       int        `gorm:"not null" json:"pass_marks"`
	DurationMinutes int        `gorm:"not null" json:"duration_minutes"`
	HasTiming       bool       `gorm:"not null;default:false" json:"has_timing"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	Status          string     `gorm:"size:32;not null;default:draft" json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Questions       []Question `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions,omitempty"`
}

// Question is one ordered item of an exam. Type discriminates the variant:
// mcq rows carry Options and CorrectAnswer, short/long rows carry neither
// and are graded manually.
type Question struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ExamID        uint           `gorm:"not null;index:idx_questions_exam_position,unique" json:"exam_id"`
	Position      int            `gorm:"not null;index:idx_questions_exam_position,unique" json:"position"`
	Type          string         `gorm:"size:16;not null" json:"type"`
	Prompt        string         `gorm:"type:text;not null" json:"prompt"`
	Options       datatypes.JSON `json:"options,omitempty"`
	CorrectAnswer string         `gorm:"size:512" json:"correct_answer,omitempty"`
	Marks         int            `gorm:"not null" json:"marks"`
}

// IsDraft reports whether the exam may still be deleted by its owning teacher.
func (e Exam) IsDraft() bool {
	return e.Status == ExamStatusDraft
}

// IsActiveAt reports whether a submission at the given instant falls inside
// the exam's hard time window. Exams without timing are always active.
func (e Exam) IsActiveAt(reference time.Time) bool {
	if !e.HasTiming {
		return true
	}
	if e.StartTime == nil || e.EndTime == nil {
		return false
	}
	return !reference.Before(*e.StartTime) && !reference.After(*e.EndTime)
}

// FullyAutoGradable reports whether every question is objective, meaning a
// submission can be graded without manual review.
func (e Exam) FullyAutoGradable() bool {
	if len(e.Questions) == 0 {
		return false
	}
	for _, q := range e.Questions {
		if q.Type != QuestionTypeMCQ {
			return false
		}
	}
	return true
}
