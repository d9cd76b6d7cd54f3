package models

import "time"

// Result states. A result is graded immediately when every question is
// objective, otherwise it stays submitted until a teacher finishes grading.
const (
	ResultStatusSubmitted = "submitted"
	ResultStatusGraded    = "graded"
)

// ExamResult is one persisted submission attempt for a (student, exam)
// pair. At most one row per pair has IsLatest set; superseded attempts are
// kept for history.
type ExamResult struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	StudentID     uint         `gorm:"not null;index:idx_exam_results_student_exam" json:"student_id"`
	ExamID        uint         `gorm:"not null;index:idx_exam_results_student_exam" json:"exam_id"`
	CourseID      *uint        `gorm:"index" json:"course_id"`
	SemesterID    *uint        `gorm:"index" json:"semester_id"`
	TotalMarks    int          `gorm:"not null" json:"total_marks"`
	ObtainedMarks int          `gorm:"not null" json:"obtained_marks"`
	Percentage    int          `gorm:"not null" json:"percentage"`
	Status        string       `gorm:"size:32;not null" json:"status"`
	AttemptNumber int          `gorm:"not null" json:"attempt_number"`
	IsLatest      bool         `gorm:"not null;default:true" json:"is_latest"`
	CanRetake     bool         `gorm:"not null;default:false" json:"can_retake"`
	SubmittedAt   time.Time    `gorm:"not null" json:"submitted_at"`
	GradedAt      *time.Time   `json:"graded_at"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Answers       []ExamAnswer `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"answers,omitempty"`
	Exam          Exam         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student       User         `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// ExamAnswer records the raw answer text for one question position. Marks
// and IsCorrect stay nil for short/long answers until manual grading.
type ExamAnswer struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ExamResultID uint   `gorm:"not null;index" json:"exam_result_id"`
	Position     int    `gorm:"not null" json:"position"`
	Answer       string `gorm:"type:text" json:"answer"`
	Marks        *int   `json:"marks"`
	IsCorrect    *bool  `json:"is_correct"`
}

// IsGraded reports whether manual review (if any was needed) has completed.
func (r ExamResult) IsGraded() bool {
	return r.Status == ResultStatusGraded
}

// Passed reports whether the attempt met the pass mark. Only meaningful once
// the result is fully graded; pass/fail compares absolute marks, not
// percentage.
func (r ExamResult) Passed(passMarks int) bool {
	return r.IsGraded() && r.ObtainedMarks >= passMarks
}
