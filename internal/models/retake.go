package models

import "time"

// Retake request states.
const (
	RetakeStatusPending  = "pending"
	RetakeStatusApproved = "approved"
	RetakeStatusRejected = "rejected"
)

// RetakeRequest asks staff to re-open the attempt cycle after a failed,
// non-retakable result. At most one pending request exists per
// (student, exam) pair.
type RetakeRequest struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ExamID       uint       `gorm:"not null;index:idx_retakes_exam_student" json:"exam_id"`
	StudentID    uint       `gorm:"not null;index:idx_retakes_exam_student" json:"student_id"`
	ExamResultID uint       `gorm:"not null;index" json:"exam_result_id"`
	Reason       string     `gorm:"type:text" json:"reason"`
	Status       string     `gorm:"size:16;not null;default:pending" json:"status"`
	DecidedBy    *uint      `json:"decided_by"`
	DecidedAt    *time.Time `json:"decided_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsPending reports whether the request still awaits a decision.
func (r RetakeRequest) IsPending() bool {
	return r.Status == RetakeStatusPending
}
