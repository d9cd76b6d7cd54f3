package models

import (
	"encoding/json"
	"sort"
	"time"

	"gorm.io/datatypes"
)

// Enrollment tracks a student's position inside a program: the semester
// currently being studied and the set of semester numbers already completed.
type Enrollment struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	StudentID          uint           `gorm:"not null;index:idx_enrollments_student_program,unique" json:"student_id"`
	ProgramID          uint           `gorm:"not null;index:idx_enrollments_student_program,unique" json:"program_id"`
	CurrentSemester    int            `gorm:"not null;default:1" json:"current_semester"`
	CompletedSemesters datatypes.JSON `json:"completed_semesters"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// CompletedSet decodes the completed-semester numbers into a lookup set.
func (e Enrollment) CompletedSet() map[int]struct{} {
	set := make(map[int]struct{})
	if len(e.CompletedSemesters) == 0 {
		return set
	}
	var numbers []int
	if err := json.Unmarshal(e.CompletedSemesters, &numbers); err != nil {
		return set
	}
	for _, n := range numbers {
		set[n] = struct{}{}
	}
	return set
}

// MarkCompleted adds a semester number to the completed set and advances the
// current-semester pointer past it. Idempotent.
func (e *Enrollment) MarkCompleted(number int) error {
	set := e.CompletedSet()
	if _, done := set[number]; done {
		return nil
	}
	set[number] = struct{}{}

	numbers := make([]int, 0, len(set))
	for n := range set {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	payload, err := json.Marshal(numbers)
	if err != nil {
		return err
	}
	e.CompletedSemesters = payload

	if e.CurrentSemester == number {
		e.CurrentSemester = number + 1
	}
	return nil
}

// LessonProgress marks a lesson as completed by a student. Row presence is
// the completion flag.
type LessonProgress struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StudentID   uint      `gorm:"not null;index:idx_lesson_progress_student_lesson,unique" json:"student_id"`
	LessonID    uint      `gorm:"not null;index:idx_lesson_progress_student_lesson,unique" json:"lesson_id"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`
}
