package models

import "time"

// Program is a long-form study track divided into ordered semesters.
type Program struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Slug        string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description string     `gorm:"type:text" json:"description"`
	Published   bool       `gorm:"not null;default:false" json:"published"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Semesters   []Semester `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"semesters,omitempty"`
}

// Semester is one ordered unit of a program, numbered from 1.
type Semester struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProgramID uint      `gorm:"not null;index:idx_semesters_program_number,unique" json:"program_id"`
	Number    int       `gorm:"not null;index:idx_semesters_program_number,unique" json:"number"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Lessons   []Lesson  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"lessons,omitempty"`
}

// Lesson is a single unit of content within a semester. Lessons are totally
// ordered by Position (0-based) and unlocked strictly in order.
type Lesson struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SemesterID      uint      `gorm:"not null;index:idx_lessons_semester_position,unique" json:"semester_id"`
	Position        int       `gorm:"not null;index:idx_lessons_semester_position,unique" json:"position"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	VideoURL        string    `gorm:"size:512" json:"video_url"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
