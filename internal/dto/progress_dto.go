package dto

// SemesterAccessResponse is the progression gate's verdict for a semester.
type SemesterAccessResponse struct {
	CanAccess bool   `json:"can_access"`
	Reason    string `json:"reason,omitempty"`
}

// LessonAccessResponse is the progression gate's verdict for a lesson.
// RedirectTo names the first unlocked lesson when the requested one is
// locked.
type LessonAccessResponse struct {
	CanAccess  bool   `json:"can_access"`
	Locked     bool   `json:"locked"`
	Reason     string `json:"reason,omitempty"`
	RedirectTo *uint  `json:"redirect_to,omitempty"`
}

// SemesterProgressResponse aggregates a student's standing in a semester.
type SemesterProgressResponse struct {
	LessonsCompleted  int  `json:"lessons_completed"`
	TotalLessons      int  `json:"total_lessons"`
	ExamsPassed       int  `json:"exams_passed"`
	TotalExams        int  `json:"total_exams"`
	OverallPercentage int  `json:"overall_percentage"`
	CacheHit          bool `json:"-"`
}

// EnrollmentResponse serializes a program enrollment.
type EnrollmentResponse struct {
	ID                 uint  `json:"id"`
	StudentID          uint  `json:"student_id"`
	ProgramID          uint  `json:"program_id"`
	CurrentSemester    int   `json:"current_semester"`
	CompletedSemesters []int `json:"completed_semesters"`
}
