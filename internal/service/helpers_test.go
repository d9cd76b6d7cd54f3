package service

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noor-academy/manhaj-api/internal/models"
)

var testDBCounter int64

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// setupServiceDB opens a private in-memory database so tests cannot see each
// other's rows.
func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("svc_test_%d", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Program{},
		&models.Semester{},
		&models.Lesson{},
		&models.Exam{},
		&models.Question{},
		&models.ExamResult{},
		&models.ExamAnswer{},
		&models.RetakeRequest{},
		&models.Enrollment{},
		&models.LessonProgress{},
		&models.Post{},
	))

	return db
}

type recordedEvent struct {
	Name    string
	Payload interface{}
}

type fakeEvents struct {
	published []recordedEvent
}

func (f *fakeEvents) Publish(_ context.Context, event string, payload interface{}) {
	f.published = append(f.published, recordedEvent{Name: event, Payload: payload})
}

func (f *fakeEvents) names() []string {
	names := make([]string, 0, len(f.published))
	for _, event := range f.published {
		names = append(names, event.Name)
	}
	return names
}

type fakeProgress struct {
	calls []struct{ StudentID, SemesterID uint }
}

func (f *fakeProgress) ExamResultRecorded(_ context.Context, studentID, semesterID uint) {
	f.calls = append(f.calls, struct{ StudentID, SemesterID uint }{studentID, semesterID})
}

func ptrUint(v uint) *uint {
	return &v
}

func ptrString(v string) *string {
	return &v
}
