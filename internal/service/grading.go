package service

import (
	"math"

	"github.com/noor-academy/manhaj-api/internal/dto"
	"github.com/noor-academy/manhaj-api/internal/models"
)

// gradeAnswers scores a submission against the exam's ordered questions.
// MCQ answers are compared by exact string equality and awarded the
// question's marks or zero. Short/long answers keep nil marks until manual
// grading and contribute nothing to the returned total.
func gradeAnswers(questions []models.Question, answers []dto.AnswerPayload) ([]models.ExamAnswer, int) {
	graded := make([]models.ExamAnswer, 0, len(questions))
	obtained := 0

	for i, question := range questions {
		answer := models.ExamAnswer{
			Position: i,
			Answer:   answers[i].Answer,
		}

		switch question.Type {
		case models.QuestionTypeMCQ:
			correct := answers[i].Answer == question.CorrectAnswer
			marks := 0
			if correct {
				marks = question.Marks
			}
			answer.Marks = &marks
			answer.IsCorrect = &correct
			obtained += marks
		case models.QuestionTypeShort, models.QuestionTypeLong:
			// graded manually later
		}

		graded = append(graded, answer)
	}

	return graded, obtained
}

// percentageOf rounds obtained/total to a whole percentage, returning 0 for
// exams with no total marks.
func percentageOf(obtained, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(obtained) / float64(total) * 100))
}

// sumAwardedMarks totals every answer that has been graded so far.
func sumAwardedMarks(answers []models.ExamAnswer) int {
	total := 0
	for _, answer := range answers {
		if answer.Marks != nil {
			total += *answer.Marks
		}
	}
	return total
}
