package quizmaker

import (
	"fmt"
	"math"
)

// Grade is the three-tier label derived from a percentage
type Grade string

const (
	GradeExcellent    Grade = "Excellent"
	GradeGood         Grade = "Good"
	GradeKeepLearning Grade = "KeepLearning"
)

// GradeFor maps a percentage to a grade. Both thresholds are inclusive.
func GradeFor(percentage float64) Grade {
	switch {
	case percentage >= 80:
		return GradeExcellent
	case percentage >= 60:
		return GradeGood
	default:
		return GradeKeepLearning
	}
}

// Label is the human form of the grade.
func (g Grade) Label() string {
	switch g {
	case GradeExcellent:
		return "Excellent!"
	case GradeGood:
		return "Good!"
	case GradeKeepLearning:
		return "Keep Learning!"
	}
	return string(g)
}

// Message is the performance note shown under the score.
func (g Grade) Message() string {
	switch g {
	case GradeExcellent:
		return "Outstanding performance! You've mastered this topic!"
	case GradeGood:
		return "Good job! You have a solid understanding of the topic."
	default:
		return "Keep studying! Review the explanations below to improve."
	}
}

// Result is the outcome of scoring a completed answer set
type Result struct {
	CorrectCount int     `json:"correct_count"`
	Total        int     `json:"total"`
	Percentage   float64 `json:"percentage"` // rounded to one decimal
	Grade        Grade   `json:"grade"`
}

// Score counts matching answers. It is pure and fails only when the answer
// count differs from the question count.
func Score(questions []Question, answers []int) (Result, error) {
	if len(answers) != len(questions) {
		return Result{}, &ScoringError{
			Kind:   ErrLengthMismatch,
			Detail: fmt.Sprintf("%d answers for %d questions", len(answers), len(questions)),
		}
	}

	correct := 0
	for i, q := range questions {
		if answers[i] == q.CorrectAnswer {
			correct++
		}
	}

	var pct float64
	if len(questions) > 0 {
		pct = 100 * float64(correct) / float64(len(questions))
	}

	return Result{
		CorrectCount: correct,
		Total:        len(questions),
		Percentage:   roundTenth(pct),
		Grade:        GradeFor(pct),
	}, nil
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
