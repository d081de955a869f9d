package quizmaker

import (
	"errors"
	"testing"
)

func TestGradeBoundaries(t *testing.T) {
	tests := []struct {
		pct  float64
		want Grade
	}{
		{100, GradeExcellent},
		{80.0, GradeExcellent},
		{79.9, GradeGood},
		{60.0, GradeGood},
		{59.9, GradeKeepLearning},
		{0, GradeKeepLearning},
	}
	for _, tc := range tests {
		if got := GradeFor(tc.pct); got != tc.want {
			t.Errorf("GradeFor(%.1f) = %s, want %s", tc.pct, got, tc.want)
		}
	}
}

func answersWithCorrect(questions []Question, correct int) []int {
	answers := make([]int, len(questions))
	for i, q := range questions {
		if i < correct {
			answers[i] = q.CorrectAnswer
		} else {
			answers[i] = (q.CorrectAnswer + 1) % OptionsPerQuestion
		}
	}
	return answers
}

func TestScore(t *testing.T) {
	questions := sampleQuestions(5)

	tests := []struct {
		correct int
		pct     float64
		grade   Grade
	}{
		{5, 100, GradeExcellent},
		{4, 80, GradeExcellent},
		{3, 60, GradeGood},
		{2, 40, GradeKeepLearning},
		{0, 0, GradeKeepLearning},
	}
	for _, tc := range tests {
		got, err := Score(questions, answersWithCorrect(questions, tc.correct))
		if err != nil {
			t.Fatalf("Score returned error: %v", err)
		}
		want := Result{CorrectCount: tc.correct, Total: 5, Percentage: tc.pct, Grade: tc.grade}
		if got != want {
			t.Errorf("Score with %d correct = %+v, want %+v", tc.correct, got, want)
		}
	}
}

func TestScoreRoundsToOneDecimal(t *testing.T) {
	questions := sampleQuestions(15)
	got, err := Score(questions, answersWithCorrect(questions, 2))
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if got.Percentage != 13.3 {
		t.Fatalf("expected 13.3, got %v", got.Percentage)
	}
}

func TestScoreIsDeterministicAndMonotonic(t *testing.T) {
	questions := sampleQuestions(20)
	prev := -1
	for correct := 0; correct <= len(questions); correct++ {
		answers := answersWithCorrect(questions, correct)
		first, err := Score(questions, answers)
		if err != nil {
			t.Fatalf("Score returned error: %v", err)
		}
		second, _ := Score(questions, answers)
		if first != second {
			t.Fatalf("Score not deterministic: %+v vs %+v", first, second)
		}
		if first.CorrectCount < prev {
			t.Fatalf("correct count decreased from %d to %d", prev, first.CorrectCount)
		}
		prev = first.CorrectCount
	}
}

func TestScoreLengthMismatch(t *testing.T) {
	questions := sampleQuestions(5)
	_, err := Score(questions, []int{0, 1, 2})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	var scoringErr *ScoringError
	if !errors.As(err, &scoringErr) {
		t.Fatalf("expected *ScoringError, got %T", err)
	}
}
