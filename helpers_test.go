package quizmaker

import (
	"context"
	"fmt"
)

func sampleQuestions(n int) []Question {
	questions := make([]Question, n)
	for i := range questions {
		questions[i] = Question{
			Text:          fmt.Sprintf("Question number %d?", i+1),
			Options:       []string{"Alpha", "Bravo", "Charlie", "Delta"},
			CorrectAnswer: i % OptionsPerQuestion,
			Explanation:   fmt.Sprintf("Explanation %d.", i+1),
		}
	}
	return questions
}

type fakeGenerator struct {
	questions []Question
	err       error
	calls     int
	lastReq   GenerationRequest
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, req GenerationRequest) ([]Question, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	if f.questions != nil {
		return f.questions, nil
	}
	return sampleQuestions(req.NumQuestions), nil
}

type fakeRecorder struct {
	saved []HistoryRecord
	err   error
}

func (f *fakeRecorder) Save(_ context.Context, rec HistoryRecord) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, rec)
	return int64(len(f.saved)), nil
}
