package quizmaker

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QuestionChecker validates the structure of a generated question list
type QuestionChecker struct{}

// NewQuestionChecker creates a new question checker
func NewQuestionChecker() *QuestionChecker {
	return &QuestionChecker{}
}

type wireQuestion struct {
	Question      string   `json:"question"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// Parse decodes the {"questions": [...]} payload and checks it against want.
func (qc *QuestionChecker) Parse(payload string, want int) ([]Question, error) {
	var body struct {
		Questions []wireQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return nil, &GenerationError{Kind: ErrMalformed, Detail: "response is not a JSON questions object", Err: err}
	}
	if body.Questions == nil {
		return nil, &GenerationError{Kind: ErrMalformed, Detail: `missing "questions" array`}
	}

	questions := make([]Question, 0, len(body.Questions))
	for _, wq := range body.Questions {
		text := wq.Question
		if text == "" {
			text = wq.Text
		}
		q := Question{
			Text:          strings.TrimSpace(text),
			Options:       wq.Options,
			CorrectAnswer: -1,
			Explanation:   strings.TrimSpace(wq.Explanation),
		}
		if wq.CorrectAnswer != nil {
			q.CorrectAnswer = *wq.CorrectAnswer
		}
		questions = append(questions, q)
	}

	if err := qc.Check(questions, want); err != nil {
		return nil, err
	}
	return questions, nil
}

// Check validates count, option cardinality and answer index range
func (qc *QuestionChecker) Check(questions []Question, want int) error {
	if len(questions) != want {
		return &GenerationError{Kind: ErrMalformed, Detail: fmt.Sprintf("expected %d questions, got %d", want, len(questions))}
	}
	for i, q := range questions {
		if err := qc.CheckQuestion(q); err != nil {
			return &GenerationError{Kind: ErrMalformed, Detail: fmt.Sprintf("question %d: %v", i+1, err)}
		}
	}
	return nil
}

// CheckQuestion validates a single question
func (qc *QuestionChecker) CheckQuestion(q Question) error {
	if q.Text == "" {
		return fmt.Errorf("empty question text")
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("expected %d options, got %d", OptionsPerQuestion, len(q.Options))
	}
	for j, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("option %d is empty", j+1)
		}
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= OptionsPerQuestion {
		return fmt.Errorf("correct answer index %d out of range", q.CorrectAnswer)
	}
	return nil
}
