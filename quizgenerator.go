package quizmaker

import (
	"context"
	"fmt"
	"log"
)

// Generator turns a generation request into a validated question list
type Generator interface {
	Generate(ctx context.Context, sessionID string, req GenerationRequest) ([]Question, error)
}

// QuizGenerator orchestrates one model call and the structural check of its output
type QuizGenerator struct {
	maker   *QuestionMaker
	checker *QuestionChecker
	logDir  string
}

// NewQuizGenerator creates a new quiz generator. An empty logDir disables transcripts.
func NewQuizGenerator(client ChatCompleter, model, logDir string) *QuizGenerator {
	return &QuizGenerator{
		maker:   NewQuestionMaker(client, model),
		checker: NewQuestionChecker(),
		logDir:  logDir,
	}
}

// Generate returns exactly req.NumQuestions questions or a *GenerationError.
// There is no retry: a failed call is reported straight back.
func (qg *QuizGenerator) Generate(ctx context.Context, sessionID string, req GenerationRequest) ([]Question, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var logger *LLMLogger
	if qg.logDir != "" {
		l, err := NewLLMLogger(qg.logDir, sessionID, req)
		if err != nil {
			// Continue without a transcript rather than failing
			log.Printf("Failed to create logger for session %s: %v", sessionID, err)
		} else {
			logger = l
			defer logger.Close()
		}
	}

	payload, err := qg.maker.GenerateQuestions(ctx, req, logger)
	if err != nil {
		if logger != nil {
			logger.LogOutcome(0, err)
		}
		log.Printf("Quiz generation failed for session %s: %v", sessionID, err)
		return nil, err
	}

	questions, err := qg.checker.Parse(payload, req.NumQuestions)
	if logger != nil {
		logger.LogOutcome(len(questions), err)
	}
	if err != nil {
		log.Printf("Quiz generation for session %s returned unusable questions: %v", sessionID, err)
		return nil, err
	}

	log.Printf("Quiz generation complete: %d questions for topic '%s'", len(questions), req.Topic)
	return questions, nil
}
