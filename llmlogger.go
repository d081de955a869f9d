package quizmaker

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LLMLogger writes a transcript of one generation call to its own file
type LLMLogger struct {
	file      *os.File
	mu        sync.Mutex
	sessionID string
}

// NewLLMLogger creates a transcript file named after the session in dir
func NewLLMLogger(dir, sessionID string, req GenerationRequest) (*LLMLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.log", sessionID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &LLMLogger{
		file:      file,
		sessionID: sessionID,
	}

	logger.Logf("=== Quiz Generation Log ===\n")
	logger.Logf("Session ID: %s\n", sessionID)
	logger.Logf("Topic: %s\n", req.Topic)
	logger.Logf("Number of Questions: %d\n", req.NumQuestions)
	logger.Logf("Difficulty: %s\n", req.Difficulty)
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("========================\n\n")

	return logger, nil
}

// Logf writes a formatted log entry with timestamp
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	ll.logf(format, args...)
}

func (ll *LLMLogger) logf(format string, args ...interface{}) {
	if ll.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(ll.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	ll.file.Sync()
}

// LogLLMRequest logs an LLM request
func (ll *LLMLogger) LogLLMRequest(module, prompt string) {
	ll.Logf("=== LLM REQUEST (%s) ===\n", module)
	ll.Logf("Prompt:\n%s\n", prompt)
	ll.Logf("=====================\n\n")
}

// LogLLMResponse logs an LLM response
func (ll *LLMLogger) LogLLMResponse(module, response string) {
	ll.Logf("=== LLM RESPONSE (%s) ===\n", module)
	ll.Logf("Response:\n%s\n", response)
	ll.Logf("======================\n\n")
}

// LogOutcome records whether the returned question list passed validation
func (ll *LLMLogger) LogOutcome(accepted int, err error) {
	if err != nil {
		ll.Logf("Rejected: %v\n", err)
		return
	}
	ll.Logf("Accepted %d questions\n", accepted)
}

// Close closes the log file
func (ll *LLMLogger) Close() error {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file == nil {
		return nil
	}
	ll.logf("=== Quiz Generation Complete ===\n")
	ll.logf("Completed: %s\n", time.Now().Format(time.RFC3339))
	ll.logf("=============================\n")
	err := ll.file.Close()
	ll.file = nil
	return err
}
