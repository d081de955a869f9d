package quizmaker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Phase is the lifecycle state of a quiz session
type Phase string

const (
	PhaseSetup     Phase = "setup"
	PhaseAnswering Phase = "answering"
	PhaseReviewing Phase = "reviewing"
	PhaseCompleted Phase = "completed"
)

// NoSelection marks that the user has not highlighted any option yet.
const NoSelection = -1

// SetupInput is what the user enters on the setup form
type SetupInput struct {
	Topic        string
	NumQuestions int
	Difficulty   Difficulty
	TimerSeconds int // 0 disables the timer
}

// HistoryRecorder persists a completed quiz summary
type HistoryRecorder interface {
	Save(ctx context.Context, rec HistoryRecord) (int64, error)
}

// Session holds one user's quiz. Its fields are only changed through its
// methods; callers read state through View.
type Session struct {
	id           string
	topic        string
	difficulty   Difficulty
	questions    []Question
	answers      []int
	currentIndex int
	selected     int
	timerSeconds int
	deadline     time.Time // zero when no timer is running
	phase        Phase
	result       *Result
	persisted    bool
	historyID    int64
	startedAt    time.Time
}

// NewSession returns a fresh session in the setup phase
func NewSession() *Session {
	return &Session{
		id:       uuid.NewString(),
		phase:    PhaseSetup,
		selected: NoSelection,
	}
}

// ID identifies the session in logs and transcripts.
func (s *Session) ID() string { return s.id }

// Phase reports the current lifecycle state.
func (s *Session) Phase() Phase { return s.phase }

// Reset discards the quiz and returns the session to setup under a new ID.
func (s *Session) Reset() {
	*s = *NewSession()
}

// Start validates the setup input, generates the questions and enters the
// answering phase. On any error the session stays in setup untouched.
func (s *Session) Start(ctx context.Context, gen Generator, in SetupInput, now time.Time) error {
	if s.phase != PhaseSetup {
		return fmt.Errorf("start quiz: %w", ErrInvalidTransition)
	}

	req := GenerationRequest{
		Topic:        strings.TrimSpace(in.Topic),
		NumQuestions: in.NumQuestions,
		Difficulty:   in.Difficulty,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.TimerSeconds != 0 && !isAllowedTimer(in.TimerSeconds) {
		return fmt.Errorf("%w: timer must be one of %v seconds, got %d", ErrInvalidInput, AllowedTimerSeconds, in.TimerSeconds)
	}

	questions, err := gen.Generate(ctx, s.id, req)
	if err != nil {
		return err
	}
	// Never trust a Generator implementation to have checked its own output.
	if err := NewQuestionChecker().Check(questions, req.NumQuestions); err != nil {
		return err
	}

	s.topic = req.Topic
	s.difficulty = req.Difficulty
	s.questions = questions
	s.answers = make([]int, 0, len(questions))
	s.currentIndex = 0
	s.selected = NoSelection
	s.timerSeconds = in.TimerSeconds
	s.startedAt = now
	s.phase = PhaseAnswering
	s.armTimer(now)

	VerboseLog("Session %s started: %d questions on %q (%s)", s.id, len(questions), s.topic, s.difficulty)
	return nil
}

func (s *Session) armTimer(now time.Time) {
	if s.timerSeconds > 0 {
		s.deadline = now.Add(time.Duration(s.timerSeconds) * time.Second)
	} else {
		s.deadline = time.Time{}
	}
}

func (s *Session) validOption(option int) bool {
	return option >= 0 && option < len(s.questions[s.currentIndex].Options)
}

// Select records the option currently highlighted for the open question.
// It is what the timer submits on expiry.
func (s *Session) Select(option int) error {
	if s.phase != PhaseAnswering {
		return fmt.Errorf("select option: %w", ErrInvalidTransition)
	}
	if !s.validOption(option) {
		return fmt.Errorf("select option %d: %w", option, ErrInvalidOption)
	}
	s.selected = option
	return nil
}

// Submit records the answer for the current question and moves to review.
// A repeat submission for a question already answered is ignored.
func (s *Session) Submit(option int, now time.Time) error {
	switch s.phase {
	case PhaseAnswering:
	case PhaseReviewing:
		VerboseLog("Session %s: ignoring repeat answer for question %d", s.id, s.currentIndex+1)
		return nil
	default:
		return fmt.Errorf("submit answer: %w", ErrInvalidTransition)
	}
	if !s.validOption(option) {
		return fmt.Errorf("submit answer %d: %w", option, ErrInvalidOption)
	}
	s.record(option)
	return nil
}

func (s *Session) record(option int) {
	s.answers = append(s.answers, option)
	s.selected = option
	s.deadline = time.Time{}
	s.phase = PhaseReviewing
}

// Tick checks the timer and, once it has run out, submits the highlighted
// option (option 0 if nothing was highlighted). It reports whether it fired.
func (s *Session) Tick(now time.Time) bool {
	if s.phase != PhaseAnswering || s.deadline.IsZero() {
		return false
	}
	if s.deadline.After(now) {
		return false
	}
	option := s.selected
	if option == NoSelection {
		option = 0
	}
	VerboseLog("Session %s: timer expired on question %d, recording option %d", s.id, s.currentIndex+1, option)
	s.record(option)
	return true
}

// Remaining returns the whole seconds left on the current question, or 0
// when no timer is running.
func (s *Session) Remaining(now time.Time) int {
	if s.phase != PhaseAnswering || s.deadline.IsZero() {
		return 0
	}
	left := s.deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// Next moves from review to the following question.
func (s *Session) Next(now time.Time) error {
	if s.phase != PhaseReviewing || s.currentIndex >= len(s.questions)-1 {
		return fmt.Errorf("next question: %w", ErrInvalidTransition)
	}
	s.currentIndex++
	s.selected = NoSelection
	s.phase = PhaseAnswering
	s.armTimer(now)
	return nil
}

// Finish completes the quiz from the review of the last question and scores it.
func (s *Session) Finish() error {
	if s.phase != PhaseReviewing || s.currentIndex != len(s.questions)-1 {
		return fmt.Errorf("finish quiz: %w", ErrInvalidTransition)
	}
	res, err := Score(s.questions, s.answers)
	if err != nil {
		return err
	}
	s.result = &res
	s.phase = PhaseCompleted
	log.Printf("Session %s completed: %d/%d (%.1f%%)", s.id, res.CorrectCount, res.Total, res.Percentage)
	return nil
}

// Persist writes the history record for a completed quiz. It is safe to call
// on every render: once a write succeeded later calls do nothing.
func (s *Session) Persist(ctx context.Context, rec HistoryRecorder) error {
	if s.phase != PhaseCompleted || s.persisted {
		return nil
	}
	if rec == nil {
		return &StoreError{Kind: ErrUnavailable, Op: "save quiz result"}
	}
	snapshot, err := s.Snapshot()
	if err != nil {
		return &StoreError{Kind: ErrWriteFailed, Op: "save quiz result", Err: err}
	}
	id, err := rec.Save(ctx, HistoryRecord{
		Topic:        s.topic,
		Difficulty:   s.difficulty,
		NumQuestions: len(s.questions),
		Score:        s.result.CorrectCount,
		Percentage:   s.result.Percentage,
		QuizData:     snapshot,
	})
	if err != nil {
		return err
	}
	s.persisted = true
	s.historyID = id
	return nil
}

// QuizSnapshot is the JSON kept in a history record's quiz_data column
type QuizSnapshot struct {
	Questions []Question `json:"questions"`
	Answers   []int      `json:"user_answers"`
	TimerSecs int        `json:"timer_seconds,omitempty"`
}

// Snapshot serializes the questions and answers of the session.
func (s *Session) Snapshot() (string, error) {
	data, err := json.Marshal(QuizSnapshot{
		Questions: s.questions,
		Answers:   s.answers,
		TimerSecs: s.timerSeconds,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal quiz snapshot: %w", err)
	}
	return string(data), nil
}

// ParseSnapshot decodes a stored quiz_data blob.
func ParseSnapshot(data string) (QuizSnapshot, error) {
	var snap QuizSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return QuizSnapshot{}, fmt.Errorf("failed to unmarshal quiz snapshot: %w", err)
	}
	return snap, nil
}

// ReportInput builds the exporter input from a completed session.
func (s *Session) ReportInput(now time.Time) (ReportInput, error) {
	if s.phase != PhaseCompleted || s.result == nil {
		return ReportInput{}, fmt.Errorf("export report: %w", ErrInvalidTransition)
	}
	return ReportInput{
		Topic:          s.topic,
		Difficulty:     s.difficulty,
		Score:          s.result.CorrectCount,
		TotalQuestions: len(s.questions),
		Percentage:     s.result.Percentage,
		Grade:          s.result.Grade,
		Questions:      s.questions,
		Answers:        s.answers,
		Date:           now,
	}, nil
}

// SessionView is a read-only copy of the session for rendering
type SessionView struct {
	ID           string
	Phase        Phase
	Topic        string
	Difficulty   Difficulty
	Total        int
	Number       int // 1-based number of the current question
	Question     Question
	Selected     int
	Answer       int // recorded answer while reviewing
	Correct      bool
	IsLast       bool
	TimerSeconds int
	Remaining    int
	Progress     int // percent of questions answered
	Questions    []Question
	Answers      []int
	Result       *Result
	Persisted    bool
	HistoryID    int64
}

// View copies the state needed by templates.
func (s *Session) View(now time.Time) SessionView {
	v := SessionView{
		ID:           s.id,
		Phase:        s.phase,
		Topic:        s.topic,
		Difficulty:   s.difficulty,
		Total:        len(s.questions),
		Selected:     s.selected,
		Answer:       NoSelection,
		TimerSeconds: s.timerSeconds,
		Remaining:    s.Remaining(now),
		Questions:    append([]Question(nil), s.questions...),
		Answers:      append([]int(nil), s.answers...),
		Persisted:    s.persisted,
		HistoryID:    s.historyID,
	}
	if len(s.questions) > 0 {
		v.Number = s.currentIndex + 1
		v.Question = s.questions[s.currentIndex]
		v.IsLast = s.currentIndex == len(s.questions)-1
		v.Progress = 100 * len(s.answers) / len(s.questions)
	}
	if s.phase == PhaseReviewing {
		v.Answer = s.answers[s.currentIndex]
		v.Correct = v.Answer == v.Question.CorrectAnswer
	}
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	return v
}
