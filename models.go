package quizmaker

import (
	"fmt"
	"strings"
	"time"
)

// Question represents a single quiz question with multiple choice answers
type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"` // 0-based index
	Explanation   string   `json:"explanation"`
}

// OptionsPerQuestion is the fixed number of choices every question carries.
const OptionsPerQuestion = 4

// Difficulty represents how hard the generated questions should be
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var difficultyInstructions = map[Difficulty]string{
	DifficultyEasy:   "Make the questions introductory: test core definitions and well-known facts a beginner would recognise.",
	DifficultyMedium: "Make the questions moderately challenging: test understanding of how concepts relate and apply, not just recall.",
	DifficultyHard:   "Make the questions advanced: test deep conceptual understanding, edge cases and multi-step reasoning an expert would need.",
}

// ParseDifficulty normalises user input into a known difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := difficultyInstructions[d]; !ok {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// Instruction returns the prompt text used to steer the generator.
func (d Difficulty) Instruction() string {
	return difficultyInstructions[d]
}

// Title is the capitalised label used in pages and reports.
func (d Difficulty) Title() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// Difficulties lists the levels in display order.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// AllowedQuestionCounts are the quiz lengths a user may choose.
var AllowedQuestionCounts = []int{5, 10, 15, 20}

// DefaultQuestionCount is preselected on the setup form.
const DefaultQuestionCount = 10

// AllowedTimerSeconds are the per-question time limits a user may choose.
var AllowedTimerSeconds = []int{15, 30, 45, 60, 90}

func isAllowedCount(n int) bool {
	for _, c := range AllowedQuestionCounts {
		if c == n {
			return true
		}
	}
	return false
}

func isAllowedTimer(sec int) bool {
	for _, s := range AllowedTimerSeconds {
		if s == sec {
			return true
		}
	}
	return false
}

// GenerationRequest represents a request to generate questions
type GenerationRequest struct {
	Topic        string     `json:"topic"`
	NumQuestions int        `json:"num_questions"`
	Difficulty   Difficulty `json:"difficulty"`
}

// Validate checks the request before anything is sent to the model.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("topic is required")
	}
	if !isAllowedCount(r.NumQuestions) {
		return fmt.Errorf("number of questions must be one of %v, got %d", AllowedQuestionCounts, r.NumQuestions)
	}
	if _, ok := difficultyInstructions[r.Difficulty]; !ok {
		return fmt.Errorf("unknown difficulty %q", r.Difficulty)
	}
	return nil
}

// HistoryRecord is the persisted summary of one completed quiz
type HistoryRecord struct {
	ID           int64      `json:"id"`
	Topic        string     `json:"topic"`
	Difficulty   Difficulty `json:"difficulty"`
	NumQuestions int        `json:"num_questions"`
	Score        int        `json:"score"`
	Percentage   float64    `json:"percentage"`
	QuizData     string     `json:"quiz_data"` // JSON snapshot of questions and answers
	CreatedAt    time.Time  `json:"created_at"`
}

// Statistics aggregates every stored history record
type Statistics struct {
	TotalQuizzes           int     `json:"total_quizzes"`
	AverageScore           float64 `json:"average_score"`
	BestScore              float64 `json:"best_score"`
	TotalQuestionsAnswered int     `json:"total_questions_answered"`
}
