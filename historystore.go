package quizmaker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/mattn/go-sqlite3"    // registers "sqlite3"
)

// ErrMissingDatabaseURL is returned when no connection string is configured.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is not set")

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// HistoryStore persists one summary row per completed quiz. Rows are never
// updated or deleted.
type HistoryStore struct {
	db      *sql.DB
	dialect dialect
	mu      sync.Mutex // guards db; held for every query
}

// OpenHistoryStore connects to databaseURL and creates the quiz_history table
// if needed. postgres:// and postgresql:// URLs use pgx; sqlite://path,
// file: URIs and plain paths use SQLite.
func OpenHistoryStore(ctx context.Context, databaseURL string) (*HistoryStore, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	driver, dsn, d := "sqlite3", databaseURL, dialectSQLite
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		driver, d = "pgx", dialectPostgres
	case strings.HasPrefix(databaseURL, "sqlite://"):
		dsn = strings.TrimPrefix(databaseURL, "sqlite://")
	case strings.HasPrefix(databaseURL, "sqlite3://"):
		dsn = strings.TrimPrefix(databaseURL, "sqlite3://")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d == dialectSQLite {
		// One connection: SQLite allows a single writer, and :memory: databases
		// are per connection.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &HistoryStore{db: db, dialect: d}
	if err := store.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection
func (hs *HistoryStore) Close() error {
	if hs == nil {
		return nil
	}
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.db == nil {
		return nil
	}
	err := hs.db.Close()
	hs.db = nil
	return err
}

func (hs *HistoryStore) createTables(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS quiz_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			num_questions INTEGER NOT NULL,
			score INTEGER NOT NULL,
			percentage REAL NOT NULL,
			quiz_data TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	if hs.dialect == dialectPostgres {
		query = `CREATE TABLE IF NOT EXISTS quiz_history (
			id BIGSERIAL PRIMARY KEY,
			topic TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			num_questions INTEGER NOT NULL,
			score INTEGER NOT NULL,
			percentage DOUBLE PRECISION NOT NULL,
			quiz_data TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	}
	if _, err := hs.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create quiz_history table: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (hs *HistoryStore) rebind(query string) string {
	if hs.dialect != dialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Save inserts rec and returns its id. CreatedAt defaults to now.
func (hs *HistoryStore) Save(ctx context.Context, rec HistoryRecord) (int64, error) {
	if hs == nil {
		return 0, &StoreError{Kind: ErrUnavailable, Op: "save quiz result"}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.db == nil {
		return 0, &StoreError{Kind: ErrUnavailable, Op: "save quiz result"}
	}

	var id int64
	err := hs.db.QueryRowContext(ctx, hs.rebind(
		"INSERT INTO quiz_history (topic, difficulty, num_questions, score, percentage, quiz_data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id"),
		rec.Topic, string(rec.Difficulty), rec.NumQuestions, rec.Score, rec.Percentage, rec.QuizData, rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, &StoreError{Kind: ErrWriteFailed, Op: "save quiz result", Err: err}
	}

	VerboseLog("Saved quiz history %d: %s %d/%d", id, rec.Topic, rec.Score, rec.NumQuestions)
	return id, nil
}

const historyColumns = "id, topic, difficulty, num_questions, score, percentage, quiz_data, created_at"

func scanHistory(scan func(dest ...any) error) (HistoryRecord, error) {
	var (
		rec        HistoryRecord
		difficulty string
		quizData   sql.NullString
	)
	if err := scan(&rec.ID, &rec.Topic, &difficulty, &rec.NumQuestions, &rec.Score, &rec.Percentage, &quizData, &rec.CreatedAt); err != nil {
		return HistoryRecord{}, err
	}
	rec.Difficulty = Difficulty(difficulty)
	rec.QuizData = quizData.String
	return rec, nil
}

// ListRecent returns up to limit records, newest first. A limit <= 0 returns all.
func (hs *HistoryStore) ListRecent(ctx context.Context, limit int) ([]HistoryRecord, error) {
	if hs == nil {
		return nil, &StoreError{Kind: ErrUnavailable, Op: "list quiz history"}
	}
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.db == nil {
		return nil, &StoreError{Kind: ErrUnavailable, Op: "list quiz history"}
	}

	query := "SELECT " + historyColumns + " FROM quiz_history ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := hs.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &StoreError{Kind: ErrUnavailable, Op: "list quiz history", Err: err}
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		rec, err := scanHistory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quiz history: %w", err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quiz history: %w", err)
	}

	return records, nil
}

// ErrRecordNotFound is returned by Get for an unknown id.
var ErrRecordNotFound = errors.New("quiz history record not found")

// Get retrieves a single record by id
func (hs *HistoryStore) Get(ctx context.Context, id int64) (HistoryRecord, error) {
	if hs == nil {
		return HistoryRecord{}, &StoreError{Kind: ErrUnavailable, Op: "get quiz history"}
	}
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.db == nil {
		return HistoryRecord{}, &StoreError{Kind: ErrUnavailable, Op: "get quiz history"}
	}
	row := hs.db.QueryRowContext(ctx, hs.rebind("SELECT "+historyColumns+" FROM quiz_history WHERE id = ?"), id)
	rec, err := scanHistory(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return HistoryRecord{}, fmt.Errorf("%w: %d", ErrRecordNotFound, id)
		}
		return HistoryRecord{}, fmt.Errorf("failed to get quiz history: %w", err)
	}
	return rec, nil
}

// Statistics aggregates all records. An empty table yields zeros.
func (hs *HistoryStore) Statistics(ctx context.Context) (Statistics, error) {
	if hs == nil {
		return Statistics{}, &StoreError{Kind: ErrUnavailable, Op: "compute quiz statistics"}
	}
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.db == nil {
		return Statistics{}, &StoreError{Kind: ErrUnavailable, Op: "compute quiz statistics"}
	}

	var (
		stats Statistics
		avg   sql.NullFloat64
		best  sql.NullFloat64
		total sql.NullInt64
	)
	err := hs.db.QueryRowContext(ctx,
		"SELECT COUNT(*), AVG(percentage), MAX(percentage), SUM(num_questions) FROM quiz_history",
	).Scan(&stats.TotalQuizzes, &avg, &best, &total)
	if err != nil {
		return Statistics{}, &StoreError{Kind: ErrUnavailable, Op: "compute quiz statistics", Err: err}
	}

	stats.AverageScore = roundTenth(avg.Float64)
	stats.BestScore = roundTenth(best.Float64)
	stats.TotalQuestionsAnswered = int(total.Int64)
	return stats, nil
}
