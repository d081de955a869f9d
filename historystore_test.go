package quizmaker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := OpenHistoryStore(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistoryStore returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStatisticsOnEmptyStore(t *testing.T) {
	store := openTestStore(t)
	stats, err := store.Statistics(context.Background())
	if err != nil {
		t.Fatalf("Statistics returned error: %v", err)
	}
	if stats != (Statistics{}) {
		t.Fatalf("expected zero statistics, got %+v", stats)
	}
	recent, err := store.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("expected no records, got %d", len(recent))
	}
}

func TestSaveAndListRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		id, err := store.Save(ctx, HistoryRecord{
			Topic:        fmt.Sprintf("Topic %d", i),
			Difficulty:   DifficultyMedium,
			NumQuestions: 10,
			Score:        i % 11,
			Percentage:   float64(i%11) * 10,
			QuizData:     `{"questions":[],"user_answers":[]}`,
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
		if id != int64(i+1) {
			t.Fatalf("expected id %d, got %d", i+1, id)
		}
	}

	recent, err := store.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(recent) != 10 {
		t.Fatalf("expected 10 records, got %d", len(recent))
	}
	if recent[0].Topic != "Topic 11" || recent[9].Topic != "Topic 2" {
		t.Fatalf("records not newest first: first %q, last %q", recent[0].Topic, recent[9].Topic)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].CreatedAt.After(recent[i-1].CreatedAt) {
			t.Fatalf("record %d is newer than record %d", i, i-1)
		}
	}
	if recent[0].Difficulty != DifficultyMedium || recent[0].NumQuestions != 10 {
		t.Fatalf("unexpected record: %+v", recent[0])
	}

	all, err := store.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("ListRecent(0) returned error: %v", err)
	}
	if len(all) != 12 {
		t.Fatalf("expected all 12 records, got %d", len(all))
	}
}

func TestStatisticsRounding(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	records := []HistoryRecord{
		{Topic: "A", Difficulty: DifficultyEasy, NumQuestions: 5, Score: 4, Percentage: 80},
		{Topic: "B", Difficulty: DifficultyEasy, NumQuestions: 5, Score: 3, Percentage: 60},
		{Topic: "C", Difficulty: DifficultyHard, NumQuestions: 15, Score: 10, Percentage: 66.7},
	}
	for _, rec := range records {
		if _, err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
	}

	stats, err := store.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics returned error: %v", err)
	}
	want := Statistics{TotalQuizzes: 3, AverageScore: 68.9, BestScore: 80, TotalQuestionsAnswered: 25}
	if stats != want {
		t.Fatalf("Statistics = %+v, want %+v", stats, want)
	}
}

func TestGetRecord(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id, err := store.Save(ctx, HistoryRecord{Topic: "Go", Difficulty: DifficultyHard, NumQuestions: 5, Score: 5, Percentage: 100, QuizData: `{"questions":[]}`})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	rec, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.ID != id || rec.Topic != "Go" || rec.Percentage != 100 || rec.QuizData != `{"questions":[]}` {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to default to now")
	}

	if _, err := store.Get(ctx, id+100); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Get of unknown id error = %v, want ErrRecordNotFound", err)
	}
}

func TestUnavailableStore(t *testing.T) {
	ctx := context.Background()
	closed := openTestStore(t)
	if err := closed.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	for name, store := range map[string]*HistoryStore{"nil": nil, "closed": closed} {
		if _, err := store.Save(ctx, HistoryRecord{Topic: "x"}); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("%s store Save error = %v, want ErrUnavailable", name, err)
		}
		if _, err := store.ListRecent(ctx, 10); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("%s store ListRecent error = %v, want ErrUnavailable", name, err)
		}
		if _, err := store.Statistics(ctx); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("%s store Statistics error = %v, want ErrUnavailable", name, err)
		}
		if _, err := store.Get(ctx, 1); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("%s store Get error = %v, want ErrUnavailable", name, err)
		}
	}
}

func TestOpenHistoryStoreRequiresURL(t *testing.T) {
	if _, err := OpenHistoryStore(context.Background(), "  "); !errors.Is(err, ErrMissingDatabaseURL) {
		t.Fatalf("expected ErrMissingDatabaseURL, got %v", err)
	}
}

func TestOpenHistoryStoreIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	first, err := OpenHistoryStore(ctx, path)
	if err != nil {
		t.Fatalf("OpenHistoryStore returned error: %v", err)
	}
	if _, err := first.Save(ctx, HistoryRecord{Topic: "kept", Difficulty: DifficultyEasy, NumQuestions: 5, Score: 1, Percentage: 20}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	first.Close()

	second, err := OpenHistoryStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer second.Close()
	recent, err := second.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(recent) != 1 || recent[0].Topic != "kept" {
		t.Fatalf("existing rows lost on reopen: %+v", recent)
	}
}

func TestConcurrentSaves(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Save(ctx, HistoryRecord{Topic: fmt.Sprintf("t%d", i), Difficulty: DifficultyEasy, NumQuestions: 5, Score: 5, Percentage: 100})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Save returned error: %v", err)
		}
	}

	stats, err := store.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics returned error: %v", err)
	}
	if stats.TotalQuizzes != writers || stats.TotalQuestionsAnswered != writers*5 {
		t.Fatalf("unexpected statistics after concurrent saves: %+v", stats)
	}
}

func TestRebindForPostgres(t *testing.T) {
	hs := &HistoryStore{dialect: dialectPostgres}
	got := hs.rebind("SELECT * FROM quiz_history WHERE id = ? AND topic = ?")
	if got != "SELECT * FROM quiz_history WHERE id = $1 AND topic = $2" {
		t.Fatalf("unexpected rebind result: %s", got)
	}
	sqlite := &HistoryStore{dialect: dialectSQLite}
	if got := sqlite.rebind("id = ?"); got != "id = ?" {
		t.Fatalf("sqlite query was rewritten: %s", got)
	}
}

func TestPhotosynthesisQuizIsRecorded(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	s := NewSession()
	in := SetupInput{Topic: "Photosynthesis", NumQuestions: 5, Difficulty: DifficultyEasy}
	if err := s.Start(ctx, &fakeGenerator{}, in, t0); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	completeSession(t, s, 4)

	v := s.View(t0)
	want := Result{CorrectCount: 4, Total: 5, Percentage: 80, Grade: GradeExcellent}
	if *v.Result != want {
		t.Fatalf("Result = %+v, want %+v", *v.Result, want)
	}
	if err := s.Persist(ctx, store); err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}
	if err := s.Persist(ctx, store); err != nil {
		t.Fatalf("second Persist returned error: %v", err)
	}

	recent, err := store.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected one history record, got %d", len(recent))
	}
	rec := recent[0]
	if rec.Topic != "Photosynthesis" || rec.NumQuestions != 5 || rec.Score != 4 || rec.Percentage != 80 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	snap, err := ParseSnapshot(rec.QuizData)
	if err != nil {
		t.Fatalf("ParseSnapshot returned error: %v", err)
	}
	if len(snap.Answers) != 5 || snap.Questions[0].Text != "Question number 1?" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestCloseWhileReading(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if _, err := store.Save(ctx, HistoryRecord{Topic: "Go", Difficulty: DifficultyEasy, NumQuestions: 5, Score: 3, Percentage: 60}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, errList := store.ListRecent(ctx, 10)
				_, errStats := store.Statistics(ctx)
				_, errGet := store.Get(ctx, 1)
				for _, err := range []error{errList, errStats, errGet} {
					if err != nil && !errors.Is(err, ErrUnavailable) {
						t.Errorf("read during Close returned %v", err)
						return
					}
				}
			}
		}()
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	wg.Wait()

	if _, err := store.Statistics(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Statistics after Close error = %v, want ErrUnavailable", err)
	}
}
