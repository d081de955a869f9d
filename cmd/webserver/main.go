package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"quizmaker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
)

//go:embed templates/*.html
var templateFS embed.FS

// historyBackend is what the pages need from the history store
type historyBackend interface {
	quizmaker.HistoryRecorder
	ListRecent(ctx context.Context, limit int) ([]quizmaker.HistoryRecord, error)
	Statistics(ctx context.Context) (quizmaker.Statistics, error)
	Get(ctx context.Context, id int64) (quizmaker.HistoryRecord, error)
}

type Server struct {
	generator quizmaker.Generator
	history   historyBackend // nil when the store is unavailable
	pool      *quizmaker.SessionPool
	store     sessions.Store
	templates map[string]*template.Template
	now       func() time.Time
}

func main() {
	cfg, err := quizmaker.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	quizmaker.SetVerbose(cfg.Verbose)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	history, closeHistory, err := openHistory(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("Failed to open history store: %v", err)
	}
	defer closeHistory()

	client := quizmaker.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	generator := quizmaker.NewQuizGenerator(client, cfg.OpenAIModel, cfg.LogDir)

	store := newCookieStore(cfg.SessionSecret, cfg.CookieSecure)

	server, err := NewServer(generator, history, store, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	addr := ":" + cfg.Port
	log.Printf("Starting server on port %s", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// openHistory connects to the history store. Only a missing database URL is
// an error; an unreachable database disables history and the quiz still runs.
func openHistory(ctx context.Context, databaseURL string) (historyBackend, func(), error) {
	db, err := quizmaker.OpenHistoryStore(ctx, databaseURL)
	if err != nil {
		if errors.Is(err, quizmaker.ErrMissingDatabaseURL) {
			return nil, func() {}, err
		}
		log.Printf("History store unavailable, quiz history is disabled: %v", err)
		return nil, func() {}, nil
	}
	return db, func() { db.Close() }, nil
}

// newCookieStore returns the session cookie store. secure must be false when
// the server is reached over plain HTTP or browsers will not send the cookie back.
func newCookieStore(secret []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}

// NewServer wires the handlers. history may be nil, in which case history
// and statistics pages are disabled and quizzes are not saved.
func NewServer(gen quizmaker.Generator, history historyBackend, store sessions.Store, ttl time.Duration) (*Server, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	return &Server{
		generator: gen,
		history:   history,
		pool:      quizmaker.NewSessionPool(ttl),
		store:     store,
		templates: templates,
		now:       time.Now,
	}, nil
}

func loadTemplates() (map[string]*template.Template, error) {
	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"letter": func(i int) string {
			return string(rune('A' + i))
		},
		"note": func(q quizmaker.Question, j, answer int) string {
			return quizmaker.MarkOption(q, j, answer).Note()
		},
		"markClass": func(q quizmaker.Question, j, answer int) string {
			switch quizmaker.MarkOption(q, j, answer) {
			case quizmaker.MarkCorrectChosen, quizmaker.MarkCorrectMissed:
				return "correct"
			case quizmaker.MarkWrongChosen:
				return "incorrect"
			}
			return ""
		},
		"answerAt": func(answers []int, i int) int {
			if i < 0 || i >= len(answers) {
				return quizmaker.NoSelection
			}
			return answers[i]
		},
		"pct": func(v float64) string {
			return fmt.Sprintf("%.1f%%", v)
		},
		"date": func(t time.Time) string {
			return t.Local().Format("2006-01-02 15:04")
		},
	}

	templates := make(map[string]*template.Template)
	for _, name := range []string{"setup", "question", "results", "history", "history_detail"} {
		tmpl, err := template.New(name).Funcs(funcMap).ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return templates, nil
}

// Routes builds the HTTP handler
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHome)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/quiz", func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Post("/select", s.handleSelect)
		r.Post("/answer", s.handleAnswer)
		r.Post("/next", s.handleNext)
		r.Post("/finish", s.handleFinish)
		r.Post("/restart", s.handleRestart)
		r.Get("/report.pdf", s.handleReport)
	})

	r.Get("/history", s.handleHistory)
	r.Get("/history/{id}", s.handleHistoryDetail)

	return r
}

func (s *Server) render(w http.ResponseWriter, name string, data map[string]interface{}) {
	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Template error in %s: %v", name, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}
