package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"quizmaker"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
)

const (
	cookieName   = "quiz-session"
	historyLimit = 10
)

// quizRequest holds a locked quiz session for the duration of one action
type quizRequest struct {
	w       http.ResponseWriter
	r       *http.Request
	cookie  *sessions.Session
	quiz    *quizmaker.Session
	release func()
}

func (s *Server) open(w http.ResponseWriter, r *http.Request) *quizRequest {
	cookie, err := s.store.Get(r, cookieName)
	if err != nil {
		// A cookie signed with an old key decodes to a fresh session.
		log.Printf("Discarding unreadable session cookie: %v", err)
	}
	id, _ := cookie.Values["sid"].(string)
	quiz, release := s.pool.Acquire(id, s.now())
	return &quizRequest{w: w, r: r, cookie: cookie, quiz: quiz, release: release}
}

func (qr *quizRequest) flash(msg string) {
	qr.cookie.AddFlash(msg)
}

// close stores the session id and pending flashes in the cookie and unlocks
// the quiz. It must run before anything is written to the response.
func (qr *quizRequest) close() {
	qr.cookie.Values["sid"] = qr.quiz.ID()
	if err := qr.cookie.Save(qr.r, qr.w); err != nil {
		log.Printf("Session save error: %v", err)
	}
	qr.release()
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// userMessage turns an action error into text for the page.
func userMessage(err error) string {
	switch {
	case errors.Is(err, quizmaker.ErrInvalidInput):
		return strings.TrimPrefix(err.Error(), quizmaker.ErrInvalidInput.Error()+": ")
	case errors.Is(err, quizmaker.ErrTransport):
		return "Could not reach the question generator. Please try again."
	case errors.Is(err, quizmaker.ErrEmptyResponse):
		return "The question generator returned nothing. Please try again."
	case errors.Is(err, quizmaker.ErrMalformed):
		return "The question generator returned unusable questions. Please try a different topic."
	case errors.Is(err, quizmaker.ErrInvalidTransition):
		return "That action is not available right now."
	case errors.Is(err, quizmaker.ErrInvalidOption):
		return "Please choose one of the listed answers."
	case errors.Is(err, quizmaker.ErrUnavailable):
		return "Quiz history is unavailable; this result was not saved."
	case errors.Is(err, quizmaker.ErrWriteFailed):
		return "Could not save this result to your history."
	case errors.Is(err, quizmaker.ErrRender):
		return "Could not create the PDF report."
	}
	return "Something went wrong. Please try again."
}

// persist saves a completed quiz once. Without a store there is nothing to do.
func (s *Server) persist(qr *quizRequest) {
	if s.history == nil {
		return
	}
	if err := qr.quiz.Persist(qr.r.Context(), s.history); err != nil {
		log.Printf("Failed to save history for session %s: %v", qr.quiz.ID(), err)
		qr.flash(userMessage(err))
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	qr := s.open(w, r)
	now := s.now()
	qr.quiz.Tick(now)
	// Re-rendering a completed quiz retries a failed save but never repeats a successful one.
	s.persist(qr)
	view := qr.quiz.View(now)
	var flashes []string
	for _, f := range qr.cookie.Flashes() {
		if msg, ok := f.(string); ok {
			flashes = append(flashes, msg)
		}
	}
	qr.close()

	data := map[string]interface{}{
		"View":    view,
		"Flashes": flashes,
	}

	switch view.Phase {
	case quizmaker.PhaseAnswering, quizmaker.PhaseReviewing:
		s.render(w, "question", data)
	case quizmaker.PhaseCompleted:
		data["HistoryEnabled"] = s.history != nil
		s.render(w, "results", data)
	default:
		data["Counts"] = quizmaker.AllowedQuestionCounts
		data["DefaultCount"] = quizmaker.DefaultQuestionCount
		data["Timers"] = quizmaker.AllowedTimerSeconds
		data["Difficulties"] = quizmaker.Difficulties()
		s.addHistory(r, data)
		s.render(w, "setup", data)
	}
}

// addHistory fills in statistics and recent quizzes when the store works.
func (s *Server) addHistory(r *http.Request, data map[string]interface{}) {
	if s.history == nil {
		return
	}
	stats, err := s.history.Statistics(r.Context())
	if err != nil {
		log.Printf("Failed to load statistics: %v", err)
		return
	}
	recent, err := s.history.ListRecent(r.Context(), historyLimit)
	if err != nil {
		log.Printf("Failed to load history: %v", err)
		return
	}
	data["Stats"] = stats
	data["History"] = recent
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	qr := s.open(w, r)
	in, err := parseSetup(r)
	if err == nil {
		err = qr.quiz.Start(r.Context(), s.generator, in, s.now())
	}
	if err != nil {
		log.Printf("Failed to start quiz for session %s: %v", qr.quiz.ID(), err)
		qr.flash(userMessage(err))
	}
	qr.close()
	redirectHome(w, r)
}

func parseSetup(r *http.Request) (quizmaker.SetupInput, error) {
	in := quizmaker.SetupInput{Topic: r.FormValue("topic")}

	count, err := strconv.Atoi(r.FormValue("num_questions"))
	if err != nil {
		return in, fmt.Errorf("%w: choose the number of questions", quizmaker.ErrInvalidInput)
	}
	in.NumQuestions = count

	difficulty, err := quizmaker.ParseDifficulty(r.FormValue("difficulty"))
	if err != nil {
		return in, fmt.Errorf("%w: %v", quizmaker.ErrInvalidInput, err)
	}
	in.Difficulty = difficulty

	if v := r.FormValue("timer"); v != "" && v != "0" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return in, fmt.Errorf("%w: invalid timer %q", quizmaker.ErrInvalidInput, v)
		}
		in.TimerSeconds = secs
	}
	return in, nil
}

func parseOption(r *http.Request) (int, bool) {
	v := r.FormValue("option")
	if v == "" {
		return 0, false
	}
	option, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return option, true
}

// handleSelect is called from the page whenever a radio button changes so
// that an expiring timer submits the highlighted option.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	option, ok := parseOption(r)
	if !ok {
		http.Error(w, "Invalid option", http.StatusBadRequest)
		return
	}
	qr := s.open(w, r)
	qr.quiz.Tick(s.now())
	err := qr.quiz.Select(option)
	qr.close()
	if err != nil {
		http.Error(w, userMessage(err), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	qr := s.open(w, r)
	now := s.now()
	// A submission that arrives after the deadline loses to the timer.
	if !qr.quiz.Tick(now) {
		if option, ok := parseOption(r); !ok {
			qr.flash("Please choose an answer.")
		} else if err := qr.quiz.Submit(option, now); err != nil {
			qr.flash(userMessage(err))
		}
	}
	qr.close()
	redirectHome(w, r)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	qr := s.open(w, r)
	if err := qr.quiz.Next(s.now()); err != nil {
		qr.flash(userMessage(err))
	}
	qr.close()
	redirectHome(w, r)
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	qr := s.open(w, r)
	if err := qr.quiz.Finish(); err != nil {
		qr.flash(userMessage(err))
	} else {
		s.persist(qr)
	}
	qr.close()
	redirectHome(w, r)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	qr := s.open(w, r)
	qr.quiz.Reset()
	qr.close()
	redirectHome(w, r)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	qr := s.open(w, r)
	now := s.now()
	in, err := qr.quiz.ReportInput(now)
	var pdf []byte
	if err == nil {
		pdf, err = quizmaker.ExportReport(in)
	}
	if err != nil {
		log.Printf("Failed to export report for session %s: %v", qr.quiz.ID(), err)
		qr.flash(userMessage(err))
		qr.close()
		redirectHome(w, r)
		return
	}
	qr.close()

	name := strings.Trim(unsafeFilename.ReplaceAllString(in.Topic, "_"), "_")
	if name == "" {
		name = "quiz"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="quiz_results_%s_%s.pdf"`, name, now.Format("20060102_150405")))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Write(pdf)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{}
	s.addHistory(r, data)
	_, available := data["Stats"]
	data["Available"] = available
	s.render(w, "history", data)
}

func (s *Server) handleHistoryDetail(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "Quiz history is unavailable", http.StatusServiceUnavailable)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	rec, err := s.history.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, quizmaker.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Printf("Failed to get history %d: %v", id, err)
		http.Error(w, "Failed to get quiz history", http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"Record": rec,
		"Grade":  quizmaker.GradeFor(rec.Percentage),
	}
	if rec.QuizData != "" {
		snap, err := quizmaker.ParseSnapshot(rec.QuizData)
		if err != nil {
			log.Printf("History %d has unreadable quiz data: %v", id, err)
		} else {
			data["Snapshot"] = snap
		}
	}
	s.render(w, "history_detail", data)
}
