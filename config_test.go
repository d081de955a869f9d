package quizmaker

import (
	"errors"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := ConfigFromEnv(envMap(map[string]string{
		"OPENAI_API_KEY": "sk-test",
		"DATABASE_URL":   "sqlite://quiz.db",
	}))
	if err != nil {
		t.Fatalf("ConfigFromEnv returned error: %v", err)
	}
	if cfg.Port != "8180" || cfg.LogDir != "log" || cfg.SessionTTL != 2*time.Hour || cfg.Verbose || cfg.CookieSecure {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.SessionSecret) != 32 {
		t.Fatalf("expected a generated 32 byte secret, got %d bytes", len(cfg.SessionSecret))
	}
}

func TestConfigOverrides(t *testing.T) {
	cfg, err := ConfigFromEnv(envMap(map[string]string{
		"OPENAI_API_KEY":  "sk-test",
		"OPENAI_BASE_URL": "http://localhost:11434/v1",
		"OPENAI_MODEL":    "llama3",
		"DATABASE_URL":    "postgres://quiz@localhost/quiz",
		"SESSION_SECRET":  "secret",
		"SESSION_TTL":     "30m",
		"PORT":            "9000",
		"LOG_DIR":         "/tmp/quizlogs",
		"VERBOSE":         "true",
		"COOKIE_SECURE":   "1",
	}))
	if err != nil {
		t.Fatalf("ConfigFromEnv returned error: %v", err)
	}
	if cfg.OpenAIBaseURL != "http://localhost:11434/v1" || cfg.OpenAIModel != "llama3" {
		t.Fatalf("OpenAI settings not applied: %+v", cfg)
	}
	if string(cfg.SessionSecret) != "secret" || cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("session settings not applied: %+v", cfg)
	}
	if cfg.Port != "9000" || cfg.LogDir != "/tmp/quizlogs" || !cfg.Verbose || !cfg.CookieSecure {
		t.Fatalf("server settings not applied: %+v", cfg)
	}
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"missing api key", map[string]string{"DATABASE_URL": "quiz.db"}, ErrMissingAPIKey},
		{"missing database url", map[string]string{"OPENAI_API_KEY": "sk-test"}, ErrMissingDatabaseURL},
	}
	for _, tc := range tests {
		if _, err := ConfigFromEnv(envMap(tc.env)); !errors.Is(err, tc.want) {
			t.Fatalf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
	}

	_, err := ConfigFromEnv(envMap(map[string]string{
		"OPENAI_API_KEY": "sk-test",
		"DATABASE_URL":   "quiz.db",
		"SESSION_TTL":    "forever",
	}))
	if err == nil {
		t.Fatalf("expected error for invalid SESSION_TTL")
	}
}
