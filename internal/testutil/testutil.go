package testutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"reqlog/internal/domain"
)

// TestSecret is the HMAC key used by test tokens.
var TestSecret = []byte("test-secret-do-not-use")

// IssueTestToken creates an HS256-signed JWT for testing.
// A negative ttl produces an already-expired token.
func IssueTestToken(t *testing.T, secret []byte, principal domain.Principal, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":    principal.ID,
		"scopes": strings.Join(principal.Scopes, " "),
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
		"iss":    "reqlog-test",
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// LogSink collects JSON log lines written by a slog.Logger. It is safe for
// concurrent use.
type LogSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *LogSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

// NewLogger returns a debug-level JSON logger writing into a new LogSink.
func NewLogger() (*slog.Logger, *LogSink) {
	sink := &LogSink{}
	return slog.New(slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: slog.LevelDebug})), sink
}

// Entries decodes every log line written so far.
func (s *LogSink) Entries(t *testing.T) []map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(s.buf.Bytes()))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		var e map[string]any
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("parsing log line: %v\nraw: %s", err, sc.Text())
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scanning log output: %v", err)
	}
	return entries
}

// Find returns the entries whose "msg" equals msg.
func (s *LogSink) Find(t *testing.T, msg string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, e := range s.Entries(t) {
		if e["msg"] == msg {
			out = append(out, e)
		}
	}
	return out
}
