package loadtest_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"

	"reqlog/internal/app"
	"reqlog/internal/domain"
	"reqlog/internal/items"
	"reqlog/internal/platform/config"
	"reqlog/internal/platform/server"
	"reqlog/internal/testutil"
)

// testEnv holds the running service under load.
type testEnv struct {
	baseURL string
	token   string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = freeAddr(t)
	cfg.Auth.Secret = string(testutil.TestSecret)

	// Logging every body is part of the measured path; discard the output.
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	srv := server.New(cfg.Addr, app.New(cfg, logger, items.NewStore("widget"), nil), logger)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := srv.Run(ctx); err != nil {
			t.Logf("server error: %v", err)
		}
	}()
	t.Cleanup(cancel)

	env := &testEnv{
		baseURL: "http://" + cfg.Addr,
		token: testutil.IssueTestToken(t, testutil.TestSecret, domain.Principal{
			ID:     "loadtest-user",
			Scopes: []string{"items:read", "items:write"},
		}, time.Hour),
	}
	waitForReady(t, env.baseURL+"/healthz")
	return env
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func waitForReady(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server did not become ready at %s", url)
}

func loadtestDuration() time.Duration {
	if d := os.Getenv("LOADTEST_DURATION"); d != "" {
		dur, err := time.ParseDuration(d)
		if err == nil {
			return dur
		}
	}
	if testing.Short() {
		return 2 * time.Second
	}
	return 5 * time.Second
}

func loadtestRate() int {
	if r := os.Getenv("LOADTEST_RATE"); r != "" {
		rate, err := strconv.Atoi(r)
		if err == nil {
			return rate
		}
	}
	if testing.Short() {
		return 50
	}
	return 100
}

func printReport(t *testing.T, name string, metrics *vegeta.Metrics) {
	t.Helper()
	t.Logf("\n=== %s ===", name)
	t.Logf("  Requests:    %d", metrics.Requests)
	t.Logf("  Throughput:  %.1f req/s", metrics.Throughput)
	t.Logf("  Latencies:   mean=%s p50=%s p95=%s p99=%s max=%s",
		metrics.Latencies.Mean, metrics.Latencies.P50, metrics.Latencies.P95,
		metrics.Latencies.P99, metrics.Latencies.Max)
	t.Logf("  Status Codes:")
	for code, count := range metrics.StatusCodes {
		t.Logf("    %s: %d", code, count)
	}
	if len(metrics.Errors) > 0 {
		t.Logf("  Errors (first 5):")
		for i, e := range metrics.Errors {
			if i >= 5 {
				break
			}
			t.Logf("    %s", e)
		}
	}
}

func TestBaselineList(t *testing.T) {
	env := setupTestEnv(t)

	targeter := vegeta.NewStaticTargeter(vegeta.Target{
		Method: http.MethodGet,
		URL:    env.baseURL + "/items",
		Header: http.Header{"Authorization": []string{"Bearer " + env.token}},
	})

	attacker := vegeta.NewAttacker()
	var metrics vegeta.Metrics
	rate := vegeta.Rate{Freq: loadtestRate(), Per: time.Second}
	for res := range attacker.Attack(targeter, rate, loadtestDuration(), "baseline") {
		metrics.Add(res)
	}
	metrics.Close()

	printReport(t, "Baseline List", &metrics)

	if metrics.Success < 0.99 {
		t.Errorf("expected >99%% success rate, got %.1f%%", metrics.Success*100)
	}
	if metrics.Latencies.P99 > 100*time.Millisecond {
		t.Errorf("P99 latency too high: %s", metrics.Latencies.P99)
	}
}

// TestBodiesStayIsolated sends concurrent writes, every tenth of which fails,
// and checks that each response belongs to its own request. The request ID
// and the item name carry the same tag, so a response body leaking from a
// pooled buffer into another request shows up as a mismatch.
func TestBodiesStayIsolated(t *testing.T) {
	env := setupTestEnv(t)

	var seq atomic.Int64
	targeter := func(tgt *vegeta.Target) error {
		n := seq.Add(1)
		tag := fmt.Sprintf("load-%d", n)
		name := tag
		if n%10 == 0 {
			name = "full"
		}
		tgt.Method = http.MethodPost
		tgt.URL = env.baseURL + "/items"
		tgt.Body = []byte(fmt.Sprintf(`{"name":%q}`, name))
		tgt.Header = http.Header{
			"Authorization": []string{"Bearer " + env.token},
			"Content-Type":  []string{"application/json"},
			"X-Request-Id":  []string{tag},
		}
		return nil
	}

	attacker := vegeta.NewAttacker(vegeta.Workers(16))
	var metrics vegeta.Metrics
	var mismatches, failures, created int
	rate := vegeta.Rate{Freq: loadtestRate() * 2, Per: time.Second}
	for res := range attacker.Attack(targeter, rate, loadtestDuration(), "isolation") {
		metrics.Add(res)

		tag := res.Headers.Get("X-Request-Id")
		switch res.Code {
		case http.StatusCreated:
			var it items.Item
			if err := json.Unmarshal(res.Body, &it); err != nil || it.Name != tag {
				mismatches++
				continue
			}
			created++
		case http.StatusInternalServerError:
			var envelope domain.ErrorResponse
			if err := json.Unmarshal(res.Body, &envelope); err != nil || envelope.Message != "disk full" {
				mismatches++
				continue
			}
			failures++
		}
	}
	metrics.Close()

	printReport(t, "Body Isolation", &metrics)
	t.Logf("  created=%d failures=%d mismatches=%d", created, failures, mismatches)

	if mismatches > 0 {
		t.Errorf("expected every response to match its request, got %d mismatches", mismatches)
	}
	if created == 0 || failures == 0 {
		t.Errorf("expected both successes and translated failures, got created=%d failures=%d", created, failures)
	}
	if got := metrics.StatusCodes["201"] + metrics.StatusCodes["500"]; got != int(metrics.Requests) {
		t.Errorf("expected only 201/500 responses, got %v", metrics.StatusCodes)
	}
}

func TestUnauthenticatedFlood(t *testing.T) {
	env := setupTestEnv(t)

	targeter := vegeta.NewStaticTargeter(vegeta.Target{
		Method: http.MethodGet,
		URL:    env.baseURL + "/items",
	})

	attacker := vegeta.NewAttacker()
	var metrics vegeta.Metrics
	var badBodies int
	rate := vegeta.Rate{Freq: loadtestRate(), Per: time.Second}
	for res := range attacker.Attack(targeter, rate, loadtestDuration(), "unauthenticated") {
		metrics.Add(res)
		var envelope domain.ErrorResponse
		if err := json.Unmarshal(res.Body, &envelope); err != nil || envelope.Message != "no token" {
			badBodies++
		}
	}
	metrics.Close()

	printReport(t, "Unauthenticated Flood", &metrics)

	if metrics.StatusCodes["401"] != int(metrics.Requests) {
		t.Errorf("expected all 401s, got %v", metrics.StatusCodes)
	}
	if badBodies > 0 {
		t.Errorf("expected every body to be the access-denied envelope, got %d bad bodies", badBodies)
	}
}
