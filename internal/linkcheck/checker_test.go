package linkcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/adhikaar/internal/model"
)

func init() {
	// Disable retry sleep in all tests for fast execution
	checkSleepFunc = func(d time.Duration) {}
}

func testConfig() model.LinkCheckConfig {
	return model.LinkCheckConfig{
		Timeout:         5 * time.Second,
		Workers:         4,
		RespectRobots:   true,
		OfficialDomains: []string{"gov.in", "nic.in"},
	}
}

func scheme(id, link, long string) model.SchemeWithRules {
	return model.SchemeWithRules{Scheme: model.Scheme{
		ID:              id,
		Name:            id,
		OfficialLink:    link,
		LongDescription: long,
		IsActive:        true,
	}}
}

func TestCollect(t *testing.T) {
	snapshot := []model.SchemeWithRules{
		scheme("pm-kisan", "https://pmkisan.gov.in/",
			`<p>Apply at <a href="https://pmkisan.gov.in/">the portal</a> or read the <a href="/faq">FAQ</a>.</p>`),
		scheme("no-link", "", "plain text only"),
		scheme("mailto", "", `<a href="mailto:help@example.org">mail</a>`),
	}

	links := Collect(snapshot)

	want := []Link{
		{SchemeID: "pm-kisan", URL: "https://pmkisan.gov.in/", Source: SourceOfficial},
		{SchemeID: "pm-kisan", URL: "https://pmkisan.gov.in/faq", Source: SourceDescription},
	}
	if len(links) != len(want) {
		t.Fatalf("Expected %d links, got %d: %+v", len(want), len(links), links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("link %d: expected %+v, got %+v", i, want[i], links[i])
		}
	}
}

func TestChecker_Check(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
		case "/ok":
			if r.Method != http.MethodHead {
				t.Errorf("Expected HEAD request, got %s", r.Method)
			}
			w.WriteHeader(http.StatusOK)
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		case "/moved":
			http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
		case "/private/form":
			t.Errorf("robots.txt disallowed path was requested")
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer server.Close()

	snapshot := []model.SchemeWithRules{
		scheme("a", server.URL+"/ok", ""),
		scheme("b", server.URL+"/gone", ""),
		scheme("c", server.URL+"/moved", ""),
		scheme("d", server.URL+"/private/form", ""),
	}

	checker := NewChecker(testConfig(), "adhikaar/0.1 (+test)", nil)
	results, err := checker.Check(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}

	if !results[0].Accessible || results[0].StatusCode != http.StatusOK {
		t.Errorf("Expected /ok to be accessible, got %+v", results[0])
	}
	if results[0].Official {
		t.Errorf("Expected test server not to count as official")
	}
	if !results[1].Dead || results[1].Accessible {
		t.Errorf("Expected /gone to be dead, got %+v", results[1])
	}
	if results[2].RedirectURL != server.URL+"/ok" {
		t.Errorf("Expected redirect to /ok, got %q", results[2].RedirectURL)
	}
	if !results[3].Blocked || results[3].StatusCode != 0 {
		t.Errorf("Expected /private/form to be blocked by robots.txt, got %+v", results[3])
	}
}

func TestChecker_HeadNotAllowedFallsBackToGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewChecker(testConfig(), "adhikaar/0.1", nil)
	results, err := checker.Check(context.Background(), []model.SchemeWithRules{scheme("a", server.URL+"/apply", "")})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !results[0].Accessible {
		t.Errorf("Expected GET fallback to succeed, got %+v", results[0])
	}
}

func TestChecker_RetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.RespectRobots = false
	checker := NewChecker(cfg, "adhikaar/0.1", nil)

	results, err := checker.Check(context.Background(), []model.SchemeWithRules{scheme("a", server.URL, "")})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
	if !results[0].Accessible {
		t.Errorf("Expected link to be accessible after retries, got %+v", results[0])
	}
}

func TestChecker_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.RespectRobots = false
	checker := NewChecker(cfg, "adhikaar/0.1", nil)

	results, _ := checker.Check(context.Background(), []model.SchemeWithRules{scheme("a", server.URL, "")})
	if got := attempts.Load(); got != checkMaxRetries {
		t.Errorf("Expected %d attempts, got %d", checkMaxRetries, got)
	}
	if results[0].Accessible || results[0].StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected final 429, got %+v", results[0])
	}
}

func TestChecker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checker := NewChecker(testConfig(), "adhikaar/0.1", nil)
	results, err := checker.Check(ctx, []model.SchemeWithRules{
		scheme("a", "https://example.gov.in/a", ""),
		scheme("b", "https://example.gov.in/b", ""),
	})
	if err == nil {
		t.Fatal("Expected context error")
	}
	if len(results) != 2 {
		t.Fatalf("Expected a result per link, got %d", len(results))
	}
	for _, r := range results {
		if r.Accessible {
			t.Errorf("Expected no link to be checked, got %+v", r)
		}
	}
}

func TestDomainList_Official(t *testing.T) {
	domains := NewDomainList([]string{"gov.in", ".NIC.in", " "})

	tests := []struct {
		url  string
		want bool
	}{
		{"https://pmkisan.gov.in/", true},
		{"https://gov.in", true},
		{"https://scholarships.nic.in/apply", true},
		{"https://PMAYMIS.GOV.IN:443/x", true},
		{"https://notgov.in/", false},
		{"https://gov.in.example.com/", false},
		{"https://example.org/", false},
		{"not a url", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := domains.Official(tt.url); got != tt.want {
			t.Errorf("Official(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestAgentToken(t *testing.T) {
	tests := map[string]string{
		"adhikaar/0.1 (+https://example.org)": "adhikaar",
		"adhikaar":                            "adhikaar",
		"":                                    "",
	}
	for in, want := range tests {
		if got := agentToken(in); got != want {
			t.Errorf("agentToken(%q) = %q, want %q", in, got, want)
		}
	}
}
