package linkcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsPolicy answers whether a URL may be requested by the checker.
// robots.txt files are fetched once per host and kept for the lifetime of the
// policy.
type RobotsPolicy struct {
	httpClient *http.Client
	userAgent  string

	mu    sync.RWMutex
	hosts map[string]*robotstxt.RobotsData
}

// NewRobotsPolicy creates a policy that fetches robots.txt with client
func NewRobotsPolicy(client *http.Client, userAgent string) *RobotsPolicy {
	return &RobotsPolicy{
		httpClient: client,
		userAgent:  userAgent,
		hosts:      make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether rawURL may be requested. A robots.txt that cannot
// be fetched or parsed allows everything.
func (r *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	data, err := r.robots(ctx, u)
	if err != nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, agentToken(r.userAgent))
}

func (r *RobotsPolicy) robots(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	data, ok := r.hosts[u.Host]
	r.mu.RUnlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.mu.Lock()
	r.hosts[u.Host] = data
	r.mu.Unlock()
	return data, nil
}

// agentToken reduces a User-Agent header to the product token robots.txt
// groups are matched against ("adhikaar/0.1 (+url)" -> "adhikaar")
func agentToken(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
