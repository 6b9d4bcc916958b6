// Package linkcheck audits the links a scheme catalog publishes: the official
// application link of every scheme and the anchors in its rich-text
// descriptions. Each link is probed with a HEAD request (GET when HEAD is
// refused), transient failures are retried with backoff, and links outside
// the configured government domains are flagged.
package linkcheck

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/adhikaar/internal/catalog"
	"github.com/ppiankov/adhikaar/internal/logging"
	"github.com/ppiankov/adhikaar/internal/model"
	"github.com/ppiankov/adhikaar/internal/util"
	"github.com/ppiankov/adhikaar/internal/worker"
)

const (
	checkMaxRetries = 3
	maxRedirects    = 5
)

// checkSleepFunc is the sleep function used between retries (injectable for tests)
var checkSleepFunc = time.Sleep

// Source says where in a scheme a link was found
type Source string

const (
	SourceOfficial    Source = "official_link"
	SourceDescription Source = "description"
)

// Link is one URL published by a scheme
type Link struct {
	SchemeID string
	URL      string
	Source   Source
}

// Result is the outcome of probing one link
type Result struct {
	SchemeID    string `json:"scheme_id"`
	URL         string `json:"url"`
	Source      Source `json:"source"`
	Official    bool   `json:"official"`
	StatusCode  int    `json:"status_code,omitempty"`
	Accessible  bool   `json:"accessible"`
	Dead        bool   `json:"dead,omitempty"`
	Blocked     bool   `json:"blocked,omitempty"` // disallowed by robots.txt, not requested
	RedirectURL string `json:"redirect_url,omitempty"`
	Error       string `json:"error,omitempty"`

	err error
}

// GetError reports cancellation; an unreachable link is a finding, not an error
func (r *Result) GetError() error {
	return r.err
}

// Checker probes catalog links concurrently
type Checker struct {
	httpClient *http.Client
	workers    int
	limiter    *worker.Limiter
	robots     *RobotsPolicy
	domains    *DomainList
	userAgent  string
	logger     *zap.Logger
}

// NewChecker creates a checker. Requests are rate limited per host.
func NewChecker(cfg model.LinkCheckConfig, userAgent string, logger *zap.Logger) *Checker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc("", "", ""),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	c := &Checker{
		httpClient: client,
		workers:    cfg.Workers,
		limiter:    worker.NewLimiter(cfg.RequestsPerSecond, 1),
		domains:    NewDomainList(cfg.OfficialDomains),
		userAgent:  userAgent,
		logger:     logging.OrNop(logger),
	}
	if cfg.RespectRobots {
		c.robots = NewRobotsPolicy(client, userAgent)
	}
	return c
}

// Collect lists the http(s) links of every scheme in snapshot order,
// de-duplicated per scheme
func Collect(snapshot []model.SchemeWithRules) []Link {
	var links []Link
	for _, s := range snapshot {
		seen := make(map[string]bool)
		add := func(u string, src Source) {
			if !isHTTP(u) || seen[u] {
				return
			}
			seen[u] = true
			links = append(links, Link{SchemeID: s.ID, URL: u, Source: src})
		}

		add(strings.TrimSpace(s.OfficialLink), SourceOfficial)
		for _, body := range []string{s.LongDescription, s.Benefits} {
			for _, l := range catalog.Links(body, s.OfficialLink) {
				add(l.URL, SourceDescription)
			}
		}
	}
	return links
}

// Check probes every link of snapshot. Results are in Collect order; links
// not probed because ctx ended carry its error.
func (c *Checker) Check(ctx context.Context, snapshot []model.SchemeWithRules) ([]Result, error) {
	links := Collect(snapshot)
	c.logger.Info("checking catalog links", zap.Int("schemes", len(snapshot)), zap.Int("links", len(links)))

	pool := worker.NewPool(ctx, c.workers)
	pool.Start()
	for _, l := range links {
		if !pool.Submit(&linkJob{checker: c, link: l}) {
			break
		}
	}
	raw := pool.Wait()

	results := make([]Result, len(links))
	for i, l := range links {
		if i < len(raw) && raw[i] != nil {
			results[i] = *raw[i].(*Result)
			continue
		}
		results[i] = Result{SchemeID: l.SchemeID, URL: l.URL, Source: l.Source, Error: "not checked"}
	}
	return results, ctx.Err()
}

type linkJob struct {
	checker *Checker
	link    Link
}

func (j *linkJob) Execute(ctx context.Context) worker.Result {
	return j.checker.checkWithRetry(ctx, j.link)
}

func (c *Checker) checkWithRetry(ctx context.Context, l Link) *Result {
	res := &Result{
		SchemeID: l.SchemeID,
		URL:      l.URL,
		Source:   l.Source,
		Official: c.domains.Official(l.URL),
	}

	if c.robots != nil && !c.robots.Allowed(ctx, l.URL) {
		res.Blocked = true
		c.logger.Debug("link disallowed by robots.txt", zap.String("url", l.URL))
		return res
	}

	for attempt := 0; attempt < checkMaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx, l.URL); err != nil {
			res.err = err
			res.Error = err.Error()
			return res
		}

		c.probe(ctx, res)
		if !isRetryableResult(res) {
			break
		}
		if attempt < checkMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			c.logger.Debug("retrying link", zap.String("url", l.URL), zap.Int("status", res.StatusCode), zap.Duration("backoff", backoff))
			checkSleepFunc(backoff)
		}
	}
	return res
}

// probe fills the status fields of res from one request round
func (c *Checker) probe(ctx context.Context, res *Result) {
	res.StatusCode, res.Accessible, res.Dead, res.RedirectURL, res.Error = 0, false, false, "", ""

	resp, err := c.do(ctx, http.MethodHead, res.URL)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		_ = resp.Body.Close()
		resp, err = c.do(ctx, http.MethodGet, res.URL)
	}
	if err != nil {
		res.Error = fmt.Sprintf("request failed: %v", err)
		res.Dead = true
		return
	}
	defer func() { _ = resp.Body.Close() }()

	res.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		res.Accessible = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		res.Dead = true
	}
	if final := resp.Request.URL.String(); final != res.URL {
		res.RedirectURL = final
	}
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	return c.httpClient.Do(req)
}

// isRetryableResult returns true for results that indicate transient failures
func isRetryableResult(res *Result) bool {
	if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if res.Error == "" {
		return false
	}
	s := strings.ToLower(res.Error)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}

func isHTTP(u string) bool {
	l := strings.ToLower(u)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
