package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/adhikaar/internal/model"
	"github.com/ppiankov/adhikaar/internal/util"
)

const maxCatalogBytes = 32 << 20

// fetchSleepFunc is swapped out in tests
var fetchSleepFunc = time.Sleep

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "fetch: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// SupabaseProvider reads the catalog through the PostgREST API of a
// Supabase project, embedding each scheme's rules in one request
type SupabaseProvider struct {
	baseURL    string
	apiKey     string
	userAgent  string
	maxRetries int
	httpClient *http.Client
}

// NewSupabaseProvider creates a provider for the project at baseURL
func NewSupabaseProvider(baseURL, apiKey string, timeout time.Duration, maxRetries int, userAgent string) *SupabaseProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &SupabaseProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		userAgent:  userAgent,
		maxRetries: maxRetries,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc("", "", ""),
			},
		},
	}
}

// Name returns the provider name
func (p *SupabaseProvider) Name() string {
	return "supabase"
}

// supabaseScheme is the PostgREST shape of a scheme with embedded rules
type supabaseScheme struct {
	model.Scheme
	Rules []model.EligibilityRule `json:"scheme_eligibility_rules"`
}

// Load fetches active schemes with their rules
func (p *SupabaseProvider) Load(ctx context.Context) ([]model.SchemeWithRules, error) {
	body, err := p.fetchWithRetry(ctx, p.schemesURL())
	if err != nil {
		return nil, fmt.Errorf("supabase catalog: %w", err)
	}

	var rows []supabaseScheme
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode supabase catalog: %w", err)
	}

	schemes := make([]model.SchemeWithRules, 0, len(rows))
	for _, r := range rows {
		schemes = append(schemes, model.SchemeWithRules{Scheme: r.Scheme, Rules: r.Rules})
	}
	return Rank(schemes), nil
}

func (p *SupabaseProvider) schemesURL() string {
	q := url.Values{}
	q.Set("select", "*,scheme_eligibility_rules(*)")
	q.Set("is_active", "eq.true")
	q.Set("order", "priority_rank.desc,created_at.desc")
	return p.baseURL + "/rest/v1/schemes?" + q.Encode()
}

// fetchWithRetry retries transient failures (5xx, 429, transport errors)
// with exponential backoff
func (p *SupabaseProvider) fetchWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(time.Duration(1<<(attempt-1)) * 500 * time.Millisecond)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		body, err := p.fetch(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (p *SupabaseProvider) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// isRetryableFetchError reports whether err is worth another attempt
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}

	var te *transportError
	return errors.As(err, &te)
}
