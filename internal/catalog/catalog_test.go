package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/adhikaar/internal/cache"
	"github.com/ppiankov/adhikaar/internal/model"
)

const sampleCatalog = `
schemes:
  - id: pmay
    name: Pradhan Mantri Awas Yojana
    short_description: Housing for all
    categories: [housing]
    state_type: central
    priority_rank: 5
    created_at: 2023-01-01T00:00:00Z
  - id: pm-kisan
    name: PM-KISAN
    short_description: "<p>Income support of <b>Rs 6,000</b> per year</p>"
    categories: [agriculture]
    state_type: central
    priority_rank: 10
    rules:
      - min_age: 18
        requires_farmer: true
  - id: retired
    name: Old Scheme
    is_active: false
    priority_rank: 99
  - id: mahadbt
    name: MahaDBT Scholarship
    categories: [education, Agriculture]
    state_type: state
    applicable_states: [Maharashtra]
    priority_rank: 5
    created_at: 2024-06-01T00:00:00Z
    rules:
      - student_only: true
        income_max: 800000
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func ids(snapshot []model.SchemeWithRules) []string {
	out := make([]string, len(snapshot))
	for i, s := range snapshot {
		out[i] = s.ID
	}
	return out
}

func TestFileProvider_Load(t *testing.T) {
	p := NewFileProvider(writeCatalog(t, sampleCatalog))

	snapshot, err := p.Load(context.Background())
	require.NoError(t, err)

	// inactive dropped; priority desc, then newest first
	assert.Equal(t, []string{"pm-kisan", "mahadbt", "pmay"}, ids(snapshot))

	kisan := snapshot[0]
	assert.True(t, kisan.IsActive, "missing is_active defaults to active")
	require.Len(t, kisan.Rules, 1)
	assert.Equal(t, "pm-kisan", kisan.Rules[0].SchemeID)
	require.NotNil(t, kisan.Rules[0].MinAge)
	assert.Equal(t, 18, *kisan.Rules[0].MinAge)
	assert.True(t, kisan.Rules[0].RequiresFarmer)

	assert.Empty(t, snapshot[2].Rules, "schemes without rules keep an empty rule list")
}

func TestFileProvider_JSON(t *testing.T) {
	p := NewFileProvider(writeCatalog(t, `{"schemes": [{"id": "a", "name": "A", "rules": [{"widow_only": true}]}]}`))
	snapshot, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.True(t, snapshot[0].Rules[0].WidowOnly)
}

func TestFileProvider_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing name":   "schemes:\n  - id: a\n",
		"bad state type": "schemes:\n  - id: a\n    name: A\n    state_type: district\n",
		"negative age":   "schemes:\n  - id: a\n    name: A\n    rules:\n      - min_age: -1\n",
		"duplicate id":   "schemes:\n  - id: a\n    name: A\n  - id: a\n    name: B\n",
		"not yaml":       "schemes: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewFileProvider(writeCatalog(t, content)).Load(context.Background())
			assert.Error(t, err)
		})
	}

	_, err := NewFileProvider(filepath.Join(t.TempDir(), "missing.yaml")).Load(context.Background())
	assert.Error(t, err)
}

func TestRank_DoesNotModifyInput(t *testing.T) {
	in := []model.SchemeWithRules{
		{Scheme: model.Scheme{ID: "b", IsActive: true, PriorityRank: 1}},
		{Scheme: model.Scheme{ID: "a", IsActive: true, PriorityRank: 2}},
	}
	out := Rank(in)
	assert.Equal(t, []string{"a", "b"}, ids(out))
	assert.Equal(t, []string{"b", "a"}, ids(in))
}

func TestFind(t *testing.T) {
	snapshot, err := NewFileProvider(writeCatalog(t, sampleCatalog)).Load(context.Background())
	require.NoError(t, err)

	s, err := Find(snapshot, "pmay")
	require.NoError(t, err)
	assert.Equal(t, "Pradhan Mantri Awas Yojana", s.Name)

	_, err = Find(snapshot, "retired")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch(t *testing.T) {
	snapshot, err := NewFileProvider(writeCatalog(t, sampleCatalog)).Load(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"all", Query{}, []string{"pm-kisan", "mahadbt", "pmay"}},
		{"text in name", Query{Text: "awas"}, []string{"pmay"}},
		{"text inside markup", Query{Text: "rs 6,000"}, []string{"pm-kisan"}},
		{"category case-insensitive", Query{Category: "agriculture"}, []string{"pm-kisan", "mahadbt"}},
		{"state type", Query{StateType: model.StateTypeState}, []string{"mahadbt"}},
		{"state keeps nationwide", Query{State: "Kerala"}, []string{"pm-kisan", "pmay"}},
		{"limit", Query{Limit: 1}, []string{"pm-kisan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Search(snapshot, tt.query)))
		})
	}

	assert.Equal(t, []string{"agriculture", "education", "housing"}, Categories(snapshot))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain   text ", "plain text"},
		{"<p>Rs 6,000 per year</p><ul><li>Direct transfer</li><li>Three instalments</li></ul>",
			"Rs 6,000 per year\n- Direct transfer\n- Three instalments"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"<script>alert(1)</script><b>Safe</b>", "Safe"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlainText(tt.in), tt.in)
	}
}

func TestLinks(t *testing.T) {
	desc := `<p>Apply at <a href="/apply">the portal</a> or <a href="https://pmkisan.gov.in">PM-KISAN</a>.
	<a href="#top">top</a> <a href="mailto:help@gov.in">mail</a> <a href="/apply">again</a></p>`

	links := Links(desc, "https://example.gov.in/schemes/pm-kisan")
	assert.Equal(t, []Link{
		{URL: "https://example.gov.in/apply", Text: "the portal"},
		{URL: "https://pmkisan.gov.in", Text: "PM-KISAN"},
	}, links)
}

type countingProvider struct {
	calls    atomic.Int32
	snapshot []model.SchemeWithRules
	err      error
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Load(ctx context.Context) ([]model.SchemeWithRules, error) {
	p.calls.Add(1)
	return p.snapshot, p.err
}

func TestCachedProvider(t *testing.T) {
	inner := &countingProvider{snapshot: []model.SchemeWithRules{
		{Scheme: model.Scheme{ID: "a", Name: "A", IsActive: true}, Rules: []model.EligibilityRule{{MaxAge: model.Ptr(40)}}},
	}}
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	p := NewCachedProvider(inner, c, cache.CacheKey("test"), time.Minute, nil)

	for i := 0; i < 3; i++ {
		snapshot, err := p.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, snapshot, 1)
		require.NotNil(t, snapshot[0].Rules[0].MaxAge)
		assert.Equal(t, 40, *snapshot[0].Rules[0].MaxAge)
	}
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, "counting", p.Name())

	require.NoError(t, p.Invalidate())
	_, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedProvider_ErrorsAreNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("database down")}
	p := NewCachedProvider(inner, cache.NewMemoryCache(time.Minute, time.Minute), "k", time.Minute, nil)

	_, err := p.Load(context.Background())
	assert.Error(t, err)
	_, err = p.Load(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestNew(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)

	p, closeFn, err := New(context.Background(),
		model.CatalogConfig{Source: "file", Path: path},
		model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: time.Minute, DiskTTL: time.Hour},
		nil)
	require.NoError(t, err)
	assert.Nil(t, closeFn)
	_, ok := p.(*CachedProvider)
	assert.True(t, ok, "caching enabled wraps the provider")

	snapshot, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot, 3)

	p, _, err = New(context.Background(), model.CatalogConfig{Source: "supabase", SupabaseURL: "https://x.supabase.co"}, model.CacheConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "supabase", p.Name())

	_, _, err = New(context.Background(), model.CatalogConfig{Source: "ftp"}, model.CacheConfig{}, nil)
	assert.Error(t, err)
}

func TestNew_FileCatalogEditIsSeen(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	cacheCfg := model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: time.Hour, DiskTTL: 6 * time.Hour}

	p, _, err := New(context.Background(), model.CatalogConfig{Source: "file", Path: path}, cacheCfg, nil)
	require.NoError(t, err)
	snapshot, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pm-kisan", "mahadbt", "pmay"}, ids(snapshot))

	require.NoError(t, os.WriteFile(path, []byte("schemes:\n  - id: ration\n    name: Ration Card\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	snapshot, err = p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ration"}, ids(snapshot))

	// a fresh process sharing the disk cache sees the edit too
	p, _, err = New(context.Background(), model.CatalogConfig{Source: "file", Path: path}, cacheCfg, nil)
	require.NoError(t, err)
	snapshot, err = p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ration"}, ids(snapshot))
}

func TestFileProvider_Version(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	p := NewFileProvider(path)

	v1, err := p.Version()
	require.NoError(t, err)
	v2, err := p.Version()
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog+"\n"), 0o644))
	v3, err := p.Version()
	require.NoError(t, err)
	assert.NotEqual(t, v1, v3, "size change alters the version")

	_, err = NewFileProvider(filepath.Join(t.TempDir(), "missing.yaml")).Version()
	assert.Error(t, err)
}
