package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confcal/internal/catalog"
	"confcal/internal/config"
	"confcal/internal/listing"
	"confcal/internal/model"
	"confcal/internal/source"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type stubLoader struct {
	byType map[string][]model.Conference
	err    error
}

func (s stubLoader) Load(_ context.Context, typ string, _ time.Time) (source.LoadResult, error) {
	if s.err != nil {
		return source.LoadResult{}, s.err
	}
	confs := s.byType[typ]
	if confs == nil {
		confs = []model.Conference{}
	}
	return source.LoadResult{
		Type:        typ,
		Years:       []source.YearResult{{Year: 2024, URL: "https://example.com/2024/" + typ + ".json"}},
		Conferences: confs,
	}, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Normalize()
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, loader catalog.Loader) *Server {
	t.Helper()
	cat := catalog.New(loader, func() time.Time { return testNow })
	return NewServer(cfg, cat, WithClock(func() time.Time { return testNow }), WithCacheTTL(0))
}

func jsConferences() stubLoader {
	return stubLoader{byType: map[string][]model.Conference{
		"javascript": {
			{Name: "Past Conf", URL: "https://past.test", StartDate: "2023-06-01", Country: "Spain"},
			{Name: "Berlin JS", URL: "https://berlin.test", StartDate: "2024-03-10", City: "Berlin", Country: "Germany", CFPEndDate: "2024-01-15"},
			{Name: "Paris JS", URL: "https://paris.test", StartDate: "2024-02-05", City: "Paris", Country: "France"},
			{Name: "Next Year", URL: "https://next.test", StartDate: "2025-01-20", Country: "Germany", CFPEndDate: "2024-10-01"},
		},
	}}
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), jsConferences())
	w := do(t, s.Handler(), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestBasicAuth(t *testing.T) {
	cfg := testConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := newTestServer(t, cfg, jsConferences()).Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health").Code)

	w := do(t, h, http.MethodGet, "/api/conferences")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/conferences", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIConferences(t *testing.T) {
	h := newTestServer(t, testConfig(), jsConferences()).Handler()

	w := do(t, h, http.MethodGet, "/api/conferences?type=JavaScript")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var l listing.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &l))
	assert.Equal(t, "javascript", l.Type)
	assert.Equal(t, 3, l.Total)
	assert.Equal(t, []string{"France", "Germany"}, l.Countries)
	require.Len(t, l.Years, 2)
	assert.Equal(t, "2024-02", l.Years[0].Months[0].Key)
	assert.Equal(t, "Paris JS", l.Years[0].Months[0].Conferences[0].Name)
}

func TestAPIConferencesFilters(t *testing.T) {
	h := newTestServer(t, testConfig(), jsConferences()).Handler()

	w := do(t, h, http.MethodGet, "/api/conferences?type=javascript&cfp=1&sort=cfpEndDate")
	require.Equal(t, http.StatusOK, w.Code)

	var l listing.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &l))
	assert.Equal(t, model.SortByCFPEndDate, l.SortMode)
	names := make([]string, 0)
	for _, c := range l.Flatten() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Berlin JS", "Next Year"}, names)

	w = do(t, h, http.MethodGet, "/api/conferences?type=javascript&past=true&country=Spain")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &l))
	assert.Equal(t, 1, l.Total)
}

func TestAPIConferencesBadRequest(t *testing.T) {
	h := newTestServer(t, testConfig(), jsConferences()).Handler()

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/conferences?sort=name").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/conferences?type=../etc").Code)
}

func TestAPIConferencesLoadError(t *testing.T) {
	h := newTestServer(t, testConfig(), stubLoader{err: errors.New("down")}).Handler()

	w := do(t, h, http.MethodGet, "/api/conferences?type=css")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "failed to load conferences")
}

func TestAPITypes(t *testing.T) {
	h := newTestServer(t, testConfig(), jsConferences()).Handler()

	w := do(t, h, http.MethodGet, "/api/types")
	require.Equal(t, http.StatusOK, w.Code)

	var types []typeDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	require.NotEmpty(t, types)
	assert.Equal(t, "javascript", types[0].Key)
	// Default year_offset -1 with a span of 2.
	assert.Equal(t, config.DefaultTypes()[0].BaseURL+"/2023/javascript.json", types[0].URL)
	assert.Equal(t, []string{
		config.DefaultTypes()[0].BaseURL + "/2023/javascript.json",
		config.DefaultTypes()[0].BaseURL + "/2024/javascript.json",
	}, types[0].URLs)

	offset := 0
	cfg := testConfig()
	cfg.YearOffset = &offset
	cfg.YearSpan = 1
	w = do(t, newTestServer(t, cfg, jsConferences()).Handler(), http.MethodGet, "/api/types")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	assert.Equal(t, []string{config.DefaultTypes()[0].BaseURL + "/2024/javascript.json"}, types[0].URLs)
}

func TestFeed(t *testing.T) {
	h := newTestServer(t, testConfig(), jsConferences()).Handler()

	w := do(t, h, http.MethodGet, "/api/conferences.ics?type=javascript&country=Germany")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")

	body := w.Body.String()
	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "SUMMARY:Berlin JS")
	assert.Contains(t, body, "X-WR-CALNAME:JavaScript conferences")
}

func TestRootRedirectsToDefaultType(t *testing.T) {
	h := newTestServer(t, testConfig(), jsConferences()).Handler()

	w := do(t, h, http.MethodGet, "/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/javascript", w.Header().Get("Location"))
}

func TestPage(t *testing.T) {
	h := newTestServer(t, testConfig(), jsConferences()).Handler()

	w := do(t, h, http.MethodGet, "/javascript")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()

	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, "Find your next JavaScript conference")
	assert.Contains(t, body, "Berlin JS")
	assert.Contains(t, body, "February")
	assert.NotContains(t, body, "Past Conf")
	assert.NotContains(t, body, "Call For Papers")
	assert.Less(t, strings.Index(body, "Paris JS"), strings.Index(body, "Berlin JS"))
}

func TestPageShowPast(t *testing.T) {
	h := newTestServer(t, testConfig(), jsConferences()).Handler()

	w := do(t, h, http.MethodGet, "/javascript?past=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Past Conf")
	assert.Contains(t, w.Body.String(), "Hide past conferences")
}

func TestPageCountry(t *testing.T) {
	h := newTestServer(t, testConfig(), jsConferences()).Handler()

	w := do(t, h, http.MethodGet, "/javascript/Germany")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Berlin JS")
	assert.NotContains(t, w.Body.String(), "Paris JS")
}

func TestPageUnknownCountryFallsBack(t *testing.T) {
	h := newTestServer(t, testConfig(), jsConferences()).Handler()

	w := do(t, h, http.MethodGet, "/javascript/Narnia?past=1")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/javascript?past=1", w.Header().Get("Location"))

	w = do(t, h, http.MethodGet, "/cfp/javascript/Narnia")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/cfp/javascript", w.Header().Get("Location"))
}

func TestCFPPage(t *testing.T) {
	h := newTestServer(t, testConfig(), jsConferences()).Handler()

	w := do(t, h, http.MethodGet, "/cfp/javascript?sort=cfpEndDate")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Call For Papers")
	assert.Contains(t, body, "CFP end date")
	assert.Contains(t, body, "CFP until 2024-01-15")
	assert.NotContains(t, body, "Paris JS")
}

func TestPageUnknownTypeIsEmptyState(t *testing.T) {
	h := newTestServer(t, testConfig(), jsConferences()).Handler()

	w := do(t, h, http.MethodGet, "/elixir")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "have any conferences yet")
}

func TestPageRejectsNonTypes(t *testing.T) {
	h := newTestServer(t, testConfig(), jsConferences()).Handler()

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/favicon.ico").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/unknown").Code)
}

func TestPreviewMissing(t *testing.T) {
	cfg := testConfig()
	cfg.Snapshot.Path = t.TempDir() + "/missing.png"
	h := newTestServer(t, cfg, jsConferences()).Handler()

	w := do(t, h, http.MethodGet, "/preview.png")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPICache(t *testing.T) {
	loader := &countingLoader{inner: jsConferences()}
	cat := catalog.New(loader, func() time.Time { return testNow })
	s := NewServer(testConfig(), cat, WithClock(func() time.Time { return testNow }), WithCacheTTL(time.Minute))
	h := s.Handler()

	first := do(t, h, http.MethodGet, "/api/conferences?type=javascript")
	require.Equal(t, http.StatusOK, first.Code)

	// Refreshing the catalog does not change a cached API response.
	loader.inner = stubLoader{byType: map[string][]model.Conference{}}
	_, err := cat.Refresh(context.Background(), "javascript")
	require.NoError(t, err)

	second := do(t, h, http.MethodGet, "/api/conferences?type=javascript")
	body, _ := io.ReadAll(second.Body)
	assert.JSONEq(t, first.Body.String(), string(body))
	assert.Equal(t, 2, loader.calls)
}

type countingLoader struct {
	inner stubLoader
	calls int
}

func (c *countingLoader) Load(ctx context.Context, typ string, now time.Time) (source.LoadResult, error) {
	c.calls++
	return c.inner.Load(ctx, typ, now)
}

func TestListingCacheIsBounded(t *testing.T) {
	cfg := testConfig()
	cat := catalog.New(jsConferences(), func() time.Time { return testNow })
	s := NewServer(cfg, cat, WithClock(func() time.Time { return testNow }), WithCacheTTL(time.Hour))
	h := s.Handler()

	for i := 0; i < maxCachedListings+50; i++ {
		w := do(t, h, http.MethodGet, fmt.Sprintf("/api/conferences?type=javascript&country=c%d", i))
		require.Equal(t, http.StatusOK, w.Code)
	}

	s.listingMu.RLock()
	n := len(s.listings)
	s.listingMu.RUnlock()
	assert.LessOrEqual(t, n, maxCachedListings)
	assert.Positive(t, n)
}

func TestListingCacheDropsExpired(t *testing.T) {
	cfg := testConfig()
	cat := catalog.New(jsConferences(), func() time.Time { return testNow })
	s := NewServer(cfg, cat, WithClock(func() time.Time { return testNow }), WithCacheTTL(time.Hour))

	s.listings["stale"] = listingCache{updatedAt: time.Now().Add(-2 * time.Hour)}
	s.storeListing("fresh", listing.Listing{Type: "javascript"})

	assert.NotContains(t, s.listings, "stale")
	assert.Contains(t, s.listings, "fresh")
}

func TestServeAfterListen(t *testing.T) {
	cfg := testConfig()
	cfg.Listen = "127.0.0.1:0"
	s := newTestServer(t, cfg, jsConferences())

	ln, err := s.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))

	cancel()
	assert.NoError(t, <-done)
}
