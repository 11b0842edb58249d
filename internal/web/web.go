package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"confcal/internal/catalog"
	"confcal/internal/config"
	"confcal/internal/ics"
	"confcal/internal/listing"
	appLog "confcal/internal/log"
	"confcal/internal/model"
	"confcal/internal/source"
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/page.html"))

// typePattern restricts path segments accepted as a conference type.
var typePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

const (
	defaultCacheTTL = 30 * time.Second
	// maxCachedListings caps the response cache; keys include free-form query values.
	maxCachedListings = 256
)

// Server provides the HTML listing, JSON and iCalendar APIs.
type Server struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	plan    source.Plan
	loc     *time.Location
	now     func() time.Time
	mux     *http.ServeMux

	// In-memory cache for /api/conferences responses keyed by filter state.
	cacheTTL  time.Duration
	listingMu sync.RWMutex
	listings  map[string]listingCache
}

type listingCache struct {
	resp      listing.Listing
	updatedAt time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithClock overrides the reference time used for filtering.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithCacheTTL overrides how long API responses are reused. Zero disables the cache.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Server) { s.cacheTTL = d }
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, cat *catalog.Catalog, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		catalog:  cat,
		plan:     planFromConfig(cfg),
		loc:      ResolveLocation(cfg.Timezone),
		mux:      http.NewServeMux(),
		cacheTTL: defaultCacheTTL,
		listings: make(map[string]listingCache),
	}
	s.now = func() time.Time { return time.Now().In(s.loc) }
	for _, o := range opts {
		o(s)
	}
	s.registerRoutes()
	return s
}

func planFromConfig(cfg *config.Config) source.Plan {
	offset := 0
	if cfg.YearOffset != nil {
		offset = *cfg.YearOffset
	}
	return source.Plan{
		Resolver:   source.NewResolver(cfg.DefaultBaseURL, cfg.BaseURLs()),
		YearOffset: offset,
		YearSpan:   cfg.YearSpan,
	}
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Listen binds cfg.Listen. Connections are queued until Serve is called.
func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.cfg.Listen)
}

// Serve serves HTTP on ln until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="confcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/types", s.handleTypes)
	s.mux.HandleFunc("GET /api/conferences", s.handleConferences)
	s.mux.HandleFunc("GET /api/conferences.ics", s.handleFeed)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)

	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /{type}", s.handlePage)
	s.mux.HandleFunc("GET /{type}/{country}", s.handlePage)
	s.mux.HandleFunc("GET /cfp/{type}", s.handleCFPPage)
	s.mux.HandleFunc("GET /cfp/{type}/{country}", s.handleCFPPage)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// typeDTO describes a configured type. URL is the file of the first year
// fetched; URLs lists every year.
type typeDTO struct {
	Key  string   `json:"key"`
	Name string   `json:"name"`
	URL  string   `json:"url"`
	URLs []string `json:"urls"`
}

func (s *Server) handleTypes(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	out := make([]typeDTO, 0, len(s.cfg.Types))
	for _, t := range s.cfg.Types {
		urls, err := s.plan.URLs(t.Key, now)
		if err != nil || len(urls) == 0 {
			appLog.Warn("api types: cannot resolve URLs", err, "type", t.Key)
			continue
		}
		out = append(out, typeDTO{
			Key:  t.Key,
			Name: t.Name,
			URL:  urls[0],
			URLs: urls,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePreview serves the last PNG snapshot of the listing page.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.Snapshot.Path)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/"+url.PathEscape(s.cfg.DefaultType), http.StatusFound)
}

// handleConferences returns the grouped listing as JSON.
//
// GET /api/conferences?type=javascript&country=Germany&past=1&cfp=1&sort=cfpEndDate
func (s *Server) handleConferences(w http.ResponseWriter, r *http.Request) {
	opts, err := s.optionsFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cacheKey(opts)
	if s.cacheTTL > 0 {
		s.listingMu.RLock()
		lc, ok := s.listings[key]
		s.listingMu.RUnlock()
		if ok && time.Since(lc.updatedAt) < s.cacheTTL {
			writeJSON(w, http.StatusOK, lc.resp)
			return
		}
	}

	l, err := s.buildListing(r.Context(), opts)
	if err != nil {
		appLog.Error("api conferences: load failed", err, "type", opts.Type)
		writeError(w, http.StatusBadGateway, "failed to load conferences")
		return
	}

	if s.cacheTTL > 0 {
		s.storeListing(key, l)
	}

	writeJSON(w, http.StatusOK, l)
}

// storeListing caches l under key, dropping expired entries first. When the
// cache is still full every entry is dropped.
func (s *Server) storeListing(key string, l listing.Listing) {
	now := time.Now()

	s.listingMu.Lock()
	defer s.listingMu.Unlock()

	for k, lc := range s.listings {
		if now.Sub(lc.updatedAt) >= s.cacheTTL {
			delete(s.listings, k)
		}
	}
	if len(s.listings) >= maxCachedListings {
		clear(s.listings)
	}
	s.listings[key] = listingCache{resp: l, updatedAt: now}
}

// handleFeed returns the filtered conferences as an iCalendar feed.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	opts, err := s.optionsFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	l, err := s.buildListing(r.Context(), opts)
	if err != nil {
		appLog.Error("api feed: load failed", err, "type", opts.Type)
		writeError(w, http.StatusBadGateway, "failed to load conferences")
		return
	}

	var buf bytes.Buffer
	err = ics.WriteFeed(&buf, l.Flatten(), ics.FeedOptions{
		Name:     s.cfg.TypeName(opts.Type) + " conferences",
		Stamp:    opts.Now,
		Location: s.loc,
	})
	if err != nil {
		appLog.Error("api feed: serialize failed", err, "type", opts.Type)
		writeError(w, http.StatusInternalServerError, "failed to build feed")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "inline; filename="+opts.Type+".ics")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, false)
}

func (s *Server) handleCFPPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, true)
}

// renderPage serves /{type}[/{country}] and /cfp/{type}[/{country}]. The
// path is the authoritative filter source; past and sort come from the query.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, showCFP bool) {
	typ := strings.ToLower(r.PathValue("type"))
	if typ == "api" || !typePattern.MatchString(typ) {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	mode, err := model.ParseSortMode(q.Get("sort"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := listing.Options{
		Type:     typ,
		Country:  r.PathValue("country"),
		ShowPast: parseBool(q.Get("past")),
		ShowCFP:  showCFP,
		SortMode: mode,
		Now:      s.now(),
	}

	l, err := s.buildListing(r.Context(), opts)
	if err != nil {
		appLog.Error("page: load failed", err, "type", typ)
		http.Error(w, "failed to load conferences", http.StatusBadGateway)
		return
	}

	// A country without conferences for this type falls back to the type page.
	if opts.Country != "" && l.Empty() {
		target := pagePath(showCFP, typ, "")
		if enc := encodeQuery(opts.ShowPast, mode); enc != "" {
			target += "?" + enc
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, s.pageData(l)); err != nil {
		appLog.Error("page: template failed", err, "type", typ)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) buildListing(ctx context.Context, opts listing.Options) (listing.Listing, error) {
	entry, err := s.catalog.Get(ctx, opts.Type)
	if err != nil {
		return listing.Listing{}, err
	}
	return listing.Build(entry.Conferences, opts), nil
}

func (s *Server) optionsFromQuery(q url.Values) (listing.Options, error) {
	typ := strings.ToLower(strings.TrimSpace(q.Get("type")))
	if typ == "" {
		typ = s.cfg.DefaultType
	}
	if !typePattern.MatchString(typ) {
		return listing.Options{}, errors.New("invalid type")
	}
	mode, err := model.ParseSortMode(q.Get("sort"))
	if err != nil {
		return listing.Options{}, err
	}
	return listing.Options{
		Type:     typ,
		Country:  q.Get("country"),
		ShowPast: parseBool(q.Get("past")),
		ShowCFP:  parseBool(q.Get("cfp")),
		SortMode: mode,
		Now:      s.now(),
	}, nil
}

func cacheKey(o listing.Options) string {
	return strings.Join([]string{
		o.Type,
		o.Country,
		strconv.FormatBool(o.ShowPast),
		strconv.FormatBool(o.ShowCFP),
		o.SortMode.String(),
	}, "|")
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// ResolveLocation loads an IANA zone, falling back to time.Local.
func ResolveLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
