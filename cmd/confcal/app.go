package main

import (
	"context"
	"net"
	"strings"
	"time"

	"confcal/internal/catalog"
	"confcal/internal/config"
	"confcal/internal/listing"
	"confcal/internal/model"
	"confcal/internal/source"
	"confcal/internal/web"
)

// app bundles the components built from a Config.
type app struct {
	conf    *config.Config
	loc     *time.Location
	catalog *catalog.Catalog
}

func newApp(conf *config.Config) *app {
	loc := web.ResolveLocation(conf.Timezone)

	fetcher := source.NewFetcher(conf.CacheDir, time.Duration(conf.FetchTimeoutSeconds)*time.Second)
	resolver := source.NewResolver(conf.DefaultBaseURL, conf.BaseURLs())
	loader := source.NewLoader(resolver, fetcher, *conf.YearOffset, conf.YearSpan)

	held := []string{conf.DefaultType}
	for _, t := range conf.Types {
		held = append(held, t.Key)
	}

	return &app{
		conf: conf,
		loc:  loc,
		catalog: catalog.New(loader, func() time.Time { return time.Now().In(loc) },
			catalog.WithTypes(held...),
			catalog.WithLoadTimeout(2*time.Duration(conf.FetchTimeoutSeconds)*time.Second),
		),
	}
}

func (a *app) now() time.Time {
	return time.Now().In(a.loc)
}

// filterFlags are the listing filters shared by list and ics.
type filterFlags struct {
	typ     string
	country string
	past    bool
	cfp     bool
	sort    string
}

func (a *app) listing(ctx context.Context, f filterFlags) (listing.Listing, error) {
	typ := strings.ToLower(strings.TrimSpace(f.typ))
	if typ == "" {
		typ = a.conf.DefaultType
	}
	mode, err := model.ParseSortMode(f.sort)
	if err != nil {
		return listing.Listing{}, err
	}

	entry, err := a.catalog.Get(ctx, typ)
	if err != nil {
		return listing.Listing{}, err
	}
	return listing.Build(entry.Conferences, listing.Options{
		Type:     typ,
		Country:  f.country,
		ShowPast: f.past,
		ShowCFP:  f.cfp,
		SortMode: mode,
		Now:      a.now(),
	}), nil
}

// localURL turns a listen address into a URL reachable from this host.
func localURL(listen, path string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		host, port = listen, ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	}
	return "http://" + host + path
}
