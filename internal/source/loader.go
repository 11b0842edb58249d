package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"golang.org/x/sync/errgroup"

	appLog "confcal/internal/log"
	"confcal/internal/model"
)

// Getter fetches a single URL. *Fetcher implements it.
type Getter interface {
	FetchOne(ctx context.Context, url string) (FetchResult, error)
}

// YearResult is the outcome of loading one year's file.
type YearResult struct {
	Year        int
	URL         string
	Conferences []model.Conference
	FromCache   bool
	NotFound    bool
	Err         error
}

// LoadResult aggregates the per-year results of a Load call.
type LoadResult struct {
	Type  string
	Years []YearResult
	// Conferences is the concatenation of all successful years, in year order.
	Conferences []model.Conference
}

// PrimaryURL is the URL of the first year; it identifies the load.
func (r LoadResult) PrimaryURL() string {
	if len(r.Years) == 0 {
		return ""
	}
	return r.Years[0].URL
}

// Failed returns the years that could not be loaded.
func (r LoadResult) Failed() []YearResult {
	var out []YearResult
	for _, y := range r.Years {
		if y.Err != nil {
			out = append(out, y)
		}
	}
	return out
}

// AllFailed reports whether no year loaded successfully.
func (r LoadResult) AllFailed() bool {
	return len(r.Years) > 0 && len(r.Failed()) == len(r.Years)
}

// Err joins the errors of all failed years, or returns nil.
func (r LoadResult) Err() error {
	var errs []error
	for _, y := range r.Failed() {
		errs = append(errs, y.Err)
	}
	return errors.Join(errs...)
}

// Plan maps a type and a reference time to the year files to fetch:
// YearSpan consecutive years starting at now.Year()+YearOffset.
type Plan struct {
	Resolver   Resolver
	YearOffset int
	YearSpan   int
}

// URLs returns the file URLs to fetch for typ at now, earliest year first.
func (p Plan) URLs(typ string, now time.Time) ([]string, error) {
	targets, err := p.targets(typ, now)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(targets))
	for _, t := range targets {
		urls = append(urls, t.URL)
	}
	return urls, nil
}

func (p Plan) targets(typ string, now time.Time) ([]YearResult, error) {
	years, err := Years(now, p.YearOffset, p.YearSpan)
	if err != nil {
		return nil, err
	}
	out := make([]YearResult, 0, len(years))
	for _, y := range years {
		u, err := p.Resolver.URL(typ, y)
		if err != nil {
			return nil, err
		}
		out = append(out, YearResult{Year: y, URL: u})
	}
	return out, nil
}

// Loader fetches the conference files of consecutive years for a type.
type Loader struct {
	Plan
	getter Getter
}

// NewLoader returns a Loader fetching yearSpan years starting at
// now.Year()+yearOffset.
func NewLoader(resolver Resolver, getter Getter, yearOffset, yearSpan int) *Loader {
	if yearSpan <= 0 {
		yearSpan = 1
	}
	return &Loader{
		Plan: Plan{
			Resolver:   resolver,
			YearOffset: yearOffset,
			YearSpan:   yearSpan,
		},
		getter: getter,
	}
}

// Years returns the years to fetch relative to now.
func Years(now time.Time, offset, span int) ([]int, error) {
	if span <= 0 {
		return []int{}, nil
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.YEARLY,
		Count:   span,
		Dtstart: time.Date(now.Year()+offset, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		return nil, fmt.Errorf("years: %w", err)
	}

	occ := r.All()
	years := make([]int, 0, len(occ))
	for _, t := range occ {
		years = append(years, t.Year())
	}
	return years, nil
}

// Load fetches every year concurrently and joins the results.
//
// Years fail independently: a year whose fetch or decode fails is logged,
// recorded in the result and contributes no conferences, while the other
// years are still returned. Load itself only fails for an invalid type or
// a canceled context.
func (l *Loader) Load(ctx context.Context, typ string, now time.Time) (LoadResult, error) {
	targets, err := l.targets(typ, now)
	if err != nil {
		return LoadResult{}, err
	}

	res := LoadResult{Type: typ, Years: targets}

	eg, egCtx := errgroup.WithContext(ctx)
	for i := range res.Years {
		yr := &res.Years[i]
		eg.Go(func() error {
			l.loadYear(egCtx, yr)
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return LoadResult{}, err
	}

	res.Conferences = make([]model.Conference, 0)
	for _, y := range res.Years {
		if y.Err != nil {
			appLog.Warn("conference year failed to load", y.Err, "type", typ, "year", y.Year, "url", y.URL)
			continue
		}
		res.Conferences = append(res.Conferences, y.Conferences...)
	}

	appLog.Info("conferences loaded",
		"type", typ,
		"years", len(res.Years),
		"failed", len(res.Failed()),
		"count", len(res.Conferences),
	)
	return res, nil
}

func (l *Loader) loadYear(ctx context.Context, yr *YearResult) {
	fr, err := l.getter.FetchOne(ctx, yr.URL)
	if err != nil {
		yr.Err = err
		return
	}
	yr.FromCache = fr.FromCache
	yr.NotFound = fr.NotFound

	confs, err := DecodeConferences(fr.Body)
	if err != nil {
		yr.Err = fmt.Errorf("%s: %w", yr.URL, err)
		return
	}
	yr.Conferences = confs
}
