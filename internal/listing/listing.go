// Package listing turns a flat list of conferences into the grouped,
// filtered and ordered view shown to users.
//
// All functions are pure: they never modify their input and take the
// current time as an explicit argument.
package listing

import (
	"strings"
	"time"

	"confcal/internal/model"
)

// Options carries the filter state for a single Build call.
type Options struct {
	// Type is the technology key (e.g. "javascript"). It is lowercased.
	Type string
	// Country restricts the listing to one country; empty means all.
	Country  string
	ShowPast bool
	ShowCFP  bool
	SortMode model.SortMode
	// Now is the reference time for past/CFP decisions. Its location is
	// used to interpret conference dates.
	Now time.Time
}

// Listing is the presentation-ready result of Build.
type Listing struct {
	Type     string         `json:"type"`
	Country  string         `json:"country,omitempty"`
	SortMode model.SortMode `json:"sortBy"`
	ShowPast bool           `json:"showPast"`
	ShowCFP  bool           `json:"showCFP"`
	Years    []YearGroup    `json:"years"`
	// Countries is computed before the country filter so every choice stays available.
	Countries []string `json:"countries"`
	Total     int      `json:"total"`
	Skipped   int      `json:"skipped,omitempty"`
}

// Empty reports whether no conference survived filtering.
func (l Listing) Empty() bool {
	return l.Total == 0
}

// Build applies the date, country and (optionally) CFP filters in that
// order, then groups and sorts the remaining conferences.
func Build(confs []model.Conference, opts Options) Listing {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := now.Location()

	byDate := FilterByDate(confs, opts.ShowPast, now)
	filtered := FilterByCountry(byDate, opts.Country)
	if opts.ShowCFP {
		filtered = FilterOpenCFP(filtered, now)
	}

	g := Group(filtered, opts.SortMode, loc)
	years := Sort(g.Years, opts.SortMode, loc)

	return Listing{
		Type:      strings.ToLower(opts.Type),
		Country:   opts.Country,
		SortMode:  opts.SortMode,
		ShowPast:  opts.ShowPast,
		ShowCFP:   opts.ShowCFP,
		Years:     years,
		Countries: Countries(byDate),
		Total:     g.Len(),
		Skipped:   len(g.Skipped),
	}
}

// Flatten returns the conferences of l in display order.
func (l Listing) Flatten() []model.Conference {
	out := make([]model.Conference, 0, l.Total)
	for _, y := range l.Years {
		for _, m := range y.Months {
			out = append(out, m.Conferences...)
		}
	}
	return out
}
