package listing

import (
	"time"

	appLog "confcal/internal/log"
	"confcal/internal/model"
)

// MonthGroup holds the conferences of a single year-month bucket.
type MonthGroup struct {
	// Key is the bucket key in "YYYY-MM" form.
	Key         string             `json:"key"`
	Month       time.Month         `json:"month"`
	Name        string             `json:"name"`
	Conferences []model.Conference `json:"conferences"`
}

// YearGroup holds the month buckets of a single year.
type YearGroup struct {
	// Key is the bucket key in "YYYY" form.
	Key    string       `json:"key"`
	Year   int          `json:"year"`
	Months []MonthGroup `json:"months"`
}

// Grouping is the outcome of Group. Years and months are in first-seen
// order; use Sort to put them in chronological order.
type Grouping struct {
	Years []YearGroup
	// Skipped lists conferences whose sort field is missing or unparseable.
	Skipped []model.Conference
}

// Group buckets confs by year, then by year-month, of the date field
// selected by mode. Dates are interpreted in loc.
func Group(confs []model.Conference, mode model.SortMode, loc *time.Location) Grouping {
	var g Grouping

	yearIdx := make(map[string]int)
	monthIdx := make(map[string]int)

	for _, c := range confs {
		raw := mode.Field(c)
		d, err := model.ParseDate(raw, loc)
		if err != nil {
			appLog.Debug("listing: conference skipped from grouping", "url", c.URL, "sort", mode.String(), "value", raw, "reason", err.Error())
			g.Skipped = append(g.Skipped, c)
			continue
		}

		yearKey := d.Format("2006")
		yi, ok := yearIdx[yearKey]
		if !ok {
			yi = len(g.Years)
			yearIdx[yearKey] = yi
			g.Years = append(g.Years, YearGroup{Key: yearKey, Year: d.Year()})
		}

		monthKey := d.Format("2006-01")
		mi, ok := monthIdx[monthKey]
		if !ok {
			mi = len(g.Years[yi].Months)
			monthIdx[monthKey] = mi
			name, err := MonthNameFromKey(monthKey)
			if err != nil {
				name = d.Month().String()
			}
			g.Years[yi].Months = append(g.Years[yi].Months, MonthGroup{
				Key:   monthKey,
				Month: d.Month(),
				Name:  name,
			})
		}

		m := &g.Years[yi].Months[mi]
		m.Conferences = append(m.Conferences, c)
	}

	return g
}

// Len reports how many conferences were placed into buckets.
func (g Grouping) Len() int {
	n := 0
	for _, y := range g.Years {
		for _, m := range y.Months {
			n += len(m.Conferences)
		}
	}
	return n
}
