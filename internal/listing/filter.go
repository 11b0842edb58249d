package listing

import (
	"slices"
	"time"

	"confcal/internal/model"
)

// FilterOpenCFP keeps conferences whose call for papers is still open at
// now. Conferences without a CFP end date, or with one that cannot be
// parsed, are dropped.
func FilterOpenCFP(confs []model.Conference, now time.Time) []model.Conference {
	return keep(confs, func(c model.Conference) bool {
		end, err := model.ParseDate(c.CFPEndDate, now.Location())
		if err != nil {
			return false
		}
		return !end.Before(now)
	})
}

// FilterByDate drops conferences that started before now unless showPast is set.
// A start date that cannot be parsed is kept so the grouper can report it.
func FilterByDate(confs []model.Conference, showPast bool, now time.Time) []model.Conference {
	if showPast {
		return confs
	}
	return keep(confs, func(c model.Conference) bool {
		start, err := model.ParseDate(c.StartDate, now.Location())
		if err != nil {
			return true
		}
		return !start.Before(now)
	})
}

// FilterByCountry keeps conferences whose country equals country exactly.
// An empty country disables the filter.
func FilterByCountry(confs []model.Conference, country string) []model.Conference {
	if country == "" {
		return confs
	}
	return keep(confs, func(c model.Conference) bool {
		return c.Country == country
	})
}

// Countries returns the sorted set of non-empty countries in confs.
func Countries(confs []model.Conference) []string {
	seen := make(map[string]struct{}, len(confs))
	out := make([]string, 0)
	for _, c := range confs {
		if c.Country == "" {
			continue
		}
		if _, ok := seen[c.Country]; ok {
			continue
		}
		seen[c.Country] = struct{}{}
		out = append(out, c.Country)
	}
	slices.Sort(out)
	return out
}

func keep(confs []model.Conference, pred func(model.Conference) bool) []model.Conference {
	out := make([]model.Conference, 0, len(confs))
	for _, c := range confs {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}
