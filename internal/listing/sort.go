package listing

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"confcal/internal/model"
)

// SortConferences returns a copy of confs ordered ascending by the date
// field selected by mode. The sort is stable. Values that cannot be parsed
// sort after all valid dates.
func SortConferences(confs []model.Conference, mode model.SortMode, loc *time.Location) []model.Conference {
	type keyed struct {
		c  model.Conference
		t  time.Time
		ok bool
	}
	ks := make([]keyed, len(confs))
	for i, c := range confs {
		t, err := model.ParseDate(mode.Field(c), loc)
		ks[i] = keyed{c: c, t: t, ok: err == nil}
	}

	slices.SortStableFunc(ks, func(a, b keyed) int {
		switch {
		case a.ok && b.ok:
			return a.t.Compare(b.t)
		case a.ok:
			return -1
		case b.ok:
			return 1
		default:
			return 0
		}
	})

	out := make([]model.Conference, len(ks))
	for i, k := range ks {
		out[i] = k.c
	}
	return out
}

// SortMonthKeys orders "YYYY-MM" keys ascending by their numeric value with
// the separator removed, so "2019-12" comes before "2020-09". Keys that are
// not numeric sort last, in their original order.
func SortMonthKeys(keys []string) []string {
	out := slices.Clone(keys)
	slices.SortStableFunc(out, func(a, b string) int {
		na, errA := keyNumber(a)
		nb, errB := keyNumber(b)
		switch {
		case errA == nil && errB == nil:
			return cmp.Compare(na, nb)
		case errA == nil:
			return -1
		case errB == nil:
			return 1
		default:
			return 0
		}
	})
	if out == nil {
		return []string{}
	}
	return out
}

func keyNumber(key string) (int, error) {
	return strconv.Atoi(strings.Replace(key, "-", "", 1))
}

// Sort returns a copy of groups with years ascending, months ascending
// within each year and conferences ascending within each month.
func Sort(groups []YearGroup, mode model.SortMode, loc *time.Location) []YearGroup {
	out := make([]YearGroup, 0, len(groups))
	for _, y := range groups {
		byKey := make(map[string]MonthGroup, len(y.Months))
		keys := make([]string, 0, len(y.Months))
		for _, m := range y.Months {
			byKey[m.Key] = m
			keys = append(keys, m.Key)
		}

		months := make([]MonthGroup, 0, len(keys))
		for _, k := range SortMonthKeys(keys) {
			m := byKey[k]
			m.Conferences = SortConferences(m.Conferences, mode, loc)
			months = append(months, m)
		}

		y.Months = months
		out = append(out, y)
	}

	slices.SortStableFunc(out, func(a, b YearGroup) int {
		return cmp.Compare(a.Year, b.Year)
	})
	return out
}
