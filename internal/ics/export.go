package ics

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "confcal/internal/log"
	"confcal/internal/model"
)

const productID = "-//confcal//Conference Listing//EN"

// uidNamespace scopes the name-based UUIDs of exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://confs.tech/"))

// FeedOptions controls how a conference list is exported.
type FeedOptions struct {
	// Name is the calendar display name (X-WR-CALNAME).
	Name string
	// Stamp is written as DTSTAMP on every event. Zero means time.Now.
	Stamp time.Time
	// Location is used to read conference dates. Nil means UTC.
	Location *time.Location
}

// EventUID returns a stable UID for a conference, derived from its URL and
// start date so that subscribers see updates rather than duplicates.
func EventUID(c model.Conference) string {
	return uuid.NewSHA1(uidNamespace, []byte(c.URL+"|"+c.StartDate)).String() + "@confcal"
}

// BuildCalendar converts confs into an iCalendar with one all-day VEVENT
// per conference. Conferences without a parseable start date are skipped.
func BuildCalendar(confs []model.Conference, opts FeedOptions) *ical.Calendar {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	cal.SetRefreshInterval("PT12H")

	for _, c := range confs {
		start, err := model.ParseDate(c.StartDate, loc)
		if err != nil {
			appLog.Debug("ics: conference skipped", "url", c.URL, "reason", err.Error())
			continue
		}
		end := start
		if c.EndDate != "" {
			if e, err := model.ParseDate(c.EndDate, loc); err == nil && !e.Before(start) {
				end = e
			}
		}

		ev := cal.AddEvent(EventUID(c))
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(start)
		// DTEND of an all-day event is exclusive.
		ev.SetAllDayEndAt(end.AddDate(0, 0, 1))

		summary := c.Name
		if summary == "" {
			summary = c.URL
		}
		ev.SetSummary(summary)
		if loc := c.Location(); loc != "" {
			ev.SetLocation(loc)
		}
		if c.URL != "" {
			ev.SetURL(c.URL)
		}
		if desc := describe(c); desc != "" {
			ev.SetDescription(desc)
		}
	}

	return cal
}

// WriteFeed serializes confs as an iCalendar feed to w.
func WriteFeed(w io.Writer, confs []model.Conference, opts FeedOptions) error {
	return BuildCalendar(confs, opts).SerializeTo(w)
}

func describe(c model.Conference) string {
	var parts []string
	if c.URL != "" {
		parts = append(parts, c.URL)
	}
	if c.CFPEndDate != "" {
		line := "CFP closes " + c.CFPEndDate
		if c.CFPURL != "" {
			line += " (" + c.CFPURL + ")"
		}
		parts = append(parts, line)
	}
	if c.Twitter != "" {
		parts = append(parts, "Twitter: "+c.Twitter)
	}
	return strings.Join(parts, "\n")
}
