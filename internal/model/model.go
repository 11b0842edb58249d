package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Conference is a single entry of a yearly conference file.
//
// Only the fields the listing logic needs are decoded; every other field
// of the source object is kept in raw and written back unchanged by
// MarshalJSON. Values are treated as immutable once decoded.
type Conference struct {
	Name       string `json:"name,omitempty"`
	URL        string `json:"url"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	CFPURL     string `json:"cfpUrl,omitempty"`
	CFPEndDate string `json:"cfpEndDate,omitempty"`
	Twitter    string `json:"twitter,omitempty"`

	raw json.RawMessage
}

// conferenceFields mirrors Conference without methods so decoding does not recurse.
type conferenceFields struct {
	Name       string `json:"name,omitempty"`
	URL        string `json:"url"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	CFPURL     string `json:"cfpUrl,omitempty"`
	CFPEndDate string `json:"cfpEndDate,omitempty"`
	Twitter    string `json:"twitter,omitempty"`
}

func (c *Conference) UnmarshalJSON(data []byte) error {
	var f conferenceFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = Conference{
		Name:       f.Name,
		URL:        f.URL,
		StartDate:  f.StartDate,
		EndDate:    f.EndDate,
		City:       f.City,
		Country:    f.Country,
		CFPURL:     f.CFPURL,
		CFPEndDate: f.CFPEndDate,
		Twitter:    f.Twitter,
	}
	c.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (c Conference) MarshalJSON() ([]byte, error) {
	if len(c.raw) > 0 {
		return c.raw, nil
	}
	return json.Marshal(conferenceFields{
		Name:       c.Name,
		URL:        c.URL,
		StartDate:  c.StartDate,
		EndDate:    c.EndDate,
		City:       c.City,
		Country:    c.Country,
		CFPURL:     c.CFPURL,
		CFPEndDate: c.CFPEndDate,
		Twitter:    c.Twitter,
	})
}

// Location is a human readable "City, Country" string.
func (c Conference) Location() string {
	switch {
	case c.City != "" && c.Country != "":
		return c.City + ", " + c.Country
	case c.City != "":
		return c.City
	default:
		return c.Country
	}
}

// Accepted date layouts, most specific last.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
}

// ErrMissingDate is returned by ParseDate for an empty value.
var ErrMissingDate = errors.New("date is empty")

// ParseDate parses an ISO-like date string in loc. Dates without a zone
// are interpreted as local midnight (or local time) in loc.
func ParseDate(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, ErrMissingDate
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}

// SortMode selects the date field used to group and order conferences.
type SortMode int

const (
	SortByStartDate SortMode = iota
	SortByCFPEndDate
)

// ErrUnknownSortMode is returned when parsing an unrecognized sort field name.
var ErrUnknownSortMode = errors.New("unknown sort mode")

// ParseSortMode maps a wire name to a SortMode. An empty name yields the default.
func ParseSortMode(s string) (SortMode, error) {
	switch s {
	case "", "startDate":
		return SortByStartDate, nil
	case "cfpEndDate":
		return SortByCFPEndDate, nil
	default:
		return SortByStartDate, fmt.Errorf("%w: %q", ErrUnknownSortMode, s)
	}
}

func (m SortMode) String() string {
	if m == SortByCFPEndDate {
		return "cfpEndDate"
	}
	return "startDate"
}

// Toggle switches between start date and CFP end date ordering.
func (m SortMode) Toggle() SortMode {
	if m == SortByCFPEndDate {
		return SortByStartDate
	}
	return SortByCFPEndDate
}

// Field returns the raw value of the conference date selected by m.
func (m SortMode) Field(c Conference) string {
	if m == SortByCFPEndDate {
		return c.CFPEndDate
	}
	return c.StartDate
}

func (m SortMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *SortMode) UnmarshalText(b []byte) error {
	v, err := ParseSortMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
