package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confcal/internal/model"
)

func testConferences() []model.Conference {
	return []model.Conference{
		{
			Name:       "JSConf EU",
			URL:        "https://jsconf.eu",
			StartDate:  "2024-06-01",
			EndDate:    "2024-06-02",
			City:       "Berlin",
			Country:    "Germany",
			CFPEndDate: "2024-02-01",
			CFPURL:     "https://jsconf.eu/cfp",
		},
		{Name: "One day", URL: "https://one.day", StartDate: "2024-07-10"},
		{Name: "Broken", URL: "https://broken", StartDate: "TBA"},
	}
}

func TestWriteFeed(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFeed(&buf, testConferences(), FeedOptions{
		Name:  "JavaScript conferences",
		Stamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	body := buf.String()
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"PRODID:" + productID,
		"METHOD:PUBLISH",
		"X-WR-CALNAME:JavaScript conferences",
		"DTSTART;VALUE=DATE:20240601",
		"DTEND;VALUE=DATE:20240603",
		"DTSTART;VALUE=DATE:20240710",
		"DTEND;VALUE=DATE:20240711",
		"SUMMARY:JSConf EU",
		"END:VCALENDAR",
	} {
		assert.Contains(t, body, want)
	}
	assert.NotContains(t, body, "Broken")

	cal, err := ical.ParseCalendar(strings.NewReader(body))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, EventUID(testConferences()[0]), first.Id())
	assert.Equal(t, "https://jsconf.eu", first.GetProperty(ical.ComponentPropertyUrl).Value)
	assert.Contains(t, first.GetProperty(ical.ComponentPropertyLocation).Value, "Berlin")
	assert.Contains(t, first.GetProperty(ical.ComponentPropertyDescription).Value, "CFP closes 2024-02-01")

	start, err := first.GetAllDayStartAt()
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", start.Format("2006-01-02"))
}

func TestEventUIDIsStable(t *testing.T) {
	c := model.Conference{URL: "https://a.test", StartDate: "2024-01-01"}
	assert.Equal(t, EventUID(c), EventUID(c))

	other := c
	other.StartDate = "2025-01-01"
	assert.NotEqual(t, EventUID(c), EventUID(other))
	assert.True(t, strings.HasSuffix(EventUID(c), "@confcal"))
}

func TestBuildCalendarEmpty(t *testing.T) {
	cal := BuildCalendar(nil, FeedOptions{})
	assert.Empty(t, cal.Events())
	assert.Contains(t, cal.Serialize(), "BEGIN:VCALENDAR")
}

func TestEndDateBeforeStartIsIgnored(t *testing.T) {
	confs := []model.Conference{{URL: "u", StartDate: "2024-05-10", EndDate: "2024-05-01"}}

	var buf bytes.Buffer
	require.NoError(t, WriteFeed(&buf, confs, FeedOptions{}))
	assert.Contains(t, buf.String(), "DTEND;VALUE=DATE:20240511")
}
