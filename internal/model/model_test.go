package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConferenceJSONPreservesUnknownFields(t *testing.T) {
	in := `{"name":"JSConf","url":"https://jsconf.com","startDate":"2017-09-21","country":"Iceland","extra":{"a":1}}`

	var c Conference
	require.NoError(t, json.Unmarshal([]byte(in), &c))
	assert.Equal(t, "JSConf", c.Name)
	assert.Equal(t, "2017-09-21", c.StartDate)
	assert.Equal(t, "Iceland", c.Country)
	assert.Empty(t, c.CFPEndDate)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestConferenceJSONNullCountry(t *testing.T) {
	var c Conference
	require.NoError(t, json.Unmarshal([]byte(`{"url":"u","startDate":"2020-01-01","country":null}`), &c))
	assert.Equal(t, "", c.Country)
}

func TestConferenceMarshalWithoutRaw(t *testing.T) {
	c := Conference{Name: "X", URL: "https://x.test", StartDate: "2020-01-02"}
	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"X","url":"https://x.test","startDate":"2020-01-02"}`, string(out))
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "Berlin, Germany", Conference{City: "Berlin", Country: "Germany"}.Location())
	assert.Equal(t, "Berlin", Conference{City: "Berlin"}.Location())
	assert.Equal(t, "Germany", Conference{Country: "Germany"}.Location())
	assert.Equal(t, "", Conference{}.Location())
}

func TestParseDate(t *testing.T) {
	loc := time.UTC

	d, err := ParseDate("2017-09-21", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2017, 9, 21, 0, 0, 0, 0, loc), d)

	d, err = ParseDate("2017-09-21T10:30:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2017, 9, 21, 10, 30, 0, 0, loc), d)

	d, err = ParseDate("2017-09-21T10:30:00Z", loc)
	require.NoError(t, err)
	assert.True(t, d.Equal(time.Date(2017, 9, 21, 10, 30, 0, 0, time.UTC)))

	_, err = ParseDate("", loc)
	assert.True(t, errors.Is(err, ErrMissingDate))

	_, err = ParseDate("21/09/2017", loc)
	assert.Error(t, err)
}

func TestSortMode(t *testing.T) {
	m, err := ParseSortMode("")
	require.NoError(t, err)
	assert.Equal(t, SortByStartDate, m)

	m, err = ParseSortMode("cfpEndDate")
	require.NoError(t, err)
	assert.Equal(t, SortByCFPEndDate, m)
	assert.Equal(t, "cfpEndDate", m.String())
	assert.Equal(t, SortByStartDate, m.Toggle())
	assert.Equal(t, SortByCFPEndDate, SortByStartDate.Toggle())

	_, err = ParseSortMode("endDate")
	assert.ErrorIs(t, err, ErrUnknownSortMode)

	c := Conference{StartDate: "2020-01-01", CFPEndDate: "2019-11-01"}
	assert.Equal(t, "2020-01-01", SortByStartDate.Field(c))
	assert.Equal(t, "2019-11-01", SortByCFPEndDate.Field(c))
}

func TestSortModeText(t *testing.T) {
	var v struct {
		Sort SortMode `json:"sort"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"sort":"cfpEndDate"}`), &v))
	assert.Equal(t, SortByCFPEndDate, v.Sort)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sort":"cfpEndDate"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"sort":"name"}`), &v))
}
