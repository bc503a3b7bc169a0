package calendar

import (
	"net/url"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildManualURL(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	start := time.Date(2025, 6, 1, 9, 0, 0, 0, madrid)
	u := BuildManualURL(Event{
		Title:       "Reunión & café",
		Description: "Traer notas",
		Start:       start,
		End:         start.Add(DefaultEventDuration),
		TimeZone:    "Europe/Madrid",
	})

	require.True(t, strings.HasPrefix(u, "https://calendar.google.com/calendar/render?action=TEMPLATE&text="))

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "Reunión & café", q.Get("text"))
	assert.Equal(t, "Traer notas", q.Get("details"))
	assert.Equal(t, "", q.Get("location"))
	assert.Equal(t, "Europe/Madrid", q.Get("ctz"))
	assert.Equal(t, "20250601T090000+0200/20250601T093000+0200", q.Get("dates"))

	gotStart, gotEnd, err := ParseManualDates(q.Get("dates"))
	require.NoError(t, err)
	assert.True(t, gotStart.Equal(start))
	assert.Equal(t, 30*time.Minute, gotEnd.Sub(gotStart))
}

func TestBuildManualURL_Defaults(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	u := BuildManualURL(Event{Title: "x", Start: start})

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "20250601T090000+0000/20250601T093000+0000", q.Get("dates"))
	assert.False(t, q.Has("ctz"))
}

func TestParseManualDates_Invalid(t *testing.T) {
	_, _, err := ParseManualDates("tomorrow")
	assert.Error(t, err)
}
