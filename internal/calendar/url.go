package calendar

import (
	"net/url"
	"strings"
	"time"
)

const templateBaseURL = "https://calendar.google.com/calendar/render"

// manualDateLayout is YYYYMMDDTHHmmSS with a numeric offset, keeping the
// wall clock of the event's own zone.
const manualDateLayout = "20060102T150405-0700"

// BuildManualURL returns a Google Calendar "add event" template link that
// needs no authorization.
func BuildManualURL(ev Event) string {
	start, end := ev.Start, ev.End
	if end.IsZero() || !end.After(start) {
		end = start.Add(DefaultEventDuration)
	}
	if loc := zone(ev.TimeZone); loc != nil {
		start, end = start.In(loc), end.In(loc)
	}

	params := [][2]string{
		{"action", "TEMPLATE"},
		{"text", ev.Title},
		{"dates", start.Format(manualDateLayout) + "/" + end.Format(manualDateLayout)},
		{"details", ev.Description},
		{"location", ev.Location},
	}
	if ev.TimeZone != "" {
		params = append(params, [2]string{"ctz", ev.TimeZone})
	}

	var b strings.Builder
	b.WriteString(templateBaseURL)
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}

// ParseManualDates parses the dates parameter of a manual URL.
func ParseManualDates(dates string) (start, end time.Time, err error) {
	first, second, _ := strings.Cut(dates, "/")
	if start, err = time.Parse(manualDateLayout, first); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = time.Parse(manualDateLayout, second); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// zone loads an IANA zone name, returning nil when it is empty or unknown.
func zone(name string) *time.Location {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil
	}
	return loc
}

// ZoneName returns the IANA name of loc, or "" when loc has no portable
// name (the process-local zone).
func ZoneName(loc *time.Location) string {
	if loc == nil || loc == time.Local || loc.String() == "Local" {
		return ""
	}
	return loc.String()
}
