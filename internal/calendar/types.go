package calendar

import "time"

// DefaultEventDuration is the length of events created for tasks.
const DefaultEventDuration = 30 * time.Minute

// Event is the calendar-agnostic description of an event
type Event struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// TimeZone is an IANA zone name. When empty, the zone of Start is used.
	TimeZone string
}

// Result is the outcome of a calendar insertion. URL is always set: the
// provider's link on success, otherwise a manual template link.
type Result struct {
	Success bool   `json:"success"`
	EventID string `json:"eventId,omitempty"`
	URL     string `json:"url"`
	Error   string `json:"error,omitempty"`
}

// Reminder lead times applied to every inserted event.
var reminderMinutes = []int64{24 * 60, 3 * 60}
