package google

// CalendarScopes are requested when an owner connects Google Calendar.
var CalendarScopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/calendar.events",
}
