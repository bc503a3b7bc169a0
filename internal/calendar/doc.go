// Package calendar bridges tasks to Google Calendar.
//
// Bridge.AddEvent inserts an event into the owner's primary calendar using
// the owner's stored OAuth token. It never returns an error: every outcome,
// including a missing token or a provider failure, is reported in a Result
// that always carries a manual "add to calendar" URL as a fallback.
//
//	bridge := calendar.NewBridge(tokens, calendar.NewGoogleInserter())
//	res := bridge.AddEvent(ctx, owner, calendar.Event{
//	    Title: "Dentista",
//	    Start: start,
//	    End:   start.Add(calendar.DefaultEventDuration),
//	})
//	if !res.Success {
//	    // res.URL still lets the user add the event by hand
//	}
package calendar
