package calendar

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/teemow/todoagent/internal/google"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
)

// Error reported when the owner has not authorized calendar access.
const noTokenMessage = "No hay token de acceso de Google. Autoriza la app primero."

// Bridge creates calendar events on behalf of task owners
type Bridge struct {
	tokens   google.TokenProvider
	inserter EventInserter
	loc      *time.Location
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// BridgeOption configures a Bridge
type BridgeOption func(*Bridge)

// WithLocation sets the zone used when an event has no TimeZone.
func WithLocation(loc *time.Location) BridgeOption {
	return func(b *Bridge) {
		if loc != nil {
			b.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) BridgeOption {
	return func(b *Bridge) { b.metrics = m }
}

// NewBridge creates a Bridge.
func NewBridge(tokens google.TokenProvider, inserter EventInserter, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		tokens:   tokens,
		inserter: inserter,
		loc:      time.Local,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddEvent inserts ev into owner's primary calendar. It never fails; the
// Result describes what happened.
func (b *Bridge) AddEvent(ctx context.Context, owner string, ev Event) Result {
	if ev.End.IsZero() || !ev.End.After(ev.Start) {
		ev.End = ev.Start.Add(DefaultEventDuration)
	}
	if ev.TimeZone == "" {
		ev.TimeZone = ZoneName(b.loc)
	}
	if ev.TimeZone == "" {
		ev.Start, ev.End = ev.Start.In(b.loc), ev.End.In(b.loc)
	}
	manual := BuildManualURL(ev)

	start := time.Now()
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreate)
	defer span.End()

	result := b.addEvent(ctx, owner, ev, manual)

	status := instrumentation.StatusSuccess
	if !result.Success {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, errors.New(result.Error))
		b.logger.Warn("calendar event not created", logging.Owner(owner), slog.String(logging.KeyError, result.Error))
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	b.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreate, status, time.Since(start))

	return result
}

func (b *Bridge) addEvent(ctx context.Context, owner string, ev Event, manual string) Result {
	token, err := b.tokens.Token(ctx, owner)
	if errors.Is(err, google.ErrNoToken) {
		return Result{URL: manual, Error: noTokenMessage}
	}
	if err != nil {
		return Result{URL: manual, Error: err.Error()}
	}

	created, err := b.inserter.Insert(ctx, token, toGoogleEvent(ev))
	if err != nil {
		return Result{URL: manual, Error: err.Error()}
	}

	res := Result{Success: true, EventID: created.Id, URL: created.HtmlLink}
	if res.URL == "" {
		res.URL = manual
	}
	return res
}

// toGoogleEvent builds the API payload with explicit popup and email
// reminders instead of the calendar defaults.
func toGoogleEvent(ev Event) *gcal.Event {
	overrides := make([]*gcal.EventReminder, 0, 2*len(reminderMinutes))
	for _, minutes := range reminderMinutes {
		overrides = append(overrides,
			&gcal.EventReminder{Method: "email", Minutes: minutes},
			&gcal.EventReminder{Method: "popup", Minutes: minutes},
		)
	}

	start, end := ev.Start, ev.End
	if loc := zone(ev.TimeZone); loc != nil {
		start, end = start.In(loc), end.In(loc)
	}

	return &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
	}
}
