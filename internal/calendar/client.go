package calendar

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/todoagent/internal/google"
)

// primaryCalendar is the calendar id events are inserted into.
const primaryCalendar = "primary"

// EventInserter inserts a fully built event with the given token
type EventInserter interface {
	Insert(ctx context.Context, token *oauth2.Token, event *gcal.Event) (*gcal.Event, error)
}

// GoogleInserter talks to the Google Calendar API
type GoogleInserter struct {
	endpoint string
}

// InserterOption configures a GoogleInserter
type InserterOption func(*GoogleInserter)

// WithEndpoint points the inserter at a different API base URL.
func WithEndpoint(endpoint string) InserterOption {
	return func(g *GoogleInserter) { g.endpoint = endpoint }
}

// NewGoogleInserter creates an inserter for the public Calendar API.
func NewGoogleInserter(opts ...InserterOption) *GoogleInserter {
	g := &GoogleInserter{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Insert creates event in the owner's primary calendar.
func (g *GoogleInserter) Insert(ctx context.Context, token *oauth2.Token, event *gcal.Event) (*gcal.Event, error) {
	opts := []option.ClientOption{option.WithHTTPClient(google.NewHTTPClient(ctx, token))}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	created, err := svc.Events.Insert(primaryCalendar, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return created, nil
}
