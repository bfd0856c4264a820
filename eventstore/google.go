// ABOUTME: Google Calendar implementation of the event-store adapter
// ABOUTME: Embeds stable ID and checksum in private extended properties
package eventstore

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/harperreed/officelog/models"
)

const (
	// maxResults is the Google Calendar API page-size cap.
	maxResults = 250

	poolSize    = 2
	poolIdleTTL = 10 * time.Minute
)

// GoogleAdapter talks to one Google Calendar. Service handles are
// leased from a bounded pool and rebuilt after idle expiry.
type GoogleAdapter struct {
	calendarID string
	pool       *Pool[*calendar.Service]
}

// NewGoogleAdapter builds an adapter for calendarID using token.
func NewGoogleAdapter(token *oauth2.Token, calendarID string) (*GoogleAdapter, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	config := NewOAuthConfig()
	factory := func(ctx context.Context) (*calendar.Service, error) {
		client := config.Client(ctx, token)
		return calendar.NewService(ctx, option.WithHTTPClient(client))
	}

	return &GoogleAdapter{
		calendarID: calendarID,
		pool:       NewPool(poolSize, poolIdleTTL, factory),
	}, nil
}

// Create writes a new event and returns its backend handle.
func (a *GoogleAdapter) Create(ctx context.Context, data EventData) (string, error) {
	svc, err := a.pool.Lease(ctx)
	if err != nil {
		return "", err
	}
	defer a.pool.Return(svc)

	created, err := svc.Events.Insert(a.calendarID, toGoogleEvent(data)).Context(ctx).Do()
	if err != nil {
		return "", classifyError("create event", err)
	}
	return created.Id, nil
}

// Update overwrites the event at handle.
func (a *GoogleAdapter) Update(ctx context.Context, handle string, data EventData) error {
	svc, err := a.pool.Lease(ctx)
	if err != nil {
		return err
	}
	defer a.pool.Return(svc)

	_, err = svc.Events.Update(a.calendarID, handle, toGoogleEvent(data)).Context(ctx).Do()
	if err != nil {
		return classifyError("update event", err)
	}
	return nil
}

// Delete removes the event at handle.
func (a *GoogleAdapter) Delete(ctx context.Context, handle string) error {
	svc, err := a.pool.Lease(ctx)
	if err != nil {
		return err
	}
	defer a.pool.Return(svc)

	if err := svc.Events.Delete(a.calendarID, handle).Context(ctx).Do(); err != nil {
		return classifyError("delete event", err)
	}
	return nil
}

// Get reads the event at handle.
func (a *GoogleAdapter) Get(ctx context.Context, handle string) (*RemoteEvent, error) {
	svc, err := a.pool.Lease(ctx)
	if err != nil {
		return nil, err
	}
	defer a.pool.Return(svc)

	event, err := svc.Events.Get(a.calendarID, handle).Context(ctx).Do()
	if err != nil {
		return nil, classifyError("get event", err)
	}
	if event.Status == "cancelled" {
		return nil, ErrNotFound
	}
	return fromGoogleEvent(event), nil
}

// Find returns the first live event carrying stableID inside the window.
func (a *GoogleAdapter) Find(ctx context.Context, stableID string, window Window) (*RemoteEvent, error) {
	svc, err := a.pool.Lease(ctx)
	if err != nil {
		return nil, err
	}
	defer a.pool.Return(svc)

	events, err := svc.Events.List(a.calendarID).
		PrivateExtendedProperty(PropStableID+"="+stableID).
		TimeMin(window.Start.Format(time.RFC3339)).
		TimeMax(window.End.Format(time.RFC3339)).
		SingleEvents(true).
		MaxResults(maxResults).
		Context(ctx).Do()
	if err != nil {
		return nil, classifyError("find event", err)
	}

	for _, event := range events.Items {
		if event.Status == "cancelled" {
			continue
		}
		return fromGoogleEvent(event), nil
	}
	return nil, ErrNotFound
}

// List enumerates events in the window that carry a stable ID marker.
func (a *GoogleAdapter) List(ctx context.Context, window Window) ([]RemoteEvent, error) {
	svc, err := a.pool.Lease(ctx)
	if err != nil {
		return nil, err
	}
	defer a.pool.Return(svc)

	var out []RemoteEvent
	pageToken := ""
	for {
		call := svc.Events.List(a.calendarID).
			TimeMin(window.Start.Format(time.RFC3339)).
			TimeMax(window.End.Format(time.RFC3339)).
			SingleEvents(true).
			MaxResults(maxResults).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		events, err := call.Do()
		if err != nil {
			return nil, classifyError("list events", err)
		}

		for _, event := range events.Items {
			if event.Status == "cancelled" {
				continue
			}
			remote := fromGoogleEvent(event)
			if remote.StableID == "" {
				continue
			}
			out = append(out, *remote)
		}

		pageToken = events.NextPageToken
		if pageToken == "" {
			return out, nil
		}
	}
}

// HasWriteAccess probes the calendar's ACL role.
func (a *GoogleAdapter) HasWriteAccess(ctx context.Context) bool {
	svc, err := a.pool.Lease(ctx)
	if err != nil {
		return false
	}
	defer a.pool.Return(svc)

	entry, err := svc.CalendarList.Get(a.calendarID).Context(ctx).Do()
	if err != nil {
		return false
	}
	return entry.AccessRole == "owner" || entry.AccessRole == "writer"
}

func toGoogleEvent(data EventData) *calendar.Event {
	event := &calendar.Event{
		Summary:     data.Content.Title,
		Location:    data.Content.Location,
		Description: data.Content.Notes,
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				PropStableID: data.StableID,
				PropChecksum: data.Checksum,
			},
		},
	}

	if data.Content.AllDay {
		event.Start = &calendar.EventDateTime{Date: data.Content.Start.Format(models.DateLayout)}
		event.End = &calendar.EventDateTime{Date: data.Content.End.Format(models.DateLayout)}
	} else {
		event.Start = &calendar.EventDateTime{DateTime: data.Content.Start.Format(time.RFC3339)}
		event.End = &calendar.EventDateTime{DateTime: data.Content.End.Format(time.RFC3339)}
	}
	return event
}

func fromGoogleEvent(event *calendar.Event) *RemoteEvent {
	remote := &RemoteEvent{
		Handle: event.Id,
		Content: models.EventContent{
			Title:    event.Summary,
			Location: event.Location,
			Notes:    event.Description,
		},
	}

	if event.ExtendedProperties != nil && event.ExtendedProperties.Private != nil {
		remote.StableID = event.ExtendedProperties.Private[PropStableID]
		remote.Checksum = event.ExtendedProperties.Private[PropChecksum]
	}

	if event.Start != nil {
		if event.Start.Date != "" {
			remote.Content.AllDay = true
			if t, err := time.Parse(models.DateLayout, event.Start.Date); err == nil {
				remote.Content.Start = t
			}
		} else if t, err := time.Parse(time.RFC3339, event.Start.DateTime); err == nil {
			remote.Content.Start = t
		}
	}
	if event.End != nil {
		if event.End.Date != "" {
			if t, err := time.Parse(models.DateLayout, event.End.Date); err == nil {
				remote.Content.End = t
			}
		} else if t, err := time.Parse(time.RFC3339, event.End.DateTime); err == nil {
			remote.Content.End = t
		}
	}
	return remote
}

// classifyError maps Google API failures onto the adapter's error
// taxonomy: 404/410 → ErrNotFound, 401/403 → ErrNoAccess.
func classifyError(op string, err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok {
		switch apiErr.Code {
		case 404, 410:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		case 401, 403:
			return fmt.Errorf("%s: %w", op, ErrNoAccess)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
