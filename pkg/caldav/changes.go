package caldav

import (
	"strings"
	"time"

	"caldav-mcp/internal/models"
	icalcodec "caldav-mcp/pkg/ical"
)

// EventChanges is a partial update: only non-nil fields are applied.
// An explicit empty string for Description or Location clears the field,
// which is distinct from leaving it nil. An empty RecurrenceRule removes
// the event's RRULE.
type EventChanges struct {
	Title          *string
	Description    *string
	Location       *string
	Start          *time.Time
	End            *time.Time
	AllDay         *bool
	Priority       *int
	Categories     *[]string
	Attendees      *[]models.Attendee
	Reminders      *[]models.Reminder
	RecurrenceRule *string
}

// IsZero returns true when no field is set
func (ch EventChanges) IsZero() bool {
	return ch.Title == nil && ch.Description == nil && ch.Location == nil &&
		ch.Start == nil && ch.End == nil && ch.AllDay == nil &&
		ch.Priority == nil && ch.Categories == nil && ch.Attendees == nil &&
		ch.Reminders == nil && ch.RecurrenceRule == nil
}

// applyChanges merges a partial update into an event and bumps its
// revision state: sequence +1 and fresh DTSTAMP/LAST-MODIFIED, whether or
// not any field actually changed. The UID is never touched.
func applyChanges(event *models.Event, ch EventChanges, now time.Time) {
	if ch.Title != nil {
		event.Title = *ch.Title
	}
	if ch.Description != nil {
		event.Description = *ch.Description
	}
	if ch.Location != nil {
		event.Location = *ch.Location
	}
	if ch.Start != nil {
		event.Start = *ch.Start
	}
	if ch.End != nil {
		event.End = *ch.End
	}
	if ch.AllDay != nil {
		event.AllDay = *ch.AllDay
	}
	if ch.Priority != nil {
		event.Priority = *ch.Priority
	}
	if ch.Categories != nil {
		event.Categories = *ch.Categories
	}
	if ch.Attendees != nil {
		event.Attendees = *ch.Attendees
	}
	if ch.Reminders != nil {
		event.Reminders = *ch.Reminders
	}
	if ch.RecurrenceRule != nil {
		rule := strings.TrimSpace(*ch.RecurrenceRule)
		if rule == "" {
			event.Recurrence = nil
		} else {
			event.Recurrence = icalcodec.ParseRRule(rule)
		}
	}

	event.Sequence++
	event.DTStamp = now.UTC()
	event.LastModified = now.UTC()
}
