package models

import (
	"strings"
	"time"
)

// Attendee participation statuses as defined by RFC 5545 PARTSTAT.
const (
	StatusAccepted    = "ACCEPTED"
	StatusDeclined    = "DECLINED"
	StatusTentative   = "TENTATIVE"
	StatusNeedsAction = "NEEDS-ACTION"
)

// Reminder actions as defined by RFC 5545 VALARM.
const (
	ActionDisplay = "DISPLAY"
	ActionEmail   = "EMAIL"
	ActionAudio   = "AUDIO"
)

// Recurrence frequencies supported for RRULE generation.
const (
	FreqDaily   = "DAILY"
	FreqWeekly  = "WEEKLY"
	FreqMonthly = "MONTHLY"
	FreqYearly  = "YEARLY"
)

// Event represents a calendar event with all fields exchanged over the tool surface
type Event struct {
	UID          string      `json:"uid"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	Location     string      `json:"location,omitempty"`
	Start        time.Time   `json:"start"`
	End          time.Time   `json:"end"`
	AllDay       bool        `json:"all_day"`
	Floating     bool        `json:"-"` // no timezone on the wire; interpreted in local context
	Sequence     int         `json:"sequence"`
	Priority     int         `json:"priority"` // 0 = none, 1 = highest, 9 = lowest
	DTStamp      time.Time   `json:"dtstamp,omitempty"`
	LastModified time.Time   `json:"last_modified,omitempty"`
	Categories   []string    `json:"categories,omitempty"`
	Attendees    []Attendee  `json:"attendees,omitempty"`
	Reminders    []Reminder  `json:"reminders,omitempty"`
	Recurrence   *Recurrence `json:"recurrence,omitempty"`

	CalendarIndex int    `json:"calendar_index"`
	Path          string `json:"-"` // object path on the CalDAV server
}

// Attendee is a single ATTENDEE entry on an event
type Attendee struct {
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
}

// Reminder is a single VALARM sub-block on an event
type Reminder struct {
	MinutesBefore int    `json:"minutes_before"`
	Action        string `json:"action,omitempty"`
	Description   string `json:"description,omitempty"`
	EmailTo       string `json:"email_to,omitempty"`
}

// Recurrence describes an RRULE. Frequency is required when the rule is
// built locally; Raw preserves rules received from the server that could
// not be mapped onto the structured fields.
type Recurrence struct {
	Frequency  string    `json:"frequency,omitempty"`
	Interval   int       `json:"interval,omitempty"`
	Count      int       `json:"count,omitempty"`
	Until      time.Time `json:"until,omitempty"`
	ByDay      string    `json:"byday,omitempty"` // e.g. "MO,WE,FR"
	ByMonthDay int       `json:"bymonthday,omitempty"`
	ByMonth    int       `json:"bymonth,omitempty"`
	Raw        string    `json:"raw,omitempty"`
}

// CalendarInfo describes a calendar discovered on the server
type CalendarInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// ValidStatus reports whether s is a recognized participation status
func ValidStatus(s string) bool {
	switch s {
	case StatusAccepted, StatusDeclined, StatusTentative, StatusNeedsAction:
		return true
	}
	return false
}

// ValidAction reports whether s is a recognized reminder action
func ValidAction(s string) bool {
	switch s {
	case ActionDisplay, ActionEmail, ActionAudio:
		return true
	}
	return false
}

// ValidFrequency reports whether s is a recognized recurrence frequency
func ValidFrequency(s string) bool {
	switch s {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return true
	}
	return false
}

// NormalizedStatus returns the attendee status with the NEEDS-ACTION default
// applied for empty or unrecognized values
func (a Attendee) NormalizedStatus() string {
	status := strings.ToUpper(strings.TrimSpace(a.Status))
	if !ValidStatus(status) {
		return StatusNeedsAction
	}
	return status
}

// HasRecurrence returns true if the event carries a recurrence rule
func (e *Event) HasRecurrence() bool {
	return e.Recurrence != nil && (e.Recurrence.Frequency != "" || e.Recurrence.Raw != "")
}

// Overlaps returns true if the event intersects the [from, to) window
func (e *Event) Overlaps(from, to time.Time) bool {
	return e.Start.Before(to) && e.End.After(from)
}

// MatchesQuery reports whether any of the given fields contains the query
// substring, case-insensitively. Recognized fields: title, description,
// location, attendees.
func (e *Event) MatchesQuery(query string, fields []string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, field := range fields {
		switch field {
		case "title":
			if strings.Contains(strings.ToLower(e.Title), q) {
				return true
			}
		case "description":
			if strings.Contains(strings.ToLower(e.Description), q) {
				return true
			}
		case "location":
			if strings.Contains(strings.ToLower(e.Location), q) {
				return true
			}
		case "attendees":
			for _, a := range e.Attendees {
				if strings.Contains(strings.ToLower(a.Email), q) {
					return true
				}
			}
		}
	}
	return false
}
