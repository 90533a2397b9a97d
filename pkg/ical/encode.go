// Package ical renders events into iCalendar (RFC 5545) objects and
// extracts them back out of calendar data returned by the CalDAV server.
package ical

import (
	"strconv"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"

	"caldav-mcp/internal/errs"
	"caldav-mcp/internal/models"
)

const prodID = "-//caldav-mcp//Go//EN"

const (
	dateTimeUTCLayout   = "20060102T150405Z"
	dateTimeLocalLayout = "20060102T150405"
	dateLayout          = "20060102"
)

// EncodeEvent renders an event into a VCALENDAR holding a single VEVENT.
// Construction is pure and deterministic; invalid enum values (frequency,
// attendee status, reminder action) are rejected before any text is built.
func EncodeEvent(e *models.Event) (*goical.Calendar, error) {
	ve, err := encodeVEvent(e)
	if err != nil {
		return nil, err
	}

	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, prodID)
	cal.Props.SetText(goical.PropCalendarScale, "GREGORIAN")
	cal.Children = append(cal.Children, ve)
	return cal, nil
}

func encodeVEvent(e *models.Event) (*goical.Component, error) {
	for _, a := range e.Attendees {
		if s := strings.ToUpper(strings.TrimSpace(a.Status)); s != "" && !models.ValidStatus(s) {
			return nil, errs.Validationf("invalid attendee status: %q", a.Status)
		}
	}
	for _, r := range e.Reminders {
		if a := strings.ToUpper(strings.TrimSpace(r.Action)); a != "" && !models.ValidAction(a) {
			return nil, errs.Validationf("invalid reminder action: %q", r.Action)
		}
	}
	if e.Priority < 0 || e.Priority > 9 {
		return nil, errs.Validationf("priority must be between 0 and 9, got %d", e.Priority)
	}

	var rruleValue string
	if e.HasRecurrence() {
		var err error
		rruleValue, err = FormatRRule(e.Recurrence, e.AllDay)
		if err != nil {
			return nil, err
		}
	}

	ve := goical.NewComponent(goical.CompEvent)
	ve.Props.SetText(goical.PropUID, e.UID)
	ve.Props.SetDateTime(goical.PropDateTimeStamp, e.DTStamp.UTC())
	if !e.LastModified.IsZero() {
		ve.Props.SetDateTime(goical.PropLastModified, e.LastModified.UTC())
	}
	setEventTime(ve, goical.PropDateTimeStart, e.Start, e.AllDay, e.Floating)
	setEventTime(ve, goical.PropDateTimeEnd, e.End, e.AllDay, e.Floating)
	ve.Props.SetText(goical.PropSummary, e.Title)
	ve.Props.SetText(goical.PropDescription, e.Description)
	ve.Props.SetText(goical.PropLocation, e.Location)
	ve.Props.SetText(goical.PropStatus, "CONFIRMED")

	seq := goical.NewProp(goical.PropSequence)
	seq.Value = strconv.Itoa(e.Sequence)
	ve.Props.Set(seq)

	if e.Priority > 0 {
		prio := goical.NewProp(goical.PropPriority)
		prio.Value = strconv.Itoa(e.Priority)
		ve.Props.Set(prio)
	}

	if len(e.Categories) > 0 {
		ve.Props.Set(encodeCategories(e.Categories))
	}

	if rruleValue != "" {
		rr := goical.NewProp(goical.PropRecurrenceRule)
		rr.Value = rruleValue
		ve.Props.Set(rr)
	}

	for _, a := range e.Attendees {
		if prop := encodeAttendee(a); prop != nil {
			ve.Props.Add(prop)
		}
	}

	for _, r := range e.Reminders {
		ve.Children = append(ve.Children, encodeAlarm(r, e.Title))
	}

	return ve, nil
}

// setEventTime writes DTSTART/DTEND in one of the three forms the data
// model allows: DATE for all-day events, UTC for timezone-aware times and
// the floating local form otherwise.
func setEventTime(ve *goical.Component, name string, t time.Time, allDay, floating bool) {
	prop := goical.NewProp(name)
	switch {
	case allDay:
		prop.SetValueType(goical.ValueDate)
		prop.Value = t.Format(dateLayout)
	case floating:
		prop.Value = t.Format(dateTimeLocalLayout)
	default:
		prop.Value = t.UTC().Format(dateTimeUTCLayout)
	}
	ve.Props.Set(prop)
}

// encodeCategories joins the category set into one escaped, comma-separated
// CATEGORIES value. Order is preserved on serialization.
func encodeCategories(categories []string) *goical.Prop {
	escaped := make([]string, 0, len(categories))
	for _, c := range categories {
		escaped = append(escaped, EscapeText(c))
	}
	prop := goical.NewProp(goical.PropCategories)
	prop.Value = strings.Join(escaped, ",")
	return prop
}

// encodeAttendee builds an ATTENDEE property with RSVP, CN and PARTSTAT
// parameters. Entries without a plausible email address are skipped.
func encodeAttendee(a models.Attendee) *goical.Prop {
	email := strings.TrimSpace(a.Email)
	if !strings.Contains(email, "@") {
		return nil
	}

	cn := strings.TrimSpace(a.Name)
	if cn == "" {
		cn = email
	}

	prop := goical.NewProp(goical.PropAttendee)
	prop.Value = "mailto:" + email
	prop.Params.Set(goical.ParamRSVP, "TRUE")
	prop.Params.Set(goical.ParamCommonName, cn)
	prop.Params.Set(goical.ParamParticipationStatus, a.NormalizedStatus())
	return prop
}

// encodeAlarm builds a VALARM sub-component for a reminder. The action
// defaults to DISPLAY and the description to the event title.
func encodeAlarm(r models.Reminder, eventTitle string) *goical.Component {
	action := strings.ToUpper(strings.TrimSpace(r.Action))
	if action == "" {
		action = models.ActionDisplay
	}

	desc := r.Description
	if desc == "" {
		desc = eventTitle
	}

	alarm := goical.NewComponent(goical.CompAlarm)
	alarm.Props.SetText(goical.PropAction, action)

	trigger := goical.NewProp(goical.PropTrigger)
	trigger.Value = FormatTrigger(r.MinutesBefore)
	alarm.Props.Set(trigger)

	alarm.Props.SetText(goical.PropDescription, desc)

	if action == models.ActionEmail {
		alarm.Props.SetText(goical.PropSummary, eventTitle)
		if to := strings.TrimSpace(r.EmailTo); to != "" {
			att := goical.NewProp(goical.PropAttendee)
			att.Value = "mailto:" + to
			alarm.Props.Add(att)
		}
	}

	return alarm
}
