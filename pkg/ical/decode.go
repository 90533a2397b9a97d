package ical

import (
	"sort"
	"strconv"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"

	"caldav-mcp/internal/errs"
	"caldav-mcp/internal/models"
)

// DecodeCalendar extracts every VEVENT from a calendar object returned by
// the server. Events that are missing their mandatory fields are skipped;
// the decode is otherwise defensive and never fails on malformed or
// unrecognized optional properties.
func DecodeCalendar(cal *goical.Calendar) []*models.Event {
	if cal == nil {
		return nil
	}

	var events []*models.Event
	for _, child := range cal.Children {
		if child.Name != goical.CompEvent {
			continue
		}
		event, err := DecodeEvent(child)
		if err != nil {
			continue
		}
		events = append(events, event)
	}
	return events
}

// DecodeEvent converts a single VEVENT component into an Event. Only a
// structurally absent UID or DTSTART is a decode failure.
func DecodeEvent(ve *goical.Component) (*models.Event, error) {
	event := &models.Event{}

	uid, _ := ve.Props.Text(goical.PropUID)
	if uid == "" {
		return nil, errs.Validationf("event is missing a UID")
	}
	event.UID = uid

	start, allDay, floating, ok := decodeEventTime(ve.Props.Get(goical.PropDateTimeStart))
	if !ok {
		return nil, errs.Validationf("event %s is missing a start time", uid)
	}
	event.Start = start
	event.AllDay = allDay
	event.Floating = floating

	// DTEND of an all-day event is the exclusive next day; missing DTEND
	// falls back to a one-hour duration.
	if end, _, _, ok := decodeEventTime(ve.Props.Get(goical.PropDateTimeEnd)); ok {
		event.End = end
	} else {
		event.End = start.Add(time.Hour)
	}

	event.Title, _ = ve.Props.Text(goical.PropSummary)
	event.Description, _ = ve.Props.Text(goical.PropDescription)
	event.Location, _ = ve.Props.Text(goical.PropLocation)

	event.Sequence = decodeBoundedInt(ve.Props.Get(goical.PropSequence), 0, 1<<31-1)
	event.Priority = decodeBoundedInt(ve.Props.Get(goical.PropPriority), 0, 9)

	if ts, err := ve.Props.DateTime(goical.PropDateTimeStamp, time.UTC); err == nil {
		event.DTStamp = ts
	}
	if lm, err := ve.Props.DateTime(goical.PropLastModified, time.UTC); err == nil {
		event.LastModified = lm
	}

	event.Categories = decodeCategories(ve.Props.Values(goical.PropCategories))
	event.Attendees = decodeAttendees(ve.Props.Values(goical.PropAttendee))

	if rrule := ve.Props.Get(goical.PropRecurrenceRule); rrule != nil {
		event.Recurrence = ParseRRule(rrule.Value)
	}

	for _, child := range ve.Children {
		if child.Name != goical.CompAlarm {
			continue
		}
		if reminder, ok := decodeAlarm(child); ok {
			event.Reminders = append(event.Reminders, reminder)
		}
	}

	return event, nil
}

// SortByStart orders events chronologically, the way every multi-event
// result is returned to callers.
func SortByStart(events []*models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}

// decodeEventTime parses a DTSTART/DTEND property. It recognizes the DATE
// form (all-day), the UTC "Z" form, TZID-qualified local forms, and the
// floating form without any timezone.
func decodeEventTime(prop *goical.Prop) (t time.Time, allDay, floating, ok bool) {
	if prop == nil || prop.Value == "" {
		return time.Time{}, false, false, false
	}
	value := strings.TrimSpace(prop.Value)

	if prop.Params.Get(goical.ParamValue) == string(goical.ValueDate) || len(value) == len(dateLayout) {
		t, err := time.ParseInLocation(dateLayout, value, time.Local)
		if err != nil {
			return time.Time{}, false, false, false
		}
		return t, true, false, true
	}

	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse(dateTimeUTCLayout, value)
		if err != nil {
			return time.Time{}, false, false, false
		}
		return t, false, false, true
	}

	loc := time.Local
	isFloating := true
	if tzid := prop.Params.Get(goical.ParamTimezoneID); tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
			isFloating = false
		}
	}
	t2, err := time.ParseInLocation(dateTimeLocalLayout, value, loc)
	if err != nil {
		return time.Time{}, false, false, false
	}
	return t2, false, isFloating, true
}

// decodeBoundedInt reads an integer property, clamping garbage and
// out-of-range values back to the valid range.
func decodeBoundedInt(prop *goical.Prop, min, max int) int {
	if prop == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(prop.Value))
	if err != nil {
		return 0
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// decodeCategories splits each CATEGORIES value on unescaped commas and
// unescapes the tokens. Multiple CATEGORIES properties are concatenated.
func decodeCategories(props []goical.Prop) []string {
	var categories []string
	for _, prop := range props {
		for _, token := range SplitUnescaped(prop.Value, ',') {
			token = strings.TrimSpace(UnescapeText(token))
			if token != "" {
				categories = append(categories, token)
			}
		}
	}
	return categories
}

// decodeAttendees extracts (email, status) pairs from ATTENDEE properties.
// An absent or unrecognized PARTSTAT falls back to NEEDS-ACTION.
func decodeAttendees(props []goical.Prop) []models.Attendee {
	var attendees []models.Attendee
	for _, prop := range props {
		email := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(prop.Value), "mailto:"))
		if email == "" {
			continue
		}

		status := strings.ToUpper(prop.Params.Get(goical.ParamParticipationStatus))
		if !models.ValidStatus(status) {
			status = models.StatusNeedsAction
		}

		attendee := models.Attendee{Email: email, Status: status}
		if cn := prop.Params.Get(goical.ParamCommonName); cn != "" && cn != email {
			attendee.Name = cn
		}
		attendees = append(attendees, attendee)
	}
	return attendees
}

// decodeAlarm converts a VALARM sub-component back into a reminder.
// Alarms with absolute trigger times are dropped, since a lead time in
// minutes cannot be derived from them without occurrence context.
func decodeAlarm(alarm *goical.Component) (models.Reminder, bool) {
	reminder := models.Reminder{Action: models.ActionDisplay}

	if action, _ := alarm.Props.Text(goical.PropAction); action != "" {
		action = strings.ToUpper(strings.TrimSpace(action))
		if models.ValidAction(action) {
			reminder.Action = action
		}
	}

	trigger := alarm.Props.Get(goical.PropTrigger)
	if trigger == nil || trigger.Value == "" {
		return models.Reminder{}, false
	}
	d, err := ParseDuration(trigger.Value)
	if err != nil {
		return models.Reminder{}, false
	}
	if d < 0 {
		d = -d
	}
	reminder.MinutesBefore = int(d.Minutes())

	if desc, _ := alarm.Props.Text(goical.PropDescription); desc != "" {
		reminder.Description = desc
	}

	if reminder.Action == models.ActionEmail {
		if att := alarm.Props.Get(goical.PropAttendee); att != nil {
			reminder.EmailTo = strings.TrimPrefix(strings.TrimSpace(att.Value), "mailto:")
		}
	}

	return reminder, true
}
