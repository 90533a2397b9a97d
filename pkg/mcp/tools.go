package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"caldav-mcp/internal/models"
	"caldav-mcp/pkg/caldav"
	"caldav-mcp/pkg/nats"
)

func (s *Server) registerTools() {
	s.registerListCalendars()
	s.registerCreateEvent()
	s.registerGetEvents()
	s.registerGetTodayEvents()
	s.registerGetWeekEvents()
	s.registerGetEventByUID()
	s.registerUpdateEvent()
	s.registerDeleteEvent()
	s.registerSearchEvents()
}

func (s *Server) registerListCalendars() {
	tool := mcp.NewTool("list_calendars",
		mcp.WithDescription("List all available calendars with their index, name and URL"),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if res := s.requireClient(); res != nil {
			return res, nil
		}

		calendars, err := s.client.ListCalendars(ctx)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(calendars)
	})
}

func (s *Server) registerCreateEvent() {
	tool := mcp.NewTool("create_event",
		mcp.WithDescription("Create a new calendar event. Default start is tomorrow at 14:00 local time; default duration is one hour."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("description",
			mcp.Description("Event description"),
		),
		mcp.WithString("location",
			mcp.Description("Event location"),
		),
		mcp.WithString("start_time",
			mcp.Description("Start time: YYYY-MM-DD, YYYY-MM-DDTHH:MM:SS (floating local) or RFC 3339"),
		),
		mcp.WithString("end_time",
			mcp.Description("End time in the same formats as start_time"),
		),
		mcp.WithNumber("duration_hours",
			mcp.Description("Duration in hours, used when end_time is not given (default 1)"),
		),
		mcp.WithNumber("calendar_index",
			mcp.Description("Calendar index from list_calendars (default 0)"),
		),
		mcp.WithNumber("priority",
			mcp.Description("Priority 0-9: 0 none, 1 highest, 9 lowest"),
		),
		mcp.WithArray("categories",
			mcp.Description("Category tags"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("attendees",
			mcp.Description("Attendees: email strings or objects with email, status (ACCEPTED/DECLINED/TENTATIVE/NEEDS-ACTION) and name"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithArray("reminders",
			mcp.Description("Reminders: objects with minutes_before, action (DISPLAY/EMAIL/AUDIO) and description"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithObject("recurrence",
			mcp.Description("Recurrence rule: frequency (DAILY/WEEKLY/MONTHLY/YEARLY), interval, count, until, byday, bymonthday, bymonth"),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if res := s.requireClient(); res != nil {
			return res, nil
		}
		args, _ := request.Params.Arguments.(map[string]interface{})

		title, ok := argString(args, "title")
		if !ok || title == "" {
			return mcp.NewToolResultError("title is required"), nil
		}

		opts := caldav.CreateEventOptions{
			Title:         title,
			CalendarIndex: argInt(args, "calendar_index", 0),
			DurationHours: argFloat(args, "duration_hours", 0),
			Priority:      argInt(args, "priority", 0),
			Categories:    argStringSlice(args, "categories"),
			Attendees:     argAttendees(args, "attendees"),
			Reminders:     argReminders(args, "reminders"),
		}
		opts.Description, _ = argString(args, "description")
		opts.Location, _ = argString(args, "location")

		if raw, ok := argString(args, "start_time"); ok && raw != "" {
			parsed, err := parseDateTime("start_time", raw)
			if err != nil {
				return toolError(err), nil
			}
			opts.Start = parsed.t
			opts.Floating = parsed.floating
			opts.AllDay = parsed.dateOnly
		}
		if raw, ok := argString(args, "end_time"); ok && raw != "" {
			parsed, err := parseDateTime("end_time", raw)
			if err != nil {
				return toolError(err), nil
			}
			opts.End = parsed.t
		}

		if _, ok := args["recurrence"]; ok {
			rec, err := argRecurrence(args, "recurrence")
			if err != nil {
				return toolError(err), nil
			}
			opts.Recurrence = rec
		}

		event, err := s.client.CreateEvent(ctx, opts)
		if err != nil {
			return toolError(err), nil
		}
		s.publishChange(ctx, nats.ActionCreated, event)

		return jsonResult(event)
	})
}

func (s *Server) registerGetEvents() {
	tool := mcp.NewTool("get_events",
		mcp.WithDescription("Get events in a date range. end_date is exclusive; the default window is today plus seven days."),
		mcp.WithNumber("calendar_index",
			mcp.Description("Calendar index (default 0)"),
		),
		mcp.WithString("start_date",
			mcp.Description("Window start (default: today 00:00 local)"),
		),
		mcp.WithString("end_date",
			mcp.Description("Window end, exclusive (default: start + 7 days)"),
		),
		mcp.WithBoolean("include_all_day",
			mcp.Description("Include all-day events (default true)"),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if res := s.requireClient(); res != nil {
			return res, nil
		}
		args, _ := request.Params.Arguments.(map[string]interface{})

		var start, end time.Time
		if raw, ok := argString(args, "start_date"); ok && raw != "" {
			parsed, err := parseDateTime("start_date", raw)
			if err != nil {
				return toolError(err), nil
			}
			start = parsed.t
		}
		if raw, ok := argString(args, "end_date"); ok && raw != "" {
			parsed, err := parseDateTime("end_date", raw)
			if err != nil {
				return toolError(err), nil
			}
			end = parsed.t
		}

		events, err := s.client.GetEvents(ctx,
			argInt(args, "calendar_index", 0),
			start, end,
			argBool(args, "include_all_day", true))
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(events)
	})
}

func (s *Server) registerGetTodayEvents() {
	tool := mcp.NewTool("get_today_events",
		mcp.WithDescription("Get all events for today"),
		mcp.WithNumber("calendar_index",
			mcp.Description("Calendar index (default 0)"),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if res := s.requireClient(); res != nil {
			return res, nil
		}
		args, _ := request.Params.Arguments.(map[string]interface{})

		events, err := s.client.GetTodayEvents(ctx, argInt(args, "calendar_index", 0))
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(events)
	})
}

func (s *Server) registerGetWeekEvents() {
	tool := mcp.NewTool("get_week_events",
		mcp.WithDescription("Get a seven-day window of events"),
		mcp.WithNumber("calendar_index",
			mcp.Description("Calendar index (default 0)"),
		),
		mcp.WithBoolean("start_from_today",
			mcp.Description("Start the window today instead of the most recent Monday (default true)"),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if res := s.requireClient(); res != nil {
			return res, nil
		}
		args, _ := request.Params.Arguments.(map[string]interface{})

		events, err := s.client.GetWeekEvents(ctx,
			argInt(args, "calendar_index", 0),
			argBool(args, "start_from_today", true))
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(events)
	})
}

func (s *Server) registerGetEventByUID() {
	tool := mcp.NewTool("get_event_by_uid",
		mcp.WithDescription("Get a single event by its UID. The lookup scans a one-year window on each side of now."),
		mcp.WithString("uid",
			mcp.Required(),
			mcp.Description("Event UID"),
		),
		mcp.WithNumber("calendar_index",
			mcp.Description("Calendar index (default 0)"),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if res := s.requireClient(); res != nil {
			return res, nil
		}
		args, _ := request.Params.Arguments.(map[string]interface{})

		uid, ok := argString(args, "uid")
		if !ok || uid == "" {
			return mcp.NewToolResultError("uid is required"), nil
		}

		event, err := s.client.GetEventByUID(ctx, uid, argInt(args, "calendar_index", 0))
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(event)
	})
}

func (s *Server) registerUpdateEvent() {
	tool := mcp.NewTool("update_event",
		mcp.WithDescription("Update an event by UID. Only provided fields change; an empty description or location clears the field. The event SEQUENCE is incremented."),
		mcp.WithString("uid",
			mcp.Required(),
			mcp.Description("Event UID"),
		),
		mcp.WithNumber("calendar_index",
			mcp.Description("Calendar index (default 0)"),
		),
		mcp.WithString("title",
			mcp.Description("New title"),
		),
		mcp.WithString("description",
			mcp.Description("New description; empty string clears it"),
		),
		mcp.WithString("location",
			mcp.Description("New location; empty string clears it"),
		),
		mcp.WithString("start_time",
			mcp.Description("New start time"),
		),
		mcp.WithString("end_time",
			mcp.Description("New end time"),
		),
		mcp.WithNumber("priority",
			mcp.Description("New priority 0-9"),
		),
		mcp.WithArray("categories",
			mcp.Description("Replacement category list"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("attendees",
			mcp.Description("Replacement attendee list"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithArray("reminders",
			mcp.Description("Replacement reminder list"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithString("recurrence_rule",
			mcp.Description("Raw RRULE value, e.g. FREQ=WEEKLY;BYDAY=MO; empty string removes the rule"),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if res := s.requireClient(); res != nil {
			return res, nil
		}
		args, _ := request.Params.Arguments.(map[string]interface{})

		uid, ok := argString(args, "uid")
		if !ok || uid == "" {
			return mcp.NewToolResultError("uid is required"), nil
		}

		var changes caldav.EventChanges
		if v, ok := argString(args, "title"); ok {
			changes.Title = &v
		}
		if v, ok := argString(args, "description"); ok {
			changes.Description = &v
		}
		if v, ok := argString(args, "location"); ok {
			changes.Location = &v
		}
		if raw, ok := argString(args, "start_time"); ok && raw != "" {
			parsed, err := parseDateTime("start_time", raw)
			if err != nil {
				return toolError(err), nil
			}
			changes.Start = &parsed.t
		}
		if raw, ok := argString(args, "end_time"); ok && raw != "" {
			parsed, err := parseDateTime("end_time", raw)
			if err != nil {
				return toolError(err), nil
			}
			changes.End = &parsed.t
		}
		if _, ok := args["priority"]; ok {
			v := argInt(args, "priority", 0)
			changes.Priority = &v
		}
		if _, ok := args["categories"]; ok {
			v := argStringSlice(args, "categories")
			changes.Categories = &v
		}
		if _, ok := args["attendees"]; ok {
			v := argAttendees(args, "attendees")
			changes.Attendees = &v
		}
		if _, ok := args["reminders"]; ok {
			v := argReminders(args, "reminders")
			changes.Reminders = &v
		}
		if v, ok := argString(args, "recurrence_rule"); ok {
			changes.RecurrenceRule = &v
		}

		event, err := s.client.UpdateEvent(ctx, uid, argInt(args, "calendar_index", 0), changes)
		if err != nil {
			return toolError(err), nil
		}
		s.publishChange(ctx, nats.ActionUpdated, event)

		return jsonResult(event)
	})
}

func (s *Server) registerDeleteEvent() {
	tool := mcp.NewTool("delete_event",
		mcp.WithDescription("Delete an event by its UID"),
		mcp.WithString("uid",
			mcp.Required(),
			mcp.Description("Event UID"),
		),
		mcp.WithNumber("calendar_index",
			mcp.Description("Calendar index (default 0)"),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if res := s.requireClient(); res != nil {
			return res, nil
		}
		args, _ := request.Params.Arguments.(map[string]interface{})

		uid, ok := argString(args, "uid")
		if !ok || uid == "" {
			return mcp.NewToolResultError("uid is required"), nil
		}
		calendarIndex := argInt(args, "calendar_index", 0)

		if err := s.client.DeleteEvent(ctx, uid, calendarIndex); err != nil {
			return toolError(err), nil
		}
		s.publishChange(ctx, nats.ActionDeleted, &models.Event{UID: uid, CalendarIndex: calendarIndex})

		return mcp.NewToolResultText(fmt.Sprintf("Event %s deleted successfully", uid)), nil
	})
}

func (s *Server) registerSearchEvents() {
	tool := mcp.NewTool("search_events",
		mcp.WithDescription("Search events by text in title, description, location or attendee emails. Both window ends are required to bound the scan."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Case-insensitive substring to search for"),
		),
		mcp.WithString("start_date",
			mcp.Required(),
			mcp.Description("Window start"),
		),
		mcp.WithString("end_date",
			mcp.Required(),
			mcp.Description("Window end, exclusive"),
		),
		mcp.WithArray("search_fields",
			mcp.Description("Fields to search: title, description, location, attendees (default all)"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber("calendar_index",
			mcp.Description("Calendar index (default 0)"),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if res := s.requireClient(); res != nil {
			return res, nil
		}
		args, _ := request.Params.Arguments.(map[string]interface{})

		query, ok := argString(args, "query")
		if !ok {
			return mcp.NewToolResultError("query is required"), nil
		}

		var start, end time.Time
		if raw, ok := argString(args, "start_date"); ok && raw != "" {
			parsed, err := parseDateTime("start_date", raw)
			if err != nil {
				return toolError(err), nil
			}
			start = parsed.t
		}
		if raw, ok := argString(args, "end_date"); ok && raw != "" {
			parsed, err := parseDateTime("end_date", raw)
			if err != nil {
				return toolError(err), nil
			}
			end = parsed.t
		}

		events, err := s.client.SearchEvents(ctx, query,
			argStringSlice(args, "search_fields"),
			start, end,
			argInt(args, "calendar_index", 0))
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(events)
	})
}

// publishChange notifies the optional NATS publisher about a successful
// mutation. Publish failures are logged and never fail the operation.
func (s *Server) publishChange(ctx context.Context, action string, event *models.Event) {
	if err := s.publisher.PublishChange(ctx, s.changeRecord(action, event)); err != nil {
		s.logger.Warn("Failed to publish change notification",
			"action", action,
			"uid", event.UID,
			"error", err)
	}
}

// changeRecord stamps a change with the server clock
func (s *Server) changeRecord(action string, event *models.Event) *nats.Change {
	return nats.EventChange(action, event, s.now())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
