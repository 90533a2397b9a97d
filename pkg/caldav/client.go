// Package caldav wraps a CalDAV server connection with the calendar and
// event operations exposed over the tool surface.
//
// The underlying protocol has no indexed "fetch by UID" primitive, so the
// UID-based operations (get/update/delete) run a time-ranged query over a
// bounded window and scan the decoded events linearly. The one-year window
// on each side bounds the worst case; it is a deliberate simplicity/cost
// tradeoff, not an oversight.
package caldav

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/emersion/go-webdav"
	davclient "github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"caldav-mcp/internal/errs"
	"caldav-mcp/internal/models"
	icalcodec "caldav-mcp/pkg/ical"
)

const (
	// uidWindowDays bounds the linear scan used by UID lookups: one year
	// into the past and one into the future from the current moment.
	uidWindowDays = 365

	// defaultWindowDays is the GetEvents window when no end date is given.
	defaultWindowDays = 7

	defaultEventDuration = time.Hour
	defaultEventTitle    = "Event"
)

// Config holds the CalDAV connection settings
type Config struct {
	URL      string
	Username string
	Password string
}

// basicAuthTransport adds Basic Auth and a User-Agent to every request
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	req.Header.Set("User-Agent", "caldav-mcp/1.0")
	return t.base.RoundTrip(req)
}

// Client is a CalDAV client. It owns a single connection, is created once
// per process and issues one blocking operation at a time; it performs no
// internal retries, so pacing against rate-limited providers is the
// caller's responsibility.
type Client struct {
	dav      *davclient.Client
	fs       *webdav.Client
	endpoint *url.URL
	quirks   Quirks
	logger   *slog.Logger
	homeSet  string
	now      func() time.Time
}

// NewClient builds a client from connection settings. It does not touch
// the network; call Connect to run calendar discovery.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var missing []string
	if cfg.URL == "" {
		missing = append(missing, "url")
	}
	if cfg.Username == "" {
		missing = append(missing, "username")
	}
	if cfg.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, errs.Configurationf("missing CalDAV settings: %v", missing)
	}

	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errs.Configurationf("invalid CalDAV URL %q: %v", cfg.URL, err)
	}

	quirks := DetectQuirks(cfg.URL)
	httpClient := &http.Client{
		Timeout: quirks.HTTPTimeout(),
		Transport: &basicAuthTransport{
			username: cfg.Username,
			password: cfg.Password,
			base:     http.DefaultTransport,
		},
	}

	dav, err := davclient.NewClient(httpClient, cfg.URL)
	if err != nil {
		return nil, errs.Configurationf("failed to create CalDAV client: %v", err)
	}
	fs, err := webdav.NewClient(httpClient, cfg.URL)
	if err != nil {
		return nil, errs.Configurationf("failed to create WebDAV client: %v", err)
	}

	return &Client{
		dav:      dav,
		fs:       fs,
		endpoint: endpoint,
		quirks:   quirks,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Connect runs WebDAV discovery (principal, then calendar home set) and
// caches the home set for the lifetime of the process.
func (c *Client) Connect(ctx context.Context) error {
	principal, err := c.dav.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return errs.Transport("failed to find current user principal", err)
	}

	homeSet, err := c.dav.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return errs.Transport("failed to find calendar home set", err)
	}
	c.homeSet = homeSet

	c.quirks.WarnOnConnect(c.logger)
	c.logger.Info("Connected to CalDAV server",
		"endpoint", c.endpoint.Host,
		"provider", c.quirks.Name(),
		"home_set", homeSet)

	return nil
}

// ListCalendars returns the calendars available to the authenticated user
func (c *Client) ListCalendars(ctx context.Context) ([]models.CalendarInfo, error) {
	calendars, err := c.calendars(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]models.CalendarInfo, 0, len(calendars))
	for i, cal := range calendars {
		name := cal.Name
		if name == "" {
			name = path.Base(cal.Path)
		}
		infos = append(infos, models.CalendarInfo{
			Index: i,
			Name:  name,
			URL:   c.absoluteURL(cal.Path),
		})
	}
	return infos, nil
}

// CreateEventOptions carries the caller-supplied fields for a new event.
// Zero values get defaults: start is tomorrow 14:00 local, the end is
// start plus DurationHours (one hour when unset) and the title is "Event".
type CreateEventOptions struct {
	Title         string
	Description   string
	Location      string
	Start         time.Time
	End           time.Time
	Floating      bool
	AllDay        bool
	DurationHours float64
	Reminders     []models.Reminder
	Attendees     []models.Attendee
	Categories    []string
	Priority      int
	Recurrence    *models.Recurrence
	CalendarIndex int
}

// CreateEvent encodes a new event and stores it on the server. The UID is
// generated here and never changes afterwards.
func (c *Client) CreateEvent(ctx context.Context, opts CreateEventOptions) (*models.Event, error) {
	cal, err := c.calendarByIndex(ctx, opts.CalendarIndex)
	if err != nil {
		return nil, err
	}

	event := buildEvent(opts, c.now())

	calObj, err := icalcodec.EncodeEvent(event)
	if err != nil {
		return nil, err
	}

	objPath := path.Join(cal.Path, event.UID+".ics")
	if _, err := c.dav.PutCalendarObject(ctx, objPath, calObj); err != nil {
		return nil, errs.Transport("failed to save event", err)
	}
	event.Path = objPath

	c.logger.Info("Created event",
		"uid", event.UID,
		"title", event.Title,
		"calendar_index", opts.CalendarIndex,
		"start", event.Start.Format(time.RFC3339))

	return event, nil
}

// GetEvents returns events overlapping [start, end), sorted by start
// time. A zero start defaults to today 00:00 local; a zero end defaults to
// seven days after the start. The end is exclusive.
func (c *Client) GetEvents(ctx context.Context, calendarIndex int, start, end time.Time, includeAllDay bool) ([]*models.Event, error) {
	cal, err := c.calendarByIndex(ctx, calendarIndex)
	if err != nil {
		return nil, err
	}

	if start.IsZero() {
		start = startOfDay(c.now())
	}
	if end.IsZero() {
		end = start.AddDate(0, 0, defaultWindowDays)
	}

	events, err := c.query(ctx, cal, calendarIndex, start, end)
	if err != nil {
		return nil, err
	}

	filtered := events[:0]
	for _, ev := range events {
		if !ev.Overlaps(start, end) {
			continue
		}
		if ev.AllDay && !includeAllDay {
			continue
		}
		filtered = append(filtered, ev)
	}

	icalcodec.SortByStart(filtered)
	return filtered, nil
}

// GetTodayEvents returns all events for the current local day
func (c *Client) GetTodayEvents(ctx context.Context, calendarIndex int) ([]*models.Event, error) {
	start := startOfDay(c.now())
	return c.GetEvents(ctx, calendarIndex, start, start.AddDate(0, 0, 1), true)
}

// GetWeekEvents returns a seven-day window of events, starting either
// today or on the most recent Monday.
func (c *Client) GetWeekEvents(ctx context.Context, calendarIndex int, startFromToday bool) ([]*models.Event, error) {
	start := startOfDay(c.now())
	if !startFromToday {
		daysSinceMonday := (int(start.Weekday()) + 6) % 7
		start = start.AddDate(0, 0, -daysSinceMonday)
	}
	return c.GetEvents(ctx, calendarIndex, start, start.AddDate(0, 0, 7), true)
}

// GetEventByUID looks up a single event by UID. Events outside the
// one-year search window are reported as not found even if they exist
// further out.
func (c *Client) GetEventByUID(ctx context.Context, uid string, calendarIndex int) (*models.Event, error) {
	return c.findByUID(ctx, uid, calendarIndex)
}

// UpdateEvent applies a partial update to the event with the given UID,
// bumps its SEQUENCE, refreshes DTSTAMP/LAST-MODIFIED and replaces the
// stored object via a path-scoped PUT, so the whole read-modify-write
// stays within this single operation.
func (c *Client) UpdateEvent(ctx context.Context, uid string, calendarIndex int, changes EventChanges) (*models.Event, error) {
	event, err := c.findByUID(ctx, uid, calendarIndex)
	if err != nil {
		return nil, err
	}

	applyChanges(event, changes, c.now())

	calObj, err := icalcodec.EncodeEvent(event)
	if err != nil {
		return nil, err
	}
	if _, err := c.dav.PutCalendarObject(ctx, event.Path, calObj); err != nil {
		return nil, errs.Transport("failed to update event", err)
	}

	c.logger.Info("Updated event",
		"uid", event.UID,
		"sequence", event.Sequence,
		"calendar_index", calendarIndex)

	return event, nil
}

// DeleteEvent removes the event with the given UID
func (c *Client) DeleteEvent(ctx context.Context, uid string, calendarIndex int) error {
	event, err := c.findByUID(ctx, uid, calendarIndex)
	if err != nil {
		return err
	}

	if err := c.fs.RemoveAll(ctx, event.Path); err != nil {
		return errs.Transport("failed to delete event", err)
	}

	c.logger.Info("Deleted event", "uid", uid, "calendar_index", calendarIndex)
	return nil
}

// SearchEvents scans decoded events in [start, end) for a case-insensitive
// substring match. Both window ends are mandatory so that the scan stays
// bounded on large calendars. An empty fields list searches title,
// description, location and attendee emails.
func (c *Client) SearchEvents(ctx context.Context, query string, fields []string, start, end time.Time, calendarIndex int) ([]*models.Event, error) {
	if start.IsZero() || end.IsZero() {
		return nil, errs.Validationf("both start_date and end_date must be provided for search")
	}
	if len(fields) == 0 {
		fields = []string{"title", "description", "location", "attendees"}
	}

	events, err := c.GetEvents(ctx, calendarIndex, start, end, true)
	if err != nil {
		return nil, err
	}

	matches := events[:0]
	for _, ev := range events {
		if ev.MatchesQuery(query, fields) {
			matches = append(matches, ev)
		}
	}
	return matches, nil
}

func (c *Client) calendars(ctx context.Context) ([]davclient.Calendar, error) {
	if c.homeSet == "" {
		return nil, errs.Configurationf("not connected to CalDAV server")
	}
	calendars, err := c.dav.FindCalendars(ctx, c.homeSet)
	if err != nil {
		return nil, errs.Transport("failed to list calendars", err)
	}
	return calendars, nil
}

func (c *Client) calendarByIndex(ctx context.Context, index int) (davclient.Calendar, error) {
	calendars, err := c.calendars(ctx)
	if err != nil {
		return davclient.Calendar{}, err
	}
	if index < 0 || index >= len(calendars) {
		return davclient.Calendar{}, errs.NotFoundf(
			"calendar index %d not found (%d calendars available)", index, len(calendars))
	}
	return calendars[index], nil
}

// query runs a time-ranged calendar-query REPORT and decodes every VEVENT
// out of the returned objects.
func (c *Client) query(ctx context.Context, cal davclient.Calendar, calendarIndex int, from, to time.Time) ([]*models.Event, error) {
	q := &davclient.CalendarQuery{
		CompRequest: davclient.CalendarCompRequest{
			Name: "VCALENDAR",
			Comps: []davclient.CalendarCompRequest{
				{Name: "VEVENT", AllProps: true},
			},
		},
		CompFilter: davclient.CompFilter{
			Name: "VCALENDAR",
			Comps: []davclient.CompFilter{
				{Name: "VEVENT", Start: from.UTC(), End: to.UTC()},
			},
		},
	}

	objects, err := c.dav.QueryCalendar(ctx, cal.Path, q)
	if err != nil {
		return nil, errs.Transport("calendar query failed", err)
	}

	var events []*models.Event
	for _, obj := range objects {
		for _, ev := range icalcodec.DecodeCalendar(obj.Data) {
			ev.Path = obj.Path
			ev.CalendarIndex = calendarIndex
			events = append(events, ev)
		}
	}

	c.logger.Debug("Calendar query finished",
		"calendar_index", calendarIndex,
		"objects", len(objects),
		"events", len(events),
		"from", from.Format(time.RFC3339),
		"to", to.Format(time.RFC3339))

	return events, nil
}

func (c *Client) findByUID(ctx context.Context, uid string, calendarIndex int) (*models.Event, error) {
	cal, err := c.calendarByIndex(ctx, calendarIndex)
	if err != nil {
		return nil, err
	}

	from, to := uidSearchWindow(c.now())
	events, err := c.query(ctx, cal, calendarIndex, from, to)
	if err != nil {
		return nil, err
	}

	return findEventByUID(events, uid)
}

// findEventByUID scans decoded events for a UID match
func findEventByUID(events []*models.Event, uid string) (*models.Event, error) {
	for _, ev := range events {
		if ev.UID == uid {
			return ev, nil
		}
	}
	return nil, errs.NotFoundf("event with UID %q not found", uid)
}

// buildEvent materializes creation options into a complete new event,
// applying the documented defaults. Sequence starts at 0 and the UID is
// generated here, never by the caller.
func buildEvent(opts CreateEventOptions, now time.Time) *models.Event {
	start := opts.Start
	floating := opts.Floating
	if start.IsZero() {
		start = defaultStart(now)
		floating = true
	}

	end := opts.End
	if end.IsZero() {
		if opts.AllDay {
			// DTEND of an all-day event is the exclusive next day.
			end = start.AddDate(0, 0, 1)
		} else {
			duration := defaultEventDuration
			if opts.DurationHours > 0 {
				duration = time.Duration(opts.DurationHours * float64(time.Hour))
			}
			end = start.Add(duration)
		}
	}

	title := opts.Title
	if title == "" {
		title = defaultEventTitle
	}

	return &models.Event{
		UID:           uuid.New().String(),
		Title:         title,
		Description:   opts.Description,
		Location:      opts.Location,
		Start:         start,
		End:           end,
		AllDay:        opts.AllDay,
		Floating:      floating,
		Sequence:      0,
		Priority:      opts.Priority,
		DTStamp:       now.UTC(),
		LastModified:  now.UTC(),
		Categories:    opts.Categories,
		Attendees:     opts.Attendees,
		Reminders:     opts.Reminders,
		Recurrence:    opts.Recurrence,
		CalendarIndex: opts.CalendarIndex,
	}
}

func (c *Client) absoluteURL(p string) string {
	u := *c.endpoint
	u.Path = p
	u.RawQuery = ""
	return u.String()
}

// uidSearchWindow is the bounded window scanned by UID lookups
func uidSearchWindow(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -uidWindowDays), now.AddDate(0, 0, uidWindowDays)
}

// defaultStart is tomorrow at 14:00 local time
func defaultStart(now time.Time) time.Time {
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 14, 0, 0, 0, now.Location())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
