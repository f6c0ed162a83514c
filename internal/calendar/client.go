// Package calendar pushes bookings into the studio's Outlook calendar and
// answers day availability queries, both through Microsoft Graph.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/studioxv/booking-platform/internal/booking"
	"github.com/studioxv/booking-platform/pkg/logging"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// Bookable hours run 09:00 through 22:00.
const (
	firstSlotHour = 9
	lastSlotHour  = 22
)

// TokenSource yields a bearer token for Graph calls.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client talks to the studio mailbox's calendar.
type Client struct {
	tokens     TokenSource
	httpClient *http.Client
	baseURL    string
	userEmail  string
	timezone   string
	loc        *time.Location
	logger     *logging.Logger
}

// NewClient builds a Graph calendar client for the given mailbox. loc is the
// studio timezone used for event times and placeholder slots.
func NewClient(tokens TokenSource, userEmail string, loc *time.Location, logger *logging.Logger) *Client {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    graphBaseURL,
		userEmail:  userEmail,
		timezone:   loc.String(),
		loc:        loc,
		logger:     logger,
	}
}

// WithBaseURL overrides the Graph endpoint, for tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEvent struct {
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	Start     graphDateTime `json:"start"`
	End       graphDateTime `json:"end"`
	Attendees []struct {
		EmailAddress struct {
			Address string `json:"address"`
			Name    string `json:"name"`
		} `json:"emailAddress"`
		Type string `json:"type"`
	} `json:"attendees"`
	IsReminderOn               bool `json:"isReminderOn"`
	ReminderMinutesBeforeStart int  `json:"reminderMinutesBeforeStart"`
}

// CreateBookingEvent writes the booking into the studio calendar and returns
// the created event id. Bookings without a usable date still get an event,
// flagged in the subject, so staff see them and chase the customer.
func (c *Client) CreateBookingEvent(ctx context.Context, snap *booking.Snapshot) (string, error) {
	if c.tokens == nil {
		return "", fmt.Errorf("calendar: client not configured")
	}

	duration := snap.DurationHours
	if duration <= 0 {
		duration = 1
	}
	// Recording sessions always block at least two hours of studio time.
	if strings.Contains(strings.ToLower(snap.Service), "recording") && duration < 2 {
		duration = 2
	}

	var (
		start  time.Time
		prefix string
	)
	if t, ok := snap.SessionStart(c.loc); ok {
		start = t
	} else if strings.TrimSpace(snap.SessionDate) == "" || strings.TrimSpace(snap.SessionTime) == "" {
		prefix = "[DATE TBC] "
		start = placeholderStart(c.loc)
	} else {
		prefix = "[DATE PARSE ERROR] "
		start = placeholderStart(c.loc)
	}
	end := start.Add(time.Duration(duration) * time.Hour)

	sessionLine := "Date to be confirmed with customer"
	if prefix == "" {
		sessionLine = fmt.Sprintf("Session: %s at %s", snap.SessionDate, snap.SessionTime)
	}

	event := graphEvent{
		Subject:                    fmt.Sprintf("%sStudio XV - %s Session - %s", prefix, snap.Service, snap.CustomerName),
		IsReminderOn:               true,
		ReminderMinutesBeforeStart: 1440,
	}
	event.Body.ContentType = "Text"
	event.Body.Content = fmt.Sprintf(`Booking Details:

Customer: %s
Email: %s
Service: %s
Duration: %d hour(s)
Total: %.2f
Paid: %.2f
Balance Due: %.2f

%s`,
		snap.CustomerName, snap.CustomerEmail, snap.Service, duration,
		snap.Money.BasePrice, snap.Money.AmountPaid, snap.Money.BalanceDue, sessionLine)
	event.Start = graphDateTime{DateTime: start.Format("2006-01-02T15:04:05"), TimeZone: c.timezone}
	event.End = graphDateTime{DateTime: end.Format("2006-01-02T15:04:05"), TimeZone: c.timezone}

	var created struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("%s/users/%s/calendar/events", c.baseURL, url.PathEscape(c.userEmail))
	if err := c.do(ctx, http.MethodPost, endpoint, nil, event, &created); err != nil {
		return "", err
	}

	c.logger.Info("calendar event created", "event_id", created.ID, "booking_id", snap.BookingID, "subject", event.Subject)
	return created.ID, nil
}

// OccupiedSlot is a calendar event that blocks bookable time on a day.
type OccupiedSlot struct {
	Subject   string `json:"subject"`
	Start     string `json:"start"`
	End       string `json:"end"`
	StartHour int    `json:"startHour"`
	EndHour   int    `json:"endHour"`
}

// Availability lists a day's free hourly slots alongside what blocks the rest.
type Availability struct {
	Date           string         `json:"date"`
	AvailableSlots []string       `json:"availableSlots"`
	OccupiedSlots  []OccupiedSlot `json:"occupiedSlots"`
	TotalEvents    int            `json:"totalEvents"`
}

// DayAvailability queries the calendar view for the given day (YYYY-MM-DD)
// and derives the free hourly slots. An hour is taken when any event
// overlaps it at all.
func (c *Client) DayAvailability(ctx context.Context, date string) (*Availability, error) {
	if c.tokens == nil {
		return nil, fmt.Errorf("calendar: client not configured")
	}
	day, err := time.ParseInLocation("2006-01-02", date, c.loc)
	if err != nil {
		return nil, fmt.Errorf("calendar: invalid date %q: %w", date, err)
	}

	startOfDay := day
	endOfDay := day.Add(24*time.Hour - time.Second)

	endpoint := fmt.Sprintf("%s/users/%s/calendar/calendarView?startDateTime=%s&endDateTime=%s",
		c.baseURL, url.PathEscape(c.userEmail),
		url.QueryEscape(startOfDay.Format(time.RFC3339)), url.QueryEscape(endOfDay.Format(time.RFC3339)))

	var view struct {
		Value []struct {
			Subject string        `json:"subject"`
			Start   graphDateTime `json:"start"`
			End     graphDateTime `json:"end"`
		} `json:"value"`
	}
	headers := map[string]string{"Prefer": fmt.Sprintf("outlook.timezone=%q", c.timezone)}
	if err := c.do(ctx, http.MethodGet, endpoint, headers, nil, &view); err != nil {
		return nil, err
	}

	occupied := make([]OccupiedSlot, 0, len(view.Value))
	for _, ev := range view.Value {
		start, err := parseGraphTime(ev.Start.DateTime, c.loc)
		if err != nil {
			c.logger.Warn("skipping event with unparseable start", "subject", ev.Subject, "start", ev.Start.DateTime)
			continue
		}
		end, err := parseGraphTime(ev.End.DateTime, c.loc)
		if err != nil {
			c.logger.Warn("skipping event with unparseable end", "subject", ev.Subject, "end", ev.End.DateTime)
			continue
		}
		occupied = append(occupied, OccupiedSlot{
			Subject:   ev.Subject,
			Start:     start.Format(time.RFC3339),
			End:       end.Format(time.RFC3339),
			StartHour: start.Hour(),
			EndHour:   end.Hour(),
		})
	}
	sort.Slice(occupied, func(i, j int) bool { return occupied[i].Start < occupied[j].Start })

	available := make([]string, 0, lastSlotHour-firstSlotHour+1)
	for hour := firstSlotHour; hour <= lastSlotHour; hour++ {
		taken := false
		for _, slot := range occupied {
			if slot.StartHour < hour+1 && slot.EndHour > hour {
				taken = true
				break
			}
		}
		if !taken {
			available = append(available, fmt.Sprintf("%02d:00", hour))
		}
	}

	return &Availability{
		Date:           date,
		AvailableSlots: available,
		OccupiedSlots:  occupied,
		TotalEvents:    len(view.Value),
	}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, headers map[string]string, in, out any) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("calendar: graph token: %w", err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("calendar: marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("calendar: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calendar: graph request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("calendar: graph returned status %d: %s", resp.StatusCode, detail)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("calendar: decode graph response: %w", err)
		}
	}
	return nil
}

// placeholderStart is tomorrow at 10:00 studio time, where undateable
// bookings are parked until staff confirm the real slot.
func placeholderStart(loc *time.Location) time.Time {
	now := time.Now().In(loc)
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 10, 0, 0, 0, loc)
}

var graphTimeLayouts = []string{
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseGraphTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range graphTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised graph time %q", s)
}
