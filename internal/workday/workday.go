// Package workday builds the "next workday" event and the widget that offers it
// as a calendar download.
//
// An administrator configures only the date (plus an optional title and note);
// the event's hours, address, link, and summary are fixed per deployment. The
// widget renders the date and a form whose hidden fields carry the event to the
// calendar endpoint.
package workday

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/threadsokc/workday-calendar/internal/event"
)

const (
	// DateLayout is the layout of Settings.Date.
	DateLayout = "2006-01-02"
	// DisplayLayout is how the widget shows the date.
	DisplayLayout = "January 02, 2006"

	clockLayout = "15:04"

	// FieldDate names the date in validation errors.
	FieldDate = "date"
)

// Defaults for a Threads OKC deployment.
const (
	DefaultSummary    = "Threads OKC Workday"
	DefaultAddress    = "2221 E. Memorial Rd., Edmond, OK 73013"
	DefaultURI        = "http://www.threadsokc.org/events.html"
	DefaultStartClock = "14:00"
	DefaultEndClock   = "17:00"
	DefaultFilePrefix = "threadsokc-workday"
)

// Settings holds what an administrator edits for the widget.
type Settings struct {
	Title     string `json:"title"`
	Date      string `json:"date"`
	ExtraInfo string `json:"extra_info"`
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Sanitize strips HTML tags from every field.
func (s Settings) Sanitize() Settings {
	return Settings{
		Title:     stripTags(s.Title),
		Date:      stripTags(s.Date),
		ExtraInfo: stripTags(s.ExtraInfo),
	}
}

func stripTags(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

// Builder turns a workday date into calendar fields.
type Builder struct {
	// Zone is the IANA name the clock times are read in.
	Zone        string
	Summary     string
	Address     string
	URI         string
	Description string
	StartClock  string
	EndClock    string
	FilePrefix  string
}

// NewBuilder returns a builder with the Threads OKC defaults in zone.
func NewBuilder(zone string) *Builder {
	if zone == "" {
		zone = event.DefaultTimeZone
	}
	return &Builder{
		Zone:       zone,
		Summary:    DefaultSummary,
		Address:    DefaultAddress,
		URI:        DefaultURI,
		StartClock: DefaultStartClock,
		EndClock:   DefaultEndClock,
		FilePrefix: DefaultFilePrefix,
	}
}

// Fields returns the form fields for the workday on date (YYYY-MM-DD).
// datestart and dateend are unix seconds, matching what the widget posts.
func (b *Builder) Fields(date string) (event.Fields, error) {
	date = strings.TrimSpace(date)
	start, end, err := b.window(date)
	if err != nil {
		return event.Fields{}, err
	}

	prefix := b.FilePrefix
	if prefix == "" {
		prefix = DefaultFilePrefix
	}

	return event.Fields{
		Summary:     b.Summary,
		DateStart:   strconv.FormatInt(start.Unix(), 10),
		DateEnd:     strconv.FormatInt(end.Unix(), 10),
		Address:     b.Address,
		URI:         b.URI,
		Description: b.Description,
		FileName:    fmt.Sprintf("%s-%s.ics", prefix, date),
	}, nil
}

// Record returns the validated record for the workday on date.
func (b *Builder) Record(date string) (event.Record, error) {
	f, err := b.Fields(date)
	if err != nil {
		return event.Record{}, err
	}
	return f.Record(b.Zone)
}

// DisplayDate formats date the way the widget shows it.
func (b *Builder) DisplayDate(date string) (string, error) {
	loc, err := b.location()
	if err != nil {
		return "", err
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return "", &event.ValidationError{Field: FieldDate, Err: event.ErrInvalid, Detail: err.Error()}
	}
	return day.Format(DisplayLayout), nil
}

func (b *Builder) location() (*time.Location, error) {
	zone := b.Zone
	if zone == "" {
		zone = event.DefaultTimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, &event.ValidationError{Field: event.FieldTimeZone, Err: event.ErrInvalid, Detail: err.Error()}
	}
	return loc, nil
}

func (b *Builder) window(date string) (time.Time, time.Time, error) {
	loc, err := b.location()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, time.Time{}, &event.ValidationError{Field: FieldDate, Err: event.ErrInvalid, Detail: err.Error()}
	}

	start, err := atClock(day, b.StartClock, DefaultStartClock, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &event.ValidationError{Field: event.FieldStart, Err: event.ErrInvalid, Detail: err.Error()}
	}
	end, err := atClock(day, b.EndClock, DefaultEndClock, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &event.ValidationError{Field: event.FieldEnd, Err: event.ErrInvalid, Detail: err.Error()}
	}
	return start, end, nil
}

func atClock(day time.Time, clock, fallback string, loc *time.Location) (time.Time, error) {
	if clock == "" {
		clock = fallback
	}
	c, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, loc), nil
}
