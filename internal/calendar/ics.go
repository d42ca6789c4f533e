// Package calendar renders event records as RFC 5545 iCalendar documents and
// decodes such documents back into summaries.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/threadsokc/workday-calendar/internal/event"
)

// ContentType is the MIME type of Encode output.
const ContentType = "text/calendar; charset=utf-8"

const crlf = "\r\n"

// Defaults for Options.
const (
	DefaultVendor    = "hacksw"
	DefaultProduct   = "handcal"
	DefaultUIDDomain = "threadsokc.org"
)

// Options configures an Encoder. Zero fields fall back to the defaults.
type Options struct {
	Vendor    string
	Product   string
	UIDDomain string
	// NewUID returns the local part of each UID. Defaults to a random UUID.
	NewUID func() string
}

// Encoder turns records into iCalendar text. It holds no mutable state and
// is safe for concurrent use.
type Encoder struct {
	prodID    string
	uidDomain string
	newUID    func() string
}

// NewEncoder creates an encoder with the given options
func NewEncoder(opts Options) *Encoder {
	if opts.Vendor == "" {
		opts.Vendor = DefaultVendor
	}
	if opts.Product == "" {
		opts.Product = DefaultProduct
	}
	if opts.UIDDomain == "" {
		opts.UIDDomain = DefaultUIDDomain
	}
	if opts.NewUID == nil {
		opts.NewUID = func() string { return uuid.New().String() }
	}
	return &Encoder{
		prodID:    fmt.Sprintf("-//%s/%s//NONSGML v1.0//EN", opts.Vendor, opts.Product),
		uidDomain: opts.UIDDomain,
		newUID:    opts.NewUID,
	}
}

var defaultEncoder = NewEncoder(Options{})

// Encode renders rec with the default encoder
func Encode(rec event.Record, generated time.Time) (string, error) {
	return defaultEncoder.Encode(rec, generated)
}

// ProdID returns the PRODID value this encoder writes
func (e *Encoder) ProdID() string {
	return e.prodID
}

// Encode renders a calendar with a single event. generated becomes DTSTAMP.
// The record is validated first, so an error never comes with partial output.
func (e *Encoder) Encode(rec event.Record, generated time.Time) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}

	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR" + crlf)
	ics.WriteString("VERSION:2.0" + crlf)
	ics.WriteString("PRODID:" + e.prodID + crlf)
	ics.WriteString("CALSCALE:GREGORIAN" + crlf)
	ics.WriteString("BEGIN:VEVENT" + crlf)

	ics.WriteString("DTSTART:" + formatICSTime(rec.Start()) + crlf)
	ics.WriteString("DTEND:" + formatICSTime(rec.End()) + crlf)

	// UID - fresh per call, never derived from the record
	ics.WriteString(fmt.Sprintf("UID:%s@%s%s", e.newUID(), e.uidDomain, crlf))

	ics.WriteString("DTSTAMP:" + formatICSTime(generated) + crlf)

	// Optional fields render as empty lines rather than being omitted
	ics.WriteString("LOCATION:" + escapeICS(rec.Location()) + crlf)
	ics.WriteString("DESCRIPTION:" + escapeICS(rec.Description()) + crlf)
	ics.WriteString("URL;VALUE=URI:" + rec.URI() + crlf)
	ics.WriteString("SUMMARY:" + escapeICS(rec.Summary()) + crlf)

	ics.WriteString("END:VEVENT" + crlf)
	ics.WriteString("END:VCALENDAR" + crlf)

	return ics.String(), nil
}

// formatICSTime formats a time.Time as a UTC iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes TEXT values according to RFC 5545 section 3.3.11
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\n")
	return s
}
