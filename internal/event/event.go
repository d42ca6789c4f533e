package event

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // the default zone must resolve on hosts without a zoneinfo database
)

// DefaultTimeZone is used when a record does not name a zone.
const DefaultTimeZone = "America/Chicago"

// Field names reported in validation errors.
const (
	FieldSummary  = "summary"
	FieldStart    = "start"
	FieldEnd      = "end"
	FieldURI      = "uri"
	FieldFileName = "fileName"
	FieldTimeZone = "timeZone"
)

// Params carries the values a Record is built from.
type Params struct {
	Summary     string
	Start       time.Time
	End         time.Time
	Location    string
	URI         string
	Description string
	FileName    string
	TimeZone    string
}

// Record is a single validated calendar event. The zero value is not valid;
// build records with New.
type Record struct {
	summary     string
	start       time.Time
	end         time.Time
	location    string
	uri         string
	description string
	fileName    string
	timeZone    string
}

// New validates p and returns the corresponding record.
func New(p Params) (Record, error) {
	if p.TimeZone == "" {
		p.TimeZone = DefaultTimeZone
	}
	r := Record{
		summary:     p.Summary,
		start:       p.Start,
		end:         p.End,
		location:    p.Location,
		uri:         strings.TrimSpace(p.URI),
		description: p.Description,
		fileName:    p.FileName,
		timeZone:    p.TimeZone,
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Validate checks every field invariant. Fields are checked in a fixed order so
// the first reported problem is deterministic.
func (r Record) Validate() error {
	if strings.TrimSpace(r.summary) == "" {
		return missing(FieldSummary)
	}
	if r.start.IsZero() {
		return missing(FieldStart)
	}
	if r.end.IsZero() {
		return missing(FieldEnd)
	}
	if err := checkYear(FieldStart, r.start); err != nil {
		return err
	}
	if err := checkYear(FieldEnd, r.end); err != nil {
		return err
	}
	if r.end.Before(r.start) {
		return &ValidationError{Field: FieldEnd, Err: ErrOrder}
	}
	if err := CheckURI(r.uri); err != nil {
		return err
	}
	if err := CheckFileName(r.fileName); err != nil {
		return err
	}
	if r.timeZone != "" {
		if _, err := time.LoadLocation(r.timeZone); err != nil {
			return invalid(FieldTimeZone, err.Error())
		}
	}
	return nil
}

// Summary returns the event title
func (r Record) Summary() string { return r.summary }

// Start returns the start instant
func (r Record) Start() time.Time { return r.start }

// End returns the end instant
func (r Record) End() time.Time { return r.end }

// Location returns the free-text location, possibly empty
func (r Record) Location() string { return r.location }

// URI returns the event URL, possibly empty
func (r Record) URI() string { return r.uri }

// Description returns the description, possibly empty
func (r Record) Description() string { return r.description }

// FileName returns the suggested download name
func (r Record) FileName() string { return r.fileName }

// TimeZone returns the IANA zone name the record was read in
func (r Record) TimeZone() string {
	if r.timeZone == "" {
		return DefaultTimeZone
	}
	return r.timeZone
}

// Duration returns End - Start
func (r Record) Duration() time.Duration {
	return r.end.Sub(r.start)
}

// DATE-TIME values carry a four-digit year
const (
	minYear = 0
	maxYear = 9999
)

func checkYear(field string, t time.Time) error {
	if y := t.UTC().Year(); y < minYear || y > maxYear {
		return invalid(field, fmt.Sprintf("year %d is outside %04d-%04d", y, minYear, maxYear))
	}
	return nil
}

// CheckURI accepts an empty string or an absolute http(s) URL with a host.
func CheckURI(uri string) error {
	if uri == "" {
		return nil
	}
	if strings.ContainsAny(uri, " \t") {
		return invalid(FieldURI, "contains whitespace")
	}
	u, err := url.Parse(uri)
	if err != nil {
		return invalid(FieldURI, err.Error())
	}
	if !u.IsAbs() || u.Host == "" {
		return invalid(FieldURI, "must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid(FieldURI, "scheme must be http or https")
	}
	return nil
}

// CheckFileName rejects names that could escape a directory or break a header value.
func CheckFileName(name string) error {
	if name == "" {
		return missing(FieldFileName)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return invalid(FieldFileName, "contains control characters")
		}
	}
	if strings.ContainsAny(name, `/\`) {
		return invalid(FieldFileName, "contains a path separator")
	}
	if strings.Contains(name, "..") {
		return invalid(FieldFileName, "contains a parent reference")
	}
	if strings.ContainsAny(name, `";`) {
		return invalid(FieldFileName, "contains a header delimiter")
	}
	return nil
}
