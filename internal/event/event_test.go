package event

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validParams() Params {
	start := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	return Params{
		Summary:  "Threads OKC Workday",
		Start:    start,
		End:      start.Add(3 * time.Hour),
		Location: "2221 E. Memorial Rd., Edmond, OK 73013",
		URI:      "http://www.threadsokc.org/events.html",
		FileName: "threadsokc-workday-2024-03-01.ics",
	}
}

func TestNew_Valid(t *testing.T) {
	rec, err := New(validParams())
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	if rec.Summary() != "Threads OKC Workday" {
		t.Errorf("Summary() = %q", rec.Summary())
	}
	if rec.TimeZone() != DefaultTimeZone {
		t.Errorf("TimeZone() = %q, want %q", rec.TimeZone(), DefaultTimeZone)
	}
	if rec.Duration() != 3*time.Hour {
		t.Errorf("Duration() = %v, want 3h", rec.Duration())
	}
}

func TestNew_ZeroDuration(t *testing.T) {
	p := validParams()
	p.End = p.Start

	if _, err := New(p); err != nil {
		t.Errorf("zero-duration event should be accepted, got %v", err)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Params)
		wantField string
		wantErr   error
	}{
		{
			name:      "missing summary",
			mutate:    func(p *Params) { p.Summary = "  " },
			wantField: FieldSummary,
			wantErr:   ErrMissing,
		},
		{
			name:      "missing start",
			mutate:    func(p *Params) { p.Start = time.Time{} },
			wantField: FieldStart,
			wantErr:   ErrMissing,
		},
		{
			name:      "missing end",
			mutate:    func(p *Params) { p.End = time.Time{} },
			wantField: FieldEnd,
			wantErr:   ErrMissing,
		},
		{
			name:      "end before start",
			mutate:    func(p *Params) { p.End = p.Start.Add(-time.Second) },
			wantField: FieldEnd,
			wantErr:   ErrOrder,
		},
		{
			name: "start past year 9999",
			mutate: func(p *Params) {
				p.Start = time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)
				p.End = p.Start.Add(time.Hour)
			},
			wantField: FieldStart,
			wantErr:   ErrInvalid,
		},
		{
			name:      "end past year 9999",
			mutate:    func(p *Params) { p.End = time.Date(33658, 1, 1, 0, 0, 0, 0, time.UTC) },
			wantField: FieldEnd,
			wantErr:   ErrInvalid,
		},
		{
			name: "negative year",
			mutate: func(p *Params) {
				p.Start = time.Date(-1, 1, 1, 0, 0, 0, 0, time.UTC)
			},
			wantField: FieldStart,
			wantErr:   ErrInvalid,
		},
		{
			name:      "relative uri",
			mutate:    func(p *Params) { p.URI = "/events.html" },
			wantField: FieldURI,
			wantErr:   ErrInvalid,
		},
		{
			name:      "uri without host",
			mutate:    func(p *Params) { p.URI = "http://" },
			wantField: FieldURI,
			wantErr:   ErrInvalid,
		},
		{
			name:      "uri with space",
			mutate:    func(p *Params) { p.URI = "http://example.com/a b" },
			wantField: FieldURI,
			wantErr:   ErrInvalid,
		},
		{
			name:      "missing filename",
			mutate:    func(p *Params) { p.FileName = "" },
			wantField: FieldFileName,
			wantErr:   ErrMissing,
		},
		{
			name:      "filename with separator",
			mutate:    func(p *Params) { p.FileName = "../etc/passwd" },
			wantField: FieldFileName,
			wantErr:   ErrInvalid,
		},
		{
			name:      "unknown zone",
			mutate:    func(p *Params) { p.TimeZone = "Mars/Olympus_Mons" },
			wantField: FieldTimeZone,
			wantErr:   ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)

			_, err := New(p)
			if err == nil {
				t.Fatal("New() expected error, got nil")
			}

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Error() = %q should name the field", err.Error())
			}
		})
	}
}

func TestNew_YearBounds(t *testing.T) {
	p := validParams()
	p.Start = time.Date(9999, 12, 31, 20, 0, 0, 0, time.UTC)
	p.End = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

	if _, err := New(p); err != nil {
		t.Errorf("last representable year should be accepted, got %v", err)
	}
}

func TestRecord_ZeroValueInvalid(t *testing.T) {
	var rec Record
	if err := rec.Validate(); !IsValidation(err) {
		t.Errorf("zero Record Validate() = %v, want ValidationError", err)
	}
}

func TestCheckFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "threadsokc-workday-2024-03-01.ics", false},
		{"spaces allowed", "my event.ics", false},
		{"empty", "", true},
		{"crlf injection", "evil.ics\r\nSet-Cookie: x=1", true},
		{"lone newline", "evil\n.ics", true},
		{"slash", "a/b.ics", true},
		{"backslash", `a\b.ics`, true},
		{"parent", "..ics", true},
		{"quote", `a".ics`, true},
		{"semicolon", "a;b.ics", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFileName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckFileName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestFields_Record(t *testing.T) {
	f := Fields{
		Summary:   "Threads OKC Workday",
		DateStart: "2024-03-01T14:00:00",
		DateEnd:   "2024-03-01 17:00",
		Address:   "2221 E. Memorial Rd., Edmond, OK 73013",
		URI:       "http://www.threadsokc.org/events.html",
		FileName:  "threadsokc-workday-2024-03-01.ics",
	}

	rec, err := f.Record("America/Chicago")
	if err != nil {
		t.Fatalf("Record() unexpected error: %v", err)
	}

	wantStart := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	if !rec.Start().Equal(wantStart) {
		t.Errorf("Start() = %v, want %v", rec.Start().UTC(), wantStart)
	}
	if rec.Location() != f.Address {
		t.Errorf("Location() = %q, want %q", rec.Location(), f.Address)
	}
}

func TestFields_RecordErrors(t *testing.T) {
	tests := []struct {
		name      string
		fields    Fields
		zone      string
		wantField string
	}{
		{
			name:      "missing summary",
			fields:    Fields{DateStart: "1", DateEnd: "2", FileName: "a.ics"},
			wantField: FieldSummary,
		},
		{
			name:      "missing datestart",
			fields:    Fields{Summary: "x", DateEnd: "2", FileName: "a.ics"},
			wantField: FieldStart,
		},
		{
			name:      "garbage dateend",
			fields:    Fields{Summary: "x", DateStart: "1", DateEnd: "soon", FileName: "a.ics"},
			wantField: FieldEnd,
		},
		{
			name:      "reversed",
			fields:    Fields{Summary: "x", DateStart: "20", DateEnd: "10", FileName: "a.ics"},
			wantField: FieldEnd,
		},
		{
			name:      "unix seconds past year 9999",
			fields:    Fields{Summary: "x", DateStart: "999999999999", DateEnd: "999999999999", FileName: "a.ics"},
			wantField: FieldStart,
		},
		{
			name:      "bad zone",
			fields:    Fields{Summary: "x", DateStart: "1", DateEnd: "2", FileName: "a.ics"},
			zone:      "Nowhere/Land",
			wantField: FieldTimeZone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fields.Record(tt.zone)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Record() error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestFields_ValuesRoundTrip(t *testing.T) {
	f := Fields{
		Summary:   "Workday",
		DateStart: "1709323200",
		DateEnd:   "1709334000",
		FileName:  "w.ics",
	}

	got := FieldsFromValues(f.Values())
	if got != f {
		t.Errorf("FieldsFromValues(Values()) = %+v, want %+v", got, f)
	}
}
