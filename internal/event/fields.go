package event

import (
	"net/url"
	"strings"
	"time"
)

// Form keys of the calendar request.
const (
	KeySummary     = "summary"
	KeyDateStart   = "datestart"
	KeyDateEnd     = "dateend"
	KeyAddress     = "address"
	KeyURI         = "uri"
	KeyDescription = "description"
	KeyFileName    = "filename"
)

// Fields is the raw string form of a calendar request, as posted by the widget.
type Fields struct {
	Summary     string `json:"summary"`
	DateStart   string `json:"datestart"`
	DateEnd     string `json:"dateend"`
	Address     string `json:"address"`
	URI         string `json:"uri"`
	Description string `json:"description"`
	FileName    string `json:"filename"`
}

// FieldsFromValues reads Fields from form values
func FieldsFromValues(v url.Values) Fields {
	return Fields{
		Summary:     v.Get(KeySummary),
		DateStart:   v.Get(KeyDateStart),
		DateEnd:     v.Get(KeyDateEnd),
		Address:     v.Get(KeyAddress),
		URI:         v.Get(KeyURI),
		Description: v.Get(KeyDescription),
		FileName:    v.Get(KeyFileName),
	}
}

// Values returns the fields as form values
func (f Fields) Values() url.Values {
	v := url.Values{}
	v.Set(KeySummary, f.Summary)
	v.Set(KeyDateStart, f.DateStart)
	v.Set(KeyDateEnd, f.DateEnd)
	v.Set(KeyAddress, f.Address)
	v.Set(KeyURI, f.URI)
	v.Set(KeyDescription, f.Description)
	v.Set(KeyFileName, f.FileName)
	return v
}

// Record parses the date strings in zone and builds a validated record.
// An empty zone means DefaultTimeZone.
func (f Fields) Record(zone string) (Record, error) {
	if zone == "" {
		zone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Record{}, invalid(FieldTimeZone, err.Error())
	}

	if strings.TrimSpace(f.Summary) == "" {
		return Record{}, missing(FieldSummary)
	}
	start, err := parseField(FieldStart, f.DateStart, loc)
	if err != nil {
		return Record{}, err
	}
	end, err := parseField(FieldEnd, f.DateEnd, loc)
	if err != nil {
		return Record{}, err
	}

	return New(Params{
		Summary:     f.Summary,
		Start:       start,
		End:         end,
		Location:    f.Address,
		URI:         f.URI,
		Description: f.Description,
		FileName:    f.FileName,
		TimeZone:    zone,
	})
}

func parseField(field, text string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(text) == "" {
		return time.Time{}, missing(field)
	}
	t, err := ParseInstant(text, loc)
	if err != nil {
		return time.Time{}, invalid(field, err.Error())
	}
	return t, nil
}
