package calendar

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
)

// EventInfo is the decoded view of one VEVENT.
type EventInfo struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Stamp       time.Time `json:"stamp"`
}

// Inspect decodes every calendar in r and returns its events in document order.
func Inspect(r io.Reader) ([]EventInfo, error) {
	dec := ical.NewDecoder(r)

	var events []EventInfo
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding calendar: %w", err)
		}

		for _, ev := range cal.Events() {
			info, err := eventInfo(ev)
			if err != nil {
				return nil, err
			}
			events = append(events, info)
		}
	}

	if len(events) == 0 {
		return nil, errors.New("no events found")
	}
	return events, nil
}

func eventInfo(ev ical.Event) (EventInfo, error) {
	var info EventInfo
	var err error

	if info.UID, err = ev.Props.Text(ical.PropUID); err != nil {
		return info, fmt.Errorf("reading UID: %w", err)
	}
	if info.Summary, err = ev.Props.Text(ical.PropSummary); err != nil {
		return info, fmt.Errorf("reading SUMMARY: %w", err)
	}
	if info.Location, err = ev.Props.Text(ical.PropLocation); err != nil {
		return info, fmt.Errorf("reading LOCATION: %w", err)
	}
	if info.Description, err = ev.Props.Text(ical.PropDescription); err != nil {
		return info, fmt.Errorf("reading DESCRIPTION: %w", err)
	}
	if prop := ev.Props.Get(ical.PropURL); prop != nil {
		info.URL = prop.Value
	}

	if info.Start, err = ev.DateTimeStart(time.UTC); err != nil {
		return info, fmt.Errorf("reading DTSTART: %w", err)
	}
	if info.End, err = ev.DateTimeEnd(time.UTC); err != nil {
		return info, fmt.Errorf("reading DTEND: %w", err)
	}
	if info.Stamp, err = ev.Props.DateTime(ical.PropDateTimeStamp, time.UTC); err != nil {
		return info, fmt.Errorf("reading DTSTAMP: %w", err)
	}

	return info, nil
}
