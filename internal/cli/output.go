package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/threadsokc/workday-calendar/internal/calendar"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

const textTimeLayout = "Mon Jan 2, 2006 15:04 MST"

// OutputResult contains data to be output
type OutputResult struct {
	Source     string               `json:"source"`
	Events     []calendar.EventInfo `json:"events"`
	EventCount int                  `json:"event_count"`
}

// WriteOutput writes the result in the specified format. Text output shows
// times in loc.
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, loc *time.Location, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, loc, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, loc *time.Location, verbose bool) error {
	if loc == nil {
		loc = time.UTC
	}

	for _, evt := range result.Events {
		fmt.Fprintf(w, "%s\n", evt.Summary)
		fmt.Fprintf(w, "  When: %s - %s\n", evt.Start.In(loc).Format(textTimeLayout), evt.End.In(loc).Format(textTimeLayout))
		if evt.Location != "" {
			fmt.Fprintf(w, "  Where: %s\n", evt.Location)
		}
		if evt.URL != "" {
			fmt.Fprintf(w, "  Link: %s\n", evt.URL)
		}
		if verbose {
			fmt.Fprintf(w, "  UID: %s\n", evt.UID)
			if !evt.Stamp.IsZero() {
				fmt.Fprintf(w, "  Stamp: %s\n", evt.Stamp.UTC().Format(time.RFC3339))
			}
			if evt.Description != "" {
				fmt.Fprintf(w, "  Description: %s\n", evt.Description)
			}
		}
	}

	fmt.Fprintf(w, "\nTotal: %d events in %s\n", result.EventCount, result.Source)
	return nil
}
