package main

import (
	"fmt"
	"os"
	"time"

	"github.com/threadsokc/workday-calendar/internal/calendar"
	"github.com/threadsokc/workday-calendar/internal/workday"
)

func main() {
	date := time.Now().AddDate(0, 0, 7).Format(workday.DateLayout)
	if len(os.Args) > 1 {
		date = os.Args[1]
	}

	// Build the sample workday the widget would offer
	rec, err := workday.NewBuilder("").Record(date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building workday: %v\n", err)
		os.Exit(1)
	}

	icsContent, err := calendar.Encode(rec, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding calendar: %v\n", err)
		os.Exit(1)
	}

	// Write to file (owner read/write only for security)
	filename := rec.FileName()
	if err := os.WriteFile(filename, []byte(icsContent), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Generated calendar file: %s\n\n", filename)
	fmt.Println("Test it by:")
	fmt.Println("1. Open the .ics file with your calendar app (double-click)")
	fmt.Println("2. Or import it into Google Calendar, Apple Calendar, or Outlook")
	fmt.Println("\nFile contents preview:")
	fmt.Println("---")
	fmt.Print(icsContent)
}
