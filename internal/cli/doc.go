// Package cli implements the command-line interface for workday-calendar.
//
// The cli package provides the Cobra-based CLI with commands to encode a single
// event as an .ics file, inspect existing calendar files (text/JSON, sorted by
// start or summary), print form tokens, and run the HTTP server. It wires the
// config, calendar, nonce, and server packages together.
package cli
