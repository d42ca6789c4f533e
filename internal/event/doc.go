// Package event provides the immutable event record that is turned into a calendar file.
//
// A Record is built either directly from typed values (New) or from the raw string
// fields a web form submits (Fields.Record). Both paths validate the record and report
// problems as *ValidationError, naming the offending field. Start and end are absolute
// instants; the record's time zone only controls how zone-less input strings are read.
package event
