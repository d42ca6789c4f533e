// Package responder writes encoded calendar documents as browser downloads.
//
// The encoder produces text; this package owns the HTTP side: filename
// sanitization, content headers, and translation of failures into non-200
// responses. Nothing is written when validation fails.
package responder

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/threadsokc/workday-calendar/internal/calendar"
	"github.com/threadsokc/workday-calendar/internal/event"
)

// Authorizer is implemented by errors that mean the caller was not allowed to
// reach the core (for example a failed nonce check).
type Authorizer interface {
	error
	Unauthorized() bool
}

// SanitizeFileName returns name unchanged if it is safe to place in a
// Content-Disposition header, or a *event.ValidationError otherwise.
func SanitizeFileName(name string) (string, error) {
	if err := event.CheckFileName(name); err != nil {
		return "", err
	}
	return name, nil
}

// Write sends body as a calendar attachment named fileName.
func Write(w http.ResponseWriter, body, fileName string) error {
	name, err := SanitizeFileName(fileName)
	if err != nil {
		return err
	}

	h := w.Header()
	h.Set("Content-Type", calendar.ContentType)
	h.Set("Content-Disposition", "attachment; filename="+name)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(body)); err != nil {
		return fmt.Errorf("writing calendar body: %w", err)
	}
	return nil
}

// StatusFor maps an error to the response status the boundary should use.
func StatusFor(err error) int {
	var auth Authorizer
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &auth) && auth.Unauthorized():
		return http.StatusForbidden
	case event.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error writes a plain-text failure response in place of a calendar body.
func Error(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := http.StatusText(status)
	if status != http.StatusInternalServerError {
		msg = err.Error()
	}
	http.Error(w, msg, status)
}
