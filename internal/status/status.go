// Package status holds the single, process-wide status slot shown to the user.
package status

import (
	"sync"

	"github.com/book-expert/logger"
)

// Severity classifies a status message and controls its visual treatment.
type Severity int

const (
	// SeverityNone marks an empty slot.
	SeverityNone Severity = iota
	SeverityInfo
	SeveritySuccess
	SeverityError
)

// String returns the class name used when rendering the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityError:
		return "error"
	case SeverityNone:
		return ""
	default:
		return "unknown"
	}
}

// Status is one transient message.
type Status struct {
	Message  string
	Severity Severity
}

// IsZero reports whether the slot is empty.
func (s Status) IsZero() bool {
	return s.Message == "" && s.Severity == SeverityNone
}

const logFmtStatus = "status [%s]: %s"

// Reporter owns the status slot. The last write wins.
type Reporter struct {
	mu        sync.Mutex
	current   Status
	listeners []func(Status)
	log       *logger.Logger
}

// NewReporter creates an empty Reporter. log may be nil.
func NewReporter(log *logger.Logger) *Reporter {
	return &Reporter{log: log}
}

// Show replaces the slot content.
func (r *Reporter) Show(message string, severity Severity) {
	r.set(Status{Message: message, Severity: severity})

	if r.log == nil {
		return
	}

	if severity == SeverityError {
		r.log.Warn(logFmtStatus, severity, message)

		return
	}

	r.log.Info(logFmtStatus, severity, message)
}

// Info shows an informational message.
func (r *Reporter) Info(message string) { r.Show(message, SeverityInfo) }

// Success shows a success message.
func (r *Reporter) Success(message string) { r.Show(message, SeveritySuccess) }

// Error shows an error message.
func (r *Reporter) Error(message string) { r.Show(message, SeverityError) }

// Clear empties the slot.
func (r *Reporter) Clear() {
	r.set(Status{})
}

// Current returns the slot content.
func (r *Reporter) Current() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current
}

// Subscribe registers fn to receive every change of the slot, including clears.
func (r *Reporter) Subscribe(fn func(Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners = append(r.listeners, fn)
}

func (r *Reporter) set(s Status) {
	r.mu.Lock()
	r.current = s
	listeners := r.listeners
	r.mu.Unlock()

	for _, listener := range listeners {
		listener(s)
	}
}
