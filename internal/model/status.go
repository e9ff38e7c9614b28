package model

import "strings"

// Status represents the lifecycle state of a workflow instance.
//
// Status values are the lowercase strings the platform API sends. Any other
// value parses to [StatusUnknown]; an unfamiliar status never fails decoding.
type Status string

// Valid instance status values.
const (
	// StatusActive indicates the instance is progressing through its stages.
	StatusActive Status = "active"

	// StatusPaused indicates the instance is on hold.
	StatusPaused Status = "paused"

	// StatusCompleted indicates the instance has finished its last stage.
	StatusCompleted Status = "completed"

	// StatusCancelled indicates the instance was abandoned.
	StatusCancelled Status = "cancelled"

	// StatusUnknown is the bucket for values the client does not recognize.
	StatusUnknown Status = "unknown"
)

var knownStatuses = []Status{StatusActive, StatusPaused, StatusCompleted, StatusCancelled}

// ParseStatus converts a raw API value into a [Status], ignoring case and
// surrounding whitespace. "canceled" is accepted as an alias.
func ParseStatus(raw string) Status {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s == "canceled" {
		return StatusCancelled
	}
	if s.IsValid() {
		return s
	}
	return StatusUnknown
}

// IsValid returns true if the status is one of the four recognized values.
func (s Status) IsValid() bool {
	for _, k := range knownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further stage transitions apply.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Label returns the capitalized display form, e.g. "Active".
func (s Status) Label() string {
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Statuses returns the recognized status values in display order.
func Statuses() []Status {
	out := make([]Status, len(knownStatuses))
	copy(out, knownStatuses)
	return out
}
