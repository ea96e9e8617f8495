package model

import "strings"

// StatusBucket is the closed classification every view derives its
// status badge from. Raw status strings are never compared anywhere
// else in the codebase.
type StatusBucket int

const (
	StatusUnknown StatusBucket = iota
	StatusDone
	StatusInProgress
	StatusFailed
)

// ClassifyStatus maps the backend's open status string onto a bucket.
// The comparison is case-insensitive; unrecognized values classify as
// StatusUnknown rather than failing.
func ClassifyStatus(status string) StatusBucket {
	switch strings.ToLower(status) {
	case "completed", "success", "verified":
		return StatusDone
	case "pending", "in_progress", "documents_requested":
		return StatusInProgress
	case "failed", "rejected":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// Label is the human-readable badge text for a bucket.
func (b StatusBucket) Label() string {
	switch b {
	case StatusDone:
		return "Done"
	case StatusInProgress:
		return "In Progress"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// CSSClass is the badge style hook used by the templates.
func (b StatusBucket) CSSClass() string {
	switch b {
	case StatusDone:
		return "badge-done"
	case StatusInProgress:
		return "badge-progress"
	case StatusFailed:
		return "badge-failed"
	default:
		return "badge-unknown"
	}
}
