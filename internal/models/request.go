// Package models defines data structures and domain types.
package models

import "time"

// RequestRecord is a logged API request (DB model).
type RequestRecord struct {
	Timestamp  time.Time
	RequestID  string
	Method     string
	URL        string
	Error      string
	ID         int64
	DurationMs int64
	StatusCode int
	Slow       bool
}

// Failed reports whether the request errored or returned a 4xx/5xx status.
func (r *RequestRecord) Failed() bool {
	return r.Error != "" || r.StatusCode >= 400
}
