// Package models defines data structures and domain types.
package models

import "time"

// HourlyLatency represents request statistics grouped by hour.
type HourlyLatency struct {
	Hour          time.Time
	TotalRequests int
	AvgDurationMs float64
	MaxDurationMs int64
	SlowCount     int
	ErrorCount    int
}

// LatencySummary represents overall aggregated request statistics.
type LatencySummary struct {
	TotalRequests int
	AvgDurationMs float64
	MaxDurationMs int64
	SlowCount     int
	ErrorCount    int
}

// ErrorRate returns the share of failed requests in percent.
func (s LatencySummary) ErrorRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.TotalRequests) * 100
}

// NetworkStatus is a live snapshot of the request pipeline for the latency indicator.
type NetworkStatus struct {
	LastAt         time.Time
	LastURL        string
	InFlight       int
	LastDurationMs int64
	LastStatus     int
	RecentMs       []float64
	SlowCount      int
	ErrorCount     int
}

// Level classifies the last observed latency.
func (s NetworkStatus) Level() string {
	switch {
	case s.LastStatus == 0 && s.LastDurationMs == 0:
		return "idle"
	case s.LastDurationMs > 1000:
		return "slow"
	case s.LastDurationMs > 300:
		return "moderate"
	default:
		return "fast"
	}
}
