package model

import (
	"fmt"
	"math"
	"time"
)

// Placeholders shown while a value cannot be computed yet
const (
	UnknownETA   = "--:--"
	UnknownSpeed = "-- MB/s"
)

// BatchTask is the service-side record of one running or finished batch
type BatchTask struct {
	ID         string       `json:"id"`
	SessionID  string       `json:"session_id"`
	URL        string       `json:"url"`
	Status     BatchStatus  `json:"status"`
	Total      int          `json:"total"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	Items      []ItemStatus `json:"items,omitempty"`
	LastError  string       `json:"last_error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at,omitempty"`
}

// FormatSeconds renders a duration in seconds as H:MM:SS, or MM:SS when
// under an hour. Zero, negative and NaN inputs give UnknownETA.
func FormatSeconds(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return UnknownETA
	}

	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// FormatSpeed renders a byte rate as "1.2 MB/s"
func FormatSpeed(bytesPerSecond float64) string {
	if bytesPerSecond <= 0 || math.IsNaN(bytesPerSecond) {
		return UnknownSpeed
	}
	return fmt.Sprintf("%.1f MB/s", bytesPerSecond/1024/1024)
}
