package model

import "time"

// RunRecord is the log entry of one giving analytics job execution.
type RunRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time
	ID         string
	Result     string
	Eligible   int
	Succeeded  int
	Failed     int
}
