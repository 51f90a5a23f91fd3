package model

import (
	"time"
)

const (
	ProgressSourceManual    = "manual"
	ProgressSourceAutomatic = "automatic"
)

// ProgressLogEntry is append-only; rows are never updated after insert.
type ProgressLogEntry struct {
	ID                 string    `db:"id" json:"id"`
	GoalID             string    `db:"goal_id" json:"goal_id"`
	PreviousValue      float64   `db:"previous_value" json:"previous_value"`
	NewValue           float64   `db:"new_value" json:"new_value"`
	ChangeAmount       float64   `db:"change_amount" json:"change_amount"`
	ProgressPercentage float64   `db:"progress_percentage" json:"progress_percentage"`
	Source             string    `db:"source" json:"source"`
	Notes              string    `db:"notes" json:"notes"`
	RecordedAt         time.Time `db:"recorded_at" json:"recorded_at"`
}

func IsValidProgressSource(s string) bool {
	return s == ProgressSourceManual || s == ProgressSourceAutomatic
}
