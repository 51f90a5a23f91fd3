package model

import (
	"time"
)

type Milestone struct {
	ID                  string     `db:"id" json:"id"`
	GoalID              string     `db:"goal_id" json:"goal_id"`
	MilestonePercentage float64    `db:"milestone_percentage" json:"milestone_percentage"`
	MilestoneValue      float64    `db:"milestone_value" json:"milestone_value"`
	IsAchieved          bool       `db:"is_achieved" json:"is_achieved"`
	AchievedAt          *time.Time `db:"achieved_at" json:"achieved_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

// DefaultMilestonePercentages are used when a goal is created without explicit checkpoints.
var DefaultMilestonePercentages = []float64{25, 50, 75, 100}

// MilestoneValue returns the absolute value a percentage checkpoint of target corresponds to.
func MilestoneValue(target, percentage float64) float64 {
	return target * percentage / 100
}
