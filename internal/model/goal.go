package model

import (
	"math"
	"time"
)

const (
	GoalStatusActive    = "active"
	GoalStatusPaused    = "paused"
	GoalStatusCompleted = "completed"
	GoalStatusCancelled = "cancelled"
)

const (
	GoalTypeFollowers      = "followers"
	GoalTypeEngagementRate = "engagement_rate"
	GoalTypePostsCount     = "posts_count"
	GoalTypeLikes          = "likes"
	GoalTypeComments       = "comments"
	GoalTypeShares         = "shares"
	GoalTypeImpressions    = "impressions"
	GoalTypeCustom         = "custom"
)

const (
	PlatformTwitter   = "twitter"
	PlatformLinkedIn  = "linkedin"
	PlatformInstagram = "instagram"
	PlatformAll       = "all"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var (
	GoalTypes  = []string{GoalTypeFollowers, GoalTypeEngagementRate, GoalTypePostsCount, GoalTypeLikes, GoalTypeComments, GoalTypeShares, GoalTypeImpressions, GoalTypeCustom}
	Platforms  = []string{PlatformTwitter, PlatformLinkedIn, PlatformInstagram, PlatformAll}
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
	Statuses   = []string{GoalStatusActive, GoalStatusPaused, GoalStatusCompleted, GoalStatusCancelled}
)

type Goal struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	GoalType     string    `db:"goal_type" json:"goal_type"`
	Platform     string    `db:"platform" json:"platform"`
	StartValue   float64   `db:"start_value" json:"start_value"`
	CurrentValue float64   `db:"current_value" json:"current_value"`
	TargetValue  float64   `db:"target_value" json:"target_value"`
	StartDate    time.Time `db:"start_date" json:"start_date"`
	TargetDate   time.Time `db:"target_date" json:"target_date"`
	Status       string    `db:"status" json:"status"`
	Priority     string    `db:"priority" json:"priority"`
	IsPublic     bool      `db:"is_public" json:"is_public"`

	// Challenge fields (only set when IsChallenge)
	IsChallenge        bool    `db:"is_challenge" json:"is_challenge"`
	ChallengeFrequency *string `db:"challenge_frequency" json:"challenge_frequency,omitempty"`
	ChallengeType      *string `db:"challenge_type" json:"challenge_type,omitempty"`
	ChallengeRewardXP  int     `db:"challenge_reward_xp" json:"challenge_reward_xp"`
	ParentGoalID       *string `db:"parent_goal_id" json:"parent_goal_id,omitempty"`

	Version     int        `db:"version" json:"version"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// ProgressPercentage is current/target*100 clamped to [0,100], or 0 when target <= 0.
func ProgressPercentage(current, target float64) float64 {
	if target <= 0 || math.IsNaN(current) || math.IsNaN(target) {
		return 0
	}
	pct := current / target * 100
	return math.Max(0, math.Min(100, pct))
}

func (g *Goal) ProgressPercentage() float64 {
	return ProgressPercentage(g.CurrentValue, g.TargetValue)
}

func (g *Goal) IsActive() bool {
	return g.Status == GoalStatusActive
}

// IsTerminal reports whether the goal can no longer change status.
func (g *Goal) IsTerminal() bool {
	return g.Status == GoalStatusCompleted || g.Status == GoalStatusCancelled
}

// ReachedTarget reports whether value completes the goal. Goals without a positive target never complete.
func (g *Goal) ReachedTarget(value float64) bool {
	return g.TargetValue > 0 && value >= g.TargetValue
}

func IsValidGoalType(t string) bool {
	return contains(GoalTypes, t)
}

func IsValidPlatform(p string) bool {
	return contains(Platforms, p)
}

func IsValidPriority(p string) bool {
	return contains(Priorities, p)
}

func IsValidStatus(s string) bool {
	return contains(Statuses, s)
}

func contains(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}
