package model

import (
	"time"
)

type Subscription struct {
	ID               string     `db:"id"`
	UserID           string     `db:"user_id"`
	PlanID           string     `db:"plan_id"`
	Status           string     `db:"status"`
	CurrentPeriodEnd *time.Time `db:"current_period_end"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
)

const (
	SubscriptionPlanFree   = "free"
	SubscriptionPlanPro    = "pro"
	SubscriptionPlanAgency = "agency"
)

const (
	FeatureExport          = "export"
	FeaturePrioritySupport = "priority_support"
)

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

func (s *Subscription) IsPaid() bool {
	return s.PlanID != SubscriptionPlanFree && s.IsActive()
}

// Tier is the plan that applies right now. Inactive subscriptions fall back to free.
func (s *Subscription) Tier() string {
	if s == nil || !s.IsActive() {
		return SubscriptionPlanFree
	}
	switch s.PlanID {
	case SubscriptionPlanPro, SubscriptionPlanAgency:
		return s.PlanID
	default:
		return SubscriptionPlanFree
	}
}

// GetGoalLimit returns the maximum number of active goals allowed for this plan
// Returns -1 for unlimited
func (s *Subscription) GetGoalLimit() int {
	switch s.Tier() {
	case SubscriptionPlanPro:
		return 25
	case SubscriptionPlanAgency:
		return -1 // unlimited
	default:
		return 3
	}
}

// HasFeature checks if the subscription has access to a specific feature
func (s *Subscription) HasFeature(feature string) bool {
	if s == nil || !s.IsActive() {
		return false
	}

	// Feature mapping by plan
	features := map[string][]string{
		SubscriptionPlanFree: {},
		SubscriptionPlanPro: {
			FeatureExport,
		},
		SubscriptionPlanAgency: {
			FeatureExport,
			FeaturePrioritySupport,
		},
	}

	planFeatures, exists := features[s.PlanID]
	if !exists {
		return false
	}

	for _, f := range planFeatures {
		if f == feature {
			return true
		}
	}

	return false
}
