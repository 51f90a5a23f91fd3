package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressPercentage(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		target  float64
		want    float64
	}{
		{"halfway", 50, 100, 50},
		{"over target clamps", 150, 100, 100},
		{"negative clamps", -20, 100, 0},
		{"zero target", 50, 0, 0},
		{"negative target", 50, -10, 0},
		{"nan current", math.NaN(), 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ProgressPercentage(tt.current, tt.target), 1e-9)
		})
	}
}

func TestGoalReachedTarget(t *testing.T) {
	g := &Goal{TargetValue: 100}
	assert.True(t, g.ReachedTarget(100))
	assert.True(t, g.ReachedTarget(101))
	assert.False(t, g.ReachedTarget(99.9))

	g.TargetValue = 0
	assert.False(t, g.ReachedTarget(1000), "goals without a positive target never complete")
}

func TestGoalIsTerminal(t *testing.T) {
	for status, terminal := range map[string]bool{
		GoalStatusActive:    false,
		GoalStatusPaused:    false,
		GoalStatusCompleted: true,
		GoalStatusCancelled: true,
	} {
		g := &Goal{Status: status}
		assert.Equal(t, terminal, g.IsTerminal(), status)
	}
}

func TestSubscriptionTier(t *testing.T) {
	var none *Subscription
	assert.Equal(t, SubscriptionPlanFree, none.Tier())

	sub := &Subscription{PlanID: SubscriptionPlanAgency, Status: SubscriptionStatusActive}
	assert.Equal(t, SubscriptionPlanAgency, sub.Tier())
	assert.Equal(t, -1, sub.GetGoalLimit())
	assert.True(t, sub.HasFeature(FeatureExport))

	sub.Status = SubscriptionStatusCancelled
	assert.Equal(t, SubscriptionPlanFree, sub.Tier())
	assert.Equal(t, 3, sub.GetGoalLimit())
	assert.False(t, sub.HasFeature(FeatureExport))

	pro := &Subscription{PlanID: SubscriptionPlanPro, Status: SubscriptionStatusActive}
	assert.Equal(t, 25, pro.GetGoalLimit())
	assert.False(t, pro.HasFeature(FeaturePrioritySupport))
}

func TestFrequencyMultiplier(t *testing.T) {
	assert.Equal(t, 1, FrequencyMultiplier(ChallengeFrequencyDaily))
	assert.Equal(t, 3, FrequencyMultiplier(ChallengeFrequencyWeekly))
	assert.Equal(t, 2, FrequencyMultiplier(ChallengeFrequencyOneTime))
}
