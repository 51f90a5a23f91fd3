package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/templui/goalpulse/internal/model"
)

const (
	TypeGoalCompleted     = "goal.completed"
	TypeMilestoneAchieved = "goal.milestone_achieved"
)

type Event struct {
	Type        string    `json:"type"`
	GoalID      string    `json:"goal_id"`
	UserID      string    `json:"user_id"`
	MilestoneID string    `json:"milestone_id,omitempty"`
	Percentage  float64   `json:"percentage,omitempty"`
	Value       float64   `json:"value"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Notifier emits goal events keyed by goal id, so one goal's events stay ordered.
type Notifier struct {
	pub publisher
	now func() time.Time
}

func NewNotifier(p *Producer) *Notifier {
	return &Notifier{pub: p, now: func() time.Time { return time.Now().UTC() }}
}

func (n *Notifier) GoalCompleted(ctx context.Context, goal *model.Goal) error {
	return n.publish(ctx, Event{
		Type:   TypeGoalCompleted,
		GoalID: goal.ID,
		UserID: goal.UserID,
		Value:  goal.CurrentValue,
	})
}

func (n *Notifier) MilestoneAchieved(ctx context.Context, goal *model.Goal, milestone *model.Milestone) error {
	return n.publish(ctx, Event{
		Type:        TypeMilestoneAchieved,
		GoalID:      goal.ID,
		UserID:      goal.UserID,
		MilestoneID: milestone.ID,
		Percentage:  milestone.MilestonePercentage,
		Value:       goal.CurrentValue,
	})
}

func (n *Notifier) publish(ctx context.Context, e Event) error {
	e.OccurredAt = n.now()
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return n.pub.Publish(ctx, e.GoalID, data)
}
