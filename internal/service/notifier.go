package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/templui/goalpulse/internal/model"
)

// Notifier receives goal lifecycle events after they are committed.
type Notifier interface {
	GoalCompleted(ctx context.Context, goal *model.Goal) error
	MilestoneAchieved(ctx context.Context, goal *model.Goal, milestone *model.Milestone) error
}

// MultiNotifier fans an event out to every sink and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) GoalCompleted(ctx context.Context, goal *model.Goal) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.GoalCompleted(ctx, goal))
	}
	return errors.Join(errs...)
}

func (m MultiNotifier) MilestoneAchieved(ctx context.Context, goal *model.Goal, milestone *model.Milestone) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.MilestoneAchieved(ctx, goal, milestone))
	}
	return errors.Join(errs...)
}

// LogNotifier only logs. Used when no delivery channel is configured.
type LogNotifier struct{}

func (LogNotifier) GoalCompleted(_ context.Context, goal *model.Goal) error {
	slog.Info("goal completed", "goal_id", goal.ID, "user_id", goal.UserID, "value", goal.CurrentValue)
	return nil
}

func (LogNotifier) MilestoneAchieved(_ context.Context, goal *model.Goal, milestone *model.Milestone) error {
	slog.Info("milestone achieved",
		"goal_id", goal.ID,
		"user_id", goal.UserID,
		"milestone_id", milestone.ID,
		"percentage", milestone.MilestonePercentage,
	)
	return nil
}
