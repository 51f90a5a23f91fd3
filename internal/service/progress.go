package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/repository"
)

type ProgressResult struct {
	Goal               *model.Goal        `json:"goal"`
	ProgressPercentage float64            `json:"progress_percentage"`
	ChangeAmount       float64            `json:"change_amount"`
	NewlyAchieved      []*model.Milestone `json:"newly_achieved_milestones"`
	Completed          bool               `json:"completed"`
}

// ProgressService is the single writer of a goal's current_value.
type ProgressService struct {
	repo       repository.GoalRepository
	notifier   Notifier
	now        Clock
	maxRetries uint64
}

func NewProgressService(repo repository.GoalRepository, notifier Notifier, now Clock, maxRetries int) *ProgressService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if now == nil {
		now = SystemClock
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ProgressService{
		repo:       repo,
		notifier:   notifier,
		now:        now,
		maxRetries: uint64(maxRetries),
	}
}

// ApplyProgress sets the goal's value to newValue, marks reached milestones and completes the goal
// when the target is met. Concurrent writers on the same goal are retried on version conflict.
func (s *ProgressService) ApplyProgress(ctx context.Context, userID, goalID string, newValue float64, source, notes string) (*ProgressResult, error) {
	if !model.IsValidProgressSource(source) {
		return nil, validationErr("unsupported progress source %q", source)
	}
	if math.IsNaN(newValue) || math.IsInf(newValue, 0) {
		return nil, validationErr("progress value must be a finite number")
	}

	var result *ProgressResult
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.repo.ApplyProgress(ctx, userID, goalID, func(goal *model.Goal, milestones []*model.Milestone) (*repository.ProgressWrite, error) {
			var write *repository.ProgressWrite
			var err error
			result, write, err = advance(goal, milestones, newValue, source, notes, s.now())
			return write, err
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			slog.Debug("progress write conflicted, retrying", "goal_id", goalID)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, storeErr("apply progress", err)
	}

	s.notify(ctx, result)
	return result, nil
}

func (s *ProgressService) History(ctx context.Context, userID, goalID string) ([]*model.ProgressLogEntry, error) {
	_, err := s.repo.ByID(ctx, userID, goalID)
	if err != nil {
		return nil, storeErr("load goal", err)
	}

	entries, err := s.repo.ProgressLog(ctx, []string{goalID}, time.Time{})
	if err != nil {
		return nil, storeErr("load progress log", err)
	}
	return entries, nil
}

// notify runs after commit. Delivery failures never undo a progress write.
func (s *ProgressService) notify(ctx context.Context, result *ProgressResult) {
	for _, m := range result.NewlyAchieved {
		err := s.notifier.MilestoneAchieved(ctx, result.Goal, m)
		if err != nil {
			slog.Error("failed to deliver milestone notification", "error", err, "goal_id", result.Goal.ID, "milestone_id", m.ID)
		}
	}
	if result.Completed {
		err := s.notifier.GoalCompleted(ctx, result.Goal)
		if err != nil {
			slog.Error("failed to deliver completion notification", "error", err, "goal_id", result.Goal.ID)
		}
	}
}

// advance applies newValue to goal in memory. Milestones are marked before the completion check
// so the final milestone and the completion are reported by the same call.
func advance(goal *model.Goal, milestones []*model.Milestone, newValue float64, source, notes string, now time.Time) (*ProgressResult, *repository.ProgressWrite, error) {
	if !goal.IsActive() {
		return nil, nil, fmt.Errorf("%w: goal is %s", ErrInvalidState, goal.Status)
	}

	previous := goal.CurrentValue
	change := newValue - previous
	percentage := model.ProgressPercentage(newValue, goal.TargetValue)

	achieved := []*model.Milestone{}
	for _, m := range milestones {
		if m.IsAchieved || m.MilestoneValue > newValue {
			continue
		}
		at := now
		m.IsAchieved = true
		m.AchievedAt = &at
		achieved = append(achieved, m)
	}

	goal.CurrentValue = newValue
	goal.UpdatedAt = now

	completed := goal.ReachedTarget(newValue)
	if completed {
		at := now
		goal.Status = model.GoalStatusCompleted
		goal.CompletedAt = &at
	}

	entry := &model.ProgressLogEntry{
		ID:                 uuid.New().String(),
		GoalID:             goal.ID,
		PreviousValue:      previous,
		NewValue:           newValue,
		ChangeAmount:       change,
		ProgressPercentage: percentage,
		Source:             source,
		Notes:              notes,
		RecordedAt:         now,
	}

	result := &ProgressResult{
		Goal:               goal,
		ProgressPercentage: percentage,
		ChangeAmount:       change,
		NewlyAchieved:      achieved,
		Completed:          completed,
	}
	return result, &repository.ProgressWrite{Achieved: achieved, Entry: entry}, nil
}
