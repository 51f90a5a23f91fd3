package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/repository"
)

const syncNote = "Synced from platform metrics"

// MetricsProvider returns the latest per-platform snapshots for a user. Results may be partial or stale.
type MetricsProvider interface {
	Snapshots(ctx context.Context, userID string) ([]model.MetricSnapshot, error)
}

type SyncReport struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (r *SyncReport) add(o *SyncReport) {
	r.Checked += o.Checked
	r.Updated += o.Updated
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

type GoalSuggestion struct {
	GoalType        string  `json:"goal_type"`
	Platform        string  `json:"platform"`
	CurrentValue    float64 `json:"current_value"`
	SuggestedTarget float64 `json:"suggested_target"`
}

// MetricSyncService turns metric snapshots into automatic progress updates.
type MetricSyncService struct {
	repo     repository.GoalRepository
	progress *ProgressService
	metrics  MetricsProvider
}

func NewMetricSyncService(repo repository.GoalRepository, progress *ProgressService, metrics MetricsProvider) *MetricSyncService {
	return &MetricSyncService{
		repo:     repo,
		progress: progress,
		metrics:  metrics,
	}
}

// ResolveMetric maps a goal's type and platform to a value from snapshots.
// "all" sums counts and averages rates across platforms. Types without a snapshot field are not resolvable.
func ResolveMetric(goalType, platform string, snapshots []model.MetricSnapshot) (float64, bool) {
	var field func(model.MetricSnapshot) float64
	isRate := false
	switch goalType {
	case model.GoalTypeFollowers:
		field = func(m model.MetricSnapshot) float64 { return m.FollowersCount }
	case model.GoalTypePostsCount:
		field = func(m model.MetricSnapshot) float64 { return m.PostsCount }
	case model.GoalTypeEngagementRate:
		field = func(m model.MetricSnapshot) float64 { return m.EngagementRate }
		isRate = true
	default:
		return 0, false
	}

	if platform != model.PlatformAll {
		for _, snap := range snapshots {
			if snap.Platform == platform {
				return field(snap), true
			}
		}
		return 0, false
	}

	if len(snapshots) == 0 {
		return 0, false
	}
	var total float64
	for _, snap := range snapshots {
		total += field(snap)
	}
	if isRate {
		return total / float64(len(snapshots)), true
	}
	return total, true
}

// SyncGoalsWithMetrics pushes resolved values into each of the user's active goals.
// A goal that cannot be resolved or updated is counted and skipped; only listing goals can fail the batch.
func (s *MetricSyncService) SyncGoalsWithMetrics(ctx context.Context, userID string, snapshots []model.MetricSnapshot) (*SyncReport, error) {
	goals, err := s.repo.ActiveGoals(ctx, userID)
	if err != nil {
		return nil, storeErr("list active goals", err)
	}

	report := &SyncReport{}
	for _, goal := range goals {
		report.Checked++

		value, ok := ResolveMetric(goal.GoalType, goal.Platform, snapshots)
		if !ok || value == goal.CurrentValue {
			report.Skipped++
			continue
		}

		_, err := s.progress.ApplyProgress(ctx, userID, goal.ID, value, model.ProgressSourceAutomatic, syncNote)
		if err != nil {
			report.Failed++
			slog.Warn("metric sync skipped goal", "error", err, "goal_id", goal.ID, "user_id", userID)
			continue
		}
		report.Updated++
	}

	slog.Info("metric sync finished",
		"user_id", userID,
		"checked", report.Checked,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

// SyncUser fetches fresh snapshots for the user and syncs them.
func (s *MetricSyncService) SyncUser(ctx context.Context, userID string) (*SyncReport, error) {
	snapshots, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.SyncGoalsWithMetrics(ctx, userID, snapshots)
}

// SyncAll syncs every user that has active goals. Per-user failures are logged and the run continues.
func (s *MetricSyncService) SyncAll(ctx context.Context) (*SyncReport, error) {
	userIDs, err := s.repo.UsersWithActiveGoals(ctx)
	if err != nil {
		return nil, storeErr("list users with active goals", err)
	}

	total := &SyncReport{}
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		report, err := s.SyncUser(ctx, userID)
		if err != nil {
			slog.Error("metric sync failed for user", "error", err, "user_id", userID)
			continue
		}
		total.add(report)
	}

	return total, nil
}

// SuggestGoalFromMetrics proposes ceil(current × multiplier) as a target based on the latest snapshot.
func (s *MetricSyncService) SuggestGoalFromMetrics(ctx context.Context, userID, goalType, platform string, multiplier float64) (*GoalSuggestion, error) {
	if !model.IsValidGoalType(goalType) {
		return nil, validationErr("unsupported goal type %q", goalType)
	}
	if !model.IsValidPlatform(platform) {
		return nil, validationErr("unsupported platform %q", platform)
	}
	if !isFinite(multiplier) || multiplier <= 0 {
		return nil, validationErr("multiplier must be a positive number")
	}

	snapshots, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	current, ok := ResolveMetric(goalType, platform, snapshots)
	if !ok || current == 0 {
		return nil, ErrNoMetricValue
	}

	return &GoalSuggestion{
		GoalType:        goalType,
		Platform:        platform,
		CurrentValue:    current,
		SuggestedTarget: math.Ceil(current * multiplier),
	}, nil
}

func (s *MetricSyncService) fetch(ctx context.Context, userID string) ([]model.MetricSnapshot, error) {
	if s.metrics == nil {
		return nil, fmt.Errorf("%w: metrics provider not configured", ErrExternalService)
	}

	snapshots, err := s.metrics.Snapshots(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrExternalService) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fetch metrics: %w", ErrExternalService, err)
	}
	return snapshots, nil
}
