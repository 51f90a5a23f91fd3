package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/repository"
)

func newProgressService(store *testStore, notifier Notifier) *ProgressService {
	return NewProgressService(store.goals, notifier, fixedClock(testNow), 5)
}

func TestApplyProgress_MarksMilestonesAndLogs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	goal := store.seedGoal(t, "u", nil, 25, 50, 75, 100)
	svc := newProgressService(store, nil)

	res, err := svc.ApplyProgress(ctx, "u", goal.ID, 520, model.ProgressSourceManual, "weekly check-in")
	require.NoError(t, err)

	assert.InDelta(t, 52, res.ProgressPercentage, 1e-9)
	assert.InDelta(t, 520, res.ChangeAmount, 1e-9)
	assert.False(t, res.Completed)
	require.Len(t, res.NewlyAchieved, 2)
	assert.InDelta(t, 250, res.NewlyAchieved[0].MilestoneValue, 1e-9)
	assert.InDelta(t, 500, res.NewlyAchieved[1].MilestoneValue, 1e-9)

	got := store.reload(t, goal)
	assert.InDelta(t, 520, got.CurrentValue, 1e-9)
	assert.Equal(t, model.GoalStatusActive, got.Status)

	history, err := svc.History(ctx, "u", goal.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "weekly check-in", history[0].Notes)
	assert.InDelta(t, 0, history[0].PreviousValue, 1e-9)
	assert.InDelta(t, 52, history[0].ProgressPercentage, 1e-9)
}

func TestApplyProgress_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	goal := store.seedGoal(t, "u", nil, 50, 100)
	svc := newProgressService(store, nil)

	first, err := svc.ApplyProgress(ctx, "u", goal.ID, 600, model.ProgressSourceManual, "")
	require.NoError(t, err)
	require.Len(t, first.NewlyAchieved, 1)

	second, err := svc.ApplyProgress(ctx, "u", goal.ID, 600, model.ProgressSourceManual, "")
	require.NoError(t, err)
	assert.Zero(t, second.ChangeAmount)
	assert.Equal(t, first.ProgressPercentage, second.ProgressPercentage)
	assert.Empty(t, second.NewlyAchieved)
	assert.False(t, second.Completed)

	history, err := svc.History(ctx, "u", goal.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "a repeated value still leaves a zero-delta log line")
}

func TestApplyProgress_MilestonesStayAchieved(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	goal := store.seedGoal(t, "u", nil, 50)
	svc := newProgressService(store, nil)

	_, err := svc.ApplyProgress(ctx, "u", goal.ID, 700, model.ProgressSourceManual, "")
	require.NoError(t, err)

	res, err := svc.ApplyProgress(ctx, "u", goal.ID, 100, model.ProgressSourceAutomatic, "follower purge")
	require.NoError(t, err)
	assert.InDelta(t, -600, res.ChangeAmount, 1e-9)

	ms := store.milestones(t, goal.ID)
	require.Len(t, ms, 1)
	assert.True(t, ms[0].IsAchieved)
	require.NotNil(t, ms[0].AchievedAt)

	res, err = svc.ApplyProgress(ctx, "u", goal.ID, 800, model.ProgressSourceManual, "")
	require.NoError(t, err)
	assert.Empty(t, res.NewlyAchieved, "milestones are credited once")
}

func TestApplyProgress_CompletesAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	goal := store.seedGoal(t, "u", func(g *model.Goal) { g.CurrentValue = 900 }, 100)

	notifier := &mockNotifier{}
	notifier.On("MilestoneAchieved", mock.Anything, mock.AnythingOfType("*model.Goal"), mock.AnythingOfType("*model.Milestone")).Return(nil).Once()
	notifier.On("GoalCompleted", mock.Anything, mock.MatchedBy(func(g *model.Goal) bool {
		return g.ID == goal.ID && g.Status == model.GoalStatusCompleted
	})).Return(errors.New("smtp down")).Once()

	svc := newProgressService(store, notifier)
	res, err := svc.ApplyProgress(ctx, "u", goal.ID, 1200, model.ProgressSourceManual, "")
	require.NoError(t, err, "notification failures are not progress failures")

	assert.True(t, res.Completed)
	assert.Equal(t, 100.0, res.ProgressPercentage)
	require.Len(t, res.NewlyAchieved, 1, "final milestone and completion reported together")
	notifier.AssertExpectations(t)

	got := store.reload(t, goal)
	assert.Equal(t, model.GoalStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(testNow))

	_, err = svc.ApplyProgress(ctx, "u", goal.ID, 1300, model.ProgressSourceManual, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestApplyProgress_NonPositiveTargetNeverCompletes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	goal := store.seedGoal(t, "u", func(g *model.Goal) { g.TargetValue = 0 })
	svc := newProgressService(store, nil)

	for _, v := range []float64{-5, 0, 10, 1e9} {
		res, err := svc.ApplyProgress(ctx, "u", goal.ID, v, model.ProgressSourceManual, "")
		require.NoError(t, err)
		assert.Zero(t, res.ProgressPercentage)
		assert.False(t, res.Completed)
	}
	assert.Equal(t, model.GoalStatusActive, store.reload(t, goal).Status)
}

func TestApplyProgress_Rejections(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	paused := store.seedGoal(t, "u", func(g *model.Goal) { g.Status = model.GoalStatusPaused })
	active := store.seedGoal(t, "u", nil)
	svc := newProgressService(store, nil)

	_, err := svc.ApplyProgress(ctx, "u", paused.ID, 10, model.ProgressSourceManual, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.ApplyProgress(ctx, "intruder", active.ID, 10, model.ProgressSourceManual, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ApplyProgress(ctx, "u", active.ID, 10, "webhook", "")
	assert.ErrorIs(t, err, ErrValidation)

	history, err := svc.History(ctx, "u", paused.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "rejected writes leave no trace")
}

// conflictingRepo reports a concurrent modification for the first n writes.
type conflictingRepo struct {
	repository.GoalRepository
	n     int
	calls int
}

func (r *conflictingRepo) ApplyProgress(ctx context.Context, userID, goalID string, fn repository.ProgressFunc) error {
	r.calls++
	if r.calls <= r.n {
		return repository.ErrVersionConflict
	}
	return r.GoalRepository.ApplyProgress(ctx, userID, goalID, fn)
}

func TestApplyProgress_RetriesConflicts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	goal := store.seedGoal(t, "u", nil)

	repo := &conflictingRepo{GoalRepository: store.goals, n: 2}
	svc := NewProgressService(repo, nil, fixedClock(testNow), 5)
	res, err := svc.ApplyProgress(ctx, "u", goal.ID, 40, model.ProgressSourceManual, "")
	require.NoError(t, err)
	assert.InDelta(t, 40, res.Goal.CurrentValue, 1e-9)
	assert.Equal(t, 3, repo.calls)

	repo = &conflictingRepo{GoalRepository: store.goals, n: 10}
	svc = NewProgressService(repo, nil, fixedClock(testNow), 2)
	_, err = svc.ApplyProgress(ctx, "u", goal.ID, 50, model.ProgressSourceManual, "")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
}

func TestApplyProgress_ConcurrentWritersSerialize(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	goal := store.seedGoal(t, "u", func(g *model.Goal) { g.TargetValue = 100 }, 50, 100)
	svc := newProgressService(store, nil)

	values := []float64{60, 30}
	results := make([]*ProgressResult, len(values))
	errs := make([]error, len(values))

	var wg sync.WaitGroup
	for i, v := range values {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.ApplyProgress(ctx, "u", goal.ID, v, model.ProgressSourceManual, "")
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	history, err := svc.History(ctx, "u", goal.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Exactly one write saw the initial value; the other saw the first write's result.
	var first, second int
	if history[0].PreviousValue == 0 && history[1].PreviousValue == history[0].NewValue {
		first, second = 0, 1
	} else {
		first, second = 1, 0
	}
	assert.InDelta(t, 0, history[first].PreviousValue, 1e-9)
	assert.InDelta(t, history[first].NewValue, history[second].PreviousValue, 1e-9)

	got := store.reload(t, goal)
	assert.InDelta(t, history[second].NewValue, got.CurrentValue, 1e-9)
	assert.Equal(t, 2, got.Version)

	credited := len(results[0].NewlyAchieved) + len(results[1].NewlyAchieved)
	assert.Equal(t, 1, credited, "the halfway milestone is credited exactly once")
	ms := store.milestones(t, goal.ID)
	assert.True(t, ms[0].IsAchieved)
	assert.False(t, ms[1].IsAchieved)
}
