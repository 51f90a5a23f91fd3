package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/repository"
)

func newGoalService(store *testStore) *GoalService {
	clock := fixedClock(testNow)
	return NewGoalService(
		store.goals,
		NewSubscriptionService(store.subs, clock),
		NewProjectionService(store.goals, clock),
		clock,
	)
}

func validInput() CreateGoalInput {
	return CreateGoalInput{
		Title:       "  Hit 10k followers ",
		GoalType:    model.GoalTypeFollowers,
		Platform:    model.PlatformInstagram,
		StartValue:  2000,
		TargetValue: 10000,
		TargetDate:  testNow.AddDate(0, 3, 0),
	}
}

func TestGoalCreate_DefaultsAndMilestones(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newGoalService(store)

	in := validInput()
	in.Platform = ""
	goal, err := svc.Create(ctx, "u", in)
	require.NoError(t, err)

	assert.Equal(t, "Hit 10k followers", goal.Title)
	assert.Equal(t, model.PlatformAll, goal.Platform)
	assert.Equal(t, model.PriorityMedium, goal.Priority)
	assert.Equal(t, model.GoalStatusActive, goal.Status)
	assert.Equal(t, 2000.0, goal.CurrentValue, "current starts at the start value")
	assert.True(t, goal.StartDate.Equal(testNow))
	assert.False(t, goal.IsChallenge)

	ms := store.milestones(t, goal.ID)
	require.Len(t, ms, 4)
	for i, want := range []float64{2500, 5000, 7500, 10000} {
		assert.Equal(t, want, ms[i].MilestoneValue)
		assert.False(t, ms[i].IsAchieved)
	}
}

func TestGoalCreate_CustomAndMissingMilestones(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newGoalService(store)

	in := validInput()
	in.MilestonePercentages = []float64{10, 90}
	goal, err := svc.Create(ctx, "u", in)
	require.NoError(t, err)
	ms := store.milestones(t, goal.ID)
	require.Len(t, ms, 2)
	assert.Equal(t, 1000.0, ms[0].MilestoneValue)
	assert.Equal(t, 9000.0, ms[1].MilestoneValue)

	in = validInput()
	in.TargetValue = 0
	goal, err = svc.Create(ctx, "u", in)
	require.NoError(t, err)
	assert.Empty(t, store.milestones(t, goal.ID))
}

func TestGoalCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateGoalInput)
	}{
		{"blank title", func(in *CreateGoalInput) { in.Title = "   " }},
		{"unknown type", func(in *CreateGoalInput) { in.GoalType = "karma" }},
		{"unknown platform", func(in *CreateGoalInput) { in.Platform = "myspace" }},
		{"unknown priority", func(in *CreateGoalInput) { in.Priority = "urgent" }},
		{"target before start", func(in *CreateGoalInput) { in.TargetDate = testNow.AddDate(0, 0, -1) }},
		{"target equals start", func(in *CreateGoalInput) { in.TargetDate = testNow }},
		{"milestone over 100", func(in *CreateGoalInput) { in.MilestonePercentages = []float64{50, 120} }},
		{"milestone zero", func(in *CreateGoalInput) { in.MilestonePercentages = []float64{0} }},
	}

	store := newTestStore(t)
	svc := newGoalService(store)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), "u", in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestGoalCreate_PlanLimit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newGoalService(store)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, "u", validInput())
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "u", validInput())
	assert.ErrorIs(t, err, ErrGoalLimitReached)

	store.setPlan(t, "u", model.SubscriptionPlanPro)
	_, err = svc.Create(ctx, "u", validInput())
	assert.NoError(t, err)
}

func TestGoalCreate_PausedGoalsDoNotCount(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newGoalService(store)

	store.seedGoal(t, "u", nil)
	store.seedGoal(t, "u", nil)
	store.seedGoal(t, "u", func(g *model.Goal) { g.Status = model.GoalStatusPaused })

	_, err := svc.Create(ctx, "u", validInput())
	assert.NoError(t, err)
}

func TestGoalUpdate_Transitions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newGoalService(store)
	goal := store.seedGoal(t, "u", nil)

	status := func(s string) UpdateGoalInput { return UpdateGoalInput{Status: &s} }

	updated, err := svc.Update(ctx, "u", goal.ID, status(model.GoalStatusPaused))
	require.NoError(t, err)
	assert.Equal(t, model.GoalStatusPaused, updated.Status)

	updated, err = svc.Update(ctx, "u", goal.ID, status(model.GoalStatusActive))
	require.NoError(t, err)
	assert.Equal(t, model.GoalStatusActive, updated.Status)

	_, err = svc.Update(ctx, "u", goal.ID, status(model.GoalStatusCompleted))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(ctx, "u", goal.ID, status("archived"))
	assert.ErrorIs(t, err, ErrValidation)

	updated, err = svc.Update(ctx, "u", goal.ID, status(model.GoalStatusCancelled))
	require.NoError(t, err)
	assert.Equal(t, model.GoalStatusCancelled, updated.Status)

	_, err = svc.Update(ctx, "u", goal.ID, status(model.GoalStatusActive))
	assert.ErrorIs(t, err, ErrInvalidState)

	target := 5.0
	_, err = svc.Update(ctx, "u", goal.ID, UpdateGoalInput{TargetValue: &target})
	assert.ErrorIs(t, err, ErrInvalidState)

	title := "Renamed after cancelling"
	updated, err = svc.Update(ctx, "u", goal.ID, UpdateGoalInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, title, store.reload(t, goal).Title)
}

func TestGoalUpdate_TargetEditDoesNotComplete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newGoalService(store)
	goal := store.seedGoal(t, "u", func(g *model.Goal) { g.CurrentValue = 600 })

	target := 500.0
	updated, err := svc.Update(ctx, "u", goal.ID, UpdateGoalInput{TargetValue: &target})
	require.NoError(t, err)
	assert.Equal(t, model.GoalStatusActive, updated.Status)
	assert.Equal(t, 600.0, updated.CurrentValue)
	assert.Nil(t, updated.CompletedAt)

	saved := store.reload(t, goal)
	assert.Equal(t, 500.0, saved.TargetValue)
	assert.Equal(t, goal.Version+1, saved.Version)
}

func TestGoalUpdate_FieldValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newGoalService(store)
	goal := store.seedGoal(t, "u", nil)

	blank := " "
	_, err := svc.Update(ctx, "u", goal.ID, UpdateGoalInput{Title: &blank})
	assert.ErrorIs(t, err, ErrValidation)

	early := goal.StartDate.AddDate(0, 0, -1)
	_, err = svc.Update(ctx, "u", goal.ID, UpdateGoalInput{TargetDate: &early})
	assert.ErrorIs(t, err, ErrValidation)

	priority := "whenever"
	_, err = svc.Update(ctx, "u", goal.ID, UpdateGoalInput{Priority: &priority})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(ctx, "someone-else", goal.ID, UpdateGoalInput{Title: &priority})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGoalWithDetails(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newGoalService(store)
	goal := store.seedGoal(t, "u", func(g *model.Goal) { g.CurrentValue = 300 }, 25, 50, 75, 100)

	details, err := svc.GoalWithDetails(ctx, "u", goal.ID)
	require.NoError(t, err)
	assert.Equal(t, goal.ID, details.Goal.ID)
	assert.Len(t, details.Milestones, 4)
	assert.Equal(t, goal.ID, details.Projection.GoalID)
	assert.Equal(t, 30.0, details.Projection.ProgressPercentage)
	require.NotNil(t, details.Projection.NextMilestone)
	assert.Equal(t, 500.0, details.Projection.NextMilestone.MilestoneValue)

	_, err = svc.GoalWithDetails(ctx, "other", goal.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGoalsListing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newGoalService(store)
	store.seedGoal(t, "u", func(g *model.Goal) { g.Title = "b" })
	store.seedGoal(t, "u", func(g *model.Goal) { g.Title = "a"; g.Platform = model.PlatformLinkedIn })
	store.seedGoal(t, "other", nil)

	goals, err := svc.Goals(ctx, repository.GoalFilter{UserID: "u", SortBy: repository.GoalSortTitle})
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, "a", goals[0].Title)

	goals, err = svc.Goals(ctx, repository.GoalFilter{UserID: "u", Platform: model.PlatformLinkedIn})
	require.NoError(t, err)
	require.Len(t, goals, 1)
}

func TestGoalDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := newGoalService(store)
	parent := store.seedGoal(t, "u", nil, 50, 100)
	child := store.seedGoal(t, "u", func(g *model.Goal) { g.IsChallenge = true })
	child.ParentGoalID = &parent.ID
	_, err := store.db.Exec(store.db.Rebind(`UPDATE goals SET parent_goal_id = ? WHERE id = ?`), parent.ID, child.ID)
	require.NoError(t, err)

	_, err = NewProgressService(store.goals, nil, fixedClock(testNow), 0).
		ApplyProgress(ctx, "u", parent.ID, 600, model.ProgressSourceManual, "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "other", parent.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "u", parent.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "u", parent.ID), ErrNotFound)

	_, err = svc.ByID(ctx, "u", parent.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.milestones(t, parent.ID))

	orphan := store.reload(t, child)
	assert.Nil(t, orphan.ParentGoalID)
}
