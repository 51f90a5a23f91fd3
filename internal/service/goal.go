package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/repository"
	"github.com/templui/goalpulse/internal/validation"
)

type CreateGoalInput struct {
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	GoalType             string     `json:"goal_type"`
	Platform             string     `json:"platform"`
	StartValue           float64    `json:"start_value"`
	TargetValue          float64    `json:"target_value"`
	StartDate            *time.Time `json:"start_date"`
	TargetDate           time.Time  `json:"target_date"`
	Priority             string     `json:"priority"`
	IsPublic             bool       `json:"is_public"`
	MilestonePercentages []float64  `json:"milestone_percentages"`
}

// UpdateGoalInput carries optional edits; nil fields are left unchanged.
type UpdateGoalInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	IsPublic    *bool      `json:"is_public"`
	TargetDate  *time.Time `json:"target_date"`
	TargetValue *float64   `json:"target_value"`
	Status      *string    `json:"status"`
}

type GoalDetails struct {
	Goal       *model.Goal        `json:"goal"`
	Milestones []*model.Milestone `json:"milestones"`
	Projection Projection         `json:"projection"`
}

type GoalService struct {
	repo          repository.GoalRepository
	subscriptions *SubscriptionService
	projections   *ProjectionService
	now           Clock
}

func NewGoalService(
	repo repository.GoalRepository,
	subscriptions *SubscriptionService,
	projections *ProjectionService,
	now Clock,
) *GoalService {
	if now == nil {
		now = SystemClock
	}
	return &GoalService{
		repo:          repo,
		subscriptions: subscriptions,
		projections:   projections,
		now:           now,
	}
}

func (s *GoalService) Create(ctx context.Context, userID string, in CreateGoalInput) (*model.Goal, error) {
	now := s.now()
	if in.Platform == "" {
		in.Platform = model.PlatformAll
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	startDate := now
	if in.StartDate != nil {
		startDate = *in.StartDate
	}

	err := validateCreate(&in, startDate)
	if err != nil {
		return nil, err
	}

	subscription, err := s.subscriptions.Subscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Check goal limit based on plan
	limit := subscription.GetGoalLimit()
	if limit != -1 { // -1 means unlimited
		count, err := s.repo.CountActiveGoals(ctx, userID)
		if err != nil {
			return nil, storeErr("count goals", err)
		}

		if count >= limit {
			return nil, ErrGoalLimitReached
		}
	}

	goal := &model.Goal{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        in.Title,
		Description:  in.Description,
		GoalType:     in.GoalType,
		Platform:     in.Platform,
		StartValue:   in.StartValue,
		CurrentValue: in.StartValue,
		TargetValue:  in.TargetValue,
		StartDate:    startDate,
		TargetDate:   in.TargetDate,
		Status:       model.GoalStatusActive,
		Priority:     in.Priority,
		IsPublic:     in.IsPublic,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Milestones only make sense against a positive target
	var milestones []*model.Milestone
	if in.TargetValue > 0 {
		percentages := in.MilestonePercentages
		if len(percentages) == 0 {
			percentages = model.DefaultMilestonePercentages
		}
		milestones = buildMilestones(in.TargetValue, percentages, now)
	}

	err = s.repo.Create(ctx, goal, milestones)
	if err != nil {
		return nil, storeErr("create goal", err)
	}

	return goal, nil
}

func validateCreate(in *CreateGoalInput, startDate time.Time) error {
	title, err := validation.ValidateTitle(in.Title)
	if err != nil {
		return validationErr("%v", err)
	}
	in.Title = title
	if err := validation.ValidateDescription(in.Description); err != nil {
		return validationErr("%v", err)
	}
	if !model.IsValidGoalType(in.GoalType) {
		return validationErr("unsupported goal type %q", in.GoalType)
	}
	if !model.IsValidPlatform(in.Platform) {
		return validationErr("unsupported platform %q", in.Platform)
	}
	if !model.IsValidPriority(in.Priority) {
		return validationErr("unsupported priority %q", in.Priority)
	}
	if !isFinite(in.StartValue) || !isFinite(in.TargetValue) {
		return validationErr("start and target values must be finite numbers")
	}
	if !in.TargetDate.After(startDate) {
		return validationErr("target date must be after start date")
	}
	for _, pct := range in.MilestonePercentages {
		if pct <= 0 || pct > 100 {
			return validationErr("milestone percentage %v must be in (0, 100]", pct)
		}
	}
	return nil
}

func (s *GoalService) ByID(ctx context.Context, userID, goalID string) (*model.Goal, error) {
	goal, err := s.repo.ByID(ctx, userID, goalID)
	if err != nil {
		return nil, storeErr("load goal", err)
	}
	return goal, nil
}

func (s *GoalService) Goals(ctx context.Context, filter repository.GoalFilter) ([]*model.Goal, error) {
	goals, err := s.repo.Goals(ctx, filter)
	if err != nil {
		return nil, storeErr("list goals", err)
	}
	return goals, nil
}

func (s *GoalService) GoalWithDetails(ctx context.Context, userID, goalID string) (*GoalDetails, error) {
	// Verify ownership
	goal, err := s.repo.ByID(ctx, userID, goalID)
	if err != nil {
		return nil, storeErr("load goal", err)
	}

	milestones, err := s.repo.Milestones(ctx, goalID)
	if err != nil {
		return nil, storeErr("load milestones", err)
	}
	if milestones == nil {
		milestones = []*model.Milestone{}
	}

	return &GoalDetails{
		Goal:       goal,
		Milestones: milestones,
		Projection: s.projections.ProjectGoal(goal, milestones),
	}, nil
}

// Update applies field edits and manual status transitions. It never touches current_value
// and never completes a goal; completion only happens through progress updates.
func (s *GoalService) Update(ctx context.Context, userID, goalID string, in UpdateGoalInput) (*model.Goal, error) {
	var goal *model.Goal
	backoff := retry.WithMaxRetries(3, retry.NewExponential(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		goal, err = s.repo.ByID(ctx, userID, goalID)
		if err != nil {
			return err
		}

		err = applyUpdate(goal, in)
		if err != nil {
			return err
		}
		goal.UpdatedAt = s.now()

		err = s.repo.Update(ctx, goal)
		if errors.Is(err, repository.ErrVersionConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, storeErr("update goal", err)
	}

	return goal, nil
}

func applyUpdate(goal *model.Goal, in UpdateGoalInput) error {
	if in.Title != nil {
		title, err := validation.ValidateTitle(*in.Title)
		if err != nil {
			return validationErr("%v", err)
		}
		goal.Title = title
	}
	if in.Description != nil {
		if err := validation.ValidateDescription(*in.Description); err != nil {
			return validationErr("%v", err)
		}
		goal.Description = *in.Description
	}
	if in.Priority != nil {
		if !model.IsValidPriority(*in.Priority) {
			return validationErr("unsupported priority %q", *in.Priority)
		}
		goal.Priority = *in.Priority
	}
	if in.IsPublic != nil {
		goal.IsPublic = *in.IsPublic
	}
	if in.TargetDate != nil {
		if !in.TargetDate.After(goal.StartDate) {
			return validationErr("target date must be after start date")
		}
		goal.TargetDate = *in.TargetDate
	}
	if in.TargetValue != nil {
		if !isFinite(*in.TargetValue) {
			return validationErr("target value must be a finite number")
		}
		if goal.IsTerminal() {
			return fmt.Errorf("%w: cannot change the target of a %s goal", ErrInvalidState, goal.Status)
		}
		goal.TargetValue = *in.TargetValue
	}
	if in.Status != nil && *in.Status != goal.Status {
		return transition(goal, *in.Status)
	}
	return nil
}

// transition allows active<->paused and active|paused->cancelled.
func transition(goal *model.Goal, to string) error {
	if !model.IsValidStatus(to) {
		return validationErr("unsupported status %q", to)
	}
	if to == model.GoalStatusCompleted {
		return validationErr("goals complete by reaching their target")
	}
	if goal.IsTerminal() {
		return fmt.Errorf("%w: goal is %s", ErrInvalidState, goal.Status)
	}
	goal.Status = to
	return nil
}

func (s *GoalService) Delete(ctx context.Context, userID, goalID string) error {
	return storeErr("delete goal", s.repo.Delete(ctx, userID, goalID))
}

func buildMilestones(target float64, percentages []float64, now time.Time) []*model.Milestone {
	milestones := make([]*model.Milestone, 0, len(percentages))
	for _, pct := range percentages {
		milestones = append(milestones, &model.Milestone{
			ID:                  uuid.New().String(),
			MilestonePercentage: pct,
			MilestoneValue:      model.MilestoneValue(target, pct),
			CreatedAt:           now,
		})
	}
	return milestones
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
