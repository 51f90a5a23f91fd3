package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/repository"
)

type SubscriptionService struct {
	repo repository.SubscriptionRepository
	now  Clock
}

func NewSubscriptionService(repo repository.SubscriptionRepository, now Clock) *SubscriptionService {
	if now == nil {
		now = SystemClock
	}
	return &SubscriptionService{repo: repo, now: now}
}

// Subscription returns the user's subscription. Users without a row are treated as active free users.
func (s *SubscriptionService) Subscription(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.repo.ByUserID(ctx, userID)
	if errors.Is(err, repository.ErrSubscriptionNotFound) {
		return &model.Subscription{
			UserID: userID,
			PlanID: model.SubscriptionPlanFree,
			Status: model.SubscriptionStatusActive,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

// Tier resolves the plan used for challenge scaling. Lookup failures degrade to free.
func (s *SubscriptionService) Tier(ctx context.Context, userID string) string {
	sub, err := s.Subscription(ctx, userID)
	if err != nil {
		slog.Warn("subscription lookup failed, using free tier", "error", err, "user_id", userID)
		return model.SubscriptionPlanFree
	}
	return sub.Tier()
}

// ChangePlan moves the user to planID, creating the subscription row if needed.
func (s *SubscriptionService) ChangePlan(ctx context.Context, userID, planID string) (*model.Subscription, error) {
	switch planID {
	case model.SubscriptionPlanFree, model.SubscriptionPlanPro, model.SubscriptionPlanAgency:
	default:
		return nil, validationErr("unknown plan %q", planID)
	}

	now := s.now()
	sub, err := s.repo.ByUserID(ctx, userID)
	if errors.Is(err, repository.ErrSubscriptionNotFound) {
		sub = &model.Subscription{
			ID:        uuid.New().String(),
			UserID:    userID,
			PlanID:    planID,
			Status:    model.SubscriptionStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.repo.Create(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("failed to create subscription: %w", err)
		}
		return sub, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	sub.PlanID = planID
	sub.Status = model.SubscriptionStatusActive
	sub.UpdatedAt = now
	err = s.repo.Update(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	return sub, nil
}
