package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/templui/goalpulse/internal/model"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	ByUserID(ctx context.Context, userID string) (*model.Subscription, error)
	Update(ctx context.Context, sub *model.Subscription) error
}

type subscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, plan_id, status, current_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		sub.ID,
		sub.UserID,
		sub.PlanID,
		sub.Status,
		utcPtr(sub.CurrentPeriodEnd),
		sub.CreatedAt.UTC(),
		sub.UpdatedAt.UTC(),
	)

	return err
}

func (r *subscriptionRepository) ByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	sub := &model.Subscription{}
	query := `SELECT * FROM subscriptions WHERE user_id = $1`

	err := r.db.GetContext(ctx, sub, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *model.Subscription) error {
	query := `
		UPDATE subscriptions
		SET plan_id = $1,
		    status = $2,
		    current_period_end = $3,
		    updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.ExecContext(ctx,
		query,
		sub.PlanID,
		sub.Status,
		utcPtr(sub.CurrentPeriodEnd),
		sub.UpdatedAt.UTC(),
		sub.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrSubscriptionNotFound
	}

	return nil
}
