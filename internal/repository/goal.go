package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/goalpulse/internal/model"
)

const (
	GoalSortRecent     = "recent"
	GoalSortProgress   = "progress"
	GoalSortTitle      = "title"
	GoalSortTargetDate = "target_date"
)

var (
	ErrGoalNotFound      = errors.New("goal not found")
	ErrMilestoneNotFound = errors.New("milestone not found")
	// ErrVersionConflict means another writer changed the goal between read and write.
	ErrVersionConflict = errors.New("goal was modified concurrently")
)

type GoalFilter struct {
	UserID      string
	Status      string
	Platform    string
	GoalType    string
	IsChallenge *bool
	SortBy      string
}

// ProgressWrite is what a ProgressFunc decided to persist next to the updated goal.
type ProgressWrite struct {
	Achieved []*model.Milestone
	Entry    *model.ProgressLogEntry
}

// ProgressFunc mutates goal in place and returns the milestone flips and log row to store with it.
// Returning an error aborts the transaction without writing anything.
type ProgressFunc func(goal *model.Goal, milestones []*model.Milestone) (*ProgressWrite, error)

type GoalRepository interface {
	Create(ctx context.Context, goal *model.Goal, milestones []*model.Milestone) error
	ByID(ctx context.Context, userID, goalID string) (*model.Goal, error)
	Goals(ctx context.Context, filter GoalFilter) ([]*model.Goal, error)
	ActiveGoals(ctx context.Context, userID string) ([]*model.Goal, error)
	ActiveChallenges(ctx context.Context, userID string, now time.Time) ([]*model.Goal, error)
	CountActiveGoals(ctx context.Context, userID string) (int, error)
	Update(ctx context.Context, goal *model.Goal) error
	Delete(ctx context.Context, userID, goalID string) error
	UsersWithActiveGoals(ctx context.Context) ([]string, error)
	Milestones(ctx context.Context, goalIDs ...string) ([]*model.Milestone, error)
	CreateMilestones(ctx context.Context, goalID string, milestones []*model.Milestone) error
	ProgressLog(ctx context.Context, goalIDs []string, since time.Time) ([]*model.ProgressLogEntry, error)
	ApplyProgress(ctx context.Context, userID, goalID string, fn ProgressFunc) error
}

type goalRepository struct {
	db *sqlx.DB
}

func NewGoalRepository(db *sqlx.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Create(ctx context.Context, goal *model.Goal, milestones []*model.Milestone) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	normalizeGoalTimes(goal)

	query := `INSERT INTO goals (
			id, user_id, title, description, goal_type, platform,
			start_value, current_value, target_value, start_date, target_date,
			status, priority, is_public,
			is_challenge, challenge_frequency, challenge_type, challenge_reward_xp, parent_goal_id,
			version, created_at, updated_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`

	_, err = tx.ExecContext(ctx, query,
		goal.ID,
		goal.UserID,
		goal.Title,
		goal.Description,
		goal.GoalType,
		goal.Platform,
		goal.StartValue,
		goal.CurrentValue,
		goal.TargetValue,
		goal.StartDate,
		goal.TargetDate,
		goal.Status,
		goal.Priority,
		goal.IsPublic,
		goal.IsChallenge,
		goal.ChallengeFrequency,
		goal.ChallengeType,
		goal.ChallengeRewardXP,
		goal.ParentGoalID,
		goal.Version,
		goal.CreatedAt,
		goal.UpdatedAt,
		goal.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}

	err = insertMilestones(ctx, tx, goal.ID, milestones)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *goalRepository) ByID(ctx context.Context, userID, goalID string) (*model.Goal, error) {
	goal := &model.Goal{}
	query := `SELECT * FROM goals WHERE id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, goal, query, goalID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}

	return goal, nil
}

func (r *goalRepository) Goals(ctx context.Context, filter GoalFilter) ([]*model.Goal, error) {
	var goals []*model.Goal

	conditions := []string{"user_id = $1"}
	args := []any{filter.UserID}
	add := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}
	if filter.Platform != "" {
		add("platform", filter.Platform)
	}
	if filter.GoalType != "" {
		add("goal_type", filter.GoalType)
	}
	if filter.IsChallenge != nil {
		add("is_challenge", *filter.IsChallenge)
	}

	// Validate and build ORDER BY clause
	var orderBy string
	switch filter.SortBy {
	case GoalSortProgress:
		orderBy = "ORDER BY CASE WHEN target_value > 0 THEN current_value / target_value ELSE 0 END DESC, updated_at DESC"
	case GoalSortTitle:
		orderBy = "ORDER BY LOWER(title) ASC"
	case GoalSortTargetDate:
		orderBy = "ORDER BY target_date ASC"
	default: // GoalSortRecent or empty
		orderBy = "ORDER BY updated_at DESC"
	}

	query := `SELECT * FROM goals WHERE ` + strings.Join(conditions, " AND ") + " " + orderBy

	err := r.db.SelectContext(ctx, &goals, query, args...)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

// ActiveGoals returns the user's active goals, challenges excluded.
func (r *goalRepository) ActiveGoals(ctx context.Context, userID string) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT * FROM goals WHERE user_id = $1 AND status = $2 AND is_challenge = $3 ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &goals, query, userID, model.GoalStatusActive, false)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *goalRepository) ActiveChallenges(ctx context.Context, userID string, now time.Time) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT * FROM goals
	          WHERE user_id = $1 AND status = $2 AND is_challenge = $3 AND target_date >= $4
	          ORDER BY target_date ASC`

	err := r.db.SelectContext(ctx, &goals, query, userID, model.GoalStatusActive, true, now.UTC())
	if err != nil {
		return nil, err
	}

	return goals, nil
}

// CountActiveGoals counts active non-challenge goals, which is what plan limits apply to.
func (r *goalRepository) CountActiveGoals(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM goals WHERE user_id = $1 AND status = $2 AND is_challenge = $3`
	err := r.db.QueryRowContext(ctx, query, userID, model.GoalStatusActive, false).Scan(&count)
	return count, err
}

// Update writes user-editable fields and status. current_value is owned by ApplyProgress and is never written here.
func (r *goalRepository) Update(ctx context.Context, goal *model.Goal) error {
	normalizeGoalTimes(goal)

	query := `UPDATE goals
	          SET title = $1, description = $2, priority = $3, is_public = $4,
	              target_date = $5, target_value = $6, status = $7, completed_at = $8,
	              updated_at = $9, version = version + 1
	          WHERE id = $10 AND user_id = $11 AND version = $12`

	result, err := r.db.ExecContext(ctx, query,
		goal.Title,
		goal.Description,
		goal.Priority,
		goal.IsPublic,
		goal.TargetDate,
		goal.TargetValue,
		goal.Status,
		goal.CompletedAt,
		goal.UpdatedAt,
		goal.ID,
		goal.UserID,
		goal.Version,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		_, err := r.ByID(ctx, goal.UserID, goal.ID)
		if err != nil {
			return err
		}
		return ErrVersionConflict
	}

	goal.Version++
	return nil
}

// Delete removes the goal with its milestones and log. Challenges derived from it survive with parent_goal_id cleared.
func (r *goalRepository) Delete(ctx context.Context, userID, goalID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	statements := []string{
		`UPDATE goals SET parent_goal_id = NULL WHERE parent_goal_id = $1`,
		`DELETE FROM goal_milestones WHERE goal_id = $1`,
		`DELETE FROM goal_progress_log WHERE goal_id = $1`,
	}
	for _, stmt := range statements {
		_, err = tx.ExecContext(ctx, stmt, goalID)
		if err != nil {
			return err
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE id = $1 AND user_id = $2`, goalID, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGoalNotFound
	}

	return tx.Commit()
}

func (r *goalRepository) UsersWithActiveGoals(ctx context.Context) ([]string, error) {
	var userIDs []string
	query := `SELECT DISTINCT user_id FROM goals WHERE status = $1 AND is_challenge = $2 ORDER BY user_id`

	err := r.db.SelectContext(ctx, &userIDs, query, model.GoalStatusActive, false)
	if err != nil {
		return nil, err
	}

	return userIDs, nil
}

func (r *goalRepository) Milestones(ctx context.Context, goalIDs ...string) ([]*model.Milestone, error) {
	if len(goalIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM goal_milestones WHERE goal_id IN (?) ORDER BY goal_id, milestone_value ASC`, goalIDs)
	if err != nil {
		return nil, err
	}

	var milestones []*model.Milestone
	err = r.db.SelectContext(ctx, &milestones, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return milestones, nil
}

// CreateMilestones adds checkpoints to an existing goal in one transaction
func (r *goalRepository) CreateMilestones(ctx context.Context, goalID string, milestones []*model.Milestone) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = insertMilestones(ctx, tx, goalID, milestones)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *goalRepository) ProgressLog(ctx context.Context, goalIDs []string, since time.Time) ([]*model.ProgressLogEntry, error) {
	if len(goalIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM goal_progress_log
		WHERE goal_id IN (?) AND recorded_at >= ?
		ORDER BY recorded_at ASC`, goalIDs, since.UTC())
	if err != nil {
		return nil, err
	}

	var entries []*model.ProgressLogEntry
	err = r.db.SelectContext(ctx, &entries, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// ApplyProgress is the only path that changes current_value. The goal row is locked on Postgres
// and guarded by version on every driver; goal, milestone flips and log row commit together.
func (r *goalRepository) ApplyProgress(ctx context.Context, userID, goalID string, fn ProgressFunc) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `SELECT * FROM goals WHERE id = $1 AND user_id = $2`
	if r.db.DriverName() == "pgx" {
		query += ` FOR UPDATE`
	}

	goal := &model.Goal{}
	err = tx.GetContext(ctx, goal, query, goalID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrGoalNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load goal: %w", err)
	}

	var milestones []*model.Milestone
	err = tx.SelectContext(ctx, &milestones,
		`SELECT * FROM goal_milestones WHERE goal_id = $1 ORDER BY milestone_value ASC`, goalID)
	if err != nil {
		return fmt.Errorf("failed to load milestones: %w", err)
	}

	readVersion := goal.Version
	write, err := fn(goal, milestones)
	if err != nil {
		return err
	}
	if write == nil {
		write = &ProgressWrite{}
	}

	normalizeGoalTimes(goal)
	result, err := tx.ExecContext(ctx, `UPDATE goals
		SET current_value = $1, status = $2, completed_at = $3, updated_at = $4, version = version + 1
		WHERE id = $5 AND version = $6`,
		goal.CurrentValue,
		goal.Status,
		goal.CompletedAt,
		goal.UpdatedAt,
		goal.ID,
		readVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	for _, m := range write.Achieved {
		result, err := tx.ExecContext(ctx, `UPDATE goal_milestones
			SET is_achieved = $1, achieved_at = $2
			WHERE id = $3 AND is_achieved = $4`,
			true, utcPtr(m.AchievedAt), m.ID, false)
		if err != nil {
			return fmt.Errorf("failed to mark milestone %s: %w", m.ID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrVersionConflict
		}
	}

	if write.Entry != nil {
		e := write.Entry
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		e.GoalID = goal.ID
		e.RecordedAt = e.RecordedAt.UTC()
		_, err = tx.ExecContext(ctx, `INSERT INTO goal_progress_log
			(id, goal_id, previous_value, new_value, change_amount, progress_percentage, source, notes, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			e.ID, e.GoalID, e.PreviousValue, e.NewValue, e.ChangeAmount, e.ProgressPercentage, e.Source, e.Notes, e.RecordedAt)
		if err != nil {
			return fmt.Errorf("failed to append progress log: %w", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	goal.Version = readVersion + 1
	return nil
}

func insertMilestones(ctx context.Context, tx *sqlx.Tx, goalID string, milestones []*model.Milestone) error {
	query := `INSERT INTO goal_milestones (id, goal_id, milestone_percentage, milestone_value, is_achieved, achieved_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, m := range milestones {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		m.GoalID = goalID
		m.CreatedAt = m.CreatedAt.UTC()
		_, err := tx.ExecContext(ctx, query, m.ID, m.GoalID, m.MilestonePercentage, m.MilestoneValue, m.IsAchieved, utcPtr(m.AchievedAt), m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create milestone %.0f%%: %w", m.MilestonePercentage, err)
		}
	}
	return nil
}

// Timestamps are stored in UTC so string-typed SQLite columns compare in instant order.
func normalizeGoalTimes(g *model.Goal) {
	g.StartDate = g.StartDate.UTC()
	g.TargetDate = g.TargetDate.UTC()
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	g.CompletedAt = utcPtr(g.CompletedAt)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
