package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/goalpulse/internal/db"
	"github.com/templui/goalpulse/internal/model"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "goals.db") +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate&_time_format=sqlite"
	conn, err := db.Init("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(conn) })

	require.NoError(t, db.RunMigrations(conn.DB, "sqlite"))
	return conn
}

func newGoal(userID string) *model.Goal {
	return &model.Goal{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        "Grow audience",
		GoalType:     model.GoalTypeFollowers,
		Platform:     model.PlatformTwitter,
		StartValue:   100,
		CurrentValue: 100,
		TargetValue:  1000,
		StartDate:    testNow.AddDate(0, 0, -10),
		TargetDate:   testNow.AddDate(0, 0, 20),
		Status:       model.GoalStatusActive,
		Priority:     model.PriorityMedium,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
}

func milestonesFor(target float64, percentages ...float64) []*model.Milestone {
	var out []*model.Milestone
	for _, pct := range percentages {
		out = append(out, &model.Milestone{
			MilestonePercentage: pct,
			MilestoneValue:      model.MilestoneValue(target, pct),
			CreatedAt:           testNow,
		})
	}
	return out
}
