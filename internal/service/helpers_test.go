package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/templui/goalpulse/internal/db"
	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/repository"
	"github.com/templui/goalpulse/internal/textgen"
)

// Wednesday afternoon.
var testNow = time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

type fixedRand int

func (r fixedRand) IntN(n int) int {
	return int(r) % n
}

type testStore struct {
	db    *sqlx.DB
	goals repository.GoalRepository
	subs  repository.SubscriptionRepository
	users repository.UserRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "goals.db") +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate&_time_format=sqlite"
	conn, err := db.Init("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(conn) })
	require.NoError(t, db.RunMigrations(conn.DB, "sqlite"))

	return &testStore{
		db:    conn,
		goals: repository.NewGoalRepository(conn),
		subs:  repository.NewSubscriptionRepository(conn),
		users: repository.NewUserRepository(conn),
	}
}

func (s *testStore) setPlan(t *testing.T, userID, plan string) {
	t.Helper()
	_, err := NewSubscriptionService(s.subs, fixedClock(testNow)).ChangePlan(context.Background(), userID, plan)
	require.NoError(t, err)
}

// seedGoal inserts an active followers goal (0 -> 1000 over 60 days centred on testNow) with milestones at percentages.
func (s *testStore) seedGoal(t *testing.T, userID string, mutate func(*model.Goal), percentages ...float64) *model.Goal {
	t.Helper()

	goal := &model.Goal{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       "Grow audience",
		GoalType:    model.GoalTypeFollowers,
		Platform:    model.PlatformTwitter,
		TargetValue: 1000,
		StartDate:   testNow.AddDate(0, 0, -30),
		TargetDate:  testNow.AddDate(0, 0, 30),
		Status:      model.GoalStatusActive,
		Priority:    model.PriorityMedium,
		CreatedAt:   testNow.AddDate(0, 0, -30),
		UpdatedAt:   testNow.AddDate(0, 0, -30),
	}
	if mutate != nil {
		mutate(goal)
	}

	var milestones []*model.Milestone
	if len(percentages) > 0 {
		milestones = buildMilestones(goal.TargetValue, percentages, goal.CreatedAt)
	}
	require.NoError(t, s.goals.Create(context.Background(), goal, milestones))
	return goal
}

func (s *testStore) milestones(t *testing.T, goalID string) []*model.Milestone {
	t.Helper()
	ms, err := s.goals.Milestones(context.Background(), goalID)
	require.NoError(t, err)
	return ms
}

func (s *testStore) reload(t *testing.T, goal *model.Goal) *model.Goal {
	t.Helper()
	got, err := s.goals.ByID(context.Background(), goal.UserID, goal.ID)
	require.NoError(t, err)
	return got
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) GoalCompleted(ctx context.Context, goal *model.Goal) error {
	args := m.Called(ctx, goal)
	return args.Error(0)
}

func (m *mockNotifier) MilestoneAchieved(ctx context.Context, goal *model.Goal, milestone *model.Milestone) error {
	args := m.Called(ctx, goal, milestone)
	return args.Error(0)
}

type mockTextGenerator struct {
	mock.Mock
}

func (m *mockTextGenerator) Generate(ctx context.Context, prompt textgen.Prompt) (*textgen.Text, error) {
	args := m.Called(ctx, prompt)
	text, _ := args.Get(0).(*textgen.Text)
	return text, args.Error(1)
}

type mockMetrics struct {
	mock.Mock
}

func (m *mockMetrics) Snapshots(ctx context.Context, userID string) ([]model.MetricSnapshot, error) {
	args := m.Called(ctx, userID)
	snaps, _ := args.Get(0).([]model.MetricSnapshot)
	return snaps, args.Error(1)
}
