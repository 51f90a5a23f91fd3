package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/repository"
)

const (
	PerformanceAhead   = "ahead"
	PerformanceOnTrack = "on_track"
	PerformanceBehind  = "behind"
)

const (
	day = 24 * time.Hour
	// performanceBand is the tolerance in percentage points around expected progress.
	performanceBand = 10.0
	// maxProjectionDays caps projected completion dates for goals with a near-zero pace.
	maxProjectionDays = 36500.0
	defaultTimeframe  = 30 * day
)

var timeframes = map[string]time.Duration{
	"7d":   7 * day,
	"30d":  30 * day,
	"90d":  90 * day,
	"365d": 365 * day,
}

type Projection struct {
	GoalID                  string           `json:"goal_id"`
	ProgressPercentage      float64          `json:"progress_percentage"`
	DaysRemaining           int              `json:"days_remaining"`
	DailyTarget             float64          `json:"daily_target"`
	CurrentPace             float64          `json:"current_pace"`
	ProjectedValue          float64          `json:"projected_value"`
	ProjectedCompletionDate time.Time        `json:"projected_completion_date"`
	IsOnTrack               bool             `json:"is_on_track"`
	NextMilestone           *model.Milestone `json:"next_milestone,omitempty"`
}

type AnalyticsFilter struct {
	Status    string
	Platform  string
	GoalType  string
	Timeframe time.Duration
}

type Overview struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Paused    int `json:"paused"`
	Cancelled int `json:"cancelled"`
	Overdue   int `json:"overdue"`
}

type GoalPerformance struct {
	GoalID           string  `json:"goal_id"`
	Title            string  `json:"title"`
	ExpectedProgress float64 `json:"expected_progress"`
	ActualProgress   float64 `json:"actual_progress"`
	Status           string  `json:"status"`
}

type MilestoneStats struct {
	Total           int     `json:"total"`
	Achieved        int     `json:"achieved"`
	AchievementRate float64 `json:"achievement_rate"`
}

type TrendPoint struct {
	Date            string  `json:"date"`
	AverageProgress float64 `json:"average_progress"`
	Updates         int     `json:"updates"`
}

type Breakdown struct {
	Key             string  `json:"key"`
	Count           int     `json:"count"`
	AverageProgress float64 `json:"average_progress"`
}

type Analytics struct {
	WindowStart             time.Time         `json:"window_start"`
	WindowEnd               time.Time         `json:"window_end"`
	Overview                Overview          `json:"overview"`
	CompletionRate          float64           `json:"completion_rate"`
	AverageProgress         float64           `json:"average_progress"`
	Performance             []GoalPerformance `json:"performance"`
	Milestones              MilestoneStats    `json:"milestones"`
	ProgressTrends          []TrendPoint      `json:"progress_trends"`
	AverageDaysToCompletion float64           `json:"average_days_to_completion"`
	ByPlatform              []Breakdown       `json:"by_platform"`
	ByGoalType              []Breakdown       `json:"by_goal_type"`
}

// ProjectionService is read-only: it never writes goal state.
type ProjectionService struct {
	repo repository.GoalRepository
	now  Clock
}

func NewProjectionService(repo repository.GoalRepository, now Clock) *ProjectionService {
	if now == nil {
		now = SystemClock
	}
	return &ProjectionService{repo: repo, now: now}
}

// ParseTimeframe accepts 7d, 30d, 90d or 365d. Empty means 30 days.
func ParseTimeframe(s string) (time.Duration, error) {
	if s == "" {
		return defaultTimeframe, nil
	}
	d, ok := timeframes[s]
	if !ok {
		return 0, validationErr("unsupported timeframe %q", s)
	}
	return d, nil
}

func (s *ProjectionService) Project(ctx context.Context, userID, goalID string) (*Projection, error) {
	goal, err := s.repo.ByID(ctx, userID, goalID)
	if err != nil {
		return nil, storeErr("load goal", err)
	}

	milestones, err := s.repo.Milestones(ctx, goalID)
	if err != nil {
		return nil, storeErr("load milestones", err)
	}

	p := s.ProjectGoal(goal, milestones)
	return &p, nil
}

// ProjectGoal computes pace and on-track status from the goal's dates and values at the clock's now.
func (s *ProjectionService) ProjectGoal(goal *model.Goal, milestones []*model.Milestone) Projection {
	return projectGoal(goal, milestones, s.now())
}

func projectGoal(goal *model.Goal, milestones []*model.Milestone, now time.Time) Projection {
	remaining, passed, _ := goalDays(goal, now)

	var dailyTarget float64
	if remaining > 0 {
		dailyTarget = (goal.TargetValue - goal.CurrentValue) / float64(remaining)
	}

	var pace float64
	if passed > 0 {
		pace = (goal.CurrentValue - goal.StartValue) / float64(passed)
	}

	projectedValue := goal.CurrentValue + pace*float64(remaining)

	completion := goal.TargetDate
	if pace > 0 {
		daysNeeded := math.Min(math.Max(goal.TargetValue-goal.CurrentValue, 0)/pace, maxProjectionDays)
		completion = now.Add(time.Duration(daysNeeded * float64(day)))
	}

	return Projection{
		GoalID:                  goal.ID,
		ProgressPercentage:      goal.ProgressPercentage(),
		DaysRemaining:           remaining,
		DailyTarget:             dailyTarget,
		CurrentPace:             pace,
		ProjectedValue:          projectedValue,
		ProjectedCompletionDate: completion,
		IsOnTrack:               projectedValue >= goal.TargetValue,
		NextMilestone:           nextMilestone(goal.CurrentValue, milestones),
	}
}

// goalDays returns days remaining (never negative), days passed and total days of the goal window.
func goalDays(goal *model.Goal, now time.Time) (remaining, passed, total int) {
	remaining = max(ceilDays(goal.TargetDate.Sub(now)), 0)
	total = ceilDays(goal.TargetDate.Sub(goal.StartDate))
	passed = total - remaining
	return remaining, passed, total
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

func nextMilestone(current float64, milestones []*model.Milestone) *model.Milestone {
	var next *model.Milestone
	for _, m := range milestones {
		if m.IsAchieved || m.MilestoneValue <= current {
			continue
		}
		if next == nil || m.MilestoneValue < next.MilestoneValue {
			next = m
		}
	}
	return next
}

// Analytics aggregates the user's non-challenge goals matching filter over [now-timeframe, now].
func (s *ProjectionService) Analytics(ctx context.Context, userID string, filter AnalyticsFilter) (*Analytics, error) {
	if filter.Status != "" && !model.IsValidStatus(filter.Status) {
		return nil, validationErr("unsupported status %q", filter.Status)
	}
	if filter.Platform != "" && !model.IsValidPlatform(filter.Platform) {
		return nil, validationErr("unsupported platform %q", filter.Platform)
	}
	if filter.GoalType != "" && !model.IsValidGoalType(filter.GoalType) {
		return nil, validationErr("unsupported goal type %q", filter.GoalType)
	}
	if filter.Timeframe <= 0 {
		filter.Timeframe = defaultTimeframe
	}

	notChallenge := false
	goals, err := s.repo.Goals(ctx, repository.GoalFilter{
		UserID:      userID,
		Status:      filter.Status,
		Platform:    filter.Platform,
		GoalType:    filter.GoalType,
		IsChallenge: &notChallenge,
	})
	if err != nil {
		return nil, storeErr("list goals", err)
	}

	now := s.now()
	windowStart := now.Add(-filter.Timeframe)
	goalIDs := lo.Map(goals, func(g *model.Goal, _ int) string { return g.ID })

	milestones, err := s.repo.Milestones(ctx, goalIDs...)
	if err != nil {
		return nil, storeErr("load milestones", err)
	}

	entries, err := s.repo.ProgressLog(ctx, goalIDs, windowStart)
	if err != nil {
		return nil, storeErr("load progress log", err)
	}

	return buildAnalytics(goals, milestones, entries, windowStart, now), nil
}

func buildAnalytics(goals []*model.Goal, milestones []*model.Milestone, entries []*model.ProgressLogEntry, windowStart, now time.Time) *Analytics {
	a := &Analytics{
		WindowStart:    windowStart,
		WindowEnd:      now,
		Performance:    []GoalPerformance{},
		ProgressTrends: []TrendPoint{},
	}

	for _, g := range goals {
		a.Overview.Total++
		switch g.Status {
		case model.GoalStatusActive:
			a.Overview.Active++
			if g.TargetDate.Before(now) {
				a.Overview.Overdue++
			}
			a.Performance = append(a.Performance, performanceOf(g, now))
		case model.GoalStatusCompleted:
			a.Overview.Completed++
		case model.GoalStatusPaused:
			a.Overview.Paused++
		case model.GoalStatusCancelled:
			a.Overview.Cancelled++
		}
	}

	a.CompletionRate = percentOf(a.Overview.Completed, a.Overview.Total)
	a.AverageProgress = meanBy(goals, (*model.Goal).ProgressPercentage)

	achieved := lo.CountBy(milestones, func(m *model.Milestone) bool { return m.IsAchieved })
	a.Milestones = MilestoneStats{
		Total:           len(milestones),
		Achieved:        achieved,
		AchievementRate: percentOf(achieved, len(milestones)),
	}

	a.ProgressTrends = progressTrends(entries, windowStart, now)

	completedInWindow := lo.Filter(goals, func(g *model.Goal, _ int) bool {
		return g.CompletedAt != nil && !g.CompletedAt.Before(windowStart) && !g.CompletedAt.After(now)
	})
	a.AverageDaysToCompletion = meanBy(completedInWindow, func(g *model.Goal) float64 {
		return g.CompletedAt.Sub(g.StartDate).Hours() / 24
	})

	a.ByPlatform = breakdown(goals, func(g *model.Goal) string { return g.Platform })
	a.ByGoalType = breakdown(goals, func(g *model.Goal) string { return g.GoalType })

	return a
}

func performanceOf(g *model.Goal, now time.Time) GoalPerformance {
	_, passed, total := goalDays(g, now)

	expected := 100.0
	if total > 0 {
		expected = math.Max(0, math.Min(100, float64(passed)/float64(total)*100))
	}
	actual := g.ProgressPercentage()

	status := PerformanceOnTrack
	switch {
	case actual >= expected+performanceBand:
		status = PerformanceAhead
	case actual < expected-performanceBand:
		status = PerformanceBehind
	}

	return GoalPerformance{
		GoalID:           g.ID,
		Title:            g.Title,
		ExpectedProgress: expected,
		ActualProgress:   actual,
		Status:           status,
	}
}

// progressTrends averages logged progress per calendar day (in now's location), oldest first.
func progressTrends(entries []*model.ProgressLogEntry, windowStart, now time.Time) []TrendPoint {
	inWindow := lo.Filter(entries, func(e *model.ProgressLogEntry, _ int) bool {
		return !e.RecordedAt.Before(windowStart) && !e.RecordedAt.After(now)
	})
	byDay := lo.GroupBy(inWindow, func(e *model.ProgressLogEntry) string {
		return e.RecordedAt.In(now.Location()).Format(time.DateOnly)
	})

	days := lo.Keys(byDay)
	sort.Strings(days)

	points := make([]TrendPoint, 0, len(days))
	for _, d := range days {
		rows := byDay[d]
		points = append(points, TrendPoint{
			Date:            d,
			AverageProgress: meanBy(rows, func(e *model.ProgressLogEntry) float64 { return e.ProgressPercentage }),
			Updates:         len(rows),
		})
	}
	return points
}

func breakdown(goals []*model.Goal, key func(*model.Goal) string) []Breakdown {
	groups := lo.GroupBy(goals, key)
	keys := lo.Keys(groups)
	sort.Strings(keys)

	out := make([]Breakdown, 0, len(keys))
	for _, k := range keys {
		out = append(out, Breakdown{
			Key:             k,
			Count:           len(groups[k]),
			AverageProgress: meanBy(groups[k], (*model.Goal).ProgressPercentage),
		})
	}
	return out
}

func meanBy[T any](items []T, f func(T) float64) float64 {
	if len(items) == 0 {
		return 0
	}
	return lo.SumBy(items, f) / float64(len(items))
}

func percentOf(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func (p Projection) String() string {
	return fmt.Sprintf("%.1f%% done, %d days left, pace %.2f/day, on track: %t",
		p.ProgressPercentage, p.DaysRemaining, p.CurrentPace, p.IsOnTrack)
}
