package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/repository"
	"github.com/templui/goalpulse/internal/textgen"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TextGenerator phrases a challenge. Any error or empty result triggers the template fallback.
type TextGenerator interface {
	Generate(ctx context.Context, prompt textgen.Prompt) (*textgen.Text, error)
}

// challengeTypesByGoal restricts the pick when a parent goal is given. Order matters for reproducible picks.
var challengeTypesByGoal = map[string][]string{
	model.GoalTypeFollowers:      {model.ChallengeTypeContentGeneration, model.ChallengeTypeSchedulePost, model.ChallengeTypeEngageFollowers},
	model.GoalTypeEngagementRate: {model.ChallengeTypeEngageFollowers, model.ChallengeTypeContentGeneration, model.ChallengeTypeStyleAnalysis},
	model.GoalTypePostsCount:     {model.ChallengeTypeContentGeneration, model.ChallengeTypeSchedulePost, model.ChallengeTypeAdaptContent},
	model.GoalTypeLikes:          {model.ChallengeTypeEngageFollowers, model.ChallengeTypeContentGeneration},
	model.GoalTypeComments:       {model.ChallengeTypeEngageFollowers, model.ChallengeTypeContentGeneration},
	model.GoalTypeShares:         {model.ChallengeTypeEngageFollowers, model.ChallengeTypeContentGeneration},
	model.GoalTypeImpressions:    {model.ChallengeTypeContentGeneration, model.ChallengeTypeAdaptContent, model.ChallengeTypeSchedulePost},
}

// challengeBaseTargets is the daily task count per challenge type and plan.
var challengeBaseTargets = map[string]map[string]int{
	model.ChallengeTypeContentGeneration: {model.SubscriptionPlanFree: 1, model.SubscriptionPlanPro: 3, model.SubscriptionPlanAgency: 5},
	model.ChallengeTypeStyleAnalysis:     {model.SubscriptionPlanFree: 1, model.SubscriptionPlanPro: 2, model.SubscriptionPlanAgency: 3},
	model.ChallengeTypeAdaptContent:      {model.SubscriptionPlanFree: 1, model.SubscriptionPlanPro: 2, model.SubscriptionPlanAgency: 4},
	model.ChallengeTypeSchedulePost:      {model.SubscriptionPlanFree: 2, model.SubscriptionPlanPro: 5, model.SubscriptionPlanAgency: 10},
	model.ChallengeTypeEngageFollowers:   {model.SubscriptionPlanFree: 5, model.SubscriptionPlanPro: 10, model.SubscriptionPlanAgency: 20},
}

var challengeBaseXP = map[string]int{
	model.SubscriptionPlanFree:   50,
	model.SubscriptionPlanPro:    100,
	model.SubscriptionPlanAgency: 150,
}

var challengeMilestonePercentages = []float64{50, 100}

type ChallengeService struct {
	repo          repository.GoalRepository
	subscriptions *SubscriptionService
	text          TextGenerator
	textTimeout   time.Duration
	now           Clock
	rand          Rand
}

func NewChallengeService(
	repo repository.GoalRepository,
	subscriptions *SubscriptionService,
	text TextGenerator,
	textTimeout time.Duration,
	now Clock,
	rand Rand,
) *ChallengeService {
	if now == nil {
		now = SystemClock
	}
	if rand == nil {
		rand = DefaultRand
	}
	if textTimeout <= 0 {
		textTimeout = 8 * time.Second
	}
	return &ChallengeService{
		repo:          repo,
		subscriptions: subscriptions,
		text:          text,
		textTimeout:   textTimeout,
		now:           now,
		rand:          rand,
	}
}

// GenerateChallenge creates a short-lived challenge goal, optionally derived from parentGoalID.
// Text generation problems never fail the call; only validation, ownership and the goal insert can.
func (s *ChallengeService) GenerateChallenge(ctx context.Context, userID, parentGoalID, frequency string) (*model.Goal, error) {
	if !model.IsValidChallengeFrequency(frequency) {
		return nil, validationErr("unsupported challenge frequency %q", frequency)
	}

	var parent *model.Goal
	if parentGoalID != "" {
		var err error
		parent, err = s.repo.ByID(ctx, userID, parentGoalID)
		if err != nil {
			return nil, storeErr("load parent goal", err)
		}
	}

	now := s.now()
	allowed := allowedChallengeTypes(parent)
	challengeType := allowed[s.rand.IntN(len(allowed))]

	tier := s.subscriptions.Tier(ctx, userID)
	multiplier := model.FrequencyMultiplier(frequency)
	target := float64(challengeBaseTargets[challengeType][tier] * multiplier)
	xp := challengeBaseXP[tier] * multiplier

	prompt := textgen.Prompt{
		Frequency:     frequency,
		ChallengeType: challengeType,
		TargetValue:   target,
		RewardXP:      xp,
	}
	goalType, platform := challengeGoalType(challengeType), model.PlatformAll
	if parent != nil {
		goalType, platform = parent.GoalType, parent.Platform
		prompt.ParentTitle = parent.Title
		prompt.ParentGoalType = parent.GoalType
	}
	prompt.Platform = platform

	text := s.challengeText(ctx, prompt)

	challenge := &model.Goal{
		ID:                 uuid.New().String(),
		UserID:             userID,
		Title:              text.Title,
		Description:        text.Description,
		GoalType:           goalType,
		Platform:           platform,
		StartValue:         0,
		CurrentValue:       0,
		TargetValue:        target,
		StartDate:          now,
		TargetDate:         challengeTargetDate(now, frequency),
		Status:             model.GoalStatusActive,
		Priority:           model.PriorityMedium,
		IsChallenge:        true,
		ChallengeFrequency: &frequency,
		ChallengeType:      &challengeType,
		ChallengeRewardXP:  xp,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if parent != nil {
		challenge.ParentGoalID = &parent.ID
	}

	err := s.repo.Create(ctx, challenge, nil)
	if err != nil {
		return nil, storeErr("create challenge", err)
	}

	if target > 1 {
		milestones := buildMilestones(target, challengeMilestonePercentages, now)
		err = s.repo.CreateMilestones(ctx, challenge.ID, milestones)
		if err != nil {
			slog.Warn("failed to create challenge milestones", "error", err, "goal_id", challenge.ID)
		}
	}

	slog.Info("challenge generated",
		"goal_id", challenge.ID,
		"user_id", userID,
		"type", challengeType,
		"frequency", frequency,
		"tier", tier,
	)
	return challenge, nil
}

func (s *ChallengeService) ActiveChallenges(ctx context.Context, userID string) ([]*model.Goal, error) {
	challenges, err := s.repo.ActiveChallenges(ctx, userID, s.now())
	if err != nil {
		return nil, storeErr("list challenges", err)
	}
	return challenges, nil
}

// challengeText calls the generator under its own deadline and falls back to the template.
func (s *ChallengeService) challengeText(ctx context.Context, prompt textgen.Prompt) textgen.Text {
	if s.text == nil {
		return fallbackChallengeText(prompt)
	}

	ctx, cancel := context.WithTimeout(ctx, s.textTimeout)
	defer cancel()

	text, err := s.text.Generate(ctx, prompt)
	if err == nil && text != nil && strings.TrimSpace(text.Title) != "" && strings.TrimSpace(text.Description) != "" {
		return *text
	}
	if err == nil {
		err = textgen.ErrEmptyResponse
	}

	slog.Warn("challenge text generation failed, using template",
		"error", fmt.Errorf("%w: %w", ErrExternalService, err),
		"timeout", errors.Is(err, context.DeadlineExceeded),
		"type", prompt.ChallengeType,
	)
	return fallbackChallengeText(prompt)
}

func fallbackChallengeText(p textgen.Prompt) textgen.Text {
	typePhrase := strings.ReplaceAll(p.ChallengeType, "_", " ")
	return textgen.Text{
		Title: fmt.Sprintf("%s %s Challenge", titleCase(p.Frequency), titleCase(typePhrase)),
		Description: fmt.Sprintf("Complete %s %s tasks to earn %d XP.",
			strconv.FormatFloat(p.TargetValue, 'f', -1, 64), typePhrase, p.RewardXP),
	}
}

// titleCase capitalizes each space or hyphen separated word: "one-time" -> "One-Time".
func titleCase(s string) string {
	caser := cases.Title(language.English)
	words := strings.Fields(s)
	for i, w := range words {
		parts := strings.Split(w, "-")
		for j, p := range parts {
			parts[j] = caser.String(p)
		}
		words[i] = strings.Join(parts, "-")
	}
	return strings.Join(words, " ")
}

func allowedChallengeTypes(parent *model.Goal) []string {
	if parent != nil {
		if types, ok := challengeTypesByGoal[parent.GoalType]; ok {
			return types
		}
	}
	return model.ChallengeTypes
}

func challengeGoalType(challengeType string) string {
	switch challengeType {
	case model.ChallengeTypeContentGeneration, model.ChallengeTypeSchedulePost:
		return model.GoalTypePostsCount
	case model.ChallengeTypeEngageFollowers:
		return model.GoalTypeEngagementRate
	default:
		return model.GoalTypeCustom
	}
}

// challengeTargetDate returns the deadline for frequency in now's location.
// Weekly ends on the coming Sunday; on a Sunday that is the following one.
func challengeTargetDate(now time.Time, frequency string) time.Time {
	switch frequency {
	case model.ChallengeFrequencyWeekly:
		days := (7 - int(now.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		return endOfDay(now.AddDate(0, 0, days))
	case model.ChallengeFrequencyOneTime:
		return endOfDay(now.AddDate(0, 0, 3))
	default:
		return endOfDay(now)
	}
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
