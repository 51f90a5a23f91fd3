package model

const (
	ChallengeFrequencyDaily   = "daily"
	ChallengeFrequencyWeekly  = "weekly"
	ChallengeFrequencyOneTime = "one-time"
)

const (
	ChallengeTypeContentGeneration = "content_generation"
	ChallengeTypeStyleAnalysis     = "style_analysis"
	ChallengeTypeAdaptContent      = "adapt_content"
	ChallengeTypeSchedulePost      = "schedule_post"
	ChallengeTypeEngageFollowers   = "engage_followers"
)

// ChallengeTypes is the full taxonomy in a fixed order so random picks are reproducible.
var ChallengeTypes = []string{
	ChallengeTypeContentGeneration,
	ChallengeTypeStyleAnalysis,
	ChallengeTypeAdaptContent,
	ChallengeTypeSchedulePost,
	ChallengeTypeEngageFollowers,
}

func IsValidChallengeFrequency(f string) bool {
	switch f {
	case ChallengeFrequencyDaily, ChallengeFrequencyWeekly, ChallengeFrequencyOneTime:
		return true
	}
	return false
}

// FrequencyMultiplier scales both challenge target and reward.
func FrequencyMultiplier(frequency string) int {
	switch frequency {
	case ChallengeFrequencyWeekly:
		return 3
	case ChallengeFrequencyOneTime:
		return 2
	default:
		return 1
	}
}
