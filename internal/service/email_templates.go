package service

import (
	"fmt"
	"strconv"

	"github.com/templui/goalpulse/internal/model"
)

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func goalCompletedEmailTemplate(name string, goal *model.Goal, goalURL, appName string) (string, string) {
	subject := fmt.Sprintf("Goal reached: %s", goal.Title)
	body := fmt.Sprintf(`Hi %s,

You hit your target of %s for "%s". Nice work!

See the full history: %s

Ready for the next one? A fresh challenge is a good way to keep the momentum.

Best,
The %s Team`, name, formatValue(goal.TargetValue), goal.Title, goalURL, appName)

	return subject, body
}

func milestoneAchievedEmailTemplate(name string, goal *model.Goal, milestone *model.Milestone, goalURL, appName string) (string, string) {
	subject := fmt.Sprintf("%.0f%% of the way to %s", milestone.MilestonePercentage, goal.Title)
	body := fmt.Sprintf(`Hi %s,

You passed the %.0f%% milestone (%s) on "%s". You're at %s of %s.

Track your pace: %s

Best,
The %s Team`, name, milestone.MilestonePercentage, formatValue(milestone.MilestoneValue), goal.Title,
		formatValue(goal.CurrentValue), formatValue(goal.TargetValue), goalURL, appName)

	return subject, body
}
