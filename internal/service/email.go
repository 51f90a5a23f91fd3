package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/repository"
)

// EmailNotifier mails goal owners about completions and milestones through Resend.
// In development it logs the message instead of sending it.
type EmailNotifier struct {
	client    *resend.Client
	users     repository.UserRepository
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailNotifier(apiKey, fromEmail, appURL, appName string, isDev bool, users repository.UserRepository) *EmailNotifier {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailNotifier{
		client:    client,
		users:     users,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
}

func (n *EmailNotifier) GoalCompleted(ctx context.Context, goal *model.Goal) error {
	user, err := n.users.ByID(ctx, goal.UserID)
	if err != nil {
		return fmt.Errorf("failed to load goal owner: %w", err)
	}

	subject, body := goalCompletedEmailTemplate(user.DisplayName(), goal, n.goalURL(goal), n.appName)
	return n.send(ctx, "goal_completed", user.Email, subject, body)
}

func (n *EmailNotifier) MilestoneAchieved(ctx context.Context, goal *model.Goal, milestone *model.Milestone) error {
	user, err := n.users.ByID(ctx, goal.UserID)
	if err != nil {
		return fmt.Errorf("failed to load goal owner: %w", err)
	}

	subject, body := milestoneAchievedEmailTemplate(user.DisplayName(), goal, milestone, n.goalURL(goal), n.appName)
	return n.send(ctx, "milestone_achieved", user.Email, subject, body)
}

func (n *EmailNotifier) goalURL(goal *model.Goal) string {
	return fmt.Sprintf("%s/goals/%s", n.appURL, goal.ID)
}

func (n *EmailNotifier) send(ctx context.Context, kind, to, subject, body string) error {
	if n.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject)
		return nil
	}

	if n.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    n.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := n.client.Emails.SendWithContext(ctx, params)
	if err == nil {
		slog.Info("email sent", "type", kind, "to", to)
	}
	return err
}
