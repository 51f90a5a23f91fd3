package routes

import (
	"net/http"
	"time"

	"github.com/templui/goalpulse/internal/app"
	"github.com/templui/goalpulse/internal/handler"
	"github.com/templui/goalpulse/internal/middleware"
)

func SetupRoutes(app *app.App, limiter *middleware.RateLimiter) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	goal := handler.NewGoalHandler(app.GoalService, app.ProgressService, app.ProjectionService)
	challenge := handler.NewChallengeHandler(app.ChallengeService)
	metrics := handler.NewMetricsHandler(app.MetricSyncService, app.Cfg.SuggestionMultiplier)
	export := handler.NewExportHandler(app.ExportService)

	if limiter == nil {
		limiter = middleware.NewRateLimiter(10, time.Minute)
	}

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Health)

	// ============================================================================
	// PROTECTED ROUTES (/api/*)
	// ============================================================================

	// Goals
	mux.HandleFunc("GET /api/goals", middleware.RequireAuth(goal.List))
	mux.HandleFunc("POST /api/goals", middleware.RequireAuth(goal.Create))
	mux.HandleFunc("GET /api/goals/export", middleware.RequireAuth(export.Export))
	mux.HandleFunc("GET /api/goals/{id}", middleware.RequireAuth(goal.Get))
	mux.HandleFunc("PUT /api/goals/{id}", middleware.RequireAuth(goal.Update))
	mux.HandleFunc("DELETE /api/goals/{id}", middleware.RequireAuth(goal.Delete))

	// Progress
	mux.HandleFunc("POST /api/goals/{id}/progress", middleware.RequireAuth(goal.UpdateProgress))
	mux.HandleFunc("GET /api/goals/{id}/history", middleware.RequireAuth(goal.History))
	mux.HandleFunc("GET /api/goals/{id}/projection", middleware.RequireAuth(goal.Projection))
	mux.HandleFunc("GET /api/analytics", middleware.RequireAuth(goal.Analytics))

	// Challenges (generation rate limited per user)
	mux.HandleFunc("GET /api/challenges", middleware.RequireAuth(challenge.List))
	mux.HandleFunc("POST /api/challenges", middleware.RequireAuth(limiter.Limit(challenge.Generate)))

	// Metrics (sync rate limited per user)
	mux.HandleFunc("POST /api/metrics/sync", middleware.RequireAuth(limiter.Limit(metrics.Sync)))
	mux.HandleFunc("GET /api/metrics/suggestion", middleware.RequireAuth(metrics.Suggestion))

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.RequestLogging,
		middleware.Config(app.Cfg),
		middleware.AuthMiddleware(app.AuthService, app.SubscriptionService),
	)
}
