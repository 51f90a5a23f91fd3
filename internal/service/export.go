package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/repository"
)

// ObjectStore is the subset of object storage the export needs.
type ObjectStore interface {
	Save(ctx context.Context, path string, body io.Reader) error
	PresignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

type ExportedGoal struct {
	*model.Goal
	Milestones []*model.Milestone `json:"milestones"`
	Projection Projection         `json:"projection"`
}

type GoalExport struct {
	UserID     string          `json:"user_id"`
	ExportedAt time.Time       `json:"exported_at"`
	Goals      []*ExportedGoal `json:"goals"`
}

// ExportResult holds either a download URL (object storage configured) or the raw document.
type ExportResult struct {
	Filename string
	URL      string
	Data     []byte
}

type ExportService struct {
	repo          repository.GoalRepository
	subscriptions *SubscriptionService
	projections   *ProjectionService
	store         ObjectStore
	urlExpiry     time.Duration
	now           Clock
}

func NewExportService(
	repo repository.GoalRepository,
	subscriptions *SubscriptionService,
	projections *ProjectionService,
	store ObjectStore,
	urlExpiry time.Duration,
	now Clock,
) *ExportService {
	if now == nil {
		now = SystemClock
	}
	return &ExportService{
		repo:          repo,
		subscriptions: subscriptions,
		projections:   projections,
		store:         store,
		urlExpiry:     urlExpiry,
		now:           now,
	}
}

// ExportGoals serialises all of the user's goals with milestones and projections as JSON.
// Requires the export feature.
func (s *ExportService) ExportGoals(ctx context.Context, userID string) (*ExportResult, error) {
	sub, err := s.subscriptions.Subscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !sub.HasFeature(model.FeatureExport) {
		return nil, ErrFeatureUnavailable
	}

	goals, err := s.repo.Goals(ctx, repository.GoalFilter{UserID: userID, SortBy: repository.GoalSortRecent})
	if err != nil {
		return nil, storeErr("list goals", err)
	}

	ids := make([]string, 0, len(goals))
	for _, g := range goals {
		ids = append(ids, g.ID)
	}
	milestones, err := s.repo.Milestones(ctx, ids...)
	if err != nil {
		return nil, storeErr("load milestones", err)
	}
	byGoal := make(map[string][]*model.Milestone, len(goals))
	for _, m := range milestones {
		byGoal[m.GoalID] = append(byGoal[m.GoalID], m)
	}

	now := s.now()
	doc := GoalExport{UserID: userID, ExportedAt: now, Goals: make([]*ExportedGoal, 0, len(goals))}
	for _, g := range goals {
		ms := byGoal[g.ID]
		if ms == nil {
			ms = []*model.Milestone{}
		}
		doc.Goals = append(doc.Goals, &ExportedGoal{
			Goal:       g,
			Milestones: ms,
			Projection: s.projections.ProjectGoal(g, ms),
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	filename := fmt.Sprintf("goals-%s.json", now.Format("20060102-150405"))
	if s.store == nil {
		return &ExportResult{Filename: filename, Data: data}, nil
	}

	path := fmt.Sprintf("exports/%s/%s", userID, filename)
	err = s.store.Save(ctx, path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: upload export: %w", ErrExternalService, err)
	}

	url, err := s.store.PresignedURL(ctx, path, s.urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("%w: presign export: %w", ErrExternalService, err)
	}

	return &ExportResult{Filename: filename, URL: url}, nil
}
