package service

import (
	"errors"
	"fmt"

	"github.com/templui/goalpulse/internal/repository"
)

// Error taxonomy surfaced to callers. Handlers map these to status codes with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrValidation      = errors.New("validation failed")
	ErrExternalService = errors.New("external service failed")
	ErrPersistence     = errors.New("persistence failed")

	ErrGoalLimitReached   = errors.New("plan goal limit reached")
	ErrFeatureUnavailable = errors.New("feature not available on current plan")
	ErrNoMetricValue      = errors.New("no metric value available")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeErr classifies a repository error: missing rows become ErrNotFound, anything else ErrPersistence.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrGoalNotFound),
		errors.Is(err, repository.ErrMilestoneNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrPersistence):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
	}
}
