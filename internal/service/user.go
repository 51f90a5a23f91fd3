package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/repository"
	"github.com/templui/goalpulse/internal/validation"
)

const maxNameLength = 100

type UserService struct {
	repo repository.UserRepository
	now  Clock
}

func NewUserService(repo repository.UserRepository, now Clock) *UserService {
	if now == nil {
		now = SystemClock
	}
	return &UserService{repo: repo, now: now}
}

// Register provisions a notification address for a user id issued elsewhere.
// An empty id gets a fresh uuid.
func (s *UserService) Register(ctx context.Context, id, email, name string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, validationErr("%v", err)
	}
	name = strings.TrimSpace(name)
	if len(name) > maxNameLength {
		return nil, validationErr("name is too long (max %d characters)", maxNameLength)
	}
	if id == "" {
		id = uuid.New().String()
	}

	user := &model.User{
		ID:        id,
		Email:     email,
		Name:      name,
		CreatedAt: s.now(),
	}
	err := s.repo.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, fmt.Errorf("%w: %s is already registered", ErrInvalidState, email)
	}
	if err != nil {
		return nil, storeErr("create user", err)
	}
	return user, nil
}
