package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Get(ctx context.Context, id string) (Principal, error)
	FindByEmails(ctx context.Context, emails []string) ([]Principal, error)
	Create(ctx context.Context, p Principal) (Principal, error)
}

// CreatedHook runs once after a principal row is committed.
type CreatedHook interface {
	PrincipalCreated(ctx context.Context, p Principal) error
}

// Service handles user business logic.
type Service struct {
	repo      RepositoryPort
	hook      CreatedHook
	validator *validator.Validate
	logger    *slog.Logger
}

// NewService builds Service instance. hook may be nil.
func NewService(repo RepositoryPort, hook CreatedHook, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hook: hook, validator: validator.New(), logger: logger}
}

// Create registers an account and then materialises any access that was
// granted to its email before it existed. When the backfill fails the created
// principal is still returned alongside a *BackfillError.
func (s *Service) Create(ctx context.Context, in CreateInput) (Principal, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Struct(in); err != nil {
		return Principal{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	p, err := s.repo.Create(ctx, Principal{ID: uuid.NewString(), Email: in.Email, Name: in.Name})
	if err != nil {
		return Principal{}, err
	}
	s.logger.Info("principal created", slog.String("principal_id", p.ID))
	if s.hook == nil {
		return p, nil
	}
	if err := s.hook.PrincipalCreated(ctx, p); err != nil {
		s.logger.Error("principal backfill", slog.String("principal_id", p.ID), slog.Any("error", err))
		return p, &BackfillError{PrincipalID: p.ID, Err: err}
	}
	return p, nil
}

// Get returns a principal by id.
func (s *Service) Get(ctx context.Context, id string) (Principal, error) {
	return s.repo.Get(ctx, id)
}
