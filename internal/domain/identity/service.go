package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/rollcall/internal/repository"
)

// Service is the identity registry.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new identity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Upsert inserts the identity if absent, otherwise renames it.
// created reports whether a new row was inserted.
func (s *Service) Upsert(ctx context.Context, id int64, name string) (created bool, err error) {
	name = strings.TrimSpace(name)
	if id <= 0 || name == "" {
		return false, ErrInvalidInput
	}

	_, err = s.repo.Get(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if err := s.repo.Create(ctx, &Identity{ID: id, Name: name}); err != nil {
			return false, fmt.Errorf("creating identity: %w", err)
		}
		s.logger.Info("new student added", "id", id)
		return true, nil
	case err != nil:
		return false, fmt.Errorf("loading identity: %w", err)
	}

	if err := s.repo.Rename(ctx, id, name); err != nil {
		return false, fmt.Errorf("renaming identity: %w", err)
	}
	s.logger.Info("student name updated", "id", id)
	return false, nil
}

// Lookup resolves an id to its identity.
func (s *Service) Lookup(ctx context.Context, id int64) (*Identity, error) {
	ident, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("getting identity: %w", err)
	}
	return ident, nil
}

// Delete removes the identity row. Deleting an unknown id is a no-op.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting identity: %w", err)
	}
	if !existed {
		s.logger.Debug("delete of unknown identity ignored", "id", id)
	}
	return nil
}

// List returns all identities ordered by id.
func (s *Service) List(ctx context.Context) ([]Identity, error) {
	return s.repo.List(ctx)
}

// IDs returns the current identity set in ascending order.
func (s *Service) IDs(ctx context.Context) ([]int64, error) {
	idents, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing identities: %w", err)
	}
	ids := make([]int64, 0, len(idents))
	for _, ident := range idents {
		ids = append(ids, ident.ID)
	}
	return ids, nil
}
