package mock

import (
	"context"

	"github.com/fwojciec/repochat"
)

var _ repochat.RepositoryService = (*RepositoryService)(nil)

// RepositoryService is a mock implementation of repochat.RepositoryService.
type RepositoryService struct {
	CreateRepositoryFn   func(ctx context.Context, repo *repochat.Repository) error
	FindRepositoryByIDFn func(ctx context.Context, id string) (*repochat.Repository, error)
	FindRepositoriesFn   func(ctx context.Context, filter repochat.RepositoryFilter) ([]*repochat.Repository, error)
	UpdateRepositoryFn   func(ctx context.Context, id string, upd repochat.RepositoryUpdate) (*repochat.Repository, error)
	DeleteRepositoryFn   func(ctx context.Context, id string) error
}

func (s *RepositoryService) CreateRepository(ctx context.Context, repo *repochat.Repository) error {
	return s.CreateRepositoryFn(ctx, repo)
}

func (s *RepositoryService) FindRepositoryByID(ctx context.Context, id string) (*repochat.Repository, error) {
	return s.FindRepositoryByIDFn(ctx, id)
}

func (s *RepositoryService) FindRepositories(ctx context.Context, filter repochat.RepositoryFilter) ([]*repochat.Repository, error) {
	return s.FindRepositoriesFn(ctx, filter)
}

func (s *RepositoryService) UpdateRepository(ctx context.Context, id string, upd repochat.RepositoryUpdate) (*repochat.Repository, error) {
	return s.UpdateRepositoryFn(ctx, id, upd)
}

func (s *RepositoryService) DeleteRepository(ctx context.Context, id string) error {
	return s.DeleteRepositoryFn(ctx, id)
}
