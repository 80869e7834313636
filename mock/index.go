package mock

import (
	"context"

	"github.com/fwojciec/repochat"
)

var _ repochat.IndexService = (*IndexService)(nil)

// IndexService is a mock implementation of repochat.IndexService.
type IndexService struct {
	SearchFn           func(ctx context.Context, query string, searchType repochat.SearchType, repositoryIDs []string) (*repochat.SearchResult, error)
	AddRepositoryFn    func(ctx context.Context, req repochat.AddRequest) (*repochat.AddResult, error)
	DeleteRepositoryFn func(ctx context.Context, datasetID string) error
	SyncRepositoryFn   func(ctx context.Context, datasetID string) error
	StatusFn           func(ctx context.Context) ([]repochat.RepositoryState, error)
	PruneDataFn        func(ctx context.Context) error
	PruneSystemFn      func(ctx context.Context, opts repochat.PruneOptions) error
}

func (s *IndexService) Search(ctx context.Context, query string, searchType repochat.SearchType, repositoryIDs []string) (*repochat.SearchResult, error) {
	return s.SearchFn(ctx, query, searchType, repositoryIDs)
}

func (s *IndexService) AddRepository(ctx context.Context, req repochat.AddRequest) (*repochat.AddResult, error) {
	return s.AddRepositoryFn(ctx, req)
}

func (s *IndexService) DeleteRepository(ctx context.Context, datasetID string) error {
	return s.DeleteRepositoryFn(ctx, datasetID)
}

func (s *IndexService) SyncRepository(ctx context.Context, datasetID string) error {
	return s.SyncRepositoryFn(ctx, datasetID)
}

func (s *IndexService) Status(ctx context.Context) ([]repochat.RepositoryState, error) {
	return s.StatusFn(ctx)
}

func (s *IndexService) PruneData(ctx context.Context) error {
	return s.PruneDataFn(ctx)
}

func (s *IndexService) PruneSystem(ctx context.Context, opts repochat.PruneOptions) error {
	return s.PruneSystemFn(ctx, opts)
}
