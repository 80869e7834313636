// Package slog provides logging decorators for repochat services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/repochat"
)

// Ensure LoggingIndexService implements repochat.IndexService.
var _ repochat.IndexService = (*LoggingIndexService)(nil)

// LoggingIndexService wraps an IndexService with per-call logging.
type LoggingIndexService struct {
	next   repochat.IndexService
	logger *slog.Logger
}

// NewLoggingIndexService creates a new LoggingIndexService.
func NewLoggingIndexService(next repochat.IndexService, logger *slog.Logger) *LoggingIndexService {
	return &LoggingIndexService{next: next, logger: logger}
}

// Search delegates to the wrapped service and logs the operation.
func (s *LoggingIndexService) Search(ctx context.Context, query string, searchType repochat.SearchType, repositoryIDs []string) (result *repochat.SearchResult, err error) {
	defer func(begin time.Time) {
		hits := 0
		if result != nil {
			hits = len(result.Hits)
		}
		s.logger.Info("index search",
			"search_type", string(searchType),
			"repositories", len(repositoryIDs),
			"hits", hits,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Search(ctx, query, searchType, repositoryIDs)
}

// AddRepository delegates to the wrapped service and logs the operation.
func (s *LoggingIndexService) AddRepository(ctx context.Context, req repochat.AddRequest) (result *repochat.AddResult, err error) {
	defer func(begin time.Time) {
		datasetID := ""
		if result != nil {
			datasetID = result.DatasetID
		}
		s.logger.Info("index add repository",
			"url", req.URL,
			"dataset_id", datasetID,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.AddRepository(ctx, req)
}

// DeleteRepository delegates to the wrapped service and logs the operation.
func (s *LoggingIndexService) DeleteRepository(ctx context.Context, datasetID string) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("index delete repository",
			"dataset_id", datasetID,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DeleteRepository(ctx, datasetID)
}

// SyncRepository delegates to the wrapped service and logs the operation.
func (s *LoggingIndexService) SyncRepository(ctx context.Context, datasetID string) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("index sync repository",
			"dataset_id", datasetID,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.SyncRepository(ctx, datasetID)
}

// Status delegates to the wrapped service and logs the operation.
func (s *LoggingIndexService) Status(ctx context.Context) (states []repochat.RepositoryState, err error) {
	defer func(begin time.Time) {
		s.logger.Info("index status",
			"datasets", len(states),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Status(ctx)
}

// PruneData delegates to the wrapped service and logs the operation.
func (s *LoggingIndexService) PruneData(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("index prune data",
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.PruneData(ctx)
}

// PruneSystem delegates to the wrapped service and logs the operation.
func (s *LoggingIndexService) PruneSystem(ctx context.Context, opts repochat.PruneOptions) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("index prune system",
			"metadata", opts.Metadata,
			"graph", opts.Graph,
			"vector", opts.Vector,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.PruneSystem(ctx, opts)
}
