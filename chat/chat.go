// Package chat orchestrates the conversational flows: sending a message
// through the index, registering repositories, and keeping the local
// repository records in step with the remote API.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/repochat"
	"github.com/fwojciec/repochat/metrics"
	"golang.org/x/sync/errgroup"
)

// Exchange is one question/answer round trip. Both messages are
// persisted to the chat history, linked through ParentID.
type Exchange struct {
	Question *repochat.Message
	Answer   *repochat.Message
	Result   *repochat.SearchResult
	Cached   bool
}

// Service wires the remote index, the local store and the result cache
// into the chat flows.
type Service struct {
	index   repochat.IndexService
	repos   repochat.RepositoryService
	history repochat.HistoryService
	cache   repochat.SearchCache
	metrics *metrics.Registry
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables search result caching.
func WithCache(cache repochat.SearchCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithMetrics sets the registry that receives chat metrics.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Service) {
		s.metrics = reg
	}
}

// NewService creates a chat service.
func NewService(index repochat.IndexService, repos repochat.RepositoryService, history repochat.HistoryService, opts ...Option) *Service {
	s := &Service{index: index, repos: repos, history: history}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendMessage runs one exchange: the question is validated and stored,
// the index is queried (through the cache when possible), and the answer
// is stored as a reply.
//
// When repositoryIDs is empty the question is scoped to every active
// repository. The cache is keyed by query and search type only, so
// explicitly scoped questions bypass it.
func (s *Service) SendMessage(ctx context.Context, text string, searchType repochat.SearchType, repositoryIDs []string) (*Exchange, error) {
	if searchType == "" {
		searchType = repochat.SearchChunks
	}

	question := &repochat.Message{
		Text:          text,
		Role:          "user",
		SearchType:    searchType,
		RepositoryIDs: repositoryIDs,
	}
	if err := question.Validate(); err != nil {
		return nil, err
	}

	scoped := len(repositoryIDs) > 0
	if !scoped {
		active, err := s.activeRepositoryIDs(ctx)
		if err != nil {
			return nil, err
		}
		if len(active) == 0 {
			return nil, repochat.Errorf(repochat.EINVALID, "no active repositories to search")
		}
		repositoryIDs = active
	}

	var result *repochat.SearchResult
	var cached bool
	if s.cache != nil && !scoped {
		result, cached = s.cache.Get(text, searchType)
	}
	if result == nil {
		start := time.Now()
		r, err := s.index.Search(ctx, text, searchType, repositoryIDs)
		if s.metrics != nil {
			s.metrics.RecordTime("chat.search_time", time.Since(start))
		}
		if err != nil {
			return nil, err
		}
		result = r
		if s.cache != nil && !scoped {
			s.cache.Set(text, searchType, result)
		}
	}

	if err := s.history.CreateMessage(ctx, question); err != nil {
		return nil, err
	}

	answerText := result.Answer
	if answerText == "" {
		answerText = fmt.Sprintf("(no answer; %d matches)", len(result.Hits))
	}
	answer := &repochat.Message{
		Text:          answerText,
		Role:          "assistant",
		SearchType:    searchType,
		RepositoryIDs: repositoryIDs,
		ParentID:      question.ID,
	}
	if err := s.history.CreateMessage(ctx, answer); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Increment("chat.exchanges")
	}

	return &Exchange{Question: question, Answer: answer, Result: result, Cached: cached}, nil
}

// activeRepositoryIDs returns the dataset IDs of every active repository.
func (s *Service) activeRepositoryIDs(ctx context.Context) ([]string, error) {
	isActive := true
	repos, err := s.repos.FindRepositories(ctx, repochat.RepositoryFilter{IsActive: &isActive})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(repos))
	for _, repo := range repos {
		ids = append(ids, repo.ID)
	}
	return ids, nil
}

// AddRepositories registers the given repositories with the index and
// records them locally. Registrations run concurrently so the index
// client can coalesce them into bulk requests.
func (s *Service) AddRepositories(ctx context.Context, reqs []repochat.AddRequest) ([]*repochat.Repository, error) {
	if len(reqs) == 0 {
		return nil, repochat.Errorf(repochat.EINVALID, "at least one repository required")
	}

	repos := make([]*repochat.Repository, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.index.AddRepository(ctx, req)
			if err != nil {
				return err
			}
			repo := &repochat.Repository{
				ID:       res.DatasetID,
				URL:      req.URL,
				Branch:   req.Branch,
				Status:   res.Status,
				IsActive: true,
			}
			if repo.Status == "" {
				repo.Status = repochat.StatusSyncing
			}
			if err := s.repos.CreateRepository(ctx, repo); err != nil {
				return err
			}
			repos[i] = repo
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Clear()
	}
	return repos, nil
}

// SyncRepository triggers re-indexing of a repository and records the
// outcome locally. Cached answers are dropped since the index content
// changes underneath them.
func (s *Service) SyncRepository(ctx context.Context, id string) (*repochat.Repository, error) {
	syncing := repochat.StatusSyncing
	if _, err := s.repos.UpdateRepository(ctx, id, repochat.RepositoryUpdate{Status: &syncing}); err != nil {
		return nil, err
	}

	if err := s.index.SyncRepository(ctx, id); err != nil {
		status := repochat.StatusError
		msg := repochat.ErrorMessage(err)
		// Best effort: the sync failure is the error worth reporting.
		s.repos.UpdateRepository(ctx, id, repochat.RepositoryUpdate{Status: &status, ErrorMessage: &msg})
		return nil, err
	}

	status := repochat.StatusActive
	now := time.Now().UTC()
	cleared := ""
	repo, err := s.repos.UpdateRepository(ctx, id, repochat.RepositoryUpdate{
		Status:       &status,
		LastSyncAt:   &now,
		ErrorMessage: &cleared,
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Clear()
	}
	return repo, nil
}

// ToggleRepository flips whether a repository participates in default
// search scope. Cached answers are dropped since the scope they were
// computed for no longer holds.
func (s *Service) ToggleRepository(ctx context.Context, id string) (*repochat.Repository, error) {
	repo, err := s.repos.FindRepositoryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	active := !repo.IsActive
	repo, err = s.repos.UpdateRepository(ctx, id, repochat.RepositoryUpdate{IsActive: &active})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Clear()
	}
	return repo, nil
}

// DeleteRepository removes a repository from the index and the local
// store. A dataset already gone from the index is not an error.
func (s *Service) DeleteRepository(ctx context.Context, id string) error {
	if err := s.index.DeleteRepository(ctx, id); err != nil && repochat.ErrorCode(err) != repochat.ENOTFOUND {
		return err
	}
	if err := s.repos.DeleteRepository(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Clear()
	}
	return nil
}

// RefreshStatus pulls the index API's view of every dataset and folds it
// into the local records. Unknown datasets are reported but not created.
func (s *Service) RefreshStatus(ctx context.Context) ([]repochat.RepositoryState, error) {
	states, err := s.index.Status(ctx)
	if err != nil {
		return nil, err
	}

	for _, state := range states {
		upd := repochat.RepositoryUpdate{Status: &state.Status}
		if state.ErrorMessage != "" {
			upd.ErrorMessage = &state.ErrorMessage
		}
		if _, err := s.repos.UpdateRepository(ctx, state.DatasetID, upd); err != nil {
			if repochat.ErrorCode(err) == repochat.ENOTFOUND {
				continue
			}
			return nil, err
		}
	}

	return states, nil
}
