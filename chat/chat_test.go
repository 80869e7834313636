package chat_test

import (
	"context"
	"testing"

	"github.com/fwojciec/repochat"
	"github.com/fwojciec/repochat/chat"
	"github.com/fwojciec/repochat/lru"
	"github.com/fwojciec/repochat/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// historyRecorder is a HistoryService mock that stores created messages
// in order and assigns sequential IDs.
func historyRecorder(created *[]*repochat.Message) *mock.HistoryService {
	return &mock.HistoryService{
		CreateMessageFn: func(ctx context.Context, msg *repochat.Message) error {
			if err := msg.Validate(); err != nil {
				return err
			}
			msg.ID = string(rune('a' + len(*created)))
			*created = append(*created, msg)
			return nil
		},
	}
}

// activeRepos is a RepositoryService mock that reports the given IDs as
// active repositories.
func activeRepos(ids ...string) *mock.RepositoryService {
	return &mock.RepositoryService{
		FindRepositoriesFn: func(ctx context.Context, filter repochat.RepositoryFilter) ([]*repochat.Repository, error) {
			repos := make([]*repochat.Repository, len(ids))
			for i, id := range ids {
				repos[i] = &repochat.Repository{ID: id, URL: "https://github.com/example/" + id}
			}
			return repos, nil
		},
	}
}

func TestService_SendMessage(t *testing.T) {
	t.Parallel()

	t.Run("stores question and answer linked by parent ID", func(t *testing.T) {
		t.Parallel()

		var created []*repochat.Message
		var gotIDs []string
		index := &mock.IndexService{
			SearchFn: func(ctx context.Context, query string, searchType repochat.SearchType, repositoryIDs []string) (*repochat.SearchResult, error) {
				gotIDs = repositoryIDs
				return &repochat.SearchResult{Answer: "the pool holds five connections"}, nil
			},
		}
		svc := chat.NewService(index, activeRepos("ds-1", "ds-2"), historyRecorder(&created))

		ex, err := svc.SendMessage(context.Background(), "pool size?", repochat.SearchChunks, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"ds-1", "ds-2"}, gotIDs, "defaults to all active repositories")
		require.Len(t, created, 2)
		assert.Equal(t, "user", created[0].Role)
		assert.Equal(t, "assistant", created[1].Role)
		assert.Equal(t, created[0].ID, created[1].ParentID)
		assert.Equal(t, "the pool holds five connections", ex.Answer.Text)
		assert.False(t, ex.Cached)
	})

	t.Run("serves a repeated question from the cache", func(t *testing.T) {
		t.Parallel()

		var created []*repochat.Message
		searches := 0
		index := &mock.IndexService{
			SearchFn: func(ctx context.Context, query string, searchType repochat.SearchType, repositoryIDs []string) (*repochat.SearchResult, error) {
				searches++
				return &repochat.SearchResult{Answer: "answer"}, nil
			},
		}
		svc := chat.NewService(index, activeRepos("ds-1"), historyRecorder(&created),
			chat.WithCache(lru.NewSearchCache()))

		ctx := context.Background()
		first, err := svc.SendMessage(ctx, "question", repochat.SearchChunks, nil)
		require.NoError(t, err)
		second, err := svc.SendMessage(ctx, "question", repochat.SearchChunks, nil)
		require.NoError(t, err)

		assert.Equal(t, 1, searches, "second exchange should not hit the index")
		assert.False(t, first.Cached)
		assert.True(t, second.Cached)
		assert.Len(t, created, 4, "cached exchanges are still persisted")
	})

	t.Run("explicitly scoped questions bypass the cache", func(t *testing.T) {
		t.Parallel()

		var created []*repochat.Message
		searches := 0
		index := &mock.IndexService{
			SearchFn: func(ctx context.Context, query string, searchType repochat.SearchType, repositoryIDs []string) (*repochat.SearchResult, error) {
				searches++
				return &repochat.SearchResult{Answer: "answer"}, nil
			},
		}
		svc := chat.NewService(index, activeRepos("ds-1"), historyRecorder(&created),
			chat.WithCache(lru.NewSearchCache()))

		ctx := context.Background()
		_, err := svc.SendMessage(ctx, "question", repochat.SearchChunks, []string{"ds-1"})
		require.NoError(t, err)
		_, err = svc.SendMessage(ctx, "question", repochat.SearchChunks, []string{"ds-1"})
		require.NoError(t, err)

		assert.Equal(t, 2, searches)
	})

	t.Run("rejects an empty message", func(t *testing.T) {
		t.Parallel()

		svc := chat.NewService(&mock.IndexService{}, activeRepos("ds-1"), &mock.HistoryService{})

		_, err := svc.SendMessage(context.Background(), "", repochat.SearchChunks, nil)
		require.Error(t, err)
		assert.Equal(t, repochat.EINVALID, repochat.ErrorCode(err))
	})

	t.Run("fails when no repository is active", func(t *testing.T) {
		t.Parallel()

		svc := chat.NewService(&mock.IndexService{}, activeRepos(), &mock.HistoryService{})

		_, err := svc.SendMessage(context.Background(), "question", repochat.SearchChunks, nil)
		require.Error(t, err)
		assert.Equal(t, repochat.EINVALID, repochat.ErrorCode(err))
	})

	t.Run("defaults the search type to chunks", func(t *testing.T) {
		t.Parallel()

		var created []*repochat.Message
		var gotType repochat.SearchType
		index := &mock.IndexService{
			SearchFn: func(ctx context.Context, query string, searchType repochat.SearchType, repositoryIDs []string) (*repochat.SearchResult, error) {
				gotType = searchType
				return &repochat.SearchResult{Answer: "answer"}, nil
			},
		}
		svc := chat.NewService(index, activeRepos("ds-1"), historyRecorder(&created))

		_, err := svc.SendMessage(context.Background(), "question", "", nil)
		require.NoError(t, err)
		assert.Equal(t, repochat.SearchChunks, gotType)
	})

	t.Run("synthesizes answer text when the index returns only hits", func(t *testing.T) {
		t.Parallel()

		var created []*repochat.Message
		index := &mock.IndexService{
			SearchFn: func(ctx context.Context, query string, searchType repochat.SearchType, repositoryIDs []string) (*repochat.SearchResult, error) {
				return &repochat.SearchResult{Hits: []repochat.SearchHit{{Path: "a.go"}, {Path: "b.go"}}}, nil
			},
		}
		svc := chat.NewService(index, activeRepos("ds-1"), historyRecorder(&created))

		ex, err := svc.SendMessage(context.Background(), "question", repochat.SearchChunks, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, ex.Answer.Text, "assistant message must validate")
	})
}

func TestService_AddRepositories(t *testing.T) {
	t.Parallel()

	t.Run("registers remotely and records locally", func(t *testing.T) {
		t.Parallel()

		var createdLocal []*repochat.Repository
		index := &mock.IndexService{
			AddRepositoryFn: func(ctx context.Context, req repochat.AddRequest) (*repochat.AddResult, error) {
				return &repochat.AddResult{DatasetID: "ds-" + req.Branch, Status: repochat.StatusSyncing}, nil
			},
		}
		repos := &mock.RepositoryService{
			CreateRepositoryFn: func(ctx context.Context, repo *repochat.Repository) error {
				createdLocal = append(createdLocal, repo)
				return nil
			},
		}
		svc := chat.NewService(index, repos, &mock.HistoryService{})

		got, err := svc.AddRepositories(context.Background(), []repochat.AddRequest{
			{URL: "https://github.com/example/one", Branch: "one"},
			{URL: "https://github.com/example/two", Branch: "two"},
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "ds-one", got[0].ID)
		assert.Equal(t, "ds-two", got[1].ID)
		assert.True(t, got[0].IsActive)
		assert.Len(t, createdLocal, 2)
	})

	t.Run("fails when a registration fails", func(t *testing.T) {
		t.Parallel()

		index := &mock.IndexService{
			AddRepositoryFn: func(ctx context.Context, req repochat.AddRequest) (*repochat.AddResult, error) {
				return nil, repochat.Errorf(repochat.EUNAVAILABLE, "index down")
			},
		}
		svc := chat.NewService(index, &mock.RepositoryService{}, &mock.HistoryService{})

		_, err := svc.AddRepositories(context.Background(), []repochat.AddRequest{
			{URL: "https://github.com/example/one"},
		})
		require.Error(t, err)
		assert.Equal(t, repochat.EUNAVAILABLE, repochat.ErrorCode(err))
	})

	t.Run("rejects an empty request list", func(t *testing.T) {
		t.Parallel()

		svc := chat.NewService(&mock.IndexService{}, &mock.RepositoryService{}, &mock.HistoryService{})

		_, err := svc.AddRepositories(context.Background(), nil)
		require.Error(t, err)
		assert.Equal(t, repochat.EINVALID, repochat.ErrorCode(err))
	})
}

func TestService_SyncRepository(t *testing.T) {
	t.Parallel()

	t.Run("marks the repository active after a successful sync", func(t *testing.T) {
		t.Parallel()

		var statuses []repochat.RepositoryStatus
		repos := &mock.RepositoryService{
			UpdateRepositoryFn: func(ctx context.Context, id string, upd repochat.RepositoryUpdate) (*repochat.Repository, error) {
				statuses = append(statuses, *upd.Status)
				return &repochat.Repository{ID: id, Status: *upd.Status}, nil
			},
		}
		index := &mock.IndexService{
			SyncRepositoryFn: func(ctx context.Context, datasetID string) error { return nil },
		}
		svc := chat.NewService(index, repos, &mock.HistoryService{})

		repo, err := svc.SyncRepository(context.Background(), "ds-1")
		require.NoError(t, err)
		assert.Equal(t, repochat.StatusActive, repo.Status)
		assert.Equal(t, []repochat.RepositoryStatus{repochat.StatusSyncing, repochat.StatusActive}, statuses)
	})

	t.Run("records the failure on the repository", func(t *testing.T) {
		t.Parallel()

		var lastStatus repochat.RepositoryStatus
		var lastError string
		repos := &mock.RepositoryService{
			UpdateRepositoryFn: func(ctx context.Context, id string, upd repochat.RepositoryUpdate) (*repochat.Repository, error) {
				lastStatus = *upd.Status
				if upd.ErrorMessage != nil {
					lastError = *upd.ErrorMessage
				}
				return &repochat.Repository{ID: id, Status: *upd.Status}, nil
			},
		}
		index := &mock.IndexService{
			SyncRepositoryFn: func(ctx context.Context, datasetID string) error {
				return repochat.Errorf(repochat.EUNAVAILABLE, "cognify failed")
			},
		}
		svc := chat.NewService(index, repos, &mock.HistoryService{})

		_, err := svc.SyncRepository(context.Background(), "ds-1")
		require.Error(t, err)
		assert.Equal(t, repochat.StatusError, lastStatus)
		assert.Equal(t, "cognify failed", lastError)
	})

	t.Run("returns ENOTFOUND for an unknown repository", func(t *testing.T) {
		t.Parallel()

		repos := &mock.RepositoryService{
			UpdateRepositoryFn: func(ctx context.Context, id string, upd repochat.RepositoryUpdate) (*repochat.Repository, error) {
				return nil, repochat.Errorf(repochat.ENOTFOUND, "repository not found")
			},
		}
		svc := chat.NewService(&mock.IndexService{}, repos, &mock.HistoryService{})

		_, err := svc.SyncRepository(context.Background(), "missing")
		require.Error(t, err)
		assert.Equal(t, repochat.ENOTFOUND, repochat.ErrorCode(err))
	})
}

func TestService_ToggleRepository(t *testing.T) {
	t.Parallel()

	t.Run("flips the active flag and clears the cache", func(t *testing.T) {
		t.Parallel()

		repos := &mock.RepositoryService{
			FindRepositoryByIDFn: func(ctx context.Context, id string) (*repochat.Repository, error) {
				return &repochat.Repository{ID: id, URL: "https://github.com/example/" + id, IsActive: true}, nil
			},
			UpdateRepositoryFn: func(ctx context.Context, id string, upd repochat.RepositoryUpdate) (*repochat.Repository, error) {
				require.NotNil(t, upd.IsActive)
				return &repochat.Repository{ID: id, IsActive: *upd.IsActive}, nil
			},
		}
		cache := lru.NewSearchCache()
		cache.Set("pool size?", repochat.SearchChunks, &repochat.SearchResult{Answer: "five"})
		svc := chat.NewService(&mock.IndexService{}, repos, &mock.HistoryService{}, chat.WithCache(cache))

		repo, err := svc.ToggleRepository(context.Background(), "ds-1")
		require.NoError(t, err)
		assert.False(t, repo.IsActive)
		assert.Zero(t, cache.Len())
	})

	t.Run("returns ENOTFOUND for an unknown repository", func(t *testing.T) {
		t.Parallel()

		repos := &mock.RepositoryService{
			FindRepositoryByIDFn: func(ctx context.Context, id string) (*repochat.Repository, error) {
				return nil, repochat.Errorf(repochat.ENOTFOUND, "repository not found")
			},
		}
		svc := chat.NewService(&mock.IndexService{}, repos, &mock.HistoryService{})

		_, err := svc.ToggleRepository(context.Background(), "missing")
		require.Error(t, err)
		assert.Equal(t, repochat.ENOTFOUND, repochat.ErrorCode(err))
	})
}

func TestService_DeleteRepository(t *testing.T) {
	t.Parallel()

	t.Run("removes remote and local records", func(t *testing.T) {
		t.Parallel()

		remoteDeleted, localDeleted := false, false
		index := &mock.IndexService{
			DeleteRepositoryFn: func(ctx context.Context, datasetID string) error {
				remoteDeleted = true
				return nil
			},
		}
		repos := &mock.RepositoryService{
			DeleteRepositoryFn: func(ctx context.Context, id string) error {
				localDeleted = true
				return nil
			},
		}
		svc := chat.NewService(index, repos, &mock.HistoryService{})

		require.NoError(t, svc.DeleteRepository(context.Background(), "ds-1"))
		assert.True(t, remoteDeleted)
		assert.True(t, localDeleted)
	})

	t.Run("tolerates a dataset already gone from the index", func(t *testing.T) {
		t.Parallel()

		index := &mock.IndexService{
			DeleteRepositoryFn: func(ctx context.Context, datasetID string) error {
				return repochat.Errorf(repochat.ENOTFOUND, "dataset not found")
			},
		}
		repos := &mock.RepositoryService{
			DeleteRepositoryFn: func(ctx context.Context, id string) error { return nil },
		}
		svc := chat.NewService(index, repos, &mock.HistoryService{})

		assert.NoError(t, svc.DeleteRepository(context.Background(), "ds-1"))
	})
}

func TestService_RefreshStatus(t *testing.T) {
	t.Parallel()

	t.Run("folds remote state into local records", func(t *testing.T) {
		t.Parallel()

		updated := map[string]repochat.RepositoryStatus{}
		index := &mock.IndexService{
			StatusFn: func(ctx context.Context) ([]repochat.RepositoryState, error) {
				return []repochat.RepositoryState{
					{DatasetID: "ds-1", Status: repochat.StatusActive},
					{DatasetID: "ds-2", Status: repochat.StatusError, ErrorMessage: "clone failed"},
				}, nil
			},
		}
		repos := &mock.RepositoryService{
			UpdateRepositoryFn: func(ctx context.Context, id string, upd repochat.RepositoryUpdate) (*repochat.Repository, error) {
				updated[id] = *upd.Status
				return &repochat.Repository{ID: id}, nil
			},
		}
		svc := chat.NewService(index, repos, &mock.HistoryService{})

		states, err := svc.RefreshStatus(context.Background())
		require.NoError(t, err)
		assert.Len(t, states, 2)
		assert.Equal(t, repochat.StatusActive, updated["ds-1"])
		assert.Equal(t, repochat.StatusError, updated["ds-2"])
	})

	t.Run("skips datasets unknown locally", func(t *testing.T) {
		t.Parallel()

		index := &mock.IndexService{
			StatusFn: func(ctx context.Context) ([]repochat.RepositoryState, error) {
				return []repochat.RepositoryState{{DatasetID: "ds-x", Status: repochat.StatusActive}}, nil
			},
		}
		repos := &mock.RepositoryService{
			UpdateRepositoryFn: func(ctx context.Context, id string, upd repochat.RepositoryUpdate) (*repochat.Repository, error) {
				return nil, repochat.Errorf(repochat.ENOTFOUND, "repository not found")
			},
		}
		svc := chat.NewService(index, repos, &mock.HistoryService{})

		states, err := svc.RefreshStatus(context.Background())
		require.NoError(t, err)
		assert.Len(t, states, 1)
	})
}
