package repochat

import "context"

// AddRequest registers one repository with the index API.
type AddRequest struct {
	URL       string `json:"repository_url"`
	Branch    string `json:"branch,omitempty"`
	AuthToken string `json:"auth_token,omitempty"`
}

// AddResult is the API's response to registering one repository.
type AddResult struct {
	DatasetID string           `json:"dataset_id"`
	Status    RepositoryStatus `json:"status"`
}

// RepositoryState is the index API's view of a registered repository.
type RepositoryState struct {
	DatasetID    string           `json:"dataset_id"`
	URL          string           `json:"url"`
	Status       RepositoryStatus `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// PruneOptions selects which parts of the index backend to prune.
type PruneOptions struct {
	Metadata bool `json:"metadata"`
	Graph    bool `json:"graph"`
	Vector   bool `json:"vector"`
}

// IndexService is the surface of the remote code-indexing API.
//
// All operations are idempotent request/response calls; implementations
// are expected to handle transport-level retries internally and to map
// API failures onto application error codes (EINVALID for rejected
// requests, ENOTFOUND for unknown datasets, EUNAVAILABLE for transient
// backend failures).
type IndexService interface {
	// Search runs a query against the index and returns the answer.
	Search(ctx context.Context, query string, searchType SearchType, repositoryIDs []string) (*SearchResult, error)

	// AddRepository registers a repository for indexing.
	// Implementations may coalesce concurrent calls into bulk requests.
	AddRepository(ctx context.Context, req AddRequest) (*AddResult, error)

	// DeleteRepository removes a dataset from the index.
	// Returns ENOTFOUND if the dataset does not exist.
	DeleteRepository(ctx context.Context, datasetID string) error

	// SyncRepository triggers re-indexing of a dataset.
	SyncRepository(ctx context.Context, datasetID string) error

	// Status reports the state of every registered repository.
	Status(ctx context.Context) ([]RepositoryState, error)

	// PruneData removes derived data from the index backend.
	PruneData(ctx context.Context) error

	// PruneSystem removes selected system data from the index backend.
	PruneSystem(ctx context.Context, opts PruneOptions) error
}
