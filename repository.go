package repochat

import (
	"context"
	"net/url"
	"time"
)

// RepositoryStatus describes the indexing state of a repository.
type RepositoryStatus string

// Repository status values, as reported by the index API and mirrored in
// the local store.
const (
	StatusActive   RepositoryStatus = "active"
	StatusInactive RepositoryStatus = "inactive"
	StatusSyncing  RepositoryStatus = "syncing"
	StatusError    RepositoryStatus = "error"
)

// Valid returns true if s is a known repository status.
func (s RepositoryStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSyncing, StatusError:
		return true
	}
	return false
}

// Repository represents a source repository registered with the index API.
// ID is the dataset identifier assigned by the API.
type Repository struct {
	ID           string           `json:"id"`
	URL          string           `json:"url"`
	Branch       string           `json:"branch,omitempty"`
	Status       RepositoryStatus `json:"status"`
	IsActive     bool             `json:"isActive"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
	LastSyncAt   time.Time        `json:"lastSyncAt"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// Validate returns an error if the repository contains invalid fields.
func (r *Repository) Validate() error {
	if r.URL == "" {
		return Errorf(EINVALID, "repository URL required")
	}
	u, err := url.Parse(r.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Errorf(EINVALID, "invalid repository URL %q", r.URL)
	}
	switch u.Scheme {
	case "http", "https", "git":
	default:
		return Errorf(EINVALID, "unsupported repository URL scheme %q", u.Scheme)
	}
	if r.Status != "" && !r.Status.Valid() {
		return Errorf(EINVALID, "invalid repository status %q", r.Status)
	}
	return nil
}

// RepositoryService represents a service for managing locally registered
// repositories.
type RepositoryService interface {
	// CreateRepository records a repository registered with the index API.
	CreateRepository(ctx context.Context, repo *Repository) error

	// FindRepositoryByID retrieves a repository by dataset ID.
	// Returns ENOTFOUND if the repository does not exist.
	FindRepositoryByID(ctx context.Context, id string) (*Repository, error)

	// FindRepositories retrieves repositories matching the filter.
	FindRepositories(ctx context.Context, filter RepositoryFilter) ([]*Repository, error)

	// UpdateRepository updates an existing repository.
	// Returns ENOTFOUND if the repository does not exist.
	UpdateRepository(ctx context.Context, id string, upd RepositoryUpdate) (*Repository, error)

	// DeleteRepository permanently removes a repository.
	// Returns ENOTFOUND if the repository does not exist.
	DeleteRepository(ctx context.Context, id string) error
}

// RepositoryFilter represents a filter for FindRepositories.
type RepositoryFilter struct {
	ID       *string           `json:"id"`
	URL      *string           `json:"url"`
	Status   *RepositoryStatus `json:"status"`
	IsActive *bool             `json:"isActive"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RepositoryUpdate represents fields that can be updated on a repository.
type RepositoryUpdate struct {
	Status       *RepositoryStatus `json:"status"`
	IsActive     *bool             `json:"isActive"`
	ErrorMessage *string           `json:"errorMessage"`
	LastSyncAt   *time.Time        `json:"lastSyncAt"`
}
