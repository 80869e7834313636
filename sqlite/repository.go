package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/fwojciec/repochat"
	"github.com/google/uuid"
	"github.com/ncruces/go-sqlite3"
)

// Compile-time interface verification.
var _ repochat.RepositoryService = (*RepositoryService)(nil)

// RepositoryService implements repochat.RepositoryService using SQLite.
type RepositoryService struct {
	db *DB
}

// NewRepositoryService creates a new RepositoryService.
func NewRepositoryService(db *DB) *RepositoryService {
	return &RepositoryService{db: db}
}

// CreateRepository records a repository. The ID is normally the dataset ID
// assigned by the index API; when empty a local one is generated.
func (s *RepositoryService) CreateRepository(ctx context.Context, repo *repochat.Repository) error {
	if err := repo.Validate(); err != nil {
		return err
	}

	if repo.ID == "" {
		repo.ID = uuid.New().String()
	}
	if repo.Status == "" {
		repo.Status = repochat.StatusInactive
	}
	now := time.Now().UTC()
	repo.CreatedAt = now
	repo.UpdatedAt = now

	return s.db.WithConn(ctx, func(c *Conn) error {
		_, err := c.exec(ctx, `
			INSERT INTO repositories (id, url, branch, status, is_active, error_message, last_sync_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, repo.ID, repo.URL, repo.Branch, string(repo.Status), repo.IsActive, repo.ErrorMessage,
			formatOptionalRFC3339(repo.LastSyncAt),
			repo.CreatedAt.Format(time.RFC3339), repo.UpdatedAt.Format(time.RFC3339))
		if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return repochat.Errorf(repochat.ECONFLICT, "repository %q already exists", repo.ID)
		}
		return err
	})
}

// FindRepositoryByID retrieves a repository by dataset ID.
func (s *RepositoryService) FindRepositoryByID(ctx context.Context, id string) (*repochat.Repository, error) {
	var repo *repochat.Repository

	err := s.db.WithConn(ctx, func(c *Conn) error {
		return c.query(ctx, `
			SELECT id, url, branch, status, is_active, error_message, last_sync_at, created_at, updated_at
			FROM repositories
			WHERE id = ?
		`, []any{id}, func(stmt *sqlite3.Stmt) error {
			r, err := scanRepository(stmt)
			if err != nil {
				return err
			}
			repo = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, repochat.Errorf(repochat.ENOTFOUND, "repository not found")
	}

	return repo, nil
}

// FindRepositories retrieves repositories matching the filter.
func (s *RepositoryService) FindRepositories(ctx context.Context, filter repochat.RepositoryFilter) ([]*repochat.Repository, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, url, branch, status, is_active, error_message, last_sync_at, created_at, updated_at FROM repositories WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.URL != nil {
		query.WriteString(" AND url = ?")
		args = append(args, *filter.URL)
	}
	if filter.Status != nil {
		query.WriteString(" AND status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.IsActive != nil {
		query.WriteString(" AND is_active = ?")
		args = append(args, *filter.IsActive)
	}

	query.WriteString(" ORDER BY created_at DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	var repos []*repochat.Repository
	err := s.db.WithConn(ctx, func(c *Conn) error {
		return c.query(ctx, query.String(), args, func(stmt *sqlite3.Stmt) error {
			r, err := scanRepository(stmt)
			if err != nil {
				return err
			}
			repos = append(repos, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return repos, nil
}

// UpdateRepository updates an existing repository.
func (s *RepositoryService) UpdateRepository(ctx context.Context, id string, upd repochat.RepositoryUpdate) (*repochat.Repository, error) {
	repo, err := s.FindRepositoryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil {
		repo.Status = *upd.Status
	}
	if upd.IsActive != nil {
		repo.IsActive = *upd.IsActive
	}
	if upd.ErrorMessage != nil {
		repo.ErrorMessage = *upd.ErrorMessage
	}
	if upd.LastSyncAt != nil {
		repo.LastSyncAt = *upd.LastSyncAt
	}

	if err := repo.Validate(); err != nil {
		return nil, err
	}

	repo.UpdatedAt = time.Now().UTC()

	err = s.db.WithConn(ctx, func(c *Conn) error {
		_, err := c.exec(ctx, `
			UPDATE repositories
			SET status = ?, is_active = ?, error_message = ?, last_sync_at = ?, updated_at = ?
			WHERE id = ?
		`, string(repo.Status), repo.IsActive, repo.ErrorMessage,
			formatOptionalRFC3339(repo.LastSyncAt),
			repo.UpdatedAt.Format(time.RFC3339), id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

// DeleteRepository permanently removes a repository.
func (s *RepositoryService) DeleteRepository(ctx context.Context, id string) error {
	return s.db.WithConn(ctx, func(c *Conn) error {
		changes, err := c.exec(ctx, "DELETE FROM repositories WHERE id = ?", id)
		if err != nil {
			return err
		}
		if changes == 0 {
			return repochat.Errorf(repochat.ENOTFOUND, "repository not found")
		}
		return nil
	})
}

// scanRepository reads one repository row from the current statement
// position. Column order matches the SELECT lists above.
func scanRepository(stmt *sqlite3.Stmt) (*repochat.Repository, error) {
	repo := &repochat.Repository{
		ID:           stmt.ColumnText(0),
		URL:          stmt.ColumnText(1),
		Branch:       stmt.ColumnText(2),
		Status:       repochat.RepositoryStatus(stmt.ColumnText(3)),
		IsActive:     stmt.ColumnBool(4),
		ErrorMessage: stmt.ColumnText(5),
	}

	var err error
	if repo.LastSyncAt, err = parseOptionalRFC3339(stmt.ColumnText(6), "last_sync_at"); err != nil {
		return nil, err
	}
	if repo.CreatedAt, err = parseRFC3339(stmt.ColumnText(7), "created_at"); err != nil {
		return nil, err
	}
	if repo.UpdatedAt, err = parseRFC3339(stmt.ColumnText(8), "updated_at"); err != nil {
		return nil, err
	}

	return repo, nil
}
