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
var _ repochat.HistoryService = (*HistoryService)(nil)

// HistoryService implements repochat.HistoryService using SQLite.
type HistoryService struct {
	db *DB
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(db *DB) *HistoryService {
	return &HistoryService{db: db}
}

// CreateMessage appends a message to the chat history.
func (s *HistoryService) CreateMessage(ctx context.Context, msg *repochat.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	msg.ID = uuid.New().String()
	msg.CreatedAt = time.Now().UTC()

	repoIDs, err := encodeStrings(msg.RepositoryIDs)
	if err != nil {
		return err
	}

	return s.db.WithConn(ctx, func(c *Conn) error {
		_, err := c.exec(ctx, `
			INSERT INTO chat_history (id, text, role, search_type, repository_ids, parent_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, msg.ID, msg.Text, msg.Role, string(msg.SearchType), repoIDs, msg.ParentID,
			msg.CreatedAt.Format(sortableTimeLayout))
		return err
	})
}

// FindMessageByID retrieves a message by ID.
func (s *HistoryService) FindMessageByID(ctx context.Context, id string) (*repochat.Message, error) {
	var msg *repochat.Message

	err := s.db.WithConn(ctx, func(c *Conn) error {
		return c.query(ctx, `
			SELECT id, text, role, search_type, repository_ids, parent_id, created_at
			FROM chat_history
			WHERE id = ?
		`, []any{id}, func(stmt *sqlite3.Stmt) error {
			m, err := scanMessage(stmt)
			if err != nil {
				return err
			}
			msg = m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, repochat.Errorf(repochat.ENOTFOUND, "message not found")
	}

	return msg, nil
}

// FindMessages retrieves messages matching the filter, newest first.
func (s *HistoryService) FindMessages(ctx context.Context, filter repochat.HistoryFilter) ([]*repochat.Message, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, text, role, search_type, repository_ids, parent_id, created_at FROM chat_history")
	appendHistoryFilter(&query, &args, filter)
	query.WriteString(" ORDER BY created_at DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	var msgs []*repochat.Message
	err := s.db.WithConn(ctx, func(c *Conn) error {
		return c.query(ctx, query.String(), args, func(stmt *sqlite3.Stmt) error {
			m, err := scanMessage(stmt)
			if err != nil {
				return err
			}
			msgs = append(msgs, m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return msgs, nil
}

// CountMessages returns the number of messages matching the filter.
func (s *HistoryService) CountMessages(ctx context.Context, filter repochat.HistoryFilter) (int, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT COUNT(*) FROM chat_history")
	appendHistoryFilter(&query, &args, filter)

	var count int64
	err := s.db.WithConn(ctx, func(c *Conn) error {
		return c.query(ctx, query.String(), args, func(stmt *sqlite3.Stmt) error {
			count = stmt.ColumnInt64(0)
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	return int(count), nil
}

// DeleteMessage permanently removes a message and its replies.
func (s *HistoryService) DeleteMessage(ctx context.Context, id string) error {
	return s.db.WithConn(ctx, func(c *Conn) error {
		if _, err := c.exec(ctx, "DELETE FROM chat_history WHERE parent_id = ?", id); err != nil {
			return err
		}
		changes, err := c.exec(ctx, "DELETE FROM chat_history WHERE id = ?", id)
		if err != nil {
			return err
		}
		if changes == 0 {
			return repochat.Errorf(repochat.ENOTFOUND, "message not found")
		}
		return nil
	})
}

// appendHistoryFilter appends WHERE clauses for the filter fields that are set.
func appendHistoryFilter(query *strings.Builder, args *[]any, filter repochat.HistoryFilter) {
	query.WriteString(" WHERE 1=1")

	if filter.Text != nil {
		query.WriteString(" AND text LIKE ?")
		*args = append(*args, "%"+*filter.Text+"%")
	}
	if filter.Role != nil {
		query.WriteString(" AND role = ?")
		*args = append(*args, *filter.Role)
	}
	if filter.SearchType != nil {
		query.WriteString(" AND search_type = ?")
		*args = append(*args, string(*filter.SearchType))
	}
	if filter.RepositoryID != nil {
		// Repository IDs are stored as a JSON array of strings, so an
		// exact element match is a quoted substring match.
		query.WriteString(" AND repository_ids LIKE ?")
		*args = append(*args, `%"`+*filter.RepositoryID+`"%`)
	}
	if filter.After != nil {
		query.WriteString(" AND created_at > ?")
		*args = append(*args, filter.After.UTC().Format(sortableTimeLayout))
	}
	if filter.Before != nil {
		query.WriteString(" AND created_at < ?")
		*args = append(*args, filter.Before.UTC().Format(sortableTimeLayout))
	}
}

// scanMessage reads one chat history row from the current statement position.
func scanMessage(stmt *sqlite3.Stmt) (*repochat.Message, error) {
	msg := &repochat.Message{
		ID:         stmt.ColumnText(0),
		Text:       stmt.ColumnText(1),
		Role:       stmt.ColumnText(2),
		SearchType: repochat.SearchType(stmt.ColumnText(3)),
		ParentID:   stmt.ColumnText(5),
	}

	var err error
	if msg.RepositoryIDs, err = decodeStrings(stmt.ColumnText(4)); err != nil {
		return nil, err
	}
	if msg.CreatedAt, err = parseRFC3339(stmt.ColumnText(6), "created_at"); err != nil {
		return nil, err
	}

	return msg, nil
}
