package repochat

import (
	"context"
	"time"
)

// MaxMessageLength is the longest message text accepted for storage.
const MaxMessageLength = 10000

// Message represents one entry in the chat history. A user question and
// the assistant answer are stored as separate messages linked by ParentID.
type Message struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	Role          string     `json:"role"` // "user" or "assistant"
	SearchType    SearchType `json:"searchType"`
	RepositoryIDs []string   `json:"repositoryIds,omitempty"`
	ParentID      string     `json:"parentId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Validate returns an error if the message contains invalid fields.
func (m *Message) Validate() error {
	if m.Text == "" {
		return Errorf(EINVALID, "message text required")
	}
	if len(m.Text) > MaxMessageLength {
		return Errorf(EINVALID, "message exceeds maximum length of %d characters", MaxMessageLength)
	}
	if m.Role != "user" && m.Role != "assistant" {
		return Errorf(EINVALID, "invalid message role %q", m.Role)
	}
	if !m.SearchType.Valid() {
		return Errorf(EINVALID, "invalid search type %q", m.SearchType)
	}
	return nil
}

// HistoryService represents a service for managing chat history.
type HistoryService interface {
	// CreateMessage appends a message to the chat history.
	CreateMessage(ctx context.Context, msg *Message) error

	// FindMessageByID retrieves a message by ID.
	// Returns ENOTFOUND if the message does not exist.
	FindMessageByID(ctx context.Context, id string) (*Message, error)

	// FindMessages retrieves messages matching the filter, newest first.
	FindMessages(ctx context.Context, filter HistoryFilter) ([]*Message, error)

	// CountMessages returns the number of messages matching the filter.
	CountMessages(ctx context.Context, filter HistoryFilter) (int, error)

	// DeleteMessage permanently removes a message and its replies.
	// Returns ENOTFOUND if the message does not exist.
	DeleteMessage(ctx context.Context, id string) error
}

// HistoryFilter represents a filter for FindMessages.
type HistoryFilter struct {
	Text         *string     `json:"text"` // substring match
	Role         *string     `json:"role"`
	SearchType   *SearchType `json:"searchType"`
	RepositoryID *string     `json:"repositoryId"`
	After        *time.Time  `json:"after"`
	Before       *time.Time  `json:"before"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
