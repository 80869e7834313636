package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/repochat"
)

// Ensure LoggingHistoryService implements repochat.HistoryService.
var _ repochat.HistoryService = (*LoggingHistoryService)(nil)

// LoggingHistoryService wraps a HistoryService with debug logging.
// History operations are local and chatty, so they log at debug level.
type LoggingHistoryService struct {
	next   repochat.HistoryService
	logger *slog.Logger
}

// NewLoggingHistoryService creates a new LoggingHistoryService.
func NewLoggingHistoryService(next repochat.HistoryService, logger *slog.Logger) *LoggingHistoryService {
	return &LoggingHistoryService{next: next, logger: logger}
}

// CreateMessage delegates to the wrapped service and logs the operation.
func (s *LoggingHistoryService) CreateMessage(ctx context.Context, msg *repochat.Message) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("history create message",
			"role", msg.Role,
			"chars", len(msg.Text),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.CreateMessage(ctx, msg)
}

// FindMessageByID delegates to the wrapped service.
func (s *LoggingHistoryService) FindMessageByID(ctx context.Context, id string) (*repochat.Message, error) {
	return s.next.FindMessageByID(ctx, id)
}

// FindMessages delegates to the wrapped service and logs the operation.
func (s *LoggingHistoryService) FindMessages(ctx context.Context, filter repochat.HistoryFilter) (msgs []*repochat.Message, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("history find messages",
			"count", len(msgs),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindMessages(ctx, filter)
}

// CountMessages delegates to the wrapped service.
func (s *LoggingHistoryService) CountMessages(ctx context.Context, filter repochat.HistoryFilter) (int, error) {
	return s.next.CountMessages(ctx, filter)
}

// DeleteMessage delegates to the wrapped service and logs the operation.
func (s *LoggingHistoryService) DeleteMessage(ctx context.Context, id string) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("history delete message",
			"id", id,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DeleteMessage(ctx, id)
}
