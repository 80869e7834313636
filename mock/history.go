package mock

import (
	"context"

	"github.com/fwojciec/repochat"
)

var _ repochat.HistoryService = (*HistoryService)(nil)

// HistoryService is a mock implementation of repochat.HistoryService.
type HistoryService struct {
	CreateMessageFn   func(ctx context.Context, msg *repochat.Message) error
	FindMessageByIDFn func(ctx context.Context, id string) (*repochat.Message, error)
	FindMessagesFn    func(ctx context.Context, filter repochat.HistoryFilter) ([]*repochat.Message, error)
	CountMessagesFn   func(ctx context.Context, filter repochat.HistoryFilter) (int, error)
	DeleteMessageFn   func(ctx context.Context, id string) error
}

func (s *HistoryService) CreateMessage(ctx context.Context, msg *repochat.Message) error {
	return s.CreateMessageFn(ctx, msg)
}

func (s *HistoryService) FindMessageByID(ctx context.Context, id string) (*repochat.Message, error) {
	return s.FindMessageByIDFn(ctx, id)
}

func (s *HistoryService) FindMessages(ctx context.Context, filter repochat.HistoryFilter) ([]*repochat.Message, error) {
	return s.FindMessagesFn(ctx, filter)
}

func (s *HistoryService) CountMessages(ctx context.Context, filter repochat.HistoryFilter) (int, error) {
	return s.CountMessagesFn(ctx, filter)
}

func (s *HistoryService) DeleteMessage(ctx context.Context, id string) error {
	return s.DeleteMessageFn(ctx, id)
}
