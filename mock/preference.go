package mock

import (
	"context"

	"github.com/fwojciec/repochat"
)

var _ repochat.PreferenceService = (*PreferenceService)(nil)

// PreferenceService is a mock implementation of repochat.PreferenceService.
type PreferenceService struct {
	GetPreferenceFn    func(ctx context.Context, key string) (string, error)
	SetPreferenceFn    func(ctx context.Context, key, value string) error
	DeletePreferenceFn func(ctx context.Context, key string) error
}

func (s *PreferenceService) GetPreference(ctx context.Context, key string) (string, error) {
	return s.GetPreferenceFn(ctx, key)
}

func (s *PreferenceService) SetPreference(ctx context.Context, key, value string) error {
	return s.SetPreferenceFn(ctx, key, value)
}

func (s *PreferenceService) DeletePreference(ctx context.Context, key string) error {
	return s.DeletePreferenceFn(ctx, key)
}
