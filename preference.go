package repochat

import "context"

// PreferenceService stores user preferences as key/value pairs.
type PreferenceService interface {
	// GetPreference retrieves a preference value.
	// Returns ENOTFOUND if the key has never been set.
	GetPreference(ctx context.Context, key string) (string, error)

	// SetPreference creates or replaces a preference value.
	SetPreference(ctx context.Context, key, value string) error

	// DeletePreference removes a preference.
	// Deleting an unset key is not an error.
	DeletePreference(ctx context.Context, key string) error
}
