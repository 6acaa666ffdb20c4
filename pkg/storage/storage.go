package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/levenlabs/go-lflag"
)

var ErrEmptyKey = errors.New("preference key cannot be empty")

// Store persists string preferences.
type Store interface {
	// Get returns the value for key and whether it was set.
	Get(ctx context.Context, key string) (string, bool, error)
	// All returns every stored preference.
	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}

// Configured sets up the preference Store based on flags.
func Configured() Store {
	provider := lflag.String("prefs-provider", "file", "Preference storage provider to use (available: file, firestore)")

	var p struct{ Store }

	fs := configuredFile()
	fire := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "file":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("file store validation failed: %v", err))
			}
			p.Store = fs
		case "firestore":
			if err := fire.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Store = fire
			if err := fire.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown prefs provider: %s", *provider))
		}
	})

	return &p
}
