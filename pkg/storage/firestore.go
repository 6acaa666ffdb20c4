package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/elektroapp/elektrodash/pkg/common"
	"github.com/elektroapp/elektrodash/pkg/log"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements the Store interface using Google Cloud Firestore.
// All preferences of a profile live in one "preferences/<profile>" document
// as a JSON blob.
type FirestoreStore struct {
	client    *firestore.Client
	projectID string
	database  string
	profile   string
}

// configuredFirestore sets up the Firestore store.
// It registers flags for configuration.
func configuredFirestore() *FirestoreStore {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")
	profile := lflag.String("prefs-profile", "default", "Preference profile (Firestore document ID)")

	f := &FirestoreStore{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database
		f.profile = *profile

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the store is properly configured.
func (f *FirestoreStore) Validate() error {
	if f.profile == "" {
		return errors.New("prefs-profile cannot be empty")
	}
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the store methods.
func (f *FirestoreStore) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database, option.WithUserAgent("ElektroDash/"+common.Version()))
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreStore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreStore) doc() *firestore.DocumentRef {
	return f.client.Collection("preferences").Doc(f.profile)
}

func (f *FirestoreStore) decode(ctx context.Context, snap *firestore.DocumentSnapshot) (map[string]string, error) {
	val, err := snap.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "preferences doc missing json", slog.String("profile", f.profile))
		return nil, fmt.Errorf("preferences document missing 'json' field: %w", err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "preferences doc json not string", slog.String("profile", f.profile))
		return nil, fmt.Errorf("preferences 'json' field is not a string")
	}
	values := map[string]string{}
	if err := json.Unmarshal([]byte(jsonStr), &values); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal preferences json", slog.String("profile", f.profile), slog.Any("err", err))
		return nil, fmt.Errorf("failed to unmarshal preferences json: %w", err)
	}
	return values, nil
}

// All reads the profile document. A missing document means no preferences.
func (f *FirestoreStore) All(ctx context.Context) (map[string]string, error) {
	snap, err := f.doc().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to fetch preferences doc: %w", err)
	}
	return f.decode(ctx, snap)
}

func (f *FirestoreStore) Get(ctx context.Context, key string) (string, bool, error) {
	values, err := f.All(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set updates one key inside a transaction so concurrent writers of other
// keys are not lost.
func (f *FirestoreStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	ref := f.doc()
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		values := map[string]string{}
		var version int64
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			if values, err = f.decode(ctx, snap); err != nil {
				return err
			}
			if v, err := snap.DataAt("version"); err == nil {
				if vInt, ok := v.(int64); ok {
					version = vInt
				}
			}
		case status.Code(err) == codes.NotFound:
		default:
			return err
		}
		values[key] = value
		jsonBytes, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("failed to marshal preferences: %w", err)
		}
		return tx.Set(ref, map[string]interface{}{
			"json":    string(jsonBytes),
			"version": version + 1,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	return nil
}
