package storagemock

import (
	"context"

	"github.com/elektroapp/elektrodash/pkg/storage"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

var _ storage.Store = (*MockStore)(nil)

func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) All(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	// return empty if not specified
	if v, ok := args.Get(0).(map[string]string); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
