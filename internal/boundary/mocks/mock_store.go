package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"batcharchive/internal/model"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Read(ctx context.Context, root string) (model.BatchDate, bool, error) {
	args := m.Called(ctx, root)
	return args.Get(0).(model.BatchDate), args.Bool(1), args.Error(2)
}

func (m *MockStore) Write(ctx context.Context, root string, d model.BatchDate) error {
	args := m.Called(ctx, root, d)
	return args.Error(0)
}
