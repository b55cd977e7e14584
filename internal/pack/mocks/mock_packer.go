package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockPacker struct {
	mock.Mock
}

func (m *MockPacker) Pack(ctx context.Context, sourceDir, destPath string) error {
	args := m.Called(ctx, sourceDir, destPath)
	return args.Error(0)
}
