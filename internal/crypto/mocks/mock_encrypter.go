package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockEncrypter struct {
	mock.Mock
}

func (m *MockEncrypter) Encrypt(ctx context.Context, srcPath, dstPath, passphrase string) error {
	args := m.Called(ctx, srcPath, dstPath, passphrase)
	return args.Error(0)
}
