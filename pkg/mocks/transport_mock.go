package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/journeyhq/journey/pkg/transport"
)

// MockMailer is a mock implementation of the transport.Mailer interface.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg transport.Message) error {
	args := m.Called(ctx, msg)

	return args.Error(0)
}
