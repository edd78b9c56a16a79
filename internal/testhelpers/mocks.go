package testhelpers

import (
	"context"

	"github.com/pageza/macrolog/backend/internal/service"
	"github.com/pageza/macrolog/backend/internal/types"
	"github.com/stretchr/testify/mock"
)

// MockModelClient is a mock implementation of the service.ModelClient interface
type MockModelClient struct {
	mock.Mock
}

func (m *MockModelClient) Complete(ctx context.Context, req service.ModelRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockPhotoArchive is a mock implementation of the service.PhotoArchive interface
type MockPhotoArchive struct {
	mock.Mock
}

func (m *MockPhotoArchive) Store(ctx context.Context, userID string, image []byte, mimeType string) (string, error) {
	args := m.Called(ctx, userID, image, mimeType)
	return args.String(0), args.Error(1)
}

// MockScreener is a mock implementation of the service.ImageScreener interface
type MockScreener struct {
	mock.Mock
}

func (m *MockScreener) LooksLikeFood(ctx context.Context, image []byte) (bool, error) {
	args := m.Called(ctx, image)
	return args.Bool(0), args.Error(1)
}

// MockTokenValidator is a mock implementation of the middleware.TokenValidator interface
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(token string) (*types.TokenClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TokenClaims), args.Error(1)
}

// Float returns a pointer to v, for optional request fields.
func Float(v float64) *float64 {
	return &v
}
