// Package outboundtest provides testify mocks of the outbound ports.
package outboundtest

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fixora/gatekeeper/domain/entity"
	"github.com/fixora/gatekeeper/domain/valueobject"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) identity(args mock.Arguments) (*entity.Identity, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Identity), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*entity.Identity, error) {
	return m.identity(m.Called(ctx, id))
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*entity.Identity, error) {
	return m.identity(m.Called(ctx, username))
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	return m.identity(m.Called(ctx, email))
}

func (m *MockUserRepository) Save(ctx context.Context, identity *entity.Identity) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *MockUserRepository) RevokeBefore(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*entity.Identity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Identity), args.Error(1)
}

type MockPasswordService struct {
	mock.Mock
}

func (m *MockPasswordService) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordService) ComparePassword(hashedPassword, password string) error {
	return m.Called(hashedPassword, password).Error(0)
}

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) IssueAccess(identityID string) (valueobject.IssuedToken, error) {
	args := m.Called(identityID)
	return args.Get(0).(valueobject.IssuedToken), args.Error(1)
}

func (m *MockTokenService) IssueRefresh(identityID string) (valueobject.IssuedToken, error) {
	args := m.Called(identityID)
	return args.Get(0).(valueobject.IssuedToken), args.Error(1)
}

func (m *MockTokenService) Validate(token string, kind valueobject.TokenKind) (*valueobject.TokenClaims, error) {
	args := m.Called(token, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*valueobject.TokenClaims), args.Error(1)
}

func (m *MockTokenService) ExtractSubject(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}
