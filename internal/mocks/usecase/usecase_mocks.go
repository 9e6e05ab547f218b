// Package usecase provides hand-written testify mocks for the usecase
// interfaces consumed by the delivery layer.
package usecase

import (
	"context"

	"praxis/internal/domain/entity"
	appusecase "praxis/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// AuthUsecase is a mock implementation of usecase.AuthUsecase.
type AuthUsecase struct {
	mock.Mock
}

func (m *AuthUsecase) Login(ctx context.Context, input appusecase.LoginInput, allowedRoles entity.Roles) (*appusecase.LoginOutput, error) {
	args := m.Called(ctx, input, allowedRoles)
	if output, ok := args.Get(0).(*appusecase.LoginOutput); ok {
		return output, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *AuthUsecase) VerifyOtp(ctx context.Context, input appusecase.VerifyOtpInput) (*appusecase.LoginOutput, error) {
	args := m.Called(ctx, input)
	if output, ok := args.Get(0).(*appusecase.LoginOutput); ok {
		return output, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *AuthUsecase) Refresh(ctx context.Context, input appusecase.RefreshInput) (*appusecase.RefreshOutput, error) {
	args := m.Called(ctx, input)
	if output, ok := args.Get(0).(*appusecase.RefreshOutput); ok {
		return output, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *AuthUsecase) Logout(ctx context.Context, input appusecase.LogoutInput) error {
	return m.Called(ctx, input).Error(0)
}

// AccountUsecase is a mock implementation of usecase.AccountUsecase.
type AccountUsecase struct {
	mock.Mock
}

func (m *AccountUsecase) RegisterCustomer(ctx context.Context, input appusecase.RegisterCustomerInput) (*appusecase.RegisterOutput, error) {
	args := m.Called(ctx, input)
	if output, ok := args.Get(0).(*appusecase.RegisterOutput); ok {
		return output, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *AccountUsecase) VerifyEmail(ctx context.Context, input appusecase.VerifyEmailInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *AccountUsecase) RequestPasswordReset(ctx context.Context, input appusecase.RequestPasswordResetInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *AccountUsecase) UpdatePassword(ctx context.Context, input appusecase.UpdatePasswordInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *AccountUsecase) ChangePassword(ctx context.Context, input appusecase.ChangePasswordInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *AccountUsecase) SetTwoFactor(ctx context.Context, userID uuid.UUID, enabled bool) (*entity.User, error) {
	args := m.Called(ctx, userID, enabled)
	if user, ok := args.Get(0).(*entity.User); ok {
		return user, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *AccountUsecase) RequestEmailChange(ctx context.Context, input appusecase.RequestEmailChangeInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *AccountUsecase) ConfirmEmailChange(ctx context.Context, input appusecase.ConfirmEmailChangeInput) (*appusecase.LoginOutput, error) {
	args := m.Called(ctx, input)
	if output, ok := args.Get(0).(*appusecase.LoginOutput); ok {
		return output, args.Error(1)
	}

	return nil, args.Error(1)
}
