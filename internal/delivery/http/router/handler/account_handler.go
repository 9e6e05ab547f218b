package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"praxis/config"
	"praxis/internal/delivery/http/middleware"
	"praxis/internal/delivery/http/response"
	"praxis/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AccountHandler holds dependencies for signup, password and email handlers.
type AccountHandler struct {
	uc     usecase.AccountUsecase
	cfg    *config.Config
	logger *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler, injected by Fx.
func NewAccountHandler(uc usecase.AccountUsecase, cfg *config.Config, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		uc:     uc,
		cfg:    cfg,
		logger: logger,
	}
}

type registerCustomerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterCustomer handles the customer signup request.
func (h *AccountHandler) RegisterCustomer(c echo.Context) error {
	var input registerCustomerRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.RegisterCustomer(c.Request().Context(), usecase.RegisterCustomerInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Do not return sensitive data in the response.
	return response.Success(c, http.StatusCreated, output.User.Public(), "User registered successfully")
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

// VerifyEmail consumes the signup verification token.
func (h *AccountHandler) VerifyEmail(c echo.Context) error {
	var input verifyEmailRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid verification input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	if err := h.uc.VerifyEmail(c.Request().Context(), usecase.VerifyEmailInput{
		Email: input.Email,
		Token: input.Token,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Email verified successfully")
}

type requestPasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestPasswordReset starts the forgotten-password flow. The response is
// the same whether or not the address exists.
func (h *AccountHandler) RequestPasswordReset(c echo.Context) error {
	var input requestPasswordResetRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid password reset input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	if err := h.uc.RequestPasswordReset(c.Request().Context(), usecase.RequestPasswordResetInput{
		Email: input.Email,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "If the address exists, a reset email has been sent")
}

type updatePasswordRequest struct {
	UserID      string `json:"userId" validate:"required,uuid"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// UpdatePassword completes the forgotten-password flow with the emailed token.
func (h *AccountHandler) UpdatePassword(c echo.Context) error {
	var input updatePasswordRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid password update input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	userID, err := uuid.Parse(input.UserID)
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid user ID in password update input")
	}

	if err := h.uc.UpdatePassword(c.Request().Context(), usecase.UpdatePasswordInput{
		UserID:      userID,
		Token:       input.Token,
		NewPassword: input.NewPassword,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Password updated successfully")
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// ChangePassword changes the password of the authenticated user.
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return errors.WithStack(err)
	}

	var input changePasswordRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid password change input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	if err := h.uc.ChangePassword(c.Request().Context(), usecase.ChangePasswordInput{
		UserID:      userID,
		OldPassword: input.OldPassword,
		NewPassword: input.NewPassword,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Password changed successfully")
}

// SetTwoFactor toggles the OTP second factor via the "value" query parameter.
func (h *AccountHandler) SetTwoFactor(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return errors.WithStack(err)
	}

	enabled, err := strconv.ParseBool(c.QueryParam("value"))
	if err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Query parameter 'value' must be true or false")
	}

	user, err := h.uc.SetTwoFactor(c.Request().Context(), userID, enabled)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, user.Public(), "Two-factor setting updated")
}

type requestEmailChangeRequest struct {
	// The body field is "email": it names the address the account moves to.
	NewEmail string `json:"email" validate:"required,email"`
}

// RequestEmailChange starts an email change for the authenticated user.
func (h *AccountHandler) RequestEmailChange(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return errors.WithStack(err)
	}

	var input requestEmailChangeRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid email change input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	if err := h.uc.RequestEmailChange(c.Request().Context(), usecase.RequestEmailChangeInput{
		UserID:   userID,
		NewEmail: input.NewEmail,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Confirmation email sent to the new address")
}

type confirmEmailChangeRequest struct {
	Token string `json:"token" validate:"required"`
}

// ConfirmEmailChange applies the pending address and issues a fresh session,
// since existing access tokens still carry the old email.
func (h *AccountHandler) ConfirmEmailChange(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return errors.WithStack(err)
	}

	var input confirmEmailChangeRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid email confirmation input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.ConfirmEmailChange(c.Request().Context(), usecase.ConfirmEmailChangeInput{
		UserID: userID,
		Token:  input.Token,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	data := buildSessionData(c, h.cfg, output.User, output.AccessToken, output.RefreshToken)

	return response.Success(c, http.StatusOK, data, "Email changed successfully")
}
