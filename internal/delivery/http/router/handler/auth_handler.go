// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"

	"praxis/config"
	"praxis/internal/delivery/http/response"
	"praxis/internal/domain/entity"
	"praxis/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// customerLoginRoles are the roles the public login endpoint accepts.
// Administrators must use the dedicated admin endpoint.
var customerLoginRoles = entity.Roles{entity.RoleUser, entity.RolePhysiotherapist}

// adminLoginRoles restricts the back-office endpoint to administrators.
var adminLoginRoles = entity.Roles{entity.RoleAdmin}

// AuthHandler holds dependencies for login, refresh and logout handlers.
type AuthHandler struct {
	uc     usecase.AuthUsecase
	cfg    *config.Config
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.AuthUsecase, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		uc:     uc,
		cfg:    cfg,
		logger: logger,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles credential login for customers and physiotherapists.
func (h *AuthHandler) Login(c echo.Context) error {
	return h.login(c, customerLoginRoles)
}

// LoginAdmin handles credential login for the back office.
func (h *AuthHandler) LoginAdmin(c echo.Context) error {
	return h.login(c, adminLoginRoles)
}

func (h *AuthHandler) login(c echo.Context, allowedRoles entity.Roles) error {
	var input loginRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.Login(c.Request().Context(), usecase.LoginInput{
		Email:    input.Email,
		Password: input.Password,
	}, allowedRoles)
	if err != nil {
		return errors.WithStack(err)
	}

	if output.RequiresOtp {
		data := &sessionData{
			User:        output.User.Public(),
			RequiresOtp: true,
		}

		return response.Success(c, http.StatusOK, data, "Verification code sent")
	}

	data := buildSessionData(c, h.cfg, output.User, output.AccessToken, output.RefreshToken)

	return response.Success(c, http.StatusOK, data, "Login successful")
}

type verifyOtpRequest struct {
	Email string `json:"email" validate:"required,email"`
	Otp   string `json:"otp" validate:"required"`
}

// VerifyOtp completes a two-factor login with the emailed code.
func (h *AuthHandler) VerifyOtp(c echo.Context) error {
	var input verifyOtpRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid verification input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.VerifyOtp(c.Request().Context(), usecase.VerifyOtpInput{
		Email: input.Email,
		Otp:   input.Otp,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	data := buildSessionData(c, h.cfg, output.User, output.AccessToken, output.RefreshToken)

	return response.Success(c, http.StatusOK, data, "Login successful")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates the presented refresh token into a fresh pair. The token
// arrives as a cookie for web clients and in the body for API clients.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var input refreshRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid refresh input")
	}

	output, err := h.uc.Refresh(c.Request().Context(), usecase.RefreshInput{
		RefreshToken: refreshTokenFromRequest(c, input.RefreshToken),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	data := buildSessionData(c, h.cfg, output.User, output.AccessToken, output.RefreshToken)

	return response.Success(c, http.StatusOK, data, "Token refreshed successfully")
}

// Logout ends the session behind the presented refresh token and always
// clears the web cookie, even when the token is unknown.
func (h *AuthHandler) Logout(c echo.Context) error {
	var input refreshRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid logout input")
	}

	err := h.uc.Logout(c.Request().Context(), usecase.LogoutInput{
		RefreshToken: refreshTokenFromRequest(c, input.RefreshToken),
	})

	clearRefreshCookie(c, h.cfg)

	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Successfully logged out"}, "Logout successful")
}
