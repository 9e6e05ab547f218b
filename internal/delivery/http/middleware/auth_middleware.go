package middleware

import (
	"strings"

	"praxis/internal/domain/entity"
	domainerrors "praxis/internal/domain/errors"
	"praxis/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Context keys set by Authenticate for downstream handlers.
const (
	ContextKeyUserID    = "userID"
	ContextKeyUserEmail = "userEmail"
	ContextKeyUserRole  = "userRole"
)

// AuthMiddleware provides middleware for JWT authentication and authorization.
type AuthMiddleware struct {
	tokenSvc service.TokenService
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

// Authenticate is the core middleware function that validates the JWT access token.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return domainerrors.ErrUnauthorized.WithDetails("Authorization header is missing")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return domainerrors.ErrUnauthorized.WithDetails("Invalid token format, must be Bearer token")
		}

		claims, err := m.tokenSvc.ValidateAccessToken(tokenString)
		if err != nil {
			return domainerrors.ErrUnauthorized.WithDetails("Invalid or expired token")
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return domainerrors.ErrUnauthorized.WithDetails("Invalid user ID format in token")
		}

		// Set user info on the context for handlers to use
		c.Set(ContextKeyUserID, userID)
		c.Set(ContextKeyUserEmail, claims.Email)
		c.Set(ContextKeyUserRole, claims.Role)

		return next(c)
	}
}

// RequireRole is a middleware factory that checks if the user has a specific role.
// It must be used AFTER the Authenticate middleware.
func (m *AuthMiddleware) RequireRole(requiredRole entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ContextKeyUserRole).(entity.Role)
			if !ok {
				return domainerrors.ErrForbidden.WithDetails("role information missing")
			}

			if role != requiredRole {
				return domainerrors.ErrForbidden.WithDetails("require '" + requiredRole.String() + "' role")
			}

			return next(c)
		}
	}
}

// UserIDFromContext extracts the authenticated user ID set by Authenticate.
func UserIDFromContext(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get(ContextKeyUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, domainerrors.ErrUnauthorized.WithDetails("user identity missing from request context")
	}

	return userID, nil
}
