package middleware

import (
	deliverycontext "praxis/internal/delivery/context"

	"github.com/labstack/echo/v4"
)

// AuthFlowMiddleware reads the x-auth-flow request header and stores the
// resulting flow on the request context so handlers can decide whether to
// deliver the refresh token as a cookie or in the response body.
type AuthFlowMiddleware struct{}

// NewAuthFlowMiddleware creates a new auth flow middleware.
func NewAuthFlowMiddleware() *AuthFlowMiddleware {
	return &AuthFlowMiddleware{}
}

// Process resolves the flow for the current request.
func (m *AuthFlowMiddleware) Process(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		flow := deliverycontext.ParseAuthFlow(c.Request().Header.Get(deliverycontext.HeaderAuthFlow))

		ctx := deliverycontext.WithAuthFlow(c.Request().Context(), flow)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}
