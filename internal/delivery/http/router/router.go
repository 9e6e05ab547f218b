// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"praxis/internal/delivery/http/middleware"
	"praxis/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	AccountHandler *handler.AccountHandler
	AuthMiddleware *middleware.AuthMiddleware
	FlowMiddleware *middleware.AuthFlowMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	accountHandler *handler.AccountHandler
	authMiddleware *middleware.AuthMiddleware
	flowMiddleware *middleware.AuthFlowMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		accountHandler: params.AccountHandler,
		authMiddleware: params.AuthMiddleware,
		flowMiddleware: params.FlowMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Auth routes. Every session-issuing endpoint goes through the flow
	// middleware so cookie-vs-body delivery follows the x-auth-flow header.
	authGroup := e.Group("/auth")
	authGroup.Use(r.flowMiddleware.Process)
	{
		authGroup.POST("/signup/customer", r.accountHandler.RegisterCustomer)
		authGroup.POST("/email/verify", r.accountHandler.VerifyEmail)

		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/login/admin", r.authHandler.LoginAdmin)
		authGroup.POST("/login/otp", r.authHandler.VerifyOtp)
		authGroup.POST("/refresh", r.authHandler.Refresh)

		// Forgotten-password flow, no authentication required.
		authGroup.POST("/password", r.accountHandler.RequestPasswordReset)
		authGroup.POST("/password/update", r.accountHandler.UpdatePassword)

		// Authenticated account management.
		authedGroup := authGroup.Group("")
		authedGroup.Use(r.authMiddleware.Authenticate)
		{
			authedGroup.POST("/logout", r.authHandler.Logout)
			authedGroup.POST("/password/change", r.accountHandler.ChangePassword)
			authedGroup.PUT("/otp", r.accountHandler.SetTwoFactor)
			authedGroup.POST("/email", r.accountHandler.RequestEmailChange)
			authedGroup.PUT("/email", r.accountHandler.ConfirmEmailChange)
		}
	}
}
