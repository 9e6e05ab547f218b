package handler

import (
	"net/http"
	"time"

	"praxis/config"
	deliverycontext "praxis/internal/delivery/context"
	"praxis/internal/domain/entity"

	"github.com/labstack/echo/v4"
)

// refreshCookieName is the cookie carrying the refresh token for web clients.
const refreshCookieName = "refreshToken"

// tokenData is the token pair as it appears in response bodies. RefreshToken
// is a pointer so the web flow can render it as JSON null while the cookie
// carries the real value.
type tokenData struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken *string `json:"refreshToken"`
}

// sessionData is the body of every response that may carry a session.
type sessionData struct {
	User        *entity.PublicUser `json:"user"`
	Tokens      *tokenData         `json:"tokens,omitempty"`
	RequiresOtp bool               `json:"requiresOtp,omitempty"`
}

// buildSessionData shapes the session per the flow negotiated for this
// request. Web clients get the refresh token as an httpOnly cookie and a null
// body field; API clients get both tokens in the body.
func buildSessionData(c echo.Context, cfg *config.Config, user *entity.User, accessToken, refreshToken string) *sessionData {
	data := &sessionData{
		User:   user.Public(),
		Tokens: &tokenData{AccessToken: accessToken},
	}

	flow := deliverycontext.GetAuthFlow(c.Request().Context())
	if flow == deliverycontext.FlowWeb {
		setRefreshCookie(c, cfg, refreshToken)
	} else {
		data.Tokens.RefreshToken = &refreshToken
	}

	return data
}

func setRefreshCookie(c echo.Context, cfg *config.Config, refreshToken string) {
	maxAge := cfg.Auth.RefreshCookieMaxAge
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     "/auth",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   cfg.Env.Env != "dev",
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie expires the cookie regardless of which flow set it, so
// logout always leaves web clients clean.
func clearRefreshCookie(c echo.Context, cfg *config.Config) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Env.Env != "dev",
		SameSite: http.SameSiteStrictMode,
	})
}

// refreshTokenFromRequest resolves the refresh token for refresh and logout
// requests. The cookie wins when present so web clients never need to echo
// the token back in the body.
func refreshTokenFromRequest(c echo.Context, bodyToken string) string {
	if cookie, err := c.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return bodyToken
}
