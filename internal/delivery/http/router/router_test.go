package router

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"praxis/config"
	deliverycontext "praxis/internal/delivery/context"
	"praxis/internal/delivery/http/middleware"
	"praxis/internal/delivery/http/router/handler"
	"praxis/internal/delivery/http/validator"
	"praxis/internal/domain/entity"
	domainerrors "praxis/internal/domain/errors"
	"praxis/internal/domain/service"
	mockservice "praxis/internal/mocks/service"
	mockusecase "praxis/internal/mocks/usecase"
	"praxis/internal/usecase"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type routerFixture struct {
	e         *echo.Echo
	authUc    *mockusecase.AuthUsecase
	accountUc *mockusecase.AccountUsecase
	tokens    *mockservice.TokenService
	cfg       *config.Config
}

func newRouterFixture() *routerFixture {
	cfg := &config.Config{}
	cfg.Env.Env = "dev"
	cfg.Auth = &config.AuthConfig{
		RefreshCookieMaxAge: 5 * 24 * time.Hour,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authUc := &mockusecase.AuthUsecase{}
	accountUc := &mockusecase.AccountUsecase{}
	tokens := &mockservice.TokenService{}

	e := echo.New()
	e.Validator = validator.New()
	e.HTTPErrorHandler = middleware.NewErrorMiddleware(logger).HandleHTTPError

	r := NewRouter(RouterParams{
		AuthHandler:    handler.NewAuthHandler(authUc, cfg, logger),
		AccountHandler: handler.NewAccountHandler(accountUc, cfg, logger),
		AuthMiddleware: middleware.NewAuthMiddleware(tokens),
		FlowMiddleware: middleware.NewAuthFlowMiddleware(),
	})
	r.RegisterRoutes(e)

	return &routerFixture{
		e:         e,
		authUc:    authUc,
		accountUc: accountUc,
		tokens:    tokens,
		cfg:       cfg,
	}
}

func (f *routerFixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	return rec
}

// envelope mirrors the unified response shape for session-bearing endpoints.
type sessionEnvelope struct {
	Success bool `json:"success"`
	Code    int  `json:"code"`
	Data    struct {
		User   map[string]any `json:"user"`
		Tokens *struct {
			AccessToken  string  `json:"accessToken"`
			RefreshToken *string `json:"refreshToken"`
		} `json:"tokens"`
		RequiresOtp bool `json:"requiresOtp"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionEnvelope {
	t.Helper()

	var env sessionEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	return env
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}

	return nil
}

func loginOutput(user *entity.User) *usecase.LoginOutput {
	return &usecase.LoginOutput{
		User:         user,
		AccessToken:  "access-raw",
		RefreshToken: "refresh-raw",
	}
}

func testCustomer() *entity.User {
	return &entity.User{
		ID:              uuid.New(),
		Email:           "user@example.com",
		Name:            "Test User",
		Role:            entity.RoleUser,
		IsEmailVerified: true,
	}
}

func TestLogin_APIFlowDeliversTokensInBody(t *testing.T) {
	f := newRouterFixture()
	f.authUc.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(loginOutput(testCustomer()), nil)

	rec := f.do(http.MethodPost, "/auth/login",
		`{"email":"user@example.com","password":"secret"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	env := decodeSession(t, rec)
	assert.True(t, env.Success)
	require.NotNil(t, env.Data.Tokens)
	assert.Equal(t, "access-raw", env.Data.Tokens.AccessToken)
	require.NotNil(t, env.Data.Tokens.RefreshToken)
	assert.Equal(t, "refresh-raw", *env.Data.Tokens.RefreshToken)

	assert.Nil(t, findCookie(rec, "refreshToken"))
}

func TestLogin_WebFlowSetsRefreshCookie(t *testing.T) {
	f := newRouterFixture()
	f.authUc.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(loginOutput(testCustomer()), nil)

	rec := f.do(http.MethodPost, "/auth/login",
		`{"email":"user@example.com","password":"secret"}`,
		map[string]string{deliverycontext.HeaderAuthFlow: "web"})

	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := findCookie(rec, "refreshToken")
	require.NotNil(t, cookie)
	assert.Equal(t, "refresh-raw", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/auth", cookie.Path)

	env := decodeSession(t, rec)
	require.NotNil(t, env.Data.Tokens)
	assert.Equal(t, "access-raw", env.Data.Tokens.AccessToken)
	assert.Nil(t, env.Data.Tokens.RefreshToken)
}

func TestLogin_UnknownFlowValueFallsBackToBody(t *testing.T) {
	f := newRouterFixture()
	f.authUc.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(loginOutput(testCustomer()), nil)

	rec := f.do(http.MethodPost, "/auth/login",
		`{"email":"user@example.com","password":"secret"}`,
		map[string]string{deliverycontext.HeaderAuthFlow: "mobile"})

	env := decodeSession(t, rec)
	require.NotNil(t, env.Data.Tokens)
	require.NotNil(t, env.Data.Tokens.RefreshToken)
	assert.Equal(t, "refresh-raw", *env.Data.Tokens.RefreshToken)
	assert.Nil(t, findCookie(rec, "refreshToken"))
}

func TestLogin_TwoFactorPendingReturnsNoTokens(t *testing.T) {
	f := newRouterFixture()
	f.authUc.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(&usecase.LoginOutput{User: testCustomer(), RequiresOtp: true}, nil)

	rec := f.do(http.MethodPost, "/auth/login",
		`{"email":"user@example.com","password":"secret"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	env := decodeSession(t, rec)
	assert.True(t, env.Data.RequiresOtp)
	assert.Nil(t, env.Data.Tokens)
	assert.Nil(t, findCookie(rec, "refreshToken"))
}

func TestLogin_InvalidCredentialsRendersEnvelope(t *testing.T) {
	f := newRouterFixture()
	f.authUc.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domainerrors.ErrInvalidCredentials)

	rec := f.do(http.MethodPost, "/auth/login",
		`{"email":"user@example.com","password":"wrong"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	env := decodeSession(t, rec)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
}

func TestLogin_MissingEmailFailsValidation(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodPost, "/auth/login", `{"password":"secret"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeSession(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	f.authUc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginAdmin_UsesAdminWhitelist(t *testing.T) {
	f := newRouterFixture()
	admin := testCustomer()
	admin.Role = entity.RoleAdmin
	f.authUc.On("Login", mock.Anything, mock.Anything, entity.Roles{entity.RoleAdmin}).
		Return(loginOutput(admin), nil)

	rec := f.do(http.MethodPost, "/auth/login/admin",
		`{"email":"admin@example.com","password":"secret"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	f.authUc.AssertExpectations(t)
}

func TestVerifyOtp_DeliversSession(t *testing.T) {
	f := newRouterFixture()
	f.authUc.On("VerifyOtp", mock.Anything, usecase.VerifyOtpInput{
		Email: "user@example.com",
		Otp:   "123456",
	}).Return(loginOutput(testCustomer()), nil)

	rec := f.do(http.MethodPost, "/auth/login/otp",
		`{"email":"user@example.com","otp":"123456"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	env := decodeSession(t, rec)
	require.NotNil(t, env.Data.Tokens)
	assert.Equal(t, "access-raw", env.Data.Tokens.AccessToken)
}

func TestRefresh_PrefersCookieOverBody(t *testing.T) {
	f := newRouterFixture()
	f.authUc.On("Refresh", mock.Anything, usecase.RefreshInput{RefreshToken: "cookie-token"}).
		Return(&usecase.RefreshOutput{
			User:         testCustomer(),
			AccessToken:  "access-new",
			RefreshToken: "refresh-new",
		}, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh",
		strings.NewReader(`{"refreshToken":"body-token"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "cookie-token"})

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	f.authUc.AssertExpectations(t)
}

func TestRefresh_FallsBackToBodyToken(t *testing.T) {
	f := newRouterFixture()
	f.authUc.On("Refresh", mock.Anything, usecase.RefreshInput{RefreshToken: "body-token"}).
		Return(&usecase.RefreshOutput{
			User:         testCustomer(),
			AccessToken:  "access-new",
			RefreshToken: "refresh-new",
		}, nil)

	rec := f.do(http.MethodPost, "/auth/refresh", `{"refreshToken":"body-token"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	f.authUc.AssertExpectations(t)
}

func (f *routerFixture) allowBearer(user *entity.User, token string) {
	f.tokens.On("ValidateAccessToken", token).Return(&service.AccessClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID.String(),
		},
	}, nil)
}

func TestLogout_ClearsCookie(t *testing.T) {
	f := newRouterFixture()
	user := testCustomer()
	f.allowBearer(user, "good-access")
	f.authUc.On("Logout", mock.Anything, usecase.LogoutInput{RefreshToken: "refresh-raw"}).
		Return(nil)

	rec := f.do(http.MethodPost, "/auth/logout", `{"refreshToken":"refresh-raw"}`,
		map[string]string{echo.HeaderAuthorization: "Bearer good-access"})

	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := findCookie(rec, "refreshToken")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 1)
}

func TestLogout_RequiresAuthentication(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodPost, "/auth/logout", `{"refreshToken":"refresh-raw"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	f.authUc.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
}

func TestSetTwoFactor_RequiresAuthentication(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodPut, "/auth/otp?value=true", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	f.accountUc.AssertNotCalled(t, "SetTwoFactor", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetTwoFactor_TogglesWithBearerToken(t *testing.T) {
	f := newRouterFixture()
	user := testCustomer()
	user.TwoFactorEnabled = true

	f.tokens.On("ValidateAccessToken", "good-access").Return(&service.AccessClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID.String(),
		},
	}, nil)
	f.accountUc.On("SetTwoFactor", mock.Anything, user.ID, true).Return(user, nil)

	rec := f.do(http.MethodPut, "/auth/otp?value=true", "",
		map[string]string{echo.HeaderAuthorization: "Bearer good-access"})

	assert.Equal(t, http.StatusOK, rec.Code)
	f.accountUc.AssertExpectations(t)
}

func TestRegisterCustomer_ReturnsSanitizedUser(t *testing.T) {
	f := newRouterFixture()
	user := testCustomer()
	user.IsEmailVerified = false
	f.accountUc.On("RegisterCustomer", mock.Anything, usecase.RegisterCustomerInput{
		Name:     "Test User",
		Email:    "user@example.com",
		Password: "Str0ng!Pass",
	}).Return(&usecase.RegisterOutput{User: user}, nil)

	rec := f.do(http.MethodPost, "/auth/signup/customer",
		`{"name":"Test User","email":"user@example.com","password":"Str0ng!Pass"}`, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	env := decodeSession(t, rec)
	assert.Equal(t, "user@example.com", env.Data.User["email"])
}

func TestUpdatePassword_AcceptsUserIDBody(t *testing.T) {
	f := newRouterFixture()
	userID := uuid.New()
	f.accountUc.On("UpdatePassword", mock.Anything, usecase.UpdatePasswordInput{
		UserID:      userID,
		Token:       "reset-token",
		NewPassword: "NewStrongSecret1!",
	}).Return(nil)

	rec := f.do(http.MethodPost, "/auth/password/update",
		`{"userId":"`+userID.String()+`","token":"reset-token","newPassword":"NewStrongSecret1!"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	f.accountUc.AssertExpectations(t)
}

func TestUpdatePassword_RejectsMalformedUserID(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodPost, "/auth/password/update",
		`{"userId":"not-a-uuid","token":"reset-token","newPassword":"NewStrongSecret1!"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.accountUc.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything)
}

func TestRequestEmailChange_AcceptsEmailBodyField(t *testing.T) {
	f := newRouterFixture()
	user := testCustomer()
	f.allowBearer(user, "good-access")
	f.accountUc.On("RequestEmailChange", mock.Anything, usecase.RequestEmailChangeInput{
		UserID:   user.ID,
		NewEmail: "new@example.com",
	}).Return(nil)

	rec := f.do(http.MethodPost, "/auth/email", `{"email":"new@example.com"}`,
		map[string]string{echo.HeaderAuthorization: "Bearer good-access"})

	assert.Equal(t, http.StatusOK, rec.Code)
	f.accountUc.AssertExpectations(t)
}

func TestConfirmEmailChange_DeliversFreshSession(t *testing.T) {
	f := newRouterFixture()
	user := testCustomer()
	user.Email = "new@example.com"

	f.tokens.On("ValidateAccessToken", "good-access").Return(&service.AccessClaims{
		Email: "old@example.com",
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID.String(),
		},
	}, nil)
	f.accountUc.On("ConfirmEmailChange", mock.Anything, usecase.ConfirmEmailChangeInput{
		UserID: user.ID,
		Token:  "change-token",
	}).Return(loginOutput(user), nil)

	rec := f.do(http.MethodPut, "/auth/email", `{"token":"change-token"}`,
		map[string]string{echo.HeaderAuthorization: "Bearer good-access"})

	assert.Equal(t, http.StatusOK, rec.Code)

	env := decodeSession(t, rec)
	assert.Equal(t, "new@example.com", env.Data.User["email"])
	require.NotNil(t, env.Data.Tokens)
}

func TestHealthCheck(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
