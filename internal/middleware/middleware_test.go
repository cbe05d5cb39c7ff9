package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"canteen/internal/config"
	"canteen/internal/domain/model"
	"canteen/internal/middleware"
	"canteen/internal/repository"
	auth "canteen/internal/usecase/auth_usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// レスポンス確認用
// =====================

type mwErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type mwOKResponse struct {
	UserID       int64  `json:"user_id"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}

// =====================
// UserRepository モック
// =====================

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) IncrementTokenVersion(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepo) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	args := m.Called(ctx, role)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

// =====================
// helper
// =====================

func mustMakeJWT(t *testing.T, secret string, sub int64, role string, tv int, signingMethod jwt.SigningMethod) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(sub, 10),
		"role": role,
		"tv":   tv,
		"iat":  1,
		"exp":  9999999999,
	}

	s, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func runRequest(t *testing.T, e *echo.Echo, path string, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeMWError(t *testing.T, rec *httptest.ResponseRecorder) mwErrorResponse {
	t.Helper()
	var r mwErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	return r
}

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
}

var testCfg = config.Config{JWTSecret: "test-secret"}

// =====================
// AuthJWT
// =====================

func TestAuthJWT_Unauthorized(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{name: "ヘッダなし", header: ""},
		{name: "Bearer以外", header: "Token abc.def.ghi"},
		{name: "tokenが空", header: "Bearer "},
		{name: "署名違い", header: "Bearer " + mustMakeJWT(t, "wrong-secret", 1, "user", 0, jwt.SigningMethodHS256)},
		{name: "HS512", header: "Bearer " + mustMakeJWT(t, testCfg.JWTSecret, 1, "user", 0, jwt.SigningMethodHS512)},
		{name: "未知のrole", header: "Bearer " + mustMakeJWT(t, testCfg.JWTSecret, 1, "staff", 0, jwt.SigningMethodHS256)},
		{name: "subが0", header: "Bearer " + mustMakeJWT(t, testCfg.JWTSecret, 0, "user", 0, jwt.SigningMethodHS256)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/protected", okHandler, middleware.AuthJWT(testCfg))

			rec := runRequest(t, e, "/protected", tc.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			body := decodeMWError(t, rec)
			assert.Equal(t, "unauthorized", body.Error)
			assert.Equal(t, "AuthenticationError", body.Kind)
		})
	}
}

// 正常：ctxに値が入る
func TestAuthJWT_Success_SetsContext(t *testing.T) {
	e := echo.New()
	raw := mustMakeJWT(t, testCfg.JWTSecret, 123, "admin", 7, jwt.SigningMethodHS256)

	e.GET("/protected", func(c echo.Context) error {
		userID, _ := middleware.UserID(c)
		tv, _ := c.Get(middleware.CtxTokenVersionKey).(int)
		return c.JSON(http.StatusOK, mwOKResponse{
			UserID:       userID,
			Role:         string(middleware.Role(c)),
			TokenVersion: tv,
		})
	}, middleware.AuthJWT(testCfg))

	rec := runRequest(t, e, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	assert.Equal(t, int64(123), body.UserID)
	assert.Equal(t, "admin", body.Role)
	assert.Equal(t, 7, body.TokenVersion)
}

type stubClock struct{ t time.Time }

func (c stubClock) Now() time.Time { return c.t }

// 期限切れは401
func TestAuthJWT_ExpiredToken(t *testing.T) {
	issuer, err := auth.NewJWTIssuer(testCfg.JWTSecret, time.Minute)
	assert.NoError(t, err)
	raw, _, err := issuer.Issue(1, model.RoleUser, 0, time.Now().Add(-time.Hour))
	assert.NoError(t, err)

	e := echo.New()
	e.GET("/protected", okHandler, middleware.AuthJWT(testCfg))

	rec := runRequest(t, e, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// exp/iat は verifier の時計で判定する
func TestAuthJWTWith_UsesVerifierClock(t *testing.T) {
	issuedAt := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	issuer, err := auth.NewJWTIssuer(testCfg.JWTSecret, time.Hour)
	assert.NoError(t, err)
	raw, _, err := issuer.Issue(1, model.RoleUser, 0, issuedAt)
	assert.NoError(t, err)

	cases := []struct {
		name     string
		now      time.Time
		wantCode int
	}{
		{name: "有効期間内", now: issuedAt.Add(30 * time.Minute), wantCode: http.StatusOK},
		{name: "期限後", now: issuedAt.Add(2 * time.Hour), wantCode: http.StatusUnauthorized},
		{name: "発行前", now: issuedAt.Add(-time.Hour), wantCode: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			verifier := auth.NewJWTVerifier(testCfg.JWTSecret, stubClock{t: tc.now})
			e.GET("/protected", okHandler, middleware.AuthJWTWith(verifier))

			rec := runRequest(t, e, "/protected", "Bearer "+raw)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

// =====================
// TokenVersionGuard
// =====================

func TestTokenVersionGuard_MissingContext(t *testing.T) {
	e := echo.New()
	userRepo := new(MockUserRepo)
	e.GET("/protected", okHandler, middleware.TokenVersionGuard(userRepo))

	rec := runRequest(t, e, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestTokenVersionGuard(t *testing.T) {
	cases := []struct {
		name     string
		tokenTV  int
		user     *model.User
		findErr  error
		wantCode int
	}{
		{name: "一致", tokenTV: 5, user: &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 5, IsActive: true}, wantCode: http.StatusOK},
		{name: "tv不一致", tokenTV: 0, user: &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 1, IsActive: true}, wantCode: http.StatusUnauthorized},
		{name: "停止済み", tokenTV: 2, user: &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 2, IsActive: false}, wantCode: http.StatusUnauthorized},
		{name: "userなし", tokenTV: 0, findErr: repository.ErrUserNotFound, wantCode: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			userRepo := new(MockUserRepo)
			userRepo.On("FindByID", mock.Anything, int64(1)).Return(tc.user, tc.findErr)

			e.GET("/protected", okHandler, middleware.AuthJWT(testCfg), middleware.TokenVersionGuard(userRepo))

			raw := mustMakeJWT(t, testCfg.JWTSecret, 1, "user", tc.tokenTV, jwt.SigningMethodHS256)
			rec := runRequest(t, e, "/protected", "Bearer "+raw)
			assert.Equal(t, tc.wantCode, rec.Code)

			userRepo.AssertExpectations(t)
		})
	}
}

// =====================
// AdminRoleGuard
// =====================

func TestAdminRoleGuard(t *testing.T) {
	e := echo.New()
	e.GET("/admin", okHandler, middleware.AuthJWT(testCfg), middleware.AdminRoleGuard())

	userToken := mustMakeJWT(t, testCfg.JWTSecret, 1, "user", 0, jwt.SigningMethodHS256)
	rec := runRequest(t, e, "/admin", "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AuthorizationError", decodeMWError(t, rec).Kind)

	adminToken := mustMakeJWT(t, testCfg.JWTSecret, 2, "admin", 0, jwt.SigningMethodHS256)
	rec = runRequest(t, e, "/admin", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoleGuard_WithoutAuth(t *testing.T) {
	e := echo.New()
	e.GET("/admin", okHandler, middleware.AdminRoleGuard())

	rec := runRequest(t, e, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
