package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumina-dist/lumina/internal/auth"
	"github.com/lumina-dist/lumina/internal/authz"
	"github.com/lumina-dist/lumina/internal/shared"
	_ "github.com/lumina-dist/lumina/testing"
)

type stubRepo struct {
	account *auth.Account
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	if s.account == nil || !strings.EqualFold(s.account.Email, email) {
		return nil, shared.ErrNotFound
	}
	return s.account, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.Account, error) {
	if s.account == nil || s.account.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.account, nil
}

func (s *stubRepo) ListActive(ctx context.Context) ([]auth.Account, error) {
	if s.account == nil {
		return nil, nil
	}
	return []auth.Account{*s.account}, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, accountID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(testLogger(), auth.NewService(repo), sessionManager, csrfManager)
	return handler, sessionManager
}

func testAccount(t *testing.T, password string) *auth.Account {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.Account{
		ID:           1,
		Email:        "sales@lumina.test",
		FullName:     "Sales Person",
		PasswordHash: string(hashed),
		Role:         "Sales",
		CostTier:     "RD",
		IsActive:     true,
	}
}

func TestLoginSuccess(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{account: testAccount(t, "correctpass")})

	body := strings.NewReader(`{"email":"sales@lumina.test","password":"correctpass"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)
	require.NoError(t, sessionManager.Commit(req.Context(), res, req, sess))

	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		User struct {
			ID       int64  `json:"id"`
			Role     string `json:"role"`
			CostTier string `json:"cost_tier"`
		} `json:"user"`
		Capabilities authz.Capabilities `json:"capabilities"`
		CSRFToken    string             `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Equal(t, int64(1), payload.User.ID)
	require.Equal(t, "Sales", payload.User.Role)
	require.Equal(t, "RD", payload.User.CostTier)
	require.NotEmpty(t, payload.CSRFToken)

	// Sales gets customer management but not item management.
	require.True(t, payload.Capabilities.CanManageCustomers)
	require.False(t, payload.Capabilities.CanManageItems)

	require.Equal(t, "1", sess.User())
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{account: testAccount(t, "correctpass")})

	body := strings.NewReader(`{"email":"sales@lumina.test","password":"wrongpass1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Empty(t, sess.User())
}

func TestLoginValidation(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	body := strings.NewReader(`{"email":"not-an-email","password":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
	var problem struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &problem))
	require.Contains(t, problem.Fields, "Email")
	require.Contains(t, problem.Fields, "Password")
}

func TestLoginInactiveAccount(t *testing.T) {
	account := testAccount(t, "correctpass")
	account.IsActive = false
	handler, sessionManager := newAuthHandler(t, &stubRepo{account: account})

	body := strings.NewReader(`{"email":"sales@lumina.test","password":"correctpass"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestMeUnauthenticated(t *testing.T) {
	handler, _ := newAuthHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	res := httptest.NewRecorder()
	handler.MeForTest(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestUserByIDMapsRole(t *testing.T) {
	svc := auth.NewService(&stubRepo{account: testAccount(t, "correctpass")})

	u, err := svc.UserByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, authz.RoleSales, u.Role)
	require.Equal(t, "RD", u.CostTier)

	_, err = svc.UserByID(context.Background(), 2)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
