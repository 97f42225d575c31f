package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumina-dist/lumina/internal/authz"
	"github.com/lumina-dist/lumina/internal/platform/httpx"
	"github.com/lumina-dist/lumina/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
	r.Get("/users", h.handleListUsers)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type accountResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	CostTier string `json:"cost_tier,omitempty"`
}

type sessionResponse struct {
	User         accountResponse    `json:"user"`
	Capabilities authz.Capabilities `json:"capabilities"`
	CSRFToken    string             `json:"csrf_token"`
}

func accountView(a *Account) accountResponse {
	return accountResponse{
		ID:       a.ID,
		Email:    a.Email,
		FullName: a.FullName,
		Role:     a.Role,
		CostTier: a.CostTier,
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		httpx.FieldProblem(w, "invalid login payload", fields)
		return
	}

	account, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(strconv.FormatInt(account.ID, 10))

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, account.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	token, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	user := &authz.User{ID: account.ID, Role: authz.ParseRole(account.Role), CostTier: account.CostTier}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		User:         accountView(account),
		Capabilities: authz.Resolve(user),
		CSRFToken:    token,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the logged-in account together with the capability matrix
// the dashboard uses to decide which views and actions to render.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u := authz.UserFromContext(r.Context())
	if u == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not logged in")
		return
	}
	account, err := h.service.Account(r.Context(), u.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	token := ""
	if sess != nil {
		token, _ = h.csrfManager.EnsureToken(r.Context(), sess)
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		User:         accountView(account),
		Capabilities: authz.Resolve(u),
		CSRFToken:    token,
	})
}

// handleListUsers lists active accounts for assignment dropdowns. Only
// Admin and Leader accounts may enumerate users.
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	u := authz.UserFromContext(r.Context())
	if u == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not logged in")
		return
	}
	if u.Role != authz.RoleAdmin && u.Role != authz.RoleLeader {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "caller cannot list accounts")
		return
	}
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		views = append(views, accountView(&accounts[i]))
	}
	httpx.JSON(w, http.StatusOK, views)
}

// LoginForTest exposes the POST handler for tests.
func (h *Handler) LoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// MeForTest exposes the GET handler for tests.
func (h *Handler) MeForTest(w http.ResponseWriter, r *http.Request) {
	h.handleMe(w, r)
}
