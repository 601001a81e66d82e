package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/2beens/pagebox/internal/middleware"
	"github.com/2beens/pagebox/internal/telemetry/metrics"
	"github.com/2beens/pagebox/internal/telemetry/tracing"
	"github.com/2beens/pagebox/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type adminsRepo interface {
	Create(ctx context.Context, admin Admin) error
	GetByUsername(ctx context.Context, username string) (*Admin, error)
}

type Handler struct {
	repo             adminsRepo
	tokenService     *TokenService
	registrationCode string
	metrics          *metrics.Manager
}

func NewHandler(
	repo adminsRepo,
	tokenService *TokenService,
	registrationCode string,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:             repo,
		tokenService:     tokenService,
		registrationCode: registrationCode,
		metrics:          metricsManager,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	rateLimitAllowedPerMin int,
) {
	authRouter := mainRouter.PathPrefix("/api/auth").Subrouter()
	authRouter.
		HandleFunc("/register", handler.handleRegister).
		Methods("POST", "OPTIONS").Name("register")
	authRouter.
		HandleFunc("/login", handler.handleLogin).
		Methods("POST", "OPTIONS").Name("login")
	authRouter.
		HandleFunc("/verify-token", handler.handleVerifyToken).
		Methods("POST", "OPTIONS").Name("verify-token")

	// rate limit all auth endpoints to prevent abuse
	authRouter.Use(middleware.RateLimit(rateLimiter, "auth", rateLimitAllowedPerMin, handler.metrics))
}

type credentialsRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	SecretCode string `json:"secretCode,omitempty"`
}

func readCredentials(r *http.Request) (*credentialsRequest, error) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("unmarshal json params: %w", err)
	}
	return &req, nil
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.register")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	req, err := readCredentials(r)
	if err != nil {
		log.Errorf("register, read request: %s", err)
		http.Error(w, `{"error": "invalid request"}`, http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, `{"error": "username or password empty"}`, http.StatusBadRequest)
		return
	}

	// the secret code gates registration, compare in constant time
	if subtle.ConstantTimeCompare([]byte(req.SecretCode), []byte(handler.registrationCode)) != 1 {
		log.Tracef("[secret code] failed registration attempt for user: %s", req.Username)
		http.Error(w, `{"error": "wrong secret code"}`, http.StatusForbidden)
		span.SetStatus(codes.Error, "wrong-secret-code")
		return
	}

	passwordHash, err := pkg.HashPassword(req.Password)
	if err != nil {
		log.Errorf("register, hash password: %s", err)
		http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
		return
	}

	err = handler.repo.Create(r.Context(), Admin{
		Username:     req.Username,
		PasswordHash: passwordHash,
	})
	switch {
	case errors.Is(err, ErrUsernameTaken):
		http.Error(w, `{"error": "username already taken"}`, http.StatusBadRequest)
		span.SetStatus(codes.Error, "username-taken")
		return
	case err != nil:
		log.Errorf("register, create admin: %s", err)
		http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
		return
	}

	token, err := handler.tokenService.Issue(req.Username, RegistrationTokenTTL)
	if err != nil {
		log.Errorf("register, issue token: %s", err)
		http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
		return
	}

	if handler.metrics != nil {
		handler.metrics.CounterRegistrations.Inc()
	}
	span.SetAttributes(attribute.String("admin.username", req.Username))

	log.Tracef("new admin registered: %s", req.Username)
	pkg.WriteResponse(
		w, pkg.ContentType.JSON,
		fmt.Sprintf(`{"token": "%s"}`, token),
		http.StatusCreated,
	)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.login")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	req, err := readCredentials(r)
	if err != nil {
		log.Errorf("login, read request: %s", err)
		http.Error(w, `{"error": "invalid request"}`, http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, `{"error": "username or password empty"}`, http.StatusBadRequest)
		return
	}

	// unknown username and wrong password produce the very same response,
	// so the endpoint cannot be used to probe for existing usernames
	admin, err := handler.repo.GetByUsername(r.Context(), req.Username)
	switch {
	case errors.Is(err, ErrAdminNotFound):
		log.Tracef("[username] failed login attempt for user: %s", req.Username)
		http.Error(w, `{"error": "wrong credentials"}`, http.StatusUnauthorized)
		span.SetStatus(codes.Error, "wrong-credentials")
		return
	case err != nil:
		log.Errorf("login, get admin: %s", err)
		http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
		return
	}

	if !pkg.CheckPasswordHash(req.Password, admin.PasswordHash) {
		log.Tracef("[password] failed login attempt for user: %s", req.Username)
		http.Error(w, `{"error": "wrong credentials"}`, http.StatusUnauthorized)
		span.SetStatus(codes.Error, "wrong-credentials")
		return
	}

	token, err := handler.tokenService.Issue(admin.Username, LoginTokenTTL)
	if err != nil {
		log.Errorf("login, issue token: %s", err)
		http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
		return
	}

	if handler.metrics != nil {
		handler.metrics.CounterLogins.Inc()
	}

	log.Trace("new login success")
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"token": "%s"}`, token))
}

func (handler *Handler) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.verifyToken")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	token := middleware.BearerToken(r)
	if token == "" {
		http.Error(w, `{"error": "missing token"}`, http.StatusUnauthorized)
		span.SetStatus(codes.Error, "missing-token")
		return
	}

	username, err := handler.tokenService.Verify(token)
	if err != nil {
		http.Error(w, `{"error": "invalid token"}`, http.StatusForbidden)
		span.SetStatus(codes.Error, "invalid-token")
		return
	}

	span.SetAttributes(attribute.String("admin.username", username))
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"valid": true, "username": "%s"}`, username))
}
