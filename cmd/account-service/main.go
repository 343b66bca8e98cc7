package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/kidneysync/platform/pkg/common/config"
	"github.com/kidneysync/platform/pkg/common/database"
	"github.com/kidneysync/platform/pkg/common/logger"
	"github.com/kidneysync/platform/pkg/common/models"
	"github.com/kidneysync/platform/pkg/gateway/auth"
	"github.com/kidneysync/platform/pkg/gateway/middleware"
	"github.com/kidneysync/platform/pkg/identity"
)

type AccountAPI struct {
	service *identity.Service
	jwt     *auth.JWTManager
	oidc    *auth.OIDCAuthenticator
}

func main() {
	logger.Init("account-service")
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	repo := identity.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate user tables")
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid JWT configuration")
	}

	api := &AccountAPI{
		service: identity.NewService(repo),
		jwt:     jwtManager,
	}

	if cfg.OIDCIssuer != "" {
		redirectURL := fmt.Sprintf("http://%s:%s/api/v1/auth/sso/callback", cfg.ServerHost, "8086")
		oidc, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, redirectURL)
		if err != nil {
			logger.Log.WithError(err).Fatal("Invalid OIDC configuration")
		}
		api.oidc = oidc
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/api/v1/auth/register", api.register).Methods("POST")
	router.HandleFunc("/api/v1/auth/login", api.login).Methods("POST")
	if api.oidc != nil {
		router.HandleFunc("/api/v1/auth/sso/login", api.ssoLogin).Methods("GET")
	}

	protected := router.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.Authenticate(jwtManager))
	protected.HandleFunc("/auth/me", api.me).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, "8086"),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": "8086",
		}).Info("Account Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Account Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Account Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (a *AccountAPI) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	user, err := a.service.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, identity.ErrEmailAlreadyExists) {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Log.WithField("user_id", user.ID).Info("User registered")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (a *AccountAPI) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	user, err := a.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		logger.Log.WithError(err).Error("Login failed")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	token, expiresAt, err := a.jwt.IssueToken(user)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to issue token")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		FullName:  user.FullName,
	})
}

func (a *AccountAPI) ssoLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"auth_url": a.oidc.AuthCodeURL(state),
		"state":    state,
	})
}

func (a *AccountAPI) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"user_id":   claims.UserID.String(),
		"email":     claims.Email,
		"full_name": claims.FullName,
	})
}
