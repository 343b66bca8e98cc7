package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/kidneysync/platform/pkg/common/logger"
	"github.com/kidneysync/platform/pkg/gateway/auth"
	"github.com/kidneysync/platform/pkg/gateway/middleware"
)

func TestMain(m *testing.M) {
	logger.Init("account-service-test")
	os.Exit(m.Run())
}

func TestMeReturnsAuthenticatedUser(t *testing.T) {
	api := &AccountAPI{}
	userID := uuid.New()
	claims := &auth.Claims{
		UserID:   userID,
		Email:    "pat@example.com",
		FullName: "Pat Example",
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	ctx := context.WithValue(req.Context(), middleware.ClaimsContextKey, claims)
	rec := httptest.NewRecorder()

	api.me(rec, req.WithContext(ctx))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["user_id"] != userID.String() {
		t.Fatalf("expected user_id %q, got %q", userID.String(), body["user_id"])
	}
	if body["email"] != "pat@example.com" {
		t.Fatalf("expected email in response, got %q", body["email"])
	}
	if body["full_name"] != "Pat Example" {
		t.Fatalf("expected full_name in response, got %q", body["full_name"])
	}
}

func TestMeRejectsMissingClaims(t *testing.T) {
	api := &AccountAPI{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()

	api.me(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
