package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	// Setup
	underlyingStore := NewMockStore()
	// Mask variables whose names contain "password" or "ssn"
	secureStore := middleware.Chain(underlyingStore, middleware.NewPIIMiddleware([]string{"password", "ssn"}))

	ctx := context.Background()
	sessionID := "pii-session"

	vars := map[string]domain.Value{
		"username":      domain.String("jdoe"),
		"user_password": domain.String("secret123"),
		"ssn_number":    domain.Number(999999999),
	}
	for name, v := range vars {
		if err := secureStore.Put(ctx, sessionID, name, v); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	stored, err := underlyingStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}

	if !stored["username"].Equal(domain.String("jdoe")) {
		t.Error("Username shouldn't be masked")
	}
	if !stored["user_password"].Equal(domain.String(middleware.Mask)) {
		t.Errorf("Password should be masked, got: %v", stored["user_password"])
	}
	if !stored["ssn_number"].Equal(domain.String(middleware.Mask)) {
		t.Errorf("SSN should be masked, got: %v", stored["ssn_number"])
	}
}
