package shared_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dowesd/dowesd/internal/shared"
)

func sessionForCSRF(t *testing.T) *shared.Session {
	t.Helper()
	sm := newManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return sess
}

func TestEnsureTokenStable(t *testing.T) {
	manager := shared.NewCSRFManager("csrfsecret")
	sess := sessionForCSRF(t)

	first, err := manager.EnsureToken(context.Background(), sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first == "" {
		t.Fatal("expected a token")
	}
	second, err := manager.EnsureToken(context.Background(), sess)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first != second {
		t.Fatal("token must be stable within a session")
	}
}

func TestVerifyToken(t *testing.T) {
	manager := shared.NewCSRFManager("csrfsecret")
	sess := sessionForCSRF(t)

	token, err := manager.EnsureToken(context.Background(), sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if err := manager.VerifyToken(context.Background(), sess, token); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if err := manager.VerifyToken(context.Background(), sess, "forged"); !errors.Is(err, shared.ErrCSRFTokenMismatch) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if err := manager.VerifyToken(context.Background(), sess, ""); !errors.Is(err, shared.ErrCSRFTokenMissing) {
		t.Fatalf("expected missing error, got %v", err)
	}
}

func TestVerifyTokenWithoutSessionToken(t *testing.T) {
	manager := shared.NewCSRFManager("csrfsecret")
	sess := sessionForCSRF(t)

	err := manager.VerifyToken(context.Background(), sess, "anything")
	if !errors.Is(err, shared.ErrCSRFTokenMissing) {
		t.Fatalf("expected missing error before EnsureToken, got %v", err)
	}

	if err := manager.VerifyToken(context.Background(), nil, "anything"); !errors.Is(err, shared.ErrCSRFTokenMissing) {
		t.Fatalf("expected missing error for nil session, got %v", err)
	}
}
