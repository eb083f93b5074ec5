package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/dowesd/dowesd/internal/auth"
	"github.com/dowesd/dowesd/internal/shared"
)

func guardedRequest(t *testing.T, target string, sess *shared.Session) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if sess != nil {
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	return req
}

func TestRequireSignInRedirectsAnonymous(t *testing.T) {
	dir, _ := newStubDirectory(t, "foobar")
	mw := auth.Middleware{Service: auth.NewService(dir)}

	reached := false
	handler := mw.RequireSignIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	sess := &shared.Session{}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, guardedRequest(t, "/txns/descriptions", sess))

	if reached {
		t.Fatal("guarded handler must not run for anonymous requests")
	}
	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/signin" {
		t.Fatalf("expected redirect to /signin, got %q", loc)
	}
	if got := sess.Get("return_to"); got != "/txns/descriptions" {
		t.Fatalf("expected return_to to be stored, got %q", got)
	}
}

func TestRequireSignInSkipsReturnToOnPost(t *testing.T) {
	dir, _ := newStubDirectory(t, "foobar")
	mw := auth.Middleware{Service: auth.NewService(dir)}

	handler := mw.RequireSignIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	sess := &shared.Session{}
	req := httptest.NewRequest(http.MethodPost, "/txns", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if got := sess.Get("return_to"); got != "" {
		t.Fatalf("POST targets must not be stored for forwarding, got %q", got)
	}
}

func TestRequireSignInResolvesUser(t *testing.T) {
	dir, user := newStubDirectory(t, "foobar")
	service := auth.NewService(dir)
	mw := auth.Middleware{Service: service}

	var gotID int64
	handler := mw.RequireSignIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if current := auth.UserFromContext(r.Context()); current != nil {
			gotID = current.ID
		}
	}))

	sess := &shared.Session{}
	service.SignIn(sess, user)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, guardedRequest(t, "/", sess))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if gotID != user.ID {
		t.Fatalf("expected user %d in context, got %d", user.ID, gotID)
	}
}

func TestRequireSelfRedirectsMismatch(t *testing.T) {
	dir, user := newStubDirectory(t, "foobar")
	mw := auth.Middleware{Service: auth.NewService(dir)}

	reached := false
	r := chi.NewRouter()
	r.With(mw.RequireSelf("id")).Get("/users/{id}/edit", func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	req := httptest.NewRequest(http.MethodGet, "/users/99/edit", nil)
	req = req.WithContext(auth.ContextWithUser(req.Context(), user))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if reached {
		t.Fatal("handler must not run for a foreign user ID")
	}
	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/" {
		t.Fatalf("expected redirect home, got %q", loc)
	}
}

func TestRequireSelfAllowsOwner(t *testing.T) {
	dir, user := newStubDirectory(t, "foobar")
	mw := auth.Middleware{Service: auth.NewService(dir)}

	reached := false
	r := chi.NewRouter()
	r.With(mw.RequireSelf("id")).Get("/users/{id}/edit", func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	req := httptest.NewRequest(http.MethodGet, "/users/1/edit", nil)
	req = req.WithContext(auth.ContextWithUser(req.Context(), user))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if !reached {
		t.Fatal("handler must run for the owner")
	}
}

func TestRequireSelfWithoutIdentity(t *testing.T) {
	dir, _ := newStubDirectory(t, "foobar")
	mw := auth.Middleware{Service: auth.NewService(dir)}

	r := chi.NewRouter()
	r.With(mw.RequireSelf("id")).Get("/users/{id}/edit", func(w http.ResponseWriter, r *http.Request) {})

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/users/1/edit", nil))

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/signin" {
		t.Fatalf("expected redirect to /signin, got %q", loc)
	}
}
