package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dowesd/dowesd/internal/shared"
	_ "github.com/dowesd/dowesd/testing"
)

func newManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func commit(t *testing.T, sm *shared.SessionManager, sess *shared.Session) *http.Cookie {
	t.Helper()
	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := sm.Commit(context.Background(), res, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	for _, c := range res.Result().Cookies() {
		if c.Name == sm.CookieName() {
			return c
		}
	}
	t.Fatal("session cookie not written")
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.Set("return_to", "/users/1")
	sess.SetUser("1", "token-a")
	cookie := commit(t, sm, sess)

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.AddCookie(cookie)
	loaded, err := sm.Load(context.Background(), second)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.ID != sess.ID {
		t.Fatalf("expected session ID %q, got %q", sess.ID, loaded.ID)
	}
	if loaded.Get("return_to") != "/users/1" {
		t.Fatalf("expected stored value to survive, got %q", loaded.Get("return_to"))
	}
	if loaded.User() != "1" || loaded.RememberToken() != "token-a" {
		t.Fatalf("expected user pinning to survive, got %q/%q", loaded.User(), loaded.RememberToken())
	}
}

func TestSessionCookieOnlyCarriesID(t *testing.T) {
	sm := newManager(t)

	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("42", "secret-token")
	cookie := commit(t, sm, sess)

	if cookie.Value != sess.ID {
		t.Fatalf("cookie must carry the opaque session ID only, got %q", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}
}

func TestSessionFlashDeliveredOnce(t *testing.T) {
	sm := newManager(t)

	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back!"})
	cookie := commit(t, sm, sess)

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.AddCookie(cookie)
	loaded, err := sm.Load(context.Background(), second)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	flash := loaded.PopFlash()
	if flash == nil || flash.Message != "Welcome back!" {
		t.Fatalf("expected queued flash after redirect, got %v", flash)
	}
	commit(t, sm, loaded)

	third := httptest.NewRequest(http.MethodGet, "/", nil)
	third.AddCookie(cookie)
	final, err := sm.Load(context.Background(), third)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if flash := final.PopFlash(); flash != nil {
		t.Fatalf("flash must only be delivered once, got %v", flash)
	}
}

func TestSessionDestroy(t *testing.T) {
	sm := newManager(t)

	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("1", "token")
	cookie := commit(t, sm, sess)

	sm.Destroy(sess)
	res := httptest.NewRecorder()
	if err := sm.Commit(context.Background(), res, httptest.NewRequest(http.MethodGet, "/", nil), sess); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}
	var cleared *http.Cookie
	for _, c := range res.Result().Cookies() {
		if c.Name == sm.CookieName() {
			cleared = c
		}
	}
	if cleared == nil || cleared.MaxAge != -1 {
		t.Fatal("destroy must expire the cookie")
	}

	revisit := httptest.NewRequest(http.MethodGet, "/", nil)
	revisit.AddCookie(cookie)
	loaded, err := sm.Load(context.Background(), revisit)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.User() != "" {
		t.Fatalf("destroyed session must not resolve a user, got %q", loaded.User())
	}
}
