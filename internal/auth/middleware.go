package auth

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dowesd/dowesd/internal/shared"
)

// returnToKey stores the URL a signed-out visitor tried to reach, so the
// sign-in flow can forward them back afterwards.
const returnToKey = "return_to"

// Middleware gates routes on request identity. Guard failures never reach
// the target handler and always answer with a redirect, not an error page.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireSignIn resolves the current user and stashes it in the request
// context. Anonymous requests are redirected to the sign-in page before the
// target operation begins.
func (m Middleware) RequireSignIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		user, err := m.Service.CurrentUser(r.Context(), sess)
		if err != nil {
			if sess != nil {
				if r.Method == http.MethodGet {
					sess.Set(returnToKey, r.URL.RequestURI())
				}
				sess.AddFlash(shared.FlashMessage{Kind: "notice", Message: "Please sign in."})
			}
			http.Redirect(w, r, "/signin", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireSelf restricts a route subtree to the user named by the URL
// parameter. A mismatch redirects home; whether the target user exists is
// not revealed.
func (m Middleware) RequireSelf(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				// RequireSignIn did not run upstream; treat as anonymous.
				http.Redirect(w, r, "/signin", http.StatusSeeOther)
				return
			}
			id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
			if err != nil || id != user.ID {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
