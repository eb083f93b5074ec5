package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dowesd/dowesd/internal/accounts"
	"github.com/dowesd/dowesd/internal/auth"
	"github.com/dowesd/dowesd/internal/observability"
	"github.com/dowesd/dowesd/internal/shared"
	"github.com/dowesd/dowesd/internal/txns"
	"github.com/dowesd/dowesd/internal/users"
	"github.com/dowesd/dowesd/internal/view"
	"github.com/dowesd/dowesd/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Templates       *view.Engine
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	AuthHandler     *auth.Handler
	AuthMiddleware  auth.Middleware
	UsersHandler    *users.Handler
	TxnsHandler     *txns.Handler
	AccountsHandler *accounts.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Dowesd defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Landing page for unauthenticated users
	r.Get("/welcome", staticPage(params, "pages/welcome.html", "Welcome"))
	r.Get("/about", staticPage(params, "pages/about.html", "About"))
	r.Get("/contact", staticPage(params, "pages/contact.html", "Contact"))

	home := params.AuthMiddleware.RequireSignIn(http.HandlerFunc(params.TxnsHandler.Home))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, "/welcome", http.StatusSeeOther)
			return
		}
		home.ServeHTTP(w, r)
	})

	r.Get("/signup", params.UsersHandler.ShowSignup)
	params.AuthHandler.MountRoutes(r)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", params.UsersHandler.Create)

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequireSignIn)
			r.Get("/", params.UsersHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", params.UsersHandler.Show)

				r.Group(func(r chi.Router) {
					r.Use(params.AuthMiddleware.RequireSelf("id"))
					r.Get("/edit", params.UsersHandler.ShowEdit)
					r.Post("/edit", params.UsersHandler.Update)
					r.Post("/delete", params.UsersHandler.Delete)
					r.Delete("/", params.UsersHandler.Delete)
					r.Route("/accounts", params.AccountsHandler.MountRoutes)
				})
			})
		})
	})

	r.Route("/txns", params.TxnsHandler.MountRoutes)

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		// Static files are served without session or CSRF requirements.
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

func staticPage(params RouterParams, page, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		var currentUserID string
		if sess != nil {
			flash = sess.PopFlash()
			currentUserID = sess.User()
		}
		data := view.TemplateData{
			Title:         title,
			CSRFToken:     csrfToken,
			Flash:         flash,
			CurrentPath:   r.URL.Path,
			SignedIn:      currentUserID != "",
			CurrentUserID: currentUserID,
		}
		if err := params.Templates.Render(w, page, data); err != nil {
			params.Logger.Error("render page", slog.String("page", page), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
