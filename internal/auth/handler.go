package auth

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dowesd/dowesd/internal/shared"
	"github.com/dowesd/dowesd/internal/view"
)

// Handler wires HTTP endpoints for session flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	audit          *shared.AuditLogger
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		audit:          audit,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers session routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/signin", h.ShowSignin)
	r.Post("/sessions", h.Create)
	r.Post("/signout", h.Destroy)
	r.Delete("/signout", h.Destroy)
}

type signinForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// ShowSignin renders the sign-in form.
func (h *Handler) ShowSignin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, signinForm{}, "", http.StatusOK)
}

// Create authenticates the submitted credentials and starts a session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	form := signinForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	if err := h.validator.Struct(form); err != nil {
		h.render(w, r, form, "Invalid email/password combination", http.StatusBadRequest)
		return
	}

	user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		h.render(w, r, form, "Invalid email/password combination", http.StatusBadRequest)
		return
	}

	h.service.SignIn(sess, user)
	target := "/users/" + strconv.FormatInt(user.ID, 10)
	if sess != nil {
		if stored := sess.Get("return_to"); stored != "" {
			target = stored
			sess.Delete("return_to")
		}
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back!"})
	}
	if h.audit != nil {
		if err := h.audit.Record(r.Context(), shared.AuditLog{
			ActorID:  user.ID,
			Action:   "signin",
			Entity:   "session",
			EntityID: sessionID(sess),
		}); err != nil {
			h.logger.Warn("audit signin", slog.Any("error", err))
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Destroy ends the session.
func (h *Handler) Destroy(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if user, err := h.service.CurrentUser(r.Context(), sess); err == nil && h.audit != nil {
			if err := h.audit.Record(r.Context(), shared.AuditLog{
				ActorID:  user.ID,
				Action:   "signout",
				Entity:   "session",
				EntityID: sess.ID,
			}); err != nil {
				h.logger.Warn("audit signout", slog.Any("error", err))
			}
		}
		h.service.SignOut(sess)
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, form signinForm, errorMessage string, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data: map[string]any{
			"Form":  form,
			"Error": errorMessage,
		},
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/signin.html", viewData); err != nil {
		h.logger.Error("render signin", slog.Any("error", err))
	}
}

func sessionID(sess *shared.Session) string {
	if sess == nil {
		return "-"
	}
	return sess.ID
}
