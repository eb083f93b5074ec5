package users

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dowesd/dowesd/internal/shared"
	"github.com/dowesd/dowesd/internal/view"
)

// FeedItem is one txn row rendered on a profile page.
type FeedItem struct {
	ID          int64
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

// FeedSource supplies a user's most recent txns for their profile.
type FeedSource interface {
	Recent(ctx context.Context, userID int64, limit int) ([]FeedItem, error)
}

const profileFeedLimit = 10

// Handler wires HTTP endpoints for account management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	feed      FeedSource
	templates *view.Engine
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	audit     *shared.AuditLogger
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, feed FeedSource, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		feed:      feed,
		templates: templates,
		sessions:  sessions,
		csrf:      csrf,
		audit:     audit,
	}
}

type signupForm struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

func (f signupForm) credentials() Credentials {
	return Credentials{
		Name:                 f.Name,
		Email:                f.Email,
		Password:             f.Password,
		PasswordConfirmation: f.PasswordConfirmation,
	}
}

func readSignupForm(r *http.Request) signupForm {
	return signupForm{
		Name:                 r.PostFormValue("name"),
		Email:                r.PostFormValue("email"),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
	}
}

// ShowSignup renders the registration form.
func (h *Handler) ShowSignup(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/signup.html", "Sign up", map[string]any{
		"Form":   signupForm{},
		"Errors": ValidationErrors{},
	}, http.StatusOK)
}

// Create registers a new account and signs it in.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := readSignupForm(r)
	user, errs, err := h.service.Register(r.Context(), form.credentials())
	if err != nil {
		h.logger.Error("register user", slog.Any("error", err))
		h.render(w, r, "pages/signup.html", "Sign up", map[string]any{
			"Form":    form,
			"Errors":  ValidationErrors{},
			"General": shared.UserSafeMessage(err),
		}, http.StatusInternalServerError)
		return
	}
	if errs.Any() {
		h.render(w, r, "pages/signup.html", "Sign up", map[string]any{
			"Form":   form,
			"Errors": errs,
		}, http.StatusBadRequest)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetUser(strconv.FormatInt(user.ID, 10), user.RememberToken)
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome to Dowesd!"})
	}
	http.Redirect(w, r, "/users/"+strconv.FormatInt(user.ID, 10), http.StatusSeeOther)
}

// List renders the signed-in users index.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	list, pagination, err := h.service.List(r.Context(), page)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		h.render(w, r, "pages/users/list.html", "All users", map[string]any{
			"General": shared.UserSafeMessage(err),
		}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/users/list.html", "All users", map[string]any{
		"Users":      list,
		"Pagination": pagination,
	}, http.StatusOK)
}

// Show renders a profile with the owner's recent txns.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.redirectWithFlash(w, r, "/", "error", shared.UserSafeMessage(shared.ErrNotFound))
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/", "error", shared.UserSafeMessage(shared.ErrNotFound))
		return
	}
	var feed []FeedItem
	if h.feed != nil {
		feed, err = h.feed.Recent(r.Context(), user.ID, profileFeedLimit)
		if err != nil {
			h.logger.Error("profile feed", slog.Any("error", err))
			feed = nil
		}
	}
	currentID, _ := shared.SessionUserID(r.Context())
	h.render(w, r, "pages/users/show.html", user.Name, map[string]any{
		"User":   user,
		"Feed":   feed,
		"IsSelf": currentID == user.ID,
	}, http.StatusOK)
}

// ShowEdit renders the profile edit form for the signed-in user.
func (h *Handler) ShowEdit(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/", "error", shared.UserSafeMessage(err))
		return
	}
	h.render(w, r, "pages/users/edit.html", "Edit user", map[string]any{
		"User":   user,
		"Form":   signupForm{Name: user.Name, Email: user.Email},
		"Errors": ValidationErrors{},
	}, http.StatusOK)
}

// Update rewrites the signed-in user's profile. The remember token rotates
// with the save, so the current session is re-pointed at the new token to
// keep this one session alive.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	form := readSignupForm(r)
	user, errs, err := h.service.UpdateProfile(r.Context(), id, form.credentials())
	if err != nil {
		h.logger.Error("update profile", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/", "error", shared.UserSafeMessage(err))
		return
	}
	if errs.Any() {
		h.render(w, r, "pages/users/edit.html", "Edit user", map[string]any{
			"User":   &User{ID: id, Name: form.Name, Email: form.Email},
			"Form":   form,
			"Errors": errs,
		}, http.StatusBadRequest)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetUser(strconv.FormatInt(user.ID, 10), user.RememberToken)
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Profile updated"})
	}
	http.Redirect(w, r, "/users/"+strconv.FormatInt(user.ID, 10), http.StatusSeeOther)
}

// Delete cascade-deletes the signed-in user's account and ends the session.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Destroy(r.Context(), id); err != nil {
		h.logger.Error("destroy user", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/", "error", shared.UserSafeMessage(err))
		return
	}
	if h.audit != nil {
		if err := h.audit.Record(r.Context(), shared.AuditLog{
			ActorID:  id,
			Action:   "destroy",
			Entity:   "user",
			EntityID: strconv.FormatInt(id, 10),
		}); err != nil {
			h.logger.Warn("audit user destroy", slog.Any("error", err))
		}
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	currentID, signedIn := shared.SessionUserID(r.Context())
	currentUserID := ""
	if signedIn {
		currentUserID = strconv.FormatInt(currentID, 10)
	}
	viewData := view.TemplateData{
		Title:         title,
		CSRFToken:     csrfToken,
		Flash:         flash,
		CurrentPath:   r.URL.Path,
		SignedIn:      signedIn,
		CurrentUserID: currentUserID,
		Data:          data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
