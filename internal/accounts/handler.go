package accounts

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dowesd/dowesd/internal/auth"
	"github.com/dowesd/dowesd/internal/shared"
	"github.com/dowesd/dowesd/internal/view"
)

// Handler wires HTTP endpoints for shared accounts. The router mounts it
// under a user's profile, behind the sign-in and self guards, so every
// request here already carries the authenticated owner.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	audit     *shared.AuditLogger
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		audit:     audit,
	}
}

// MountRoutes registers account routes relative to /users/{id}/accounts.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/", h.Create)
	r.Get("/{accountID}", h.Show)
	r.Post("/{accountID}/delete", h.Destroy)
	r.Delete("/{accountID}", h.Destroy)
}

type accountForm struct {
	Name            string
	OtherPartyEmail string
}

// Index lists every account the user participates in, newest first, with
// the creation form.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	accounts, err := h.service.ListForUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
	}
	h.renderIndex(w, r, user.ID, accountForm{}, FormErrors{}, accounts, http.StatusOK)
}

// Create adds a shared account with the path user as owner.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	user := auth.UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	form := accountForm{
		Name:            r.PostFormValue("name"),
		OtherPartyEmail: r.PostFormValue("other_party_email"),
	}

	account, errs, err := h.service.Create(r.Context(), user.ID, CreateInput{
		Name:            form.Name,
		OtherPartyEmail: form.OtherPartyEmail,
	})
	if err != nil {
		h.logger.Error("create account", slog.Any("error", err))
		h.renderIndex(w, r, user.ID, form, FormErrors{"general": shared.UserSafeMessage(err)}, nil, http.StatusInternalServerError)
		return
	}
	if errs.Any() {
		accounts, listErr := h.service.ListForUser(r.Context(), user.ID)
		if listErr != nil {
			h.logger.Error("list accounts", slog.Any("error", listErr))
		}
		h.renderIndex(w, r, user.ID, form, errs, accounts, http.StatusBadRequest)
		return
	}

	if h.audit != nil {
		if auditErr := h.audit.Record(r.Context(), shared.AuditLog{
			ActorID:  user.ID,
			Action:   "create",
			Entity:   "account",
			EntityID: strconv.FormatInt(account.ID, 10),
		}); auditErr != nil {
			h.logger.Warn("audit account create", slog.Any("error", auditErr))
		}
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Account created!"})
	}
	http.Redirect(w, r, accountsPath(user.ID), http.StatusSeeOther)
}

// Show renders one account the user participates in. A miss redirects back
// to the account list.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		http.Redirect(w, r, accountsPath(user.ID), http.StatusSeeOther)
		return
	}
	account, err := h.service.Get(r.Context(), id, user.ID)
	if err != nil {
		http.Redirect(w, r, accountsPath(user.ID), http.StatusSeeOther)
		return
	}
	h.render(w, r, "pages/accounts/show.html", account.Name, map[string]any{
		"Account": account,
		"IsOwner": account.UserID == user.ID,
	}, http.StatusOK)
}

// Destroy removes an account; only the owner may do so. A miss, including
// an account merely shared with the user, redirects without side effects.
func (h *Handler) Destroy(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		http.Redirect(w, r, accountsPath(user.ID), http.StatusSeeOther)
		return
	}
	if err := h.service.Destroy(r.Context(), id, user.ID); err != nil {
		http.Redirect(w, r, accountsPath(user.ID), http.StatusSeeOther)
		return
	}
	if h.audit != nil {
		if auditErr := h.audit.Record(r.Context(), shared.AuditLog{
			ActorID:  user.ID,
			Action:   "destroy",
			Entity:   "account",
			EntityID: strconv.FormatInt(id, 10),
		}); auditErr != nil {
			h.logger.Warn("audit account destroy", slog.Any("error", auditErr))
		}
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Account deleted"})
	}
	http.Redirect(w, r, accountsPath(user.ID), http.StatusSeeOther)
}

func (h *Handler) renderIndex(w http.ResponseWriter, r *http.Request, userID int64, form accountForm, errs FormErrors, accounts []View, status int) {
	h.render(w, r, "pages/accounts/index.html", "Accounts", map[string]any{
		"Form":     form,
		"Errors":   errs,
		"Accounts": accounts,
		"OwnerID":  userID,
	}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title string, data map[string]any, status int) {
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
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render accounts", slog.Any("error", err))
	}
}

func accountsPath(userID int64) string {
	return fmt.Sprintf("/users/%d/accounts", userID)
}
