package txns

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dowesd/dowesd/internal/auth"
	"github.com/dowesd/dowesd/internal/platform/httpx"
	"github.com/dowesd/dowesd/internal/shared"
	"github.com/dowesd/dowesd/internal/view"
)

// Handler wires HTTP endpoints for txns and renders the signed-in home
// page, which doubles as the txn input form.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	audit     *shared.AuditLogger
	guard     auth.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, audit *shared.AuditLogger, guard auth.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		audit:     audit,
		guard:     guard,
		validator: validator.New(),
	}
}

// MountRoutes registers txn routes. Everything here requires a signed-in
// user; ownership is enforced per operation.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireSignIn)
		r.Post("/", h.Create)
		r.Get("/descriptions", h.Descriptions)
		r.Post("/{id}/delete", h.Destroy)
		r.Delete("/{id}", h.Destroy)
	})
}

type txnForm struct {
	Date        string `validate:"required"`
	Amount      string `validate:"required"`
	Description string `validate:"required,max=140"`
}

// Home renders the feed page with the txn input form. The router routes
// signed-in "/" requests here.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	feed, pagination, err := h.service.Feed(r.Context(), user.ID, page)
	if err != nil {
		h.logger.Error("load feed", slog.Any("error", err))
	}
	h.renderHome(w, r, txnForm{}, FormErrors{}, feed, pagination, http.StatusOK)
}

// Create builds a txn under the current user from the submitted fields. On
// failure the home page is re-rendered with an empty feed list.
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
	form := txnForm{
		Date:        r.PostFormValue("date"),
		Amount:      r.PostFormValue("amount"),
		Description: r.PostFormValue("description"),
	}

	errs := make(FormErrors)
	if err := h.validator.Struct(form); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range fieldErrs {
				errs[formFieldName(fieldErr.Field())] = "is invalid"
			}
		}
	}
	if !errs.Any() {
		_, serviceErrs, err := h.service.Create(r.Context(), user.ID, CreateInput{
			Date:        form.Date,
			Amount:      form.Amount,
			Description: form.Description,
		})
		if err != nil {
			h.logger.Error("create txn", slog.Any("error", err))
			h.renderHome(w, r, form, FormErrors{"general": shared.UserSafeMessage(err)}, nil, shared.Pagination{}, http.StatusInternalServerError)
			return
		}
		errs = serviceErrs
	}

	if errs.Any() {
		h.renderHome(w, r, form, errs, nil, shared.Pagination{}, http.StatusBadRequest)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Transaction created!"})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Destroy removes one of the current user's txns. A miss, including a txn
// owned by somebody else, redirects home without revealing anything.
func (h *Handler) Destroy(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := h.service.Destroy(r.Context(), user.ID, id); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if h.audit != nil {
		if err := h.audit.Record(r.Context(), shared.AuditLog{
			ActorID:  user.ID,
			Action:   "destroy",
			Entity:   "txn",
			EntityID: strconv.FormatInt(id, 10),
		}); err != nil {
			h.logger.Warn("audit txn destroy", slog.Any("error", err))
		}
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Transaction deleted"})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Descriptions returns the current user's distinct txn descriptions as a
// JSON array, for form autocompletion.
func (h *Handler) Descriptions(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	descriptions, err := h.service.Descriptions(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("list descriptions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if descriptions == nil {
		descriptions = []string{}
	}
	httpx.JSON(w, http.StatusOK, descriptions)
}

func (h *Handler) renderHome(w http.ResponseWriter, r *http.Request, form txnForm, errs FormErrors, feed []Txn, pagination shared.Pagination, status int) {
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
		Title:         "Home",
		CSRFToken:     csrfToken,
		Flash:         flash,
		CurrentPath:   r.URL.Path,
		SignedIn:      signedIn,
		CurrentUserID: currentUserID,
		Data: map[string]any{
			"Form":       form,
			"Errors":     errs,
			"Feed":       feed,
			"Pagination": pagination,
		},
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/home.html", viewData); err != nil {
		h.logger.Error("render home", slog.Any("error", err))
	}
}

func formFieldName(structField string) string {
	switch structField {
	case "Date":
		return "date"
	case "Amount":
		return "amount"
	case "Description":
		return "description"
	default:
		return structField
	}
}
