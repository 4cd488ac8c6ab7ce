package session

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/leajer/leajer/internal/identity"
	"github.com/leajer/leajer/internal/platform/httpx"
	"github.com/leajer/leajer/internal/rbac"
	"github.com/leajer/leajer/internal/shared"
)

// Handler wires HTTP endpoints for the sign-in flows.
type Handler struct {
	logger         *slog.Logger
	holder         *Holder
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, holder *Holder, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:         logger,
		holder:         holder,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignUp)
	r.Post("/owner-signup", h.handleOwnerSignUp)
	r.Post("/verify", h.handleVerify)
	r.Post("/resend", h.handleResend)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
	r.Get("/csrf", h.handleCSRF)
}

type signUpForm struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Name            string `json:"name" validate:"required"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var form signUpForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}

	// Self-service sign-up is salesperson only; owners register through
	// the dedicated owner flow.
	input := identity.SignUpInput{
		Email:    form.Email,
		Password: form.Password,
		Name:     form.Name,
		Role:     string(rbac.RoleSalesperson),
	}
	if err := h.holder.SignUp(r.Context(), input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"email": form.Email})
}

// Owner registration is an unadvertised endpoint rather than a linked
// flow. The display name carries an "admin-" marker so owner accounts
// stay recognizable in the provider's directory.
func (h *Handler) handleOwnerSignUp(w http.ResponseWriter, r *http.Request) {
	var form signUpForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}

	input := identity.SignUpInput{
		Email:    form.Email,
		Password: form.Password,
		Name:     "admin-" + form.Name,
		Role:     string(rbac.RoleOwner),
	}
	if err := h.holder.SignUp(r.Context(), input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"email": form.Email})
}

type verifyForm struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var form verifyForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	if err := h.holder.ConfirmSignUp(r.Context(), form.Email, form.Code); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resendForm struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) handleResend(w http.ResponseWriter, r *http.Request) {
	var form resendForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	if err := h.holder.ResendCode(r.Context(), form.Email); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type meResponse struct {
	User        shared.Identity   `json:"user"`
	Permissions []rbac.Permission `json:"permissions"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		if h.logger != nil {
			h.logger.Error("session missing during login")
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	ident, err := h.holder.SignIn(r.Context(), sess, form.Email, form.Password)
	if err != nil {
		if h.logger != nil {
			h.logger.Info("login failed", slog.String("email", form.Email), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	// New CSRF token after the privilege change.
	h.csrfManager.RotateToken(sess)

	httpx.JSON(w, http.StatusOK, meResponse{
		User:        ident,
		Permissions: h.holder.CurrentPermissions(sess),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.holder.SignOut(r.Context(), sess)
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.Identity() == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Not Signed In", "")
		return
	}
	httpx.JSON(w, http.StatusOK, meResponse{
		User:        *sess.Identity(),
		Permissions: h.holder.CurrentPermissions(sess),
	})
}

func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}
