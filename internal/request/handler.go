package request

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leajer/leajer/internal/platform/httpx"
	"github.com/leajer/leajer/internal/rbac"
	"github.com/leajer/leajer/internal/shared"
)

// Handler exposes the lifecycle engine to the view layer as a JSON API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbacMW  rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbacMW: rbacMW}
}

// MountRoutes registers request routes on the provided router. The RBAC
// middleware guards the surface; the service re-checks every operation so
// nothing depends on routing alone.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbacMW.RequireAny(rbac.PermViewRequests))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbacMW.RequireAny(rbac.PermExportRequests))
		r.Get("/export", h.exportCSV)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbacMW.RequireAny(rbac.PermCreateRequest))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbacMW.RequireAny(rbac.PermEditRequest))
		r.Put("/{id}/status", h.updateStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbacMW.RequireAny(rbac.PermDeleteRequest))
		r.Delete("/{id}", h.remove)
	})
}

type listResponse struct {
	Data []RetailerRequest `json:"data"`
	Meta shared.Pagination `json:"meta"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	requests, err := h.service.List(r.Context(), sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	filtered := Filter(requests, r.URL.Query().Get("search"))
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", shared.DefaultPerPage)
	pageSlice, meta, err := Paginate(filtered, perPage, page)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: pageSlice, Meta: meta})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	req, err := h.service.Get(r.Context(), sess, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	sess := shared.SessionFromContext(r.Context())
	created, err := h.service.Create(r.Context(), sess, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

type statusBody struct {
	Status Status `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	sess := shared.SessionFromContext(r.Context())
	updated, err := h.service.UpdateStatus(r.Context(), sess, chi.URLParam(r, "id"), body.Status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if err := h.service.Delete(r.Context(), sess, chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())

	// Buffered so a failed export responds with a problem document
	// instead of a half-written attachment.
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), sess, &buf); err != nil {
		if h.logger != nil {
			h.logger.Error("export requests", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="retailer-requests.csv"`)
	_, _ = buf.WriteTo(w)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
