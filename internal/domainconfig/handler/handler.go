// Package handler translates HTTP requests into service calls. It is the
// only layer mapping errors to status codes, and it performs the request
// checks the service does not: duplicate name on create, existence on
// update and delete, and payload validation before any write.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"domainconfig/internal/domainconfig/models"
	"domainconfig/internal/domainconfig/validate"
	"domainconfig/internal/platform/middleware"
	dErrors "domainconfig/pkg/domain-errors"
	"domainconfig/pkg/platform/httputil"
)

// Service defines the interface for domain configuration operations.
type Service interface {
	GetByName(ctx context.Context, name string) (*models.DomainConfig, error)
	GetAllActive(ctx context.Context) ([]*models.DomainConfig, error)
	GetByContextType(ctx context.Context, contextType string) ([]*models.DomainConfig, error)
	GetPaymentRequired(ctx context.Context) ([]*models.DomainConfig, error)
	GetByTransactionType(ctx context.Context, transactionType string) ([]*models.DomainConfig, error)
	Exists(ctx context.Context, name string) (bool, error)
	Save(ctx context.Context, rec *models.DomainConfig) (*models.DomainConfig, error)
	Delete(ctx context.Context, name string) error
	ClearAllCaches()
}

// Seeder defines the interface for the bootstrap loader operations exposed
// over HTTP.
type Seeder interface {
	Reload(ctx context.Context) error
	Initialized(ctx context.Context) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// Handler handles domain configuration endpoints.
type Handler struct {
	logger  *slog.Logger
	configs Service
	seeder  Seeder
}

// New creates a new domain configuration Handler.
func New(configs Service, seeder Seeder, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		configs: configs,
		seeder:  seeder,
	}
}

// Register registers the domain configuration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/domain-config", func(r chi.Router) {
		r.Get("/", h.handleGetAll)
		r.Post("/", h.handleCreate)
		r.Get("/health", h.handleHealth)
		r.Get("/status", h.handleStatus)
		r.Get("/payment-required", h.handleGetPaymentRequired)
		r.Get("/by-context/{contextType}", h.handleGetByContext)
		r.Get("/by-transaction/{transactionType}", h.handleGetByTransaction)
		r.Post("/validate", h.handleValidate)
		r.Post("/clear-cache", h.handleClearCache)
		r.Post("/reload", h.handleReload)
		r.Get("/{domainName}", h.handleGetByName)
		r.Put("/{domainName}", h.handleUpdate)
		r.Delete("/{domainName}", h.handleDelete)
	})
}

func (h *Handler) handleGetByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domainName")

	rec, err := h.configs.GetByName(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, r, "failed to fetch domain configuration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleGetAll(w http.ResponseWriter, r *http.Request) {
	recs, err := h.configs.GetAllActive(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "failed to list domain configurations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, emptyIfNil(recs))
}

func (h *Handler) handleGetByContext(w http.ResponseWriter, r *http.Request) {
	contextType := chi.URLParam(r, "contextType")

	recs, err := h.configs.GetByContextType(r.Context(), contextType)
	if err != nil {
		h.writeServiceError(w, r, "failed to query by context type", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, emptyIfNil(recs))
}

func (h *Handler) handleGetPaymentRequired(w http.ResponseWriter, r *http.Request) {
	recs, err := h.configs.GetPaymentRequired(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "failed to query payment-required domains", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, emptyIfNil(recs))
}

func (h *Handler) handleGetByTransaction(w http.ResponseWriter, r *http.Request) {
	transactionType := chi.URLParam(r, "transactionType")

	recs, err := h.configs.GetByTransactionType(r.Context(), transactionType)
	if err != nil {
		h.writeServiceError(w, r, "failed to query by transaction type", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, emptyIfNil(recs))
}

// handleCreate inserts a new configuration. The payload must validate, and
// the domain name must not exist yet, active or not. Server-assigned fields
// in the payload are ignored.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, ok := h.decodeConfig(w, r)
	if !ok {
		return
	}
	if err := validate.Config(rec); err != nil {
		httputil.WriteError(w, err)
		return
	}

	exists, err := h.configs.Exists(ctx, rec.DomainName)
	if err != nil {
		h.writeServiceError(w, r, "failed to check domain existence", err)
		return
	}
	if exists {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeConflict,
			"domain configuration '%s' already exists", rec.DomainName))
		return
	}

	rec.ID = ""
	rec.IsActive = true

	saved, err := h.configs.Save(ctx, rec)
	if err != nil {
		h.writeServiceError(w, r, "failed to create domain configuration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, saved)
}

// handleUpdate replaces the stored record's mutable fields. The identifier,
// creation timestamp, and domain name always come from the stored record;
// a client payload cannot alter them.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "domainName")

	rec, ok := h.decodeConfig(w, r)
	if !ok {
		return
	}
	if err := validate.Config(rec); err != nil {
		httputil.WriteError(w, err)
		return
	}

	existing, err := h.configs.GetByName(ctx, name)
	if err != nil {
		h.writeServiceError(w, r, "failed to load domain configuration for update", err)
		return
	}

	rec.ID = existing.ID
	rec.DomainName = existing.DomainName
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = existing.UpdatedAt
	rec.IsActive = true

	saved, err := h.configs.Save(ctx, rec)
	if err != nil {
		h.writeServiceError(w, r, "failed to update domain configuration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "domainName")

	// The service treats a missing record as a no-op; the 404 is decided
	// here.
	if _, err := h.configs.GetByName(ctx, name); err != nil {
		h.writeServiceError(w, r, "failed to load domain configuration for delete", err)
		return
	}

	if err := h.configs.Delete(ctx, name); err != nil {
		h.writeServiceError(w, r, "failed to delete domain configuration", err)
		return
	}
	httputil.WriteText(w, http.StatusOK,
		fmt.Sprintf("Domain configuration '%s' deleted successfully", name))
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.decodeConfig(w, r)
	if !ok {
		return
	}
	if err := validate.Config(rec); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteText(w, http.StatusOK, "Domain configuration is valid")
}

func (h *Handler) handleClearCache(w http.ResponseWriter, r *http.Request) {
	h.configs.ClearAllCaches()
	h.logger.InfoContext(r.Context(), "caches cleared",
		"request_id", middleware.GetRequestID(r.Context()),
	)
	httputil.WriteText(w, http.StatusOK, "All caches cleared")
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.seeder.Reload(ctx); err != nil {
		h.logger.ErrorContext(ctx, "failed to reload domain configurations",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to reload domain configurations"))
		return
	}
	h.configs.ClearAllCaches()
	httputil.WriteText(w, http.StatusOK, "Domain configurations reloaded")
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	initialized, err := h.seeder.Initialized(ctx)
	if err != nil {
		h.writeServiceError(w, r, "failed to check initialization", err)
		return
	}
	count, err := h.seeder.Count(ctx)
	if err != nil {
		h.writeServiceError(w, r, "failed to count domain configurations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"initialized": initialized,
		"count":       count,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteText(w, http.StatusOK, "Domain Configuration Service is running")
}

// decodeConfig reads a DomainConfig payload, writing a 400 on malformed
// JSON. The returned bool reports whether the caller should continue.
func (h *Handler) decodeConfig(w http.ResponseWriter, r *http.Request) (*models.DomainConfig, bool) {
	var rec models.DomainConfig
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, "invalid domain configuration payload",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return &rec, true
}

// writeServiceError logs unexpected failures and hands the error to the
// shared status mapping. Client-caused errors pass through without noise.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal {
		ctx := r.Context()
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}

func emptyIfNil(recs []*models.DomainConfig) []*models.DomainConfig {
	if recs == nil {
		return []*models.DomainConfig{}
	}
	return recs
}
