package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"roster/internal/registry/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/httputil"
	"roster/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Registry

// Registry is the operation surface shared by both registry kinds.
type Registry interface {
	Add(ctx context.Context, account id.AccountID) (models.Index, error)
	Remove(ctx context.Context, index models.Index) (id.AccountID, error)
}

// Handler exposes the registries over HTTP.
type Handler struct {
	registries map[models.Kind]Registry
	logger     *slog.Logger
}

func New(registries map[models.Kind]Registry, logger *slog.Logger) *Handler {
	return &Handler{registries: registries, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registries/{kind}/members", h.HandleAdd)
	r.Delete("/registries/{kind}/members/{index}", h.HandleRemove)
}

func (h *Handler) registry(w http.ResponseWriter, r *http.Request) (models.Kind, Registry, bool) {
	kind, ok := models.ParseKind(chi.URLParam(r, "kind"))
	if ok {
		if reg, found := h.registries[kind]; found {
			return kind, reg, true
		}
	}
	httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown registry"))
	return "", nil, false
}

// HandleAdd handles POST /registries/{kind}/members.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	kind, reg, ok := h.registry(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddMemberRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	index, err := reg.Add(ctx, req.ParsedAccount())
	if err != nil {
		h.logger.WarnContext(ctx, "add member failed",
			"request_id", requestID,
			"registry", kind,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "member added",
		"request_id", requestID,
		"registry", kind,
		"index", index,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, AddMemberResponse{Index: uint32(index)})
}

// HandleRemove handles DELETE /registries/{kind}/members/{index}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	kind, reg, ok := h.registry(w, r)
	if !ok {
		return
	}
	index, err := parseIndexParam(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	removed, err := reg.Remove(ctx, index)
	if err != nil {
		h.logger.WarnContext(ctx, "remove member failed",
			"request_id", requestID,
			"registry", kind,
			"index", index,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "member removed",
		"request_id", requestID,
		"registry", kind,
		"index", index,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, RemoveMemberResponse{Account: removed.String(), Index: uint32(index)})
}
