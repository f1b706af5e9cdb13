package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/sboruta/tracker/internal/syncer"
	"github.com/sboruta/tracker/pkg/models"
	"github.com/sboruta/tracker/pkg/repository"
)

// SyncStore is the slice of the central store the sync endpoints need.
type SyncStore interface {
	repository.RowStore

	ListChangedSince(ctx context.Context, table models.Table, since int64, employeeID string) ([]models.Row, error)
}

// PresignService hands out presigned PUT URLs for screenshot files.
type PresignService interface {
	PresignPut(ctx context.Context, employeeID string) (key, url string, err error)
}

// SyncHandler serves the two protocol operations every agent drives: an
// idempotent batch upload and an idempotent incremental download. Incoming
// rows go through schema validation and then the same conflict resolver
// the agents run locally, so both sides converge on identical state.
type SyncHandler struct {
	store     SyncStore
	resolver  *syncer.Resolver
	validator *RowValidator
	presigner PresignService
}

func NewSyncHandler(store SyncStore, resolver *syncer.Resolver, validator *RowValidator, presigner PresignService) *SyncHandler {
	return &SyncHandler{store: store, resolver: resolver, validator: validator, presigner: presigner}
}

type uploadRequest struct {
	Table   string            `json:"table"`
	Changes []json.RawMessage `json:"changes"`
}

type uploadResponse struct {
	Status  string `json:"status"`
	Applied int    `json:"applied"`
	Skipped int    `json:"skipped"`
}

func (h *SyncHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	table, ok := models.TableByName(req.Table)
	if !ok {
		http.Error(w, "unknown table", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	applied, skipped := 0, 0
	for _, raw := range req.Changes {
		if err := h.validator.Validate(ctx, table, raw); err != nil {
			logger.Warn("skipping invalid row", slog.String("table", table.Name), slog.Any("err", err))
			skipped++
			continue
		}
		row := table.New()
		if err := json.Unmarshal(raw, row); err != nil {
			logger.Warn("skipping malformed row", slog.String("table", table.Name), slog.Any("err", err))
			skipped++
			continue
		}
		if err := h.resolver.Apply(ctx, h.store, table, row); err != nil {
			logger.Warn("failed to apply row",
				slog.String("table", table.Name),
				slog.String("id", row.RowID()),
				slog.Any("err", err),
			)
			skipped++
			continue
		}
		applied++
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploadResponse{Status: "ok", Applied: applied, Skipped: skipped})
}

type downloadPayload struct {
	Changes []models.Row `json:"changes"`
}

func (h *SyncHandler) Download(w http.ResponseWriter, r *http.Request) {
	table, ok := models.TableByName(r.URL.Query().Get("table"))
	if !ok {
		http.Error(w, "unknown table", http.StatusBadRequest)
		return
	}

	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	employeeID := r.URL.Query().Get("employee_id")

	// companies go out in full to every agent regardless of its cursor
	if table.Name == models.Companies.Name {
		since = 0
		employeeID = ""
	}

	rows, err := h.store.ListChangedSince(r.Context(), table, since, employeeID)
	if err != nil {
		logger.Error("download failed", slog.String("table", table.Name), slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []models.Row{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(downloadPayload{Changes: rows})
}

type presignResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// PresignScreenshot returns a one-time PUT URL for a screenshot file. The
// storage key is scoped to the employee bound to the token.
func (h *SyncHandler) PresignScreenshot(w http.ResponseWriter, r *http.Request) {
	if h.presigner == nil {
		http.Error(w, "object storage not configured", http.StatusServiceUnavailable)
		return
	}

	employeeID := EmployeeIDFromContext(r.Context())
	if employeeID == "" {
		http.Error(w, "employee token required", http.StatusForbidden)
		return
	}

	key, url, err := h.presigner.PresignPut(r.Context(), employeeID)
	if err != nil {
		logger.Error("presign failed", slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(presignResponse{Key: key, URL: url})
}
