package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jackc/pgx/v5"

	"sitemanager/core-go/internal/refresher"
	"sitemanager/core-go/internal/sqlcgen"
)

const maxDatasetBodyBytes = 1 << 20

type datasetInfo struct {
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

type datasetBody struct {
	datasetInfo
	Body string `json:"body"`
}

type datasetWrite struct {
	Body *string `json:"body"`
}

func (d datasetWrite) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Body, validation.NotNil, validation.Length(0, maxDatasetBodyBytes)),
	)
}

func validateDatasetName(name string) error {
	return validation.Validate(name,
		validation.Required,
		validation.In(refresher.DatasetTree, refresher.DatasetDevices).Error("must be tree or devices"),
	)
}

func toDatasetInfo(d sqlcgen.Dataset) datasetInfo {
	return datasetInfo{Name: d.Name, Size: len(d.Body), UpdatedAt: d.UpdatedAt}
}

// datasetName reads and validates the {name} URL parameter, writing a 400 on failure.
func (h *Handler) datasetName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if err := validateDatasetName(name); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid dataset name", map[string]any{"name": name, "error": err.Error()})
		return "", false
	}
	return name, true
}

// refreshSnapshot republishes the tree after a write. Failures are logged only: the write
// itself succeeded and the poll loop retries.
func (h *Handler) refreshSnapshot(ctx context.Context, name string) {
	if h.snapshots == nil {
		return
	}
	if err := h.snapshots.RefreshNow(ctx); err != nil {
		h.log.Warn().Err(err).Str("dataset", name).Msg("snapshot refresh after write failed")
	}
}

func (h *Handler) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	if !h.ensureDatasets(w) {
		return
	}

	rows, err := h.datasets.ListDatasets(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list datasets failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to list datasets", nil)
		return
	}

	resp := make([]datasetInfo, 0, len(rows))
	for _, d := range rows {
		resp = append(resp, toDatasetInfo(d))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	name, ok := h.datasetName(w, r)
	if !ok {
		return
	}
	if !h.ensureDatasets(w) {
		return
	}

	row, err := h.datasets.GetDataset(r.Context(), name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.writeError(w, http.StatusNotFound, "not_found", "dataset not found", map[string]any{"name": name})
			return
		}
		h.log.Error().Err(err).Str("name", name).Msg("get dataset failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to fetch dataset", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, datasetBody{datasetInfo: toDatasetInfo(row), Body: row.Body})
}

func (h *Handler) handlePutDataset(w http.ResponseWriter, r *http.Request) {
	name, ok := h.datasetName(w, r)
	if !ok {
		return
	}

	// JSON string escaping can roughly double the stored size.
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxDatasetBodyBytes+1024)

	var req datasetWrite
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid dataset body", map[string]any{"error": err.Error()})
		return
	}

	if !h.ensureDatasets(w) {
		return
	}

	row, err := h.datasets.UpsertDataset(r.Context(), sqlcgen.UpsertDatasetParams{Name: name, Body: *req.Body})
	if err != nil {
		h.log.Error().Err(err).Str("name", name).Msg("upsert dataset failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to store dataset", nil)
		return
	}

	h.refreshSnapshot(r.Context(), name)
	h.writeJSON(w, http.StatusOK, toDatasetInfo(row))
}

func (h *Handler) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	name, ok := h.datasetName(w, r)
	if !ok {
		return
	}
	if !h.ensureDatasets(w) {
		return
	}

	n, err := h.datasets.DeleteDataset(r.Context(), name)
	if err != nil {
		h.log.Error().Err(err).Str("name", name).Msg("delete dataset failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to delete dataset", nil)
		return
	}
	if n == 0 {
		h.writeError(w, http.StatusNotFound, "not_found", "dataset not found", map[string]any{"name": name})
		return
	}

	h.refreshSnapshot(r.Context(), name)
	w.WriteHeader(http.StatusNoContent)
}
