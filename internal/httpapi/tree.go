package httpapi

import (
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"sitemanager/core-go/internal/refresher"
	"sitemanager/core-go/internal/tree"
)

const (
	snapshotRevisionHeader = "X-Snapshot-Revision"
	maxTreeBodyBytes       = 2 << 20
	maxInputBytes          = 1 << 20
)

type treeSource string

const (
	sourceQuery    treeSource = "query"
	sourceSnapshot treeSource = "snapshot"
	sourceDatasets treeSource = "datasets"
	sourceDefault  treeSource = "default"
)

type treeView struct {
	nodes    []*tree.Node
	source   treeSource
	snapshot *refresher.Snapshot
}

type treeResponse struct {
	Source   treeSource   `json:"source"`
	Revision string       `json:"revision,omitempty"`
	Nodes    []*tree.Node `json:"nodes"`
}

type processRequest struct {
	Tree    string `json:"tree"`
	Devices string `json:"devices"`
}

func (p processRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Tree, validation.Length(0, maxInputBytes)),
		validation.Field(&p.Devices, validation.Length(0, maxInputBytes)),
	)
}

// currentTree resolves the tree a read endpoint works on: explicit tree/devices query
// parameters first, then the published snapshot, then the stored datasets, then the
// baseline alone.
func (h *Handler) currentTree(r *http.Request) (treeView, error) {
	q := r.URL.Query()
	if q.Has("tree") || q.Has("devices") {
		return treeView{nodes: h.proc.ProcessTreeData(q.Get("tree"), q.Get("devices")), source: sourceQuery}, nil
	}

	if h.snapshots != nil {
		if snap := h.snapshots.Latest(); snap != nil {
			return treeView{nodes: snap.Nodes, source: sourceSnapshot, snapshot: snap}, nil
		}
	}

	if h.datasets != nil {
		rows, err := h.datasets.ListDatasets(r.Context())
		if err != nil {
			return treeView{}, err
		}
		var treeJSON, devicesJSON string
		for _, row := range rows {
			switch row.Name {
			case refresher.DatasetTree:
				treeJSON = row.Body
			case refresher.DatasetDevices:
				devicesJSON = row.Body
			}
		}
		return treeView{nodes: h.proc.ProcessTreeData(treeJSON, devicesJSON), source: sourceDatasets}, nil
	}

	return treeView{nodes: h.proc.ProcessTreeData("", ""), source: sourceDefault}, nil
}

// loadTree writes the error response itself and reports false when no tree is available.
func (h *Handler) loadTree(w http.ResponseWriter, r *http.Request) (treeView, bool) {
	view, err := h.currentTree(r)
	if err != nil {
		h.log.Error().Err(err).Msg("load stored datasets failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to load stored datasets", nil)
		return treeView{}, false
	}
	if view.snapshot != nil {
		w.Header().Set(snapshotRevisionHeader, view.snapshot.Revision.String())
	}
	return view, true
}

func (h *Handler) handleGetTree(w http.ResponseWriter, r *http.Request) {
	view, ok := h.loadTree(w, r)
	if !ok {
		return
	}

	resp := treeResponse{Source: view.source, Nodes: view.nodes}
	if view.snapshot != nil {
		resp.Revision = view.snapshot.Revision.String()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleProcessTree(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTreeBodyBytes)

	var req processRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid process request", map[string]any{"error": err.Error()})
		return
	}

	nodes, err := h.proc.Process(req.Tree, req.Devices)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, tree.ErrCyclicStructure) || errors.Is(err, tree.ErrTreeTooDeep) {
			status = http.StatusUnprocessableEntity
		} else {
			h.log.Error().Err(err).Msg("tree processing failed")
		}
		h.writeError(w, status, "pipeline_failed", "tree could not be processed", map[string]any{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, treeResponse{Source: sourceQuery, Nodes: nodes})
}

func nodePath(r *http.Request) []string {
	q := r.URL.Query()
	if segments := q["segment"]; len(segments) > 0 {
		return segments
	}
	raw := strings.Trim(q.Get("path"), "/")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "/")
}

func (h *Handler) handleGetTreeNode(w http.ResponseWriter, r *http.Request) {
	path := nodePath(r)
	if len(path) == 0 {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "path or segment is required", nil)
		return
	}

	view, ok := h.loadTree(w, r)
	if !ok {
		return
	}

	node := tree.FindByPath(view.nodes, path)
	if node == nil {
		h.writeError(w, http.StatusNotFound, "not_found", "node not found", map[string]any{"path": path})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"path":           path,
		"selectionValue": node.SelectionValue(),
		"node":           node,
	})
}

func (h *Handler) handleSearchTree(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	view, ok := h.loadTree(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": tree.Search(view.nodes, query),
	})
}

func (h *Handler) handleTreeAlarms(w http.ResponseWriter, r *http.Request) {
	view, ok := h.loadTree(w, r)
	if !ok {
		return
	}

	counts := tree.CountAlarms(view.nodes)
	if view.snapshot != nil {
		counts = view.snapshot.Counts
	}
	h.writeJSON(w, http.StatusOK, counts)
}
