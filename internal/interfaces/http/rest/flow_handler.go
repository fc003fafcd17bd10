package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/flowgraph/chatflow/internal/app/dto"
	"github.com/flowgraph/chatflow/internal/app/services"
	"github.com/flowgraph/chatflow/internal/core/graph"
	"github.com/flowgraph/chatflow/pkg/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FlowHandler handles flow editor requests against one store.
type FlowHandler struct {
	store   *services.FlowGraphStore
	archive *services.VersionArchive
	logger  *zap.Logger
}

// NewFlowHandler creates a new flow handler. archive may be nil.
func NewFlowHandler(store *services.FlowGraphStore, archive *services.VersionArchive, logger *zap.Logger) *FlowHandler {
	return &FlowHandler{store: store, archive: archive, logger: logger}
}

// NodeTypes handles GET /api/node-types
func (h *FlowHandler) NodeTypes(w http.ResponseWriter, _ *http.Request) {
	resp := dto.NodeTypesResponse{}
	for _, t := range graph.NodeTypes() {
		s, _ := graph.SchemaFor(t)
		resp.Types = append(resp.Types, s)
	}
	respondJSON(w, h.logger, http.StatusOK, resp)
}

// GetFlow handles GET /api/flow
func (h *FlowHandler) GetFlow(w http.ResponseWriter, _ *http.Request) {
	nodes, err := h.store.Nodes()
	if err != nil {
		h.respondError(w, err)
		return
	}
	edges, err := h.store.Edges()
	if err != nil {
		h.respondError(w, err)
		return
	}
	current, err := h.store.CurrentVersion()
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, dto.FlowResponse{
		FlowID:         h.store.FlowID(),
		CurrentVersion: current,
		Nodes:          nodes,
		Edges:          edges,
	})
}

// GetStats handles GET /api/flow/stats
func (h *FlowHandler) GetStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.store.Stats()
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, stats)
}

// AddNode handles POST /api/flow/nodes
func (h *FlowHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	req, ok := validation.Body[dto.AddNodeRequest](r)
	if !ok {
		h.respondError(w, errMissingBody)
		return
	}
	id, err := h.store.AddNode(graph.NodeType(req.Type), req.Position)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, dto.IDResponse{ID: id})
}

// GetNode handles GET /api/flow/nodes/{nodeID}
func (h *FlowHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.store.Node(chi.URLParam(r, "nodeID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, node)
}

// UpdateNodeData handles PATCH /api/flow/nodes/{nodeID}. The body is a
// partial payload; fields it omits are left untouched.
func (h *FlowHandler) UpdateNodeData(w http.ResponseWriter, r *http.Request) {
	var patch graph.DataPatch
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&patch); err != nil {
		h.respondError(w, fmt.Errorf("%w: invalid JSON: %v", graph.ErrValidation, err))
		return
	}

	id := chi.URLParam(r, "nodeID")
	if err := h.store.UpdateNodeData(id, patch); err != nil {
		h.respondError(w, err)
		return
	}
	node, err := h.store.Node(id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, node)
}

// MoveNode handles PUT /api/flow/nodes/{nodeID}/position
func (h *FlowHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	req, ok := validation.Body[dto.MoveNodeRequest](r)
	if !ok {
		h.respondError(w, errMissingBody)
		return
	}
	if err := h.store.MoveNode(chi.URLParam(r, "nodeID"), req.Position()); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveNode handles DELETE /api/flow/nodes/{nodeID}. Edges touching the
// node are removed with it.
func (h *FlowHandler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveNode(chi.URLParam(r, "nodeID")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NodeComments handles GET /api/flow/nodes/{nodeID}/comments
func (h *FlowHandler) NodeComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.store.CommentsForNode(chi.URLParam(r, "nodeID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, comments)
}

// Connect handles POST /api/flow/edges
func (h *FlowHandler) Connect(w http.ResponseWriter, r *http.Request) {
	req, ok := validation.Body[dto.ConnectRequest](r)
	if !ok {
		h.respondError(w, errMissingBody)
		return
	}
	id, err := h.store.Connect(req.Source, req.Target)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, dto.IDResponse{ID: id})
}

// RemoveEdge handles DELETE /api/flow/edges/{edgeID}
func (h *FlowHandler) RemoveEdge(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveEdge(chi.URLParam(r, "edgeID")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveVersion handles POST /api/flow/versions. With an archive configured
// the version is written through; an archive failure is logged and the
// version stays saved in the store.
func (h *FlowHandler) SaveVersion(w http.ResponseWriter, r *http.Request) {
	var (
		v   int
		err error
	)
	if h.archive != nil {
		v, err = h.archive.SaveAndArchive(r.Context(), h.store)
		if err != nil && v > 0 {
			h.logger.Error("Failed to archive version", zap.Int("version", v), zap.Error(err))
			err = nil
		}
	} else {
		v, err = h.store.SaveVersion()
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, dto.VersionResponse{VersionNumber: v})
}

// ListVersions handles GET /api/flow/versions
func (h *FlowHandler) ListVersions(w http.ResponseWriter, _ *http.Request) {
	versions, err := h.store.Versions()
	if err != nil {
		h.respondError(w, err)
		return
	}
	current, err := h.store.CurrentVersion()
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, dto.VersionsResponse{CurrentVersion: current, Versions: versions})
}

// GetVersion handles GET /api/flow/versions/{version}
func (h *FlowHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	v, err := versionParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	snap, err := h.store.Snapshot(v)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, snap.Record())
}

// LoadVersion handles POST /api/flow/versions/{version}/load
func (h *FlowHandler) LoadVersion(w http.ResponseWriter, r *http.Request) {
	v, err := versionParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.store.LoadVersion(v); err != nil {
		h.respondError(w, err)
		return
	}
	h.GetFlow(w, r)
}

// ExportHistory handles GET /api/flow/versions/export
func (h *FlowHandler) ExportHistory(w http.ResponseWriter, _ *http.Request) {
	records, err := h.store.ExportHistory()
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, dto.HistoryResponse{FlowID: h.store.FlowID(), Versions: records})
}

// ImportHistory handles POST /api/flow/versions/import. The body has the
// shape returned by ExportHistory.
func (h *FlowHandler) ImportHistory(w http.ResponseWriter, r *http.Request) {
	req, ok := validation.Body[dto.HistoryResponse](r)
	if !ok {
		h.respondError(w, errMissingBody)
		return
	}
	if err := h.store.ImportHistory(req.Versions); err != nil {
		h.respondError(w, err)
		return
	}
	h.ListVersions(w, r)
}

// AddComment handles POST /api/flow/comments
func (h *FlowHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	req, ok := validation.Body[dto.CommentRequest](r)
	if !ok {
		h.respondError(w, errMissingBody)
		return
	}
	id, err := h.store.AddComment(req.NodeID, req.Text)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, dto.IDResponse{ID: id})
}

// ListComments handles GET /api/flow/comments
func (h *FlowHandler) ListComments(w http.ResponseWriter, _ *http.Request) {
	comments, err := h.store.Comments()
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, comments)
}

// AddCollaborator handles POST /api/flow/collaborators
func (h *FlowHandler) AddCollaborator(w http.ResponseWriter, r *http.Request) {
	req, ok := validation.Body[dto.CollaboratorRequest](r)
	if !ok {
		h.respondError(w, errMissingBody)
		return
	}
	id, err := h.store.AddCollaborator(req.Name, req.Email)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, dto.IDResponse{ID: id})
}

// ListCollaborators handles GET /api/flow/collaborators
func (h *FlowHandler) ListCollaborators(w http.ResponseWriter, _ *http.Request) {
	collaborators, err := h.store.Collaborators()
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, collaborators)
}

func (h *FlowHandler) respondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	}
	respondJSON(w, h.logger, status, dto.NewErrorResponse(err))
}

var errMissingBody = fmt.Errorf("%w: missing request body", graph.ErrValidation)

func versionParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "version")
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: invalid version %q", graph.ErrValidation, raw)
	}
	return v, nil
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, graph.ErrNotReady), errors.Is(err, graph.ErrAlreadyInitialized):
		return http.StatusConflict
	case errors.Is(err, graph.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, graph.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
