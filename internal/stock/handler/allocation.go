package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/engine"
	"github.com/Pepe2244/almoxarifado-digital/pkg/httputil"
	"github.com/Pepe2244/almoxarifado-digital/pkg/logger"
)

// AllocationHandler handles the close-out endpoints of the allocation
// lifecycle. Opening happens through the movement endpoint.
type AllocationHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewAllocationHandler creates a new allocation handler
func NewAllocationHandler(eng *engine.Engine, log *logger.Logger) *AllocationHandler {
	return &AllocationHandler{
		engine: eng,
		logger: log,
	}
}

type returnRequest struct {
	ItemID string `json:"item_id" validate:"required"`
	// Losses maps component item id to units not returned. Only valid for
	// kit allocations; an empty map is a full return.
	Losses map[string]int `json:"losses,omitempty"`
}

// Return closes an allocation, fully or with component losses
func (h *AllocationHandler) Return(w http.ResponseWriter, r *http.Request) {
	allocationID := chi.URLParam(r, "id")

	var req returnRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	var (
		changed []string
		err     error
	)
	if len(req.Losses) > 0 {
		changed, err = h.engine.ReturnAllocationWithLoss(r.Context(), req.ItemID, allocationID, req.Losses)
	} else {
		changed, err = h.engine.ReturnAllocation(r.Context(), req.ItemID, allocationID)
	}
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"changed_item_ids": changed,
	})
}

type lossRequest struct {
	ItemID string `json:"item_id" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

// Loss closes an allocation as fully lost
func (h *AllocationHandler) Loss(w http.ResponseWriter, r *http.Request) {
	allocationID := chi.URLParam(r, "id")

	var req lossRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	changed, err := h.engine.RegisterLoss(r.Context(), req.ItemID, allocationID, req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"changed_item_ids": changed,
	})
}
