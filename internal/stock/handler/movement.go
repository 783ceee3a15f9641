package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/engine"
	"github.com/Pepe2244/almoxarifado-digital/pkg/config"
	"github.com/Pepe2244/almoxarifado-digital/pkg/errors"
	"github.com/Pepe2244/almoxarifado-digital/pkg/httputil"
	"github.com/Pepe2244/almoxarifado-digital/pkg/logger"
)

// MovementHandler handles stock exits, loans, losses and expiry swaps. The
// loan-versus-exit decision lives here: kits and returnable items go out as
// allocations, everything else is a plain consumption.
type MovementHandler struct {
	engine *engine.Engine
	stock  *config.StockConfig
	logger *logger.Logger
}

// NewMovementHandler creates a new movement handler
func NewMovementHandler(eng *engine.Engine, stock *config.StockConfig, log *logger.Logger) *MovementHandler {
	return &MovementHandler{
		engine: eng,
		stock:  stock,
		logger: log,
	}
}

type movementRequest struct {
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	HolderID string `json:"holder_id,omitempty"`
	Origin   string `json:"origin,omitempty"`
}

type movementResponse struct {
	Mode           string      `json:"mode"`
	Allocation     interface{} `json:"allocation,omitempty"`
	ChangedItemIDs []string    `json:"changed_item_ids"`
}

// Create registers a stock movement for an item
func (h *MovementHandler) Create(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req movementRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.engine.GetItemByID(r.Context(), itemID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if item.IsKit() || item.Returnable || h.stock.IsReturnable(item.Category) {
		if req.HolderID == "" {
			httputil.Error(w, errors.Validation(map[string]string{
				"holder_id": "is required for returnable items",
			}))
			return
		}

		alloc, changed, err := h.engine.OpenAllocation(r.Context(), engine.OpenAllocationParams{
			ItemID:   itemID,
			Quantity: req.Quantity,
			HolderID: req.HolderID,
			Origin:   req.Origin,
		})
		if err != nil {
			httputil.Error(w, err)
			return
		}

		httputil.Created(w, movementResponse{
			Mode:           "loan",
			Allocation:     alloc,
			ChangedItemIDs: changed,
		})
		return
	}

	changed, err := h.engine.Distribute(r.Context(), itemID, req.Quantity)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, movementResponse{
		Mode:           "exit",
		ChangedItemIDs: changed,
	})
}

type directLossRequest struct {
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"required"`
	HolderID string `json:"holder_id,omitempty"`
}

// Loss discards stock that was never allocated
func (h *MovementHandler) Loss(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req directLossRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	changed, err := h.engine.RegisterDirectLoss(r.Context(), itemID, req.Quantity, req.Reason, req.HolderID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"changed_item_ids": changed,
	})
}

type adjustStockRequest struct {
	CountedQuantity *int   `json:"counted_quantity" validate:"required,gte=0"`
	Reason          string `json:"reason,omitempty"`
	BatchID         string `json:"batch_id,omitempty"`
}

// Adjust reconciles an item's ledger with a physical count
func (h *MovementHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req adjustStockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	changed, err := h.engine.AdjustStock(r.Context(), engine.AdjustStockParams{
		ItemID:          itemID,
		CountedQuantity: *req.CountedQuantity,
		Reason:          req.Reason,
		BatchID:         req.BatchID,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"changed_item_ids": changed,
	})
}

type replaceExpiredRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// ReplaceExpired swaps expired units for fresh ones
func (h *MovementHandler) ReplaceExpired(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req replaceExpiredRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	changed, err := h.engine.ReplaceExpired(r.Context(), itemID, req.Quantity)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"changed_item_ids": changed,
	})
}
