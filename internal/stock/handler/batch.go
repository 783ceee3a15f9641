package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/engine"
	"github.com/Pepe2244/almoxarifado-digital/pkg/httputil"
	"github.com/Pepe2244/almoxarifado-digital/pkg/logger"
)

// BatchHandler handles batch ledger endpoints
type BatchHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(eng *engine.Engine, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		engine: eng,
		logger: log,
	}
}

type createBatchRequest struct {
	Quantity          int        `json:"quantity" validate:"required,gt=0"`
	AcquisitionDate   time.Time  `json:"acquisition_date" validate:"required"`
	ManufacturingDate *time.Time `json:"manufacturing_date,omitempty"`
	ShelfLifeDays     int        `json:"shelf_life_days,omitempty" validate:"gte=0"`
}

// Create adds a new batch to an item
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req createBatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, changed, err := h.engine.AddBatch(r.Context(), engine.AddBatchParams{
		ItemID:                itemID,
		Quantity:              req.Quantity,
		AcquisitionDate:       req.AcquisitionDate,
		ManufacturingDate:     req.ManufacturingDate,
		ShelfLifeDaysOverride: req.ShelfLifeDays,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, map[string]interface{}{
		"batch":            batch,
		"changed_item_ids": changed,
	})
}

// Delete removes a batch from an item
func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	batchID := chi.URLParam(r, "batchID")

	if _, err := h.engine.RemoveBatch(r.Context(), itemID, batchID); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
