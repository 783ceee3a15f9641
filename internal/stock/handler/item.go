package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/engine"
	"github.com/Pepe2244/almoxarifado-digital/pkg/httputil"
	"github.com/Pepe2244/almoxarifado-digital/pkg/logger"
)

// ItemHandler handles item read endpoints
type ItemHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(eng *engine.Engine, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		engine: eng,
		logger: log,
	}
}

// List lists all stock items with their derived stock figures
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.engine.GetAllItems(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, items)
}

// Get gets an item by ID
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.engine.GetItemByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}
