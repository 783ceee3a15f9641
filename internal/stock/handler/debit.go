package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/engine"
	"github.com/Pepe2244/almoxarifado-digital/pkg/httputil"
	"github.com/Pepe2244/almoxarifado-digital/pkg/logger"
)

// DebitHandler handles debit endpoints
type DebitHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewDebitHandler creates a new debit handler
func NewDebitHandler(eng *engine.Engine, log *logger.Logger) *DebitHandler {
	return &DebitHandler{
		engine: eng,
		logger: log,
	}
}

// List lists all debits, newest first
func (h *DebitHandler) List(w http.ResponseWriter, r *http.Request) {
	debits, err := h.engine.ListDebits(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, debits)
}

// Settle marks a debit as paid
func (h *DebitHandler) Settle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.engine.SettleDebit(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
