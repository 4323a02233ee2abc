package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fleetrecon/internal/domain"
	"fleetrecon/internal/repository"
	"fleetrecon/internal/service"
)

// LedgerHandler handles HTTP requests for driver ledgers.
type LedgerHandler struct {
	ledgerRepo repository.LedgerRepository
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerRepo repository.LedgerRepository) *LedgerHandler {
	return &LedgerHandler{ledgerRepo: ledgerRepo}
}

// LedgerResponse is the HTTP response for a driver ledger.
type LedgerResponse struct {
	DriverUUID        string  `json:"driver_uuid"`
	DriverName        string  `json:"driver_name"`
	AccountingCode    string  `json:"accounting_code,omitempty"`
	RidePriceSum      float64 `json:"ride_price_sum"`
	CommissionBolt    float64 `json:"commission_bolt"`
	CommissionTC      float64 `json:"commission_tc"`
	TipsBolt          float64 `json:"tips_bolt"`
	TipsMyPOS         float64 `json:"tips_mypos"`
	CardReceived      float64 `json:"card_received"`
	CashReceived      float64 `json:"cash_received"`
	CardTerminalValue float64 `json:"card_terminal_value"`
}

// GetAll handles GET /v1/ledgers
func (h *LedgerHandler) GetAll(c *gin.Context) {
	ledgers, err := h.ledgerRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]LedgerResponse, 0, len(ledgers))
	for _, l := range ledgers {
		resp = append(resp, toLedgerResponse(l))
	}
	respondJSON(c, http.StatusOK, resp)
}

// Get handles GET /v1/ledgers/:driver_id
func (h *LedgerHandler) Get(c *gin.Context) {
	driverID := strings.TrimSpace(c.Param("driver_id"))
	if driverID == "" {
		respondError(c, service.ErrInvalidDriverID)
		return
	}

	ledger, err := h.ledgerRepo.Get(c.Request.Context(), driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toLedgerResponse(ledger))
}

func toLedgerResponse(l *domain.DriverLedger) LedgerResponse {
	return LedgerResponse{
		DriverUUID:        l.DriverUUID,
		DriverName:        l.DriverName,
		AccountingCode:    l.AccountingCode,
		RidePriceSum:      l.RidePriceSum,
		CommissionBolt:    l.CommissionBolt,
		CommissionTC:      l.CommissionTC,
		TipsBolt:          l.TipsBolt,
		TipsMyPOS:         l.TipsMyPOS,
		CardReceived:      l.CardReceived,
		CashReceived:      l.CashReceived,
		CardTerminalValue: l.CardTerminalValue,
	}
}
