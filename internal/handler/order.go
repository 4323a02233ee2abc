package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleetrecon/internal/domain"
	"fleetrecon/internal/repository"
	"fleetrecon/internal/service"
)

// PendingOrderHandler handles HTTP requests for the pending order queue.
type PendingOrderHandler struct {
	pendingRepo repository.PendingOrderRepository
	staleAfter  time.Duration
	now         func() time.Time
}

// NewPendingOrderHandler creates a new PendingOrderHandler.
func NewPendingOrderHandler(pendingRepo repository.PendingOrderRepository, staleAfter time.Duration) *PendingOrderHandler {
	return &PendingOrderHandler{pendingRepo: pendingRepo, staleAfter: staleAfter, now: time.Now}
}

// PendingOrderResponse is the HTTP response for a pending order.
type PendingOrderResponse struct {
	OrderReference string  `json:"order_reference"`
	DriverUUID     string  `json:"driver_uuid"`
	DriverName     string  `json:"driver_name"`
	Status         string  `json:"status"`
	PaymentMethod  string  `json:"payment_method"`
	RidePrice      float64 `json:"ride_price"`
	CreatedAt      string  `json:"created_at,omitempty"`
	LastChecked    string  `json:"last_checked,omitempty"`
	Stale          bool    `json:"stale"`
}

// GetAll handles GET /v1/orders/pending
func (h *PendingOrderHandler) GetAll(c *gin.Context) {
	orders, err := h.pendingRepo.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.now()
	resp := make([]PendingOrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, h.toResponse(o, now))
	}
	respondJSON(c, http.StatusOK, resp)
}

func (h *PendingOrderHandler) toResponse(o *domain.PendingOrder, now time.Time) PendingOrderResponse {
	return PendingOrderResponse{
		OrderReference: o.OrderReference,
		DriverUUID:     o.DriverUUID,
		DriverName:     o.DriverName,
		Status:         string(o.Status),
		PaymentMethod:  string(o.PaymentMethod),
		RidePrice:      o.Fare.RidePrice,
		CreatedAt:      formatTime(o.Timestamps.Created),
		LastChecked:    formatTime(o.LastChecked),
		Stale:          service.IsStale(o.LastChecked, now, h.staleAfter),
	}
}
