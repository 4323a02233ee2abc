package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fleetrecon/internal/domain"
	"fleetrecon/internal/scheduler"
	"fleetrecon/internal/service"
	"fleetrecon/internal/tests"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTrigger struct {
	summary *service.CycleSummary
	err     error
	last    *service.CycleSummary
}

func (f *fakeTrigger) Trigger(ctx context.Context) (*service.CycleSummary, error) {
	return f.summary, f.err
}

func (f *fakeTrigger) LastSummary() *service.CycleSummary {
	return f.last
}

func serve(method, path string, register func(r *gin.Engine)) *httptest.ResponseRecorder {
	r := gin.New()
	register(r)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

// ──────────────────────────────────────────────
// CYCLES
// ──────────────────────────────────────────────

func TestCycleHandler_Run(t *testing.T) {
	t.Parallel()

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	h := NewCycleHandler(&fakeTrigger{summary: &service.CycleSummary{
		ID:         "c-1",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Finished:   2,
		Failed:     1,
		Errors:     []string{"REF-1: persistence failure"},
	}})

	w := serve(http.MethodPost, "/v1/cycles", func(r *gin.Engine) { r.POST("/v1/cycles", h.Run) })
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp CycleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "c-1" || resp.Finished != 2 || resp.Failed != 1 || resp.DurationMS != 1500 {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.Errors) != 1 {
		t.Errorf("expected errors carried over, got %v", resp.Errors)
	}
}

func TestCycleHandler_RunErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{scheduler.ErrCycleRunning, http.StatusConflict},
		{service.ErrCycleInProgress, http.StatusConflict},
		{fmt.Errorf("%w: timeout", service.ErrUpstreamUnavailable), http.StatusBadGateway},
		{fmt.Errorf("%w: boom", service.ErrPersistence), http.StatusInternalServerError},
	}

	for _, tt := range cases {
		h := NewCycleHandler(&fakeTrigger{err: tt.err})
		w := serve(http.MethodPost, "/v1/cycles", func(r *gin.Engine) { r.POST("/v1/cycles", h.Run) })
		if w.Code != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, w.Code)
		}
	}
}

func TestCycleHandler_LastBeforeAnyCycle(t *testing.T) {
	t.Parallel()

	h := NewCycleHandler(&fakeTrigger{})
	w := serve(http.MethodGet, "/v1/cycles/last", func(r *gin.Engine) { r.GET("/v1/cycles/last", h.Last) })
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ──────────────────────────────────────────────
// LEDGERS
// ──────────────────────────────────────────────

func TestLedgerHandler_Get(t *testing.T) {
	t.Parallel()

	store := tests.NewMockStore()
	store.AddLedger(domain.DriverLedger{DriverUUID: "D1", DriverName: "Alice", RidePriceSum: 35, CommissionTC: 8.75, CardTerminalValue: 35})
	h := NewLedgerHandler(store)
	register := func(r *gin.Engine) { r.GET("/v1/ledgers/:driver_id", h.Get) }

	w := serve(http.MethodGet, "/v1/ledgers/D1", register)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp LedgerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DriverName != "Alice" || resp.RidePriceSum != 35 || resp.CommissionTC != 8.75 {
		t.Errorf("unexpected response %+v", resp)
	}

	if w := serve(http.MethodGet, "/v1/ledgers/D9", register); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown driver, got %d", w.Code)
	}
}

func TestLedgerHandler_GetAll(t *testing.T) {
	t.Parallel()

	store := tests.NewMockStore()
	store.AddLedger(domain.DriverLedger{DriverUUID: "D1"})
	store.AddLedger(domain.DriverLedger{DriverUUID: "D2"})
	h := NewLedgerHandler(store)

	w := serve(http.MethodGet, "/v1/ledgers", func(r *gin.Engine) { r.GET("/v1/ledgers", h.GetAll) })
	var resp []LedgerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("expected 2 ledgers, got %d", len(resp))
	}
}

// ──────────────────────────────────────────────
// PENDING ORDERS
// ──────────────────────────────────────────────

func TestPendingOrderHandler_FlagsStaleOrders(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := tests.NewMockStore()
	store.AddPending(domain.PendingOrder{
		OrderRecord: domain.OrderRecord{OrderReference: "REF-1", DriverUUID: "D1"},
		LastChecked: now.Add(-3 * time.Hour),
	})
	store.AddPending(domain.PendingOrder{OrderRecord: domain.OrderRecord{OrderReference: "REF-2", DriverUUID: "D1"}})

	h := NewPendingOrderHandler(store, 2*time.Hour)
	h.now = func() time.Time { return now }

	w := serve(http.MethodGet, "/v1/orders/pending", func(r *gin.Engine) { r.GET("/v1/orders/pending", h.GetAll) })
	var resp []PendingOrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(resp))
	}
	for _, o := range resp {
		wantStale := o.OrderReference == "REF-1"
		if o.Stale != wantStale {
			t.Errorf("%s: stale = %v, want %v", o.OrderReference, o.Stale, wantStale)
		}
	}
}

func TestPendingOrderHandler_ListFailure(t *testing.T) {
	t.Parallel()

	store := tests.NewMockStore()
	store.ListError = tests.ErrMockTimeout
	h := NewPendingOrderHandler(store, time.Hour)

	w := serve(http.MethodGet, "/v1/orders/pending", func(r *gin.Engine) { r.GET("/v1/orders/pending", h.GetAll) })
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}
