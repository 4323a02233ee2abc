package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleetrecon/internal/service"
)

// CycleTrigger runs reconciliation cycles on demand.
type CycleTrigger interface {
	Trigger(ctx context.Context) (*service.CycleSummary, error)
	LastSummary() *service.CycleSummary
}

// CycleHandler handles HTTP requests for reconciliation cycles.
type CycleHandler struct {
	trigger CycleTrigger
}

// NewCycleHandler creates a new CycleHandler.
func NewCycleHandler(trigger CycleTrigger) *CycleHandler {
	return &CycleHandler{trigger: trigger}
}

// CycleResponse is the HTTP response for a cycle summary.
type CycleResponse struct {
	ID           string   `json:"id"`
	StartedAt    string   `json:"started_at"`
	FinishedAt   string   `json:"finished_at"`
	DurationMS   int64    `json:"duration_ms"`
	WindowStart  string   `json:"window_start,omitempty"`
	WindowEnd    string   `json:"window_end,omitempty"`
	Pending      int      `json:"pending"`
	Snapshots    int      `json:"snapshots"`
	Finished     int      `json:"finished"`
	Anomalous    int      `json:"anomalous"`
	StillPending int      `json:"still_pending"`
	Failed       int      `json:"failed"`
	Errors       []string `json:"errors"`
}

// Run handles POST /v1/cycles
func (h *CycleHandler) Run(c *gin.Context) {
	summary, err := h.trigger.Trigger(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toCycleResponse(summary))
}

// Last handles GET /v1/cycles/last
func (h *CycleHandler) Last(c *gin.Context) {
	summary := h.trigger.LastSummary()
	if summary == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no cycle has completed yet"})
		return
	}
	respondJSON(c, http.StatusOK, toCycleResponse(summary))
}

func toCycleResponse(s *service.CycleSummary) CycleResponse {
	resp := CycleResponse{
		ID:           s.ID,
		StartedAt:    formatTime(s.StartedAt),
		FinishedAt:   formatTime(s.FinishedAt),
		DurationMS:   s.Duration().Milliseconds(),
		WindowStart:  formatTime(s.WindowStart),
		WindowEnd:    formatTime(s.WindowEnd),
		Pending:      s.Pending,
		Snapshots:    s.Snapshots,
		Finished:     s.Finished,
		Anomalous:    s.Anomalous,
		StillPending: s.StillPending,
		Failed:       s.Failed,
		Errors:       s.Errors,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
