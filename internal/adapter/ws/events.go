package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event types pushed to the admin console.
const (
	EventBatchProgress       = "seo.batch.progress"
	EventBatchCompleted      = "seo.batch.completed"
	EventOptimizationApplied = "seo.optimization.applied"
)

// BatchProgressEvent is broadcast after each chunk of a batch finishes.
type BatchProgressEvent struct {
	BatchID   string `json:"batch_id"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Applied   int    `json:"applied"`
	Failed    int    `json:"failed"`
}

// BatchCompletedEvent is broadcast when a batch job finishes.
type BatchCompletedEvent struct {
	BatchID string `json:"batch_id"`
	Total   int    `json:"total"`
	Applied int    `json:"applied"`
	Failed  int    `json:"failed"`
}

// OptimizationAppliedEvent is broadcast when a single product is optimized.
type OptimizationAppliedEvent struct {
	ProductID string  `json:"product_id"`
	Applied   bool    `json:"applied"`
	Score     float64 `json:"score"`
}

// BroadcastEvent marshals payload and broadcasts it under eventType.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("websocket event marshal failed", "type", eventType, "error", err)
		return
	}
	h.Broadcast(ctx, Message{Type: eventType, Payload: data})
}
