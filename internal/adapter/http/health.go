package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Strob0t/ShopForge/internal/port/messagequeue"
	"github.com/Strob0t/ShopForge/internal/resilience"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports the state of the gateway's dependencies. Nil fields are
// reported as disabled.
type Health struct {
	CacheBackend string
	Breakers     []*resilience.Breaker
	Queue        messagequeue.Queue
	DB           Pinger
	WebSockets   interface{ ConnectionCount() int }
}

type healthStatus struct {
	Status           string            `json:"status"`
	Cache            string            `json:"cache"`
	Breakers         map[string]string `json:"breakers"`
	NATS             string            `json:"nats"`
	Postgres         string            `json:"postgres"`
	WebSocketClients int               `json:"websocket_clients"`
}

// ServeHTTP always answers 200 while the process is up; "degraded" means a
// dependency is down and storefront SEO data is being served from fallbacks.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := healthStatus{
		Status:   "ok",
		Cache:    h.CacheBackend,
		Breakers: make(map[string]string, len(h.Breakers)),
		NATS:     "disabled",
		Postgres: "disabled",
	}

	for _, b := range h.Breakers {
		state := b.State()
		st.Breakers[b.Name()] = string(state)
		if state == resilience.StateOpen {
			st.Status = "degraded"
		}
	}

	if h.Queue != nil {
		st.NATS = "connected"
		if !h.Queue.IsConnected() {
			st.NATS = "disconnected"
			st.Status = "degraded"
		}
	}

	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		st.Postgres = "ok"
		if err := h.DB.Ping(ctx); err != nil {
			st.Postgres = "unreachable"
			st.Status = "degraded"
		}
	}

	if h.WebSockets != nil {
		st.WebSocketClients = h.WebSockets.ConnectionCount()
	}

	writeJSON(w, http.StatusOK, st)
}
