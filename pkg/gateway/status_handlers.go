package gateway

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ProvenanceLabs/registrar/pkg/httputil"
	"github.com/ProvenanceLabs/registrar/pkg/logging"
)

func (g *Gateway) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := g.store.Ping(r.Context()); err != nil {
		g.logger.ComponentWarn(logging.ComponentGateway, "health check: store unreachable", zap.Error(err))
		status = "degraded"
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"started_at": g.startedAt,
		"uptime":     time.Since(g.startedAt).String(),
	})
}

// statusHandler aggregates server uptime with ledger counters.
func (g *Gateway) statusHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := g.registrar.Stats(r.Context())
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"node": map[string]any{
			"id":         g.cfg.Node.ID,
			"started_at": g.startedAt,
			"uptime":     time.Since(g.startedAt).String(),
		},
		"database": map[string]any{
			"driver": g.store.Driver(),
		},
		"ledger":      stats,
		"subscribers": g.events.SubscriberCount(),
	})
}
