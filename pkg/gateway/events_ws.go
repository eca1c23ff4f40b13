package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ProvenanceLabs/registrar/pkg/logging"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// For early development we accept any origin; tighten later.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

// eventsWebsocketHandler streams committed events as JSON frames. The
// optional "types" query parameter is a comma-separated type filter.
func (g *Gateway) eventsWebsocketHandler(w http.ResponseWriter, r *http.Request) {
	var types []string
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.ComponentWarn(logging.ComponentGateway, "websocket upgrade failed", zap.Error(err))
		return
	}

	sub := g.events.Subscribe(types...)
	g.logger.ComponentInfo(logging.ComponentGateway, "event subscriber connected",
		zap.String("remote", r.RemoteAddr),
		zap.Strings("types", types),
	)

	done := make(chan struct{})

	// Reader: we never expect client frames, but reading drives pong
	// handling and detects disconnects.
	go func() {
		defer close(done)
		conn.SetReadLimit(1024)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		g.events.Unsubscribe(sub)
		conn.Close()
		g.logger.ComponentInfo(logging.ComponentGateway, "event subscriber disconnected",
			zap.String("remote", r.RemoteAddr),
		)
	}()

	for {
		select {
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
