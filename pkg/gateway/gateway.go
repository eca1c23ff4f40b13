// Package gateway exposes the registrar over HTTP. Reads are open; writes
// require a signed challenge proving control of the submitting address.
package gateway

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ProvenanceLabs/registrar/pkg/auth"
	"github.com/ProvenanceLabs/registrar/pkg/config"
	"github.com/ProvenanceLabs/registrar/pkg/events"
	"github.com/ProvenanceLabs/registrar/pkg/logging"
	"github.com/ProvenanceLabs/registrar/pkg/registrar"
	"github.com/ProvenanceLabs/registrar/pkg/storage"
)

// Gateway is the HTTP front of a registrar node.
type Gateway struct {
	cfg    *config.Config
	logger *logging.ColoredLogger

	registrar *registrar.Service
	auth      *auth.Service
	events    *events.Manager
	store     *storage.Store

	startedAt time.Time
	server    *http.Server
}

// New creates a gateway over an initialized service stack.
func New(cfg *config.Config, svc *registrar.Service, authSvc *auth.Service, evts *events.Manager, store *storage.Store, logger *logging.ColoredLogger) *Gateway {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Gateway{
		cfg:       cfg,
		logger:    logger,
		registrar: svc,
		auth:      authSvc,
		events:    evts,
		store:     store,
		startedAt: time.Now().UTC(),
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
// With HTTPS enabled it delegates to the TLS serving path.
func (g *Gateway) Start(ctx context.Context) error {
	if g.cfg.Gateway.HTTPS.Enabled {
		return g.startHTTPS(ctx)
	}

	g.server = &http.Server{
		Addr:    g.cfg.Gateway.ListenAddr,
		Handler: g.Routes(),
	}

	listener, err := net.Listen("tcp", g.cfg.Gateway.ListenAddr)
	if err != nil {
		return err
	}

	g.logger.ComponentInfo(logging.ComponentGateway, "gateway listening",
		zap.String("addr", g.cfg.Gateway.ListenAddr),
	)

	go func() {
		if err := g.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			g.logger.ComponentError(logging.ComponentGateway, "serve error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	return g.Stop()
}

// Stop shuts the server down, giving in-flight requests 10 seconds.
func (g *Gateway) Stop() error {
	if g.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	g.logger.ComponentInfo(logging.ComponentGateway, "gateway shutting down")
	if err := g.server.Shutdown(ctx); err != nil {
		g.logger.ComponentError(logging.ComponentGateway, "shutdown error", zap.Error(err))
		return err
	}
	return nil
}
