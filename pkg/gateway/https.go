package gateway

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/ProvenanceLabs/registrar/pkg/logging"
)

// startHTTPS serves the router over TLS, with a plain HTTP listener kept
// around for the ACME challenge and an https redirect.
func (g *Gateway) startHTTPS(ctx context.Context) error {
	cfg := g.cfg.Gateway.HTTPS

	httpPort := cfg.HTTPPort
	if httpPort == 0 {
		httpPort = 80
	}
	httpsPort := cfg.HTTPSPort
	if httpsPort == 0 {
		httpsPort = 443
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	var certManager *autocert.Manager
	switch {
	case cfg.AutoCert:
		cacheDir := cfg.CacheDir
		if cacheDir == "" {
			cacheDir = "./data/tls-cache"
		}
		certManager = &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.Domain),
			Cache:      autocert.DirCache(cacheDir),
			Email:      cfg.Email,
		}
		tlsConfig.GetCertificate = certManager.GetCertificate
		g.logger.ComponentInfo(logging.ComponentGateway, "autocert configured",
			zap.String("domain", cfg.Domain),
			zap.String("cache_dir", cacheDir),
		)
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return fmt.Errorf("load TLS certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	default:
		return fmt.Errorf("https enabled but no certificate source configured")
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", httpPort),
		Handler: acmeRedirectHandler(certManager, httpsPort),
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			g.logger.ComponentError(logging.ComponentGateway, "http redirect server error", zap.Error(err))
		}
	}()

	g.server = &http.Server{
		Addr:      fmt.Sprintf(":%d", httpsPort),
		Handler:   g.Routes(),
		TLSConfig: tlsConfig,
	}

	listener, err := tls.Listen("tcp", g.server.Addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("create TLS listener: %w", err)
	}

	g.logger.ComponentInfo(logging.ComponentGateway, "https gateway listening",
		zap.String("domain", cfg.Domain),
		zap.Int("port", httpsPort),
	)

	go func() {
		if err := g.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			g.logger.ComponentError(logging.ComponentGateway, "https serve error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		g.logger.ComponentWarn(logging.ComponentGateway, "http redirect shutdown error", zap.Error(err))
	}
	return g.Stop()
}

// acmeRedirectHandler answers ACME HTTP-01 challenges and redirects
// everything else to https.
func acmeRedirectHandler(certManager *autocert.Manager, httpsPort int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if certManager != nil && strings.HasPrefix(r.URL.Path, "/.well-known/acme-challenge/") {
			certManager.HTTPHandler(nil).ServeHTTP(w, r)
			return
		}

		target := "https://" + r.Host + r.URL.RequestURI()
		if httpsPort != 443 {
			host := r.Host
			if idx := strings.LastIndex(host, ":"); idx > 0 {
				host = host[:idx]
			}
			target = fmt.Sprintf("https://%s:%d%s", host, httpsPort, r.URL.RequestURI())
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
}
