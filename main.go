/*
File: main.go
Version: 1.0.0
Last Update: 2026-08-23
Description: Process bootstrap: configuration, TLS material, resolver wiring,
             listener startup, and signal-driven graceful shutdown.
*/

package main

import (
	"context"
	"crypto/tls"
	"flag"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	flag.Parse()

	if err := LoadConfig(*configPath); err != nil {
		LogFatal("Failed to load configuration: %v", err)
	}

	cert, err := tls.LoadX509KeyPair(config.Server.TLS.CertFile, config.Server.TLS.KeyFile)
	if err != nil {
		LogFatal("Failed to load TLS key pair: %v", err)
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	resolver, err := NewHTTPResolver(config.Upstream)
	if err != nil {
		LogFatal("Failed to build upstream resolver: %v", err)
	}
	gw := NewGateway(resolver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	servers := startServers(&wg, tlsConfig, gw)
	if len(servers) == 0 {
		LogFatal("No listeners could be started")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		GlobalLimiter.StartCleanupRoutine(gctx)
		return nil
	})

	<-ctx.Done()
	LogInfo("Shutdown signal received, draining listeners")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), getShutdownTimeout())
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			LogWarn("Server [%s] shutdown: %v", srv.String(), err)
		} else {
			LogInfo("Server [%s] stopped", srv.String())
		}
	}

	g.Wait()
	LogInfo("Gateway stopped")
}
