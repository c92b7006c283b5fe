/*
File: server.go
Version: 1.4.0
Last Update: 2026-08-23
Description: The gateway front door: owns the DoT and DoH listeners, dispatches
             accepted connections and requests to their handlers, and wraps
             every listener for graceful shutdown.
*/

package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

const DefaultShutdownTimeout = 5 * time.Second

// Gateway binds the two transport handlers to the resolver boundary.
type Gateway struct {
	bridge   *QueryBridge
	resolver Resolver
}

func NewGateway(resolver Resolver) *Gateway {
	return &Gateway{
		bridge:   NewQueryBridge(resolver),
		resolver: resolver,
	}
}

// ServerShutdowner interface for graceful shutdown
type ServerShutdowner interface {
	Shutdown(ctx context.Context) error
	String() string
}

// HTTPServerWrapper wraps http.Server to implement ServerShutdowner
type HTTPServerWrapper struct {
	*http.Server
}

func (w *HTTPServerWrapper) Shutdown(ctx context.Context) error {
	return w.Server.Shutdown(ctx)
}

func (w *HTTPServerWrapper) String() string {
	return fmt.Sprintf("Protocol: DoH (HTTP/1.1&2) | Addr: %s", w.Addr)
}

// HTTP3ServerWrapper wraps http3.Server to implement ServerShutdowner
type HTTP3ServerWrapper struct {
	*http3.Server
}

func (w *HTTP3ServerWrapper) Shutdown(ctx context.Context) error {
	return w.Server.Close()
}

func (w *HTTP3ServerWrapper) String() string {
	return fmt.Sprintf("Protocol: DoH3 (QUIC) | Addr: %s", w.Addr)
}

// DoTServerWrapper owns the raw TLS listener and its accept loop.
type DoTServerWrapper struct {
	listener net.Listener
	gateway  *Gateway
	wg       sync.WaitGroup
	quit     chan struct{}
	Addr     string
}

func (w *DoTServerWrapper) Shutdown(ctx context.Context) error {
	close(w.quit) // Signal accept loop to stop
	if w.listener != nil {
		w.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *DoTServerWrapper) String() string {
	return fmt.Sprintf("Protocol: DoT | Addr: %s", w.Addr)
}

func (w *DoTServerWrapper) acceptLoop() {
	for {
		conn, err := w.listener.Accept()
		if err != nil {
			select {
			case <-w.quit:
				return // Normal shutdown
			default:
				LogWarn("DoT Accept error: %v", err)
				continue
			}
		}

		clientIP := getIPFromAddr(conn.RemoteAddr())
		if !GlobalACL.Allowed(clientIP) {
			LogWarn("DoT Denied by ACL: %v", conn.RemoteAddr())
			conn.Close()
			continue
		}
		if !GlobalLimiter.Allow(clientIP) {
			LogWarn("DoT Rate limit exceeded: %v", conn.RemoteAddr())
			conn.Close()
			continue
		}

		w.wg.Add(1)
		go func(c net.Conn) {
			defer w.wg.Done()
			w.gateway.handleDoTConnection(c)
		}(conn)
	}
}

func startServers(wg *sync.WaitGroup, tlsConfig *tls.Config, gw *Gateway) []ServerShutdowner {
	var servers []ServerShutdowner

	// Shared HTTP mux for the DoH listeners
	mux := http.NewServeMux()
	mux.HandleFunc("/", gw.handleDoH)
	if config.Server.DOH.RobotsTxt {
		mux.HandleFunc("/robots.txt", handleRobotsTxt)
	}

	dotAddr := net.JoinHostPort(config.Server.ListenAddr, fmt.Sprintf("%d", config.Server.Ports.TLS))
	dohAddr := net.JoinHostPort(config.Server.ListenAddr, fmt.Sprintf("%d", config.Server.Ports.HTTPS))

	// DoT (DNS over TLS) listener
	wg.Add(1)
	dotListener, err := tls.Listen("tcp", dotAddr, tlsConfig)
	if err != nil {
		LogWarn("Failed to bind DoT listener on %s: %v", dotAddr, err)
		wg.Done()
	} else {
		dotServer := &DoTServerWrapper{
			listener: dotListener,
			gateway:  gw,
			quit:     make(chan struct{}),
			Addr:     dotAddr,
		}
		go func() {
			defer wg.Done()
			LogInfo("Starting Server [%s]", dotServer.String())
			dotServer.acceptLoop()
		}()
		servers = append(servers, dotServer)
	}

	// DoH (HTTP/1.1 and HTTP/2) listener
	wg.Add(1)
	h1Server := &http.Server{Addr: dohAddr, Handler: mux, TLSConfig: tlsConfig}
	h1Wrapper := &HTTPServerWrapper{h1Server}
	go func() {
		defer wg.Done()
		LogInfo("Starting Server [%s]", h1Wrapper.String())
		if err := h1Server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			LogError("Server [%s] stopped: %v", h1Wrapper.String(), err)
		}
	}()
	servers = append(servers, h1Wrapper)

	// Optional DoH3 listener sharing the same mux
	if config.Server.DOH.HTTP3 {
		wg.Add(1)
		h3Server := &http3.Server{
			Addr:      dohAddr,
			Handler:   mux,
			TLSConfig: tlsConfig,
			QUICConfig: &quic.Config{
				Allow0RTT: true,
			},
		}
		h3Wrapper := &HTTP3ServerWrapper{h3Server}
		go func() {
			defer wg.Done()
			LogInfo("Starting Server [%s]", h3Wrapper.String())
			if err := h3Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				LogError("Server [%s] stopped: %v", h3Wrapper.String(), err)
			}
		}()
		servers = append(servers, h3Wrapper)
	}

	return servers
}

func getShutdownTimeout() time.Duration {
	if config.Server.Timeout == "" {
		return DefaultShutdownTimeout
	}
	d, err := time.ParseDuration(config.Server.Timeout)
	if err != nil {
		return DefaultShutdownTimeout
	}
	return d
}
