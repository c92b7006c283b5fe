/*
File: server_dot.go
Version: 1.2.0
Last Update: 2026-08-23
Description: Per-connection handler for DNS-over-TLS. Owns the frame
             reassembly state, derives routing from the SNI, and bridges each
             delimited query to the resolver engine.
*/

package main

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"runtime/debug"
	"time"
)

const dotHandshakeTimeout = 5 * time.Second

// halfCloser is satisfied by *tls.Conn and lets the handler half-close the
// write side once the peer stops sending.
type halfCloser interface {
	CloseWrite() error
}

func (gw *Gateway) handleDoTConnection(conn net.Conn) {
	defer conn.Close()
	defer func() {
		if rec := recover(); rec != nil {
			LogError("Panic in DoT handler: %v\nStack: %s", rec, debug.Stack())
		}
	}()

	remoteAddr := conn.RemoteAddr()

	// TLS handshake to get SNI
	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return
	}

	conn.SetDeadline(time.Now().Add(dotHandshakeTimeout))
	if err := tlsConn.Handshake(); err != nil {
		LogWarn("DoT Handshake failed from %v: %v", remoteAddr, err)
		return
	}
	conn.SetDeadline(time.Time{})

	sni := tlsConn.ConnectionState().ServerName

	var c net.Conn = tlsConn
	if idle := config.Server.DOT.parsedIdleTimeout; idle > 0 {
		c = &idleConn{Conn: tlsConn, timeout: idle}
	}

	gw.serveDoT(c, sni, remoteAddr)
}

// serveDoT runs the exchange loop for one established connection. Queries are
// answered strictly in arrival order: the loop awaits the bridge before
// consuming further bytes, so exchanges on a connection never overlap.
func (gw *Gateway) serveDoT(conn net.Conn, sni string, remoteAddr net.Addr) {
	if sniLabelCount(sni) < 3 {
		LogWarn("DoT Rejecting connection from %v: unroutable SNI %q", remoteAddr, sni)
		return
	}
	route := parseSNI(sni)

	var state frameState
	// Large enough for one length prefix plus a maximum-size body, so a valid
	// frame is never split by our own read buffer.
	buf := make([]byte, 2+MaxDNSQuery)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			query, ferr := state.Feed(buf[:n])
			if ferr != nil {
				LogWarn("DoT Framing violation from %v: %v", remoteAddr, ferr)
				return
			}
			if query != nil {
				answer, aerr := gw.bridge.Exchange(context.Background(), query, route)
				if aerr != nil {
					LogWarn("DoT Resolver failure for %v (host %s): %v", remoteAddr, route.Host, aerr)
					return
				}
				if _, werr := conn.Write(appendFrame(make([]byte, 0, 2+len(answer)), answer)); werr != nil {
					LogWarn("DoT Write failed to %v: %v", remoteAddr, werr)
					return
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Peer half-closed the read side; mirror it and stop.
				if hc, ok := conn.(halfCloser); ok {
					hc.CloseWrite()
				}
			} else if !errors.Is(err, net.ErrClosed) {
				LogWarn("DoT Read error from %v: %v", remoteAddr, err)
			}
			return
		}
	}
}

// idleConn wraps net.Conn to extend deadlines on activity
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(b []byte) (int, error) {
	c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
	return c.Conn.Read(b)
}

func (c *idleConn) Write(b []byte) (int, error) {
	c.Conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.Conn.Write(b)
}

func (c *idleConn) CloseWrite() error {
	if hc, ok := c.Conn.(halfCloser); ok {
		return hc.CloseWrite()
	}
	return nil
}
