/*
File: server_doh.go
Version: 1.1.0
Last Update: 2026-08-23
Description: HTTP handlers for DNS-over-HTTPS. Buffers the request body,
             enforces POST size bounds, mirrors the request into the uniform
             resolver contract, and replays the resolver's answer.
*/

package main

import (
	"io"
	"net/http"
)

func handleRobotsTxt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("User-agent: *\nDisallow: /\n"))
}

func (gw *Gateway) handleDoH(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr
	clientIP := getIPFromHostPort(remoteAddr)

	if !GlobalACL.Allowed(clientIP) {
		LogWarn("DoH Denied by ACL: %s", remoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if !GlobalLimiter.Allow(clientIP) {
		LogWarn("DoH Rate limit exceeded: %s", remoteAddr)
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	// Buffer the body to completion. The wait is unbounded on purpose: the
	// client decides when the body ends.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		LogWarn("DoH Body read failed from %s: %v", remoteAddr, err)
		panic(http.ErrAbortHandler)
	}

	// Out-of-bounds POST bodies end with a bare empty response and the
	// resolver is never consulted. The connection stays usable.
	if r.Method == http.MethodPost && (len(body) < MinDNSQuery || len(body) > MaxDNSQuery) {
		LogWarn("DoH POST body size %d outside [%d, %d] from %s", len(body), MinDNSQuery, MaxDNSQuery, remoteAddr)
		return
	}

	req := &UniformRequest{
		Method: r.Method,
		URL:    r.URL.RequestURI(),
		Header: r.Header.Clone(),
	}
	// GET carries the query in the URL already; only POST attaches the body.
	if r.Method == http.MethodPost {
		req.Body = body
	}

	resp, err := gw.resolver.Resolve(r.Context(), req)
	if err != nil {
		// Force-close the stream: the client sees a truncated response, not a
		// distinguishable error status.
		LogWarn("DoH Resolver failure from %s: %v", remoteAddr, err)
		panic(http.ErrAbortHandler)
	}

	hdr := w.Header()
	for k, vs := range resp.Header {
		hdr[k] = vs
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		LogWarn("DoH Write failed to %s: %v", remoteAddr, err)
	}
}
