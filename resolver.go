/*
File: resolver.go
Version: 1.2.0
Last Update: 2026-08-21
Description: The uniform request/response contract with the external DNS
             resolution engine, and the default HTTP-backed implementation that
             forwards uniform requests upstream.
*/

package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// MaxAnswerSize caps how much of a resolver answer is read back (64KB, the
// largest DNS message representable on the wire).
const MaxAnswerSize = 65535

// UniformRequest is the only request shape crossing the resolver boundary.
// Both transports normalize into it: the DoT bridge builds a synthetic GET,
// the DoH handler mirrors the client request.
type UniformRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte // nil for GET
}

// UniformResponse is the resolver's answer: status, headers, and the raw
// DNS message body.
type UniformResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Resolver is the external resolution/blocking engine. Implementations fail by
// returning an error; callers decide how fatal that is to their transport.
type Resolver interface {
	Resolve(ctx context.Context, req *UniformRequest) (*UniformResponse, error)
}

// Shared TLS session cache for upstream connections (session resumption keeps
// reconnect handshakes cheap).
var upstreamSessionCache = tls.NewLRUClientSessionCache(2048)

// HTTPResolver forwards uniform requests to an upstream HTTPS resolver. It is
// the production Resolver; tests substitute stubs.
type HTTPResolver struct {
	client *http.Client
	base   *url.URL // optional rewrite target for relative request URLs
}

// NewHTTPResolver builds the forwarding resolver from the upstream config
// block. An empty baseURL means every UniformRequest must carry an absolute
// URL (the DoT bridge always does).
func NewHTTPResolver(cfg UpstreamConfig) (*HTTPResolver, error) {
	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream base_url %q: %w", cfg.BaseURL, err)
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("upstream base_url %q must be absolute", cfg.BaseURL)
		}
		base = u
	}

	timeout := cfg.parsedTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Insecure,
			ClientSessionCache: upstreamSessionCache,
			MinVersion:         tls.VersionTLS12,
		},
		ForceAttemptHTTP2: true,
	}

	return &HTTPResolver{
		client: &http.Client{Transport: transport, Timeout: timeout},
		base:   base,
	}, nil
}

// Resolve implements Resolver over a plain HTTP exchange.
func (r *HTTPResolver) Resolve(ctx context.Context, req *UniformRequest) (*UniformResponse, error) {
	target, err := r.targetURL(req.URL)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hReq.Header.Add(k, v)
		}
	}

	hResp, err := r.client.Do(hReq)
	if err != nil {
		return nil, err
	}
	defer hResp.Body.Close()

	answer, err := io.ReadAll(io.LimitReader(hResp.Body, MaxAnswerSize))
	if err != nil {
		return nil, fmt.Errorf("reading resolver answer: %w", err)
	}

	return &UniformResponse{
		StatusCode: hResp.StatusCode,
		Header:     hResp.Header.Clone(),
		Body:       answer,
	}, nil
}

// targetURL resolves the request URL against the configured base. Absolute
// URLs pass through untouched; relative ones (mirrored DoH paths) require a
// base to forward to.
func (r *HTTPResolver) targetURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid request URL %q: %w", raw, err)
	}
	if u.IsAbs() {
		return raw, nil
	}
	if r.base == nil {
		return "", fmt.Errorf("relative request URL %q without upstream base_url", raw)
	}
	return r.base.ResolveReference(u).String(), nil
}
