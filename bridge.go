/*
File: bridge.go
Version: 1.0.1
Last Update: 2026-08-21
Description: Bridges raw DoT queries into uniform GET requests for the
             resolver engine and hands back the raw answer bytes.
*/

package main

import (
	"context"
	"encoding/base64"
	"net/http"
)

// QueryBridge turns one raw DNS query plus its routing descriptor into a
// synthetic DoH-style GET and returns the resolver's answer bytes.
type QueryBridge struct {
	resolver Resolver
}

func NewQueryBridge(resolver Resolver) *QueryBridge {
	return &QueryBridge{resolver: resolver}
}

// Exchange suspends until the resolver answers. Failures propagate to the
// caller, which treats them as fatal to the current exchange.
func (b *QueryBridge) Exchange(ctx context.Context, rawQuery []byte, route RoutingDescriptor) ([]byte, error) {
	target := "https://" + route.Host + "/" + route.Flag +
		"?dns=" + base64.RawURLEncoding.EncodeToString(rawQuery)

	req := &UniformRequest{
		Method: http.MethodGet,
		URL:    target,
		Header: http.Header{"Accept": []string{"application/dns-message"}},
	}

	resp, err := b.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
