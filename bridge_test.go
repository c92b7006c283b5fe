package main

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

// resolverStub records uniform requests and replays canned answers.
type resolverStub struct {
	requests []*UniformRequest
	resolve  func(ctx context.Context, req *UniformRequest) (*UniformResponse, error)
}

func (s *resolverStub) Resolve(ctx context.Context, req *UniformRequest) (*UniformResponse, error) {
	s.requests = append(s.requests, req)
	if s.resolve != nil {
		return s.resolve(ctx, req)
	}
	return &UniformResponse{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte("answer")}, nil
}

// minimalQuery packs a real DNS query for the root name: exactly 17 bytes,
// the smallest message the gateway accepts.
func minimalQuery(t *testing.T) []byte {
	t.Helper()
	msg := new(dns.Msg)
	msg.SetQuestion(".", dns.TypeA)
	raw, err := msg.Pack()
	require.NoError(t, err)
	require.Len(t, raw, MinDNSQuery)
	return raw
}

func TestQueryBridgeExchange(t *testing.T) {
	t.Run("builds GET with base64url query and no padding", func(t *testing.T) {
		stub := &resolverStub{}
		bridge := NewQueryBridge(stub)
		raw := minimalQuery(t)

		answer, err := bridge.Exchange(context.Background(), raw, RoutingDescriptor{Flag: "", Host: "dns.example"})
		require.NoError(t, err)
		require.Equal(t, []byte("answer"), answer)

		require.Len(t, stub.requests, 1)
		req := stub.requests[0]
		require.Equal(t, http.MethodGet, req.Method)
		require.Equal(t, "https://dns.example/?dns="+base64.RawURLEncoding.EncodeToString(raw), req.URL)
		require.False(t, strings.HasSuffix(req.URL, "="), "dns parameter must not carry base64 padding")
		require.Equal(t, "application/dns-message", req.Header.Get("Accept"))
		require.Nil(t, req.Body)
	})

	t.Run("flag becomes the request path", func(t *testing.T) {
		stub := &resolverStub{}
		bridge := NewQueryBridge(stub)

		_, err := bridge.Exchange(context.Background(), minimalQuery(t), RoutingDescriptor{Flag: "abc+def", Host: "dns.example"})
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(stub.requests[0].URL, "https://dns.example/abc+def?dns="))
	})

	t.Run("propagates resolver failure", func(t *testing.T) {
		wantErr := errors.New("engine down")
		stub := &resolverStub{
			resolve: func(ctx context.Context, req *UniformRequest) (*UniformResponse, error) {
				return nil, wantErr
			},
		}
		bridge := NewQueryBridge(stub)

		_, err := bridge.Exchange(context.Background(), minimalQuery(t), RoutingDescriptor{Host: "dns.example"})
		require.ErrorIs(t, err, wantErr)
	})
}
