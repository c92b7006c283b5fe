package main

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientACL(t *testing.T) {
	t.Run("empty lists admit everyone", func(t *testing.T) {
		require.NoError(t, InitACL(ACLConfig{}))
		require.True(t, GlobalACL.Allowed(net.ParseIP("203.0.113.7")))
		require.True(t, GlobalACL.Allowed(net.ParseIP("2001:db8::1")))
	})

	t.Run("deny wins", func(t *testing.T) {
		require.NoError(t, InitACL(ACLConfig{Deny: []string{"203.0.113.0/24"}}))
		require.False(t, GlobalACL.Allowed(net.ParseIP("203.0.113.7")))
		require.True(t, GlobalACL.Allowed(net.ParseIP("198.51.100.1")))
	})

	t.Run("allow list switches to allow-list mode", func(t *testing.T) {
		require.NoError(t, InitACL(ACLConfig{Allow: []string{"10.0.0.0/8"}}))
		require.True(t, GlobalACL.Allowed(net.ParseIP("10.1.2.3")))
		require.False(t, GlobalACL.Allowed(net.ParseIP("192.168.1.1")))
	})

	t.Run("deny overrides allow", func(t *testing.T) {
		require.NoError(t, InitACL(ACLConfig{
			Allow: []string{"10.0.0.0/8"},
			Deny:  []string{"10.9.0.0/16"},
		}))
		require.True(t, GlobalACL.Allowed(net.ParseIP("10.1.2.3")))
		require.False(t, GlobalACL.Allowed(net.ParseIP("10.9.2.3")))
	})

	t.Run("nil IP is never admitted", func(t *testing.T) {
		require.NoError(t, InitACL(ACLConfig{}))
		require.False(t, GlobalACL.Allowed(nil))
	})

	t.Run("invalid CIDR is a config error", func(t *testing.T) {
		require.Error(t, InitACL(ACLConfig{Allow: []string{"not-a-cidr"}}))
	})
}
