package main

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// frame builds one wire frame: 2-byte big-endian length plus body.
func frame(body []byte) []byte {
	return appendFrame(nil, body)
}

func TestFrameStateFeed(t *testing.T) {
	t.Run("complete frame in one chunk", func(t *testing.T) {
		var s frameState
		body := make([]byte, MinDNSQuery)
		for i := range body {
			body[i] = byte(i)
		}

		query, err := s.Feed(frame(body))
		require.NoError(t, err)
		require.Equal(t, body, query)
	})

	t.Run("empty chunk is ignored", func(t *testing.T) {
		var s frameState
		query, err := s.Feed(nil)
		require.NoError(t, err)
		require.Nil(t, query)
	})

	t.Run("length prefix may span chunks", func(t *testing.T) {
		var s frameState
		body := make([]byte, 42)
		wire := frame(body)

		// First prefix byte alone.
		query, err := s.Feed(wire[:1])
		require.NoError(t, err)
		require.Nil(t, query)

		// Second prefix byte plus the whole body.
		query, err = s.Feed(wire[1:])
		require.NoError(t, err)
		require.Equal(t, body, query)
	})

	t.Run("prefix byte by byte then body-only chunk", func(t *testing.T) {
		var s frameState
		body := make([]byte, MinDNSQuery)
		wire := frame(body)

		query, err := s.Feed(wire[:1])
		require.NoError(t, err)
		require.Nil(t, query)

		// Second chunk ends exactly at the prefix boundary: still waiting.
		query, err = s.Feed(wire[1:2])
		require.NoError(t, err)
		require.Nil(t, query)

		// The next chunk is then the entire body.
		query, err = s.Feed(wire[2:])
		require.NoError(t, err)
		require.Equal(t, body, query)
	})

	t.Run("state resets after a delimited query", func(t *testing.T) {
		var s frameState
		first := make([]byte, 20)
		second := make([]byte, 30)

		query, err := s.Feed(frame(first))
		require.NoError(t, err)
		require.Len(t, query, 20)

		query, err = s.Feed(frame(second))
		require.NoError(t, err)
		require.Len(t, query, 30)
	})

	t.Run("length below minimum is fatal", func(t *testing.T) {
		var s frameState
		_, err := s.Feed(frame(make([]byte, MinDNSQuery-1)))
		var ferr *FramingError
		require.ErrorAs(t, err, &ferr)
	})

	t.Run("length above maximum is fatal", func(t *testing.T) {
		var s frameState
		wire := binary.BigEndian.AppendUint16(nil, MaxDNSQuery+1)
		wire = append(wire, make([]byte, 10)...)
		_, err := s.Feed(wire)
		var ferr *FramingError
		require.ErrorAs(t, err, &ferr)
	})

	t.Run("body shorter than announced is fatal", func(t *testing.T) {
		var s frameState
		wire := binary.BigEndian.AppendUint16(nil, 100)
		wire = append(wire, make([]byte, 50)...)
		_, err := s.Feed(wire)
		var ferr *FramingError
		require.ErrorAs(t, err, &ferr)
	})

	t.Run("body longer than announced is fatal", func(t *testing.T) {
		// A chunk carrying a complete query plus the start of a second one is
		// not split further.
		var s frameState
		wire := frame(make([]byte, MinDNSQuery))
		wire = append(wire, 0x00) // first byte of the next prefix
		_, err := s.Feed(wire)
		var ferr *FramingError
		require.ErrorAs(t, err, &ferr)
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		for _, ql := range []int{MinDNSQuery, 64, MaxDNSQuery} {
			var s frameState
			query, err := s.Feed(frame(make([]byte, ql)))
			require.NoError(t, err)
			require.Len(t, query, ql)
		}
	})
}

func TestAppendFrame(t *testing.T) {
	t.Run("round-trips through the state machine", func(t *testing.T) {
		body := make([]byte, 300)
		for i := range body {
			body[i] = byte(i)
		}
		wire := appendFrame(nil, body)
		require.Len(t, wire, 2+len(body))
		require.Equal(t, uint16(len(body)), binary.BigEndian.Uint16(wire[:2]))

		var s frameState
		query, err := s.Feed(wire)
		require.NoError(t, err)
		require.Equal(t, body, query)
	})

	t.Run("appends to existing prefix", func(t *testing.T) {
		dst := []byte{0xAA}
		wire := appendFrame(dst, []byte{1, 2, 3})
		require.Equal(t, []byte{0xAA, 0x00, 0x03, 1, 2, 3}, wire)
	})
}
