/*
File: frame.go
Version: 1.1.0
Last Update: 2026-08-20
Description: Per-connection reassembly state for length-prefixed DNS messages on
             a DoT byte stream, plus the wire encoding of answers.
*/

package main

import (
	"encoding/binary"
	"fmt"
)

const (
	// MinDNSQuery is the smallest query forwarded upstream:
	// 12-byte DNS header plus a 5-byte minimal question section.
	MinDNSQuery = 17

	// MaxDNSQuery is the practical ceiling for a single query.
	MaxDNSQuery = 4096
)

// FramingError is fatal to the connection that produced it.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string {
	return "framing: " + e.Reason
}

// frameState accumulates the 2-byte big-endian length prefix of the next DNS
// message on a connection. It is owned by exactly one connection handler and
// reset after every successfully delimited query.
type frameState struct {
	hdr [2]byte
	off int
}

// Feed advances the state with one read chunk.
//
// It returns (nil, nil) when the chunk only contributed length-prefix bytes
// and the body is still awaited. It returns the delimited query when the chunk
// carried the prefix remainder plus exactly the announced body. Anything else
// is a FramingError: a body is never reassembled across chunks and a chunk
// never carries more than one query.
//
// The returned slice aliases chunk and is only valid until the next read.
func (s *frameState) Feed(chunk []byte) ([]byte, error) {
	if len(chunk) == 0 {
		return nil, nil
	}

	n := copy(s.hdr[s.off:], chunk)
	s.off += n
	if n == len(chunk) {
		// Chunk consumed entirely by the length prefix.
		return nil, nil
	}

	ql := int(binary.BigEndian.Uint16(s.hdr[:]))
	s.off = 0

	if ql < MinDNSQuery || ql > MaxDNSQuery {
		return nil, &FramingError{Reason: fmt.Sprintf("query length %d outside [%d, %d]", ql, MinDNSQuery, MaxDNSQuery)}
	}

	body := chunk[n:]
	if len(body) != ql {
		return nil, &FramingError{Reason: fmt.Sprintf("chunk carries %d body bytes, length prefix announced %d", len(body), ql)}
	}
	return body, nil
}

// appendFrame appends the 2-byte big-endian length prefix and the message
// itself to dst, producing one DoT wire frame.
func appendFrame(dst, msg []byte) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(msg)))
	return append(dst, msg...)
}
