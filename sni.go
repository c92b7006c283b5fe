/*
File: sni.go
Version: 1.0.0
Last Update: 2026-08-20
Description: Extracts the routing descriptor (flag + upstream host) from the TLS
             Server Name Indication announced by a DoT client.
*/

package main

import (
	"strings"
)

// RoutingDescriptor carries the per-connection routing metadata smuggled
// through the SNI. Flag selects the filtering profile at the resolver, Host is
// the upstream the query is bridged to.
type RoutingDescriptor struct {
	Flag string
	Host string
}

// parseSNI splits the server name into (flag, host).
//
// A name with fewer than 3 labels carries no flag and is returned unchanged as
// the host. Otherwise the first label is the flag with '-' mapped back to '+'
// ('-' is the TLS-hostname-safe stand-in for '+', which base32 flags use
// natively), and the host is the remainder after the first dot.
func parseSNI(sni string) RoutingDescriptor {
	labels := strings.Split(sni, ".")
	if len(labels) < 3 {
		return RoutingDescriptor{Flag: "", Host: sni}
	}
	return RoutingDescriptor{
		Flag: strings.ReplaceAll(labels[0], "-", "+"),
		Host: sni[len(labels[0])+1:],
	}
}

// sniLabelCount counts the dot-separated labels of a server name. Connections
// announcing fewer than 3 labels are rejected at accept time: no flag can be
// present and the remaining name cannot form a usable upstream host.
func sniLabelCount(sni string) int {
	if sni == "" {
		return 0
	}
	return strings.Count(sni, ".") + 1
}
