/*
File: utils.go
Description: Common utility functions for network address handling.
*/

package main

import (
	"net"
)

func getIPFromAddr(addr net.Addr) net.IP {
	if addr == nil {
		return nil
	}
	switch v := addr.(type) {
	case *net.UDPAddr:
		return v.IP
	case *net.TCPAddr:
		return v.IP
	case *net.IPAddr:
		return v.IP
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			return net.ParseIP(addr.String())
		}
		return net.ParseIP(host)
	}
}

// getIPFromHostPort extracts the IP from a "host:port" string as carried by
// http.Request.RemoteAddr.
func getIPFromHostPort(hostport string) net.IP {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		return net.ParseIP(hostport)
	}
	return net.ParseIP(host)
}
