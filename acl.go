/*
File: acl.go
Version: 1.0.0
Last Update: 2026-08-22
Description: Client access control at the front door. Deny prefixes always win;
             a non-empty allow list turns the gateway into allow-list mode.
*/

package main

import (
	"fmt"
	"net"

	"github.com/yl2chen/cidranger"
)

// Global ACL Instance
var GlobalACL *ClientACL

type ClientACL struct {
	allow    cidranger.Ranger
	deny     cidranger.Ranger
	hasAllow bool
}

// InitACL builds the global ACL from config. Both lists empty means every
// client is admitted.
func InitACL(cfg ACLConfig) error {
	acl := &ClientACL{
		allow: cidranger.NewPCTrieRanger(),
		deny:  cidranger.NewPCTrieRanger(),
	}

	insert := func(r cidranger.Ranger, cidrs []string) error {
		for _, c := range cidrs {
			_, ipnet, err := net.ParseCIDR(c)
			if err != nil {
				return fmt.Errorf("invalid CIDR '%s': %w", c, err)
			}
			if err := r.Insert(cidranger.NewBasicRangerEntry(*ipnet)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := insert(acl.allow, cfg.Allow); err != nil {
		return err
	}
	if err := insert(acl.deny, cfg.Deny); err != nil {
		return err
	}
	acl.hasAllow = len(cfg.Allow) > 0

	GlobalACL = acl
	return nil
}

// Allowed reports whether the client IP may use the gateway.
func (a *ClientACL) Allowed(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if denied, err := a.deny.Contains(ip); err == nil && denied {
		return false
	}
	if !a.hasAllow {
		return true
	}
	allowed, err := a.allow.Contains(ip)
	return err == nil && allowed
}
