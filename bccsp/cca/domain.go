/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cca

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// DefaultDomainFile holds the AP usage domain assigned to this system.
const DefaultDomainFile = "/sys/bus/ap/ap_domain"

// DomainResolver looks up the usage domain once and remembers it. Failed
// lookups are not remembered; requests built meanwhile go to AnyDomain.
type DomainResolver struct {
	Path string

	// domain plus one, zero while unknown
	cached atomic.Int32
}

var defaultResolver = &DomainResolver{Path: DefaultDomainFile}

// DefaultDomainResolver returns the process wide resolver reading
// DefaultDomainFile.
func DefaultDomainResolver() *DomainResolver {
	return defaultResolver
}

// Domain returns the usage domain, or AnyDomain when it cannot be read.
func (d *DomainResolver) Domain() uint16 {
	if v := d.cached.Load(); v != 0 {
		return uint16(v - 1)
	}

	path := d.Path
	if path == "" {
		path = DefaultDomainFile
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Debugf("cannot read usage domain: %s", err)
		return AnyDomain
	}
	dom, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 16)
	if err != nil || dom >= AnyDomain {
		logger.Debugf("cannot parse usage domain from %s: %q", path, strings.TrimSpace(string(raw)))
		return AnyDomain
	}

	// concurrent first readers agree on the value, only one store wins
	d.cached.CompareAndSwap(0, int32(dom)+1)
	return uint16(d.cached.Load() - 1)
}

// Cached reports whether a domain has been resolved.
func (d *DomainResolver) Cached() bool {
	return d.cached.Load() != 0
}

// Reset forgets the resolved domain.
func (d *DomainResolver) Reset() {
	d.cached.Store(0)
}
