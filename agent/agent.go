// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package agent pools reusable transport connections for the streamx
// request lifecycle.
//
// An Agent represents reusable connection capability for one (scheme,
// TLS-verification mode) pair. Agents are owned by a Pool and shared
// by every request with the same pool key; a single agent keeps a
// bounded list of idle keep-alive connections per remote address.
package agent

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
)

// DefaultMaxIdlePerHost is the idle connection limit applied to each
// remote address when Agent.MaxIdlePerHost is zero.
const DefaultMaxIdlePerHost = 4

// An Agent dials and pools connections for one (scheme,
// TLS-verification mode) pair. The zero value of its exported fields
// is valid; construct agents through Pool.Agent.
//
// An Agent is safe for concurrent use by multiple goroutines.
type Agent struct {
	// TLSConfig optionally overrides the TLS client configuration
	// used for https connections. It is cloned before use; ServerName
	// and InsecureSkipVerify are filled in per dial.
	TLSConfig *tls.Config

	// MaxIdlePerHost bounds the number of idle connections retained
	// per remote address. Zero means DefaultMaxIdlePerHost.
	MaxIdlePerHost int

	scheme   string
	insecure bool

	mu   sync.Mutex
	idle map[string][]net.Conn
}

var zeroDialer net.Dialer

// Dial obtains a connection to addr, reusing an idle pooled connection
// when one is available and fresh is false. The second return value
// reports whether the connection was reused from the idle list; a
// failure on a reused connection is the one failure mode the request
// lifecycle recovers from automatically.
//
// Parameter network is "tcp" for ordinary targets and "unix" for
// Unix-domain-socket targets. Parameter serverName is the TLS SNI
// name, consulted only when the agent's scheme is https.
//
// A non-nil setup runs on the newly dialed plaintext connection
// before any TLS handshake, for tunnel negotiation through a proxy.
// Dials with a setup always bypass the idle list, since pooled
// connections are keyed by addr alone and a tunneled connection is
// bound to one target beyond it. A setup error closes the connection.
func (a *Agent) Dial(ctx context.Context, network, addr, serverName string, fresh bool, setup func(context.Context, net.Conn) error) (net.Conn, bool, error) {
	if !fresh && setup == nil {
		if c := a.popIdle(addr); c != nil {
			return c, true, nil
		}
	}
	c, err := zeroDialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, false, err
	}
	if setup != nil {
		if err = setup(ctx, c); err != nil {
			c.Close()
			return nil, false, err
		}
	}
	if a.scheme == "https" {
		c, err = a.handshake(ctx, c, serverName)
		if err != nil {
			return nil, false, err
		}
	}
	return c, false, nil
}

func (a *Agent) handshake(ctx context.Context, c net.Conn, serverName string) (net.Conn, error) {
	cfg := a.TLSConfig.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = serverName
	}
	cfg.InsecureSkipVerify = a.insecure
	tc := tls.Client(c, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return tc, nil
}

// Put returns a healthy keep-alive connection to the agent's idle list
// for addr. If the list is full the connection is closed instead.
func (a *Agent) Put(addr string, c net.Conn) {
	max := a.MaxIdlePerHost
	if max <= 0 {
		max = DefaultMaxIdlePerHost
	}
	a.mu.Lock()
	if a.idle == nil {
		a.idle = make(map[string][]net.Conn)
	}
	if len(a.idle[addr]) < max {
		a.idle[addr] = append(a.idle[addr], c)
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()
	c.Close()
}

// CloseIdle closes every idle connection held by the agent.
func (a *Agent) CloseIdle() {
	a.mu.Lock()
	idle := a.idle
	a.idle = nil
	a.mu.Unlock()
	for _, cs := range idle {
		for _, c := range cs {
			c.Close()
		}
	}
}

func (a *Agent) popIdle(addr string) net.Conn {
	a.mu.Lock()
	defer a.mu.Unlock()
	cs := a.idle[addr]
	if len(cs) == 0 {
		return nil
	}
	c := cs[len(cs)-1]
	a.idle[addr] = cs[:len(cs)-1]
	return c
}

// Scheme returns the connection scheme this agent serves.
func (a *Agent) Scheme() string {
	return a.scheme
}

// Insecure reports whether the agent dials https connections without
// verifying server certificates.
func (a *Agent) Insecure() bool {
	return a.insecure
}
