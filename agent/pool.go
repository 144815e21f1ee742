// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package agent

import "sync"

// DefaultPool is the shared process-wide agent pool. Requests that do
// not inject their own pool share DefaultPool, and therefore share
// connection agents with every other such request in the process.
var DefaultPool = NewPool()

// A Pool is a keyed registry of reusable connection agents. The pool
// key identifies a (scheme, TLS-verification mode) pair, so all
// requests targeting semantically equivalent endpoints share one
// agent and avoid repeated TCP and TLS handshakes.
//
// A Pool is safe for concurrent use by multiple goroutines. The first
// request for a key constructs and caches the agent; every later
// request for the same key on the same pool receives the identical
// agent.
type Pool struct {
	mu     sync.Mutex
	agents map[string]*Agent
}

// NewPool returns an empty agent pool.
func NewPool() *Pool {
	return &Pool{}
}

// Key returns the pool key for a connection scheme. The key is the
// scheme itself, refined by the TLS-verification mode when the scheme
// is https, since verified and unverified connections must never share
// an agent.
func Key(scheme string, insecure bool) string {
	if scheme == "https" && insecure {
		return "https:insecure"
	}
	return scheme
}

// Agent returns the pool's agent for the given scheme and
// TLS-verification mode, constructing and caching it on first use.
func (p *Pool) Agent(scheme string, insecure bool) *Agent {
	key := Key(scheme, insecure)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.agents == nil {
		p.agents = make(map[string]*Agent)
	}
	a, ok := p.agents[key]
	if !ok {
		a = &Agent{
			scheme:   scheme,
			insecure: insecure,
		}
		p.agents[key] = a
	}
	return a
}

// CloseIdle closes the idle connections held by every agent in the
// pool. It does not interrupt connections currently in use.
func (p *Pool) CloseIdle() {
	p.mu.Lock()
	agents := make([]*Agent, 0, len(p.agents))
	for _, a := range p.agents {
		agents = append(agents, a)
	}
	p.mu.Unlock()
	for _, a := range agents {
		a.CloseIdle()
	}
}
