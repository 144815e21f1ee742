// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package tunnel defines the proxy tunnel collaborator contract
// consumed by the streamx request lifecycle.
//
// When a proxy is configured and the tunneler reports enabled, the
// connection is dialed to the proxy and handed to Setup, which
// negotiates the tunnel on the raw connection before any TLS
// handshake and before the request head is written; the HTTP-layer
// request is then addressed to the target as if the proxy were not
// there. When tunneling is not in effect, the lifecycle instead
// forwards through the proxy with an absolute-form request target.
package tunnel

import (
	"context"
	"net"
	"net/url"
)

// A Tunneler decides whether a proxy requires a CONNECT-style tunnel
// and negotiates it.
type Tunneler interface {
	// Enabled reports whether a tunnel should be established through
	// the configured proxy.
	Enabled() bool

	// Setup negotiates the tunnel to target on conn, a freshly dialed
	// connection to proxy. It runs before the TLS handshake for https
	// targets and before any request bytes are written. A returned
	// error fails the exchange and closes the connection.
	Setup(ctx context.Context, conn net.Conn, proxy, target *url.URL) error
}

// Direct is a Tunneler that never tunnels; proxied requests are
// forwarded at the HTTP layer.
var Direct Tunneler = directTunneler{}

type directTunneler struct{}

func (directTunneler) Enabled() bool {
	return false
}

func (directTunneler) Setup(context.Context, net.Conn, *url.URL, *url.URL) error {
	return nil
}
