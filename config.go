// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamx

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gogama/streamx/agent"
	"github.com/gogama/streamx/auth"
	"github.com/gogama/streamx/body"
	"github.com/gogama/streamx/jar"
	"github.com/gogama/streamx/redirect"
	"github.com/gogama/streamx/transport"
	"github.com/gogama/streamx/tunnel"
)

// A Config describes one logical HTTP exchange. Its fields are the
// complete set of recognized options: there is no dynamic option
// merging, and a zero field always means the documented default.
//
// A Config is consumed by New and not referenced afterward; the same
// Config value may be reused to construct further requests.
type Config struct {
	// Method is the HTTP method. Empty means GET.
	Method string

	// URL is the request target as a string. It is parsed by New
	// unless Target is set.
	URL string

	// Target is the pre-parsed request target. When non-nil it takes
	// precedence over URL.
	Target *url.URL

	// Header contains caller-supplied header fields. New copies it
	// into a canonicalized, case-insensitive header map; entries with
	// a nil value list are dropped so they can never reach the
	// transport. A "Host" entry is lifted out and treated like the
	// Host field.
	Header http.Header

	// Host overrides the Host header. Empty means the target's host.
	Host string

	// Body declares the request body. Nil means no body; to stream a
	// body from the caller, leave Body nil and use Request.Write.
	Body body.Source

	// Proxy routes the exchange through a forward proxy. When the
	// Tunnel collaborator reports enabled, the proxy is only a TCP
	// hop; otherwise the request is forwarded at the HTTP layer with
	// an absolute-form target.
	Proxy *url.URL

	// UnixPath connects to a Unix-domain socket instead of a TCP
	// endpoint. The target URL still supplies scheme, path, and the
	// Host header.
	UnixPath string

	// InsecureTLS disables server certificate verification for https
	// connections.
	InsecureTLS bool

	// Decompress advertises "gzip, deflate" in Accept-Encoding (when
	// the caller set none) and transparently decodes a compressed
	// response body before it reaches Data events and Exchange.Body.
	Decompress bool

	// DisableCookies stops the exchange from consulting or updating
	// any cookie jar.
	DisableCookies bool

	// Pool is the agent pool that supplies the connection agent. Nil
	// means agent.DefaultPool.
	Pool *agent.Pool

	// NoPool opts out of connection reuse entirely by routing the
	// request through a fresh single-use pool, so the request never
	// shares an agent with any other request.
	NoPool bool

	// Jar is the cookie jar consulted for the Cookie header and
	// updated from Set-Cookie response headers. Nil means
	// jar.Default.
	Jar jar.Jar

	// Auth optionally attaches credentials and gates whether the body
	// is sent before a challenge is answered.
	Auth auth.Authenticator

	// Redirect is offered every response before any other response
	// processing. Nil means redirect.None.
	Redirect redirect.Policy

	// Tunnel decides whether a configured proxy requires a CONNECT
	// tunnel and negotiates it on the dialed connection. Nil means
	// tunnel.Direct.
	Tunnel tunnel.Tunneler

	// Transports maps connection schemes to transport
	// implementations. Schemes absent from the map fall back to the
	// built-in defaults, which cover http and https.
	Transports map[string]transport.Transport

	// Timeout bounds the whole exchange, from Send to the final
	// event. Zero means no timeout.
	Timeout time.Duration

	// Context controls cancellation of the exchange. Nil means the
	// background context.
	Context context.Context
}
