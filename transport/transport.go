// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transport defines the single-stream request/response
// primitive the streamx request lifecycle orchestrates, and provides
// the built-in HTTP/1.1 implementation of it.
//
// A Transport opens one exchange at a time: connect, send headers,
// send body, receive headers, receive body. Everything above that
// primitive, such as pooling keys, cookies, auth, redirects, decoding
// and recovery, belongs to the request lifecycle, not the transport.
package transport

import (
	"context"
	"io"
	"net"
	"net/http"

	"github.com/gogama/streamx/agent"
)

// A ConnRequest carries everything a Transport needs to open one HTTP
// exchange. The request lifecycle freezes these values before calling
// Open; transports must not retain or mutate the header map.
type ConnRequest struct {
	// Method is the HTTP method. It is never empty.
	Method string

	// Scheme is the resolved connection scheme, "http" or "https" for
	// the built-in transport.
	Scheme string

	// Host is the value to send in the Host header, preserving the
	// caller's casing.
	Host string

	// Addr is the address to connect to: "host:port" for tcp, or a
	// socket path for unix. When a non-tunneled proxy is in effect,
	// Addr names the proxy while Path carries the absolute-form
	// target.
	Addr string

	// Network is the dial network, "tcp" or "unix".
	Network string

	// Path is the request target, including any query string. It is
	// origin-form except when forwarding through a non-tunneled
	// proxy, in which case it is absolute-form.
	Path string

	// Header contains the frozen outgoing header fields. Host and
	// Content-Length are carried in their own fields, not in Header.
	Header http.Header

	// HasBody reports whether a request body will be written to the
	// stream.
	HasBody bool

	// ContentLength is the declared body length in bytes, or -1 when
	// the length is unknown. Unknown length with HasBody set selects
	// chunked transfer encoding.
	ContentLength int64

	// ServerName is the TLS SNI name for https connections.
	ServerName string

	// Tunnel, when non-nil, runs on the freshly dialed connection
	// before the TLS handshake and before the request head is
	// buffered. Addr then names the proxy while Path and Host address
	// the target. Tunneled connections are always dialed fresh and
	// never returned to the agent's idle list.
	Tunnel func(ctx context.Context, conn net.Conn) error

	// Agent supplies and pools the underlying connections.
	Agent *agent.Agent

	// Fresh forces a newly dialed connection, bypassing the agent's
	// idle list. The lifecycle sets it when recovering from a failure
	// on a reused connection.
	Fresh bool
}

// A Stream is one open HTTP exchange.
//
// The writer side carries the request body: Write transmits body
// bytes and Close ends the body, after which Response may be called
// to block until the response headers arrive. Terminate abandons the
// exchange and tears down the underlying connection; it is safe to
// call from any goroutine at any point in the exchange.
type Stream interface {
	io.WriteCloser

	// Response blocks until the response status line and headers have
	// been received, and returns them together with a reader over the
	// (possibly empty) response body. Reading the body to EOF releases
	// the underlying connection for reuse when the exchange allows it.
	Response() (*Response, error)

	// Terminate forcibly ends the exchange, closing the underlying
	// connection. Any blocked Write or Response call fails.
	Terminate()

	// Reused reports whether the exchange runs on a connection reused
	// from the agent's idle list.
	Reused() bool
}

// A Response holds the received status line and headers of an
// exchange, plus a reader over the raw (undecoded) response body.
type Response struct {
	// StatusCode is the parsed numeric response status.
	StatusCode int

	// Status is the full status text, e.g. "200 OK".
	Status string

	// Header contains the received response headers with canonical
	// field-name keys.
	Header http.Header

	// ContentLength is the declared response body length, or -1 when
	// the body is chunked or close-delimited.
	ContentLength int64

	// Body reads the raw response body. It is never nil; for
	// responses without a body it reads immediate EOF.
	Body io.ReadCloser
}

// A Transport opens HTTP exchanges over some wire protocol. The
// built-in implementation is HTTP1; callers may register alternative
// implementations per scheme on the request configuration.
//
// Implementations must be safe for concurrent use by multiple
// goroutines.
type Transport interface {
	// Open connects (or reuses a pooled connection) and prepares the
	// request head for transmission. I/O errors occurring after Open
	// returns surface from the Stream's methods.
	Open(ctx context.Context, r *ConnRequest) (Stream, error)
}
