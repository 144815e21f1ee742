// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamx

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gogama/streamx/transport"
)

// An Exchange represents the state of a single Request's exchange.
//
// The Exchange is handed to every event handler as the exchange
// progresses and is ultimately returned from Wait. Handlers may read
// freely and may store their own values via SetValue, but should
// treat the exported fields as immutable: the exchange state drives
// the lifecycle logic.
type Exchange struct {
	// Method is the HTTP method of the exchange. It is never empty.
	Method string

	// URL is the request target. Handlers must not modify it.
	URL *url.URL

	// Host is the Host header value of the outgoing request, in its
	// original casing, captured before any lifecycle mutation. A
	// redirect policy crossing hosts can compare against it when
	// deciding whether to strip credentials.
	Host string

	// Start is the time the exchange started (when Send ran). It is
	// zero until then and constant afterward.
	Start time.Time

	// End is the time the exchange finished. It is zero while the
	// exchange is in flight.
	End time.Time

	// Attempt is zero for the initial connection and one if the
	// lifecycle recovered from a reused-connection failure on a
	// fresh connection.
	Attempt int

	// Response holds the received response once response headers have
	// arrived and the redirect policy has declined the response. Its
	// Body must not be read by handlers; the lifecycle owns it and
	// relays its content through Data events and the Body field.
	Response *transport.Response

	// Chunk holds the current chunk of (decoded) response body data.
	// It is only valid during a Data event.
	Chunk []byte

	// Body accumulates the complete (decoded) response body. It is
	// complete once End has fired.
	Body []byte

	// Err holds the error that surfaced from the exchange, wrapped in
	// *url.Error. It is nil on a clean exchange.
	Err error

	// Redirected reports that a redirect policy took over the
	// exchange. When set, no Response, Data, End, or Complete events
	// fired, and the policy owns the follow-up request.
	Redirected bool

	// Aborted reports that Abort was called before the exchange
	// completed.
	Aborted bool

	// data contains handler-owned values. See SetValue.
	data context.Context
}

// StatusCode returns the status code of the received response, or 0
// if no response has been received.
func (x *Exchange) StatusCode() int {
	if x.Response == nil {
		return 0
	}

	return x.Response.StatusCode
}

// Header returns the received response headers, or the nil header if
// no response has been received. The nil header is safe for read-only
// use.
func (x *Exchange) Header() http.Header {
	if x.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return x.Response.Header
}

// Duration returns the duration of the exchange: zero before it
// starts, current elapsed time while it is in flight, and the final
// elapsed time once it has ended.
func (x *Exchange) Duration() time.Duration {
	if !x.Started() {
		return 0
	} else if !x.Ended() {
		return time.Since(x.Start)
	}

	return x.End.Sub(x.Start)
}

// Started indicates whether the exchange has started.
func (x *Exchange) Started() bool {
	return x.Start != (time.Time{})
}

// Ended indicates whether the exchange has ended. Once it has, there
// will be no further changes to the exchange and no further events.
func (x *Exchange) Ended() bool {
	return x.End != (time.Time{})
}

// SetValue allows event handlers to store arbitrary data on the
// exchange.
//
// The key follows the same rules as the key parameter of
// context.WithValue: it must be comparable, must not be nil, and
// should be of a handler-defined type to avoid collisions between
// handlers sharing an exchange.
func (x *Exchange) SetValue(key, value interface{}) {
	ctx := x.data
	if ctx == nil {
		ctx = context.Background()
	}

	x.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this exchange for key,
// or nil if there is no value associated with key.
func (x *Exchange) Value(key interface{}) interface{} {
	ctx := x.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
