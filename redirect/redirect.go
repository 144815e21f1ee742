// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package redirect defines the redirect collaborator contract consumed
// by the streamx request lifecycle.
//
// The decision logic belongs to the Policy implementation, not the
// lifecycle: which status and method combinations warrant following,
// how headers are rewritten across hosts, and how many hops are
// allowed.
// The lifecycle's side of the bargain is fixed: it shows the policy
// the outgoing request during setup, offers it every response before
// any other response processing, and if the policy reports that it is
// handling a redirect, the lifecycle suppresses all further events for
// that exchange. Re-running against the new target is the policy's
// job, typically by constructing a new request from the old one's
// configuration.
package redirect

import (
	"net/http"
	"net/url"
)

// A Policy inspects exchanges for redirects.
//
// Implementations must be safe for concurrent use if shared between
// requests.
type Policy interface {
	// OnRequest observes the outgoing request during setup, before
	// headers freeze. It may record state needed to evaluate later
	// responses, and may adjust headers.
	OnRequest(method string, u *url.URL, h http.Header)

	// OnResponse inspects a received response. A true return means
	// the policy is handling a redirect and owns the remainder of the
	// logical operation: the lifecycle suppresses every further event
	// for the current exchange.
	OnResponse(status int, h http.Header) bool
}

// None is a Policy that never follows redirects; every response is
// delivered to the caller as-is.
var None Policy = nonePolicy{}

type nonePolicy struct{}

func (nonePolicy) OnRequest(string, *url.URL, http.Header) {}

func (nonePolicy) OnResponse(int, http.Header) bool {
	return false
}
