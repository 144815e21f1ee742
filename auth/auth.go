// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package auth defines the authentication collaborator contract
// consumed by the streamx request lifecycle, plus minimal preemptive
// Basic and Bearer implementations.
//
// Challenge-response schemes are out of streamx's hands: an
// Authenticator that holds credentials back until a challenge arrives
// reports HasAuth true and SentAuth false, which makes the lifecycle
// withhold the request body on the first exchange; retrying against
// the challenge is the authenticator's business on the response path.
package auth

import (
	"encoding/base64"
	"net/http"
)

// An Authenticator decides whether and how credentials are attached
// to an outgoing request.
//
// Implementations must be safe for concurrent use if shared between
// requests; the built-in implementations are immutable after
// construction apart from the sent flag, which is per-value.
type Authenticator interface {
	// OnRequest is consulted once during request setup, before
	// headers freeze. It may attach credentials to h.
	OnRequest(h http.Header)

	// HasAuth reports whether credentials are configured.
	HasAuth() bool

	// SentAuth reports whether credentials were attached to the
	// current exchange. HasAuth true with SentAuth false signals the
	// lifecycle to withhold the request body until a challenge is
	// answered.
	SentAuth() bool
}

// Basic attaches HTTP Basic credentials. With SendImmediately set the
// Authorization header goes out preemptively; otherwise the
// credentials are held back for a challenge.
type Basic struct {
	Username        string
	Password        string
	SendImmediately bool

	sent bool
}

func (b *Basic) OnRequest(h http.Header) {
	if b.SendImmediately {
		h.Set("Authorization", "Basic "+basicAuth(b.Username, b.Password))
		b.sent = true
	}
}

func (b *Basic) HasAuth() bool {
	return true
}

func (b *Basic) SentAuth() bool {
	return b.sent
}

// basicAuth follows RFC 2617 section 2: userid and password joined by
// a colon and base64 encoded, not URL encoded.
func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// Bearer attaches a bearer token preemptively.
type Bearer struct {
	Token string

	sent bool
}

func (b *Bearer) OnRequest(h http.Header) {
	h.Set("Authorization", "Bearer "+b.Token)
	b.sent = true
}

func (b *Bearer) HasAuth() bool {
	return true
}

func (b *Bearer) SentAuth() bool {
	return b.sent
}
