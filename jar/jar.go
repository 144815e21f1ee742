// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package jar defines the cookie jar contract consumed by the streamx
// request lifecycle, and provides a default jar backed by the standard
// library's net/http/cookiejar with public suffix list support.
//
// The lifecycle consults a Jar twice per exchange: CookieString while
// building the outgoing Cookie header, and SetCookie once per
// Set-Cookie field on the response. The persistence and matching
// algorithm behind those two calls is the jar's business, not the
// lifecycle's.
package jar

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// A Jar stores cookies received from responses and produces the
// Cookie header content for outgoing requests.
//
// Implementations must be safe for concurrent use by multiple
// goroutines: requests sharing a jar interleave reads and writes, and
// the only ordering guarantee the lifecycle gives is that the last
// Set-Cookie processed wins per cookie identity.
type Jar interface {
	// SetCookie applies one Set-Cookie header value, scoped to the
	// request URL u.
	SetCookie(setCookie string, u *url.URL) error

	// CookieString returns the Cookie header value for a request to
	// u, or the empty string if no cookies match.
	CookieString(u *url.URL) (string, error)
}

// Default is the shared process-wide jar used by requests that do not
// inject their own.
var Default Jar = mustNew()

func mustNew() Jar {
	j, err := New()
	if err != nil {
		panic("streamx/jar: " + err.Error())
	}
	return j
}

// New returns a Jar backed by net/http/cookiejar using the embedded
// public suffix list to contain cookies to their registrable domains.
func New() (Jar, error) {
	j, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &suffixJar{jar: j}, nil
}

type httpJar interface {
	SetCookies(u *url.URL, cookies []*http.Cookie)
	Cookies(u *url.URL) []*http.Cookie
}

type suffixJar struct {
	jar httpJar
}

func (j *suffixJar) SetCookie(setCookie string, u *url.URL) error {
	cs := parseSetCookie(setCookie)
	if len(cs) == 0 {
		return &ParseError{Value: setCookie}
	}
	j.jar.SetCookies(u, cs)
	return nil
}

func (j *suffixJar) CookieString(u *url.URL) (string, error) {
	cs := j.jar.Cookies(u)
	pairs := make([]string, len(cs))
	for i, c := range cs {
		pairs[i] = c.Name + "=" + c.Value
	}
	return strings.Join(pairs, "; "), nil
}

// parseSetCookie leans on the response-header parser from net/http,
// which is not exported directly.
func parseSetCookie(setCookie string) []*http.Cookie {
	resp := http.Response{
		Header: http.Header{"Set-Cookie": {setCookie}},
	}
	return resp.Cookies()
}

// A ParseError reports a Set-Cookie value the jar could not parse.
type ParseError struct {
	Value string
}

func (err *ParseError) Error() string {
	return "streamx/jar: malformed Set-Cookie value: " + err.Value
}
