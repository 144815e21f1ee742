// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamx

import (
	"net/http"
	"net/url"

	"github.com/gogama/streamx/body"
)

// Do constructs a request from cfg, sends it, and blocks until the
// exchange has finished, returning the final exchange state (and
// error, if any).
//
// Do is the blocking convenience form of New followed by Send and
// Wait; use the three-step form to attach handlers or to stream the
// request body.
func Do(cfg Config) (*Exchange, error) {
	r := New(cfg)
	r.Send()
	return r.Wait()
}

// Get issues a GET to the specified URL and blocks until the exchange
// has finished, returning the final exchange state (and error, if
// any). The response body is accumulated on the exchange.
func Get(url string) (*Exchange, error) {
	return Do(Config{URL: url})
}

// Head issues a HEAD to the specified URL and blocks until the
// exchange has finished, returning the final exchange state (and
// error, if any).
func Head(url string) (*Exchange, error) {
	return Do(Config{Method: "HEAD", URL: url})
}

// Post issues a POST to the specified URL with the given body and
// blocks until the exchange has finished, returning the final
// exchange state (and error, if any).
//
// Construct src with body.Bytes, body.String, body.Reader, or any
// other body.Source implementation. If contentType is not empty it is
// set as the Content-Type header.
func Post(url, contentType string, src body.Source) (*Exchange, error) {
	cfg := Config{Method: "POST", URL: url, Body: src}
	if contentType != "" {
		cfg.Header = http.Header{"Content-Type": {contentType}}
	}
	return Do(cfg)
}

// PostForm issues a POST to the specified URL with the URL-encoded
// keys and values from data as the body, and blocks until the
// exchange has finished, returning the final exchange state (and
// error, if any). The content type is set to
// application/x-www-form-urlencoded.
func PostForm(url string, data url.Values) (*Exchange, error) {
	return Do(Config{Method: "POST", URL: url, Body: body.Values(data)})
}
