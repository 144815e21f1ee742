// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package body contains the request body sources understood by the
// streamx request lifecycle.
//
// A Source describes a declared request body: how long it is, if that
// can be known up front, and how to obtain a reader over its content.
// A Source whose length is known lets the lifecycle set Content-Length
// before the connection is opened; a Source with unknown length is
// transmitted with chunked transfer encoding.
//
// A Source constructed by Bytes, String, or Values can be reopened any
// number of times, which additionally makes the exchange eligible for
// the lifecycle's one-shot recovery after a connection reset on a
// reused connection. A Source constructed by Reader or ReaderLen can
// be opened exactly once.
package body

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
)

// A Source supplies a request body to the streamx request lifecycle.
//
// Implementations must return the same value from Len on every call.
// Open may be called more than once only if the implementation
// documents that it supports reopening; Open on a one-shot source
// after the first call must return an error.
type Source interface {
	// Len returns the body length in bytes, or -1 if the length is
	// not knowable before the body is consumed.
	Len() int64

	// Open returns a reader positioned at the start of the body
	// content.
	Open() (io.ReadCloser, error)
}

// A Form is a body source that carries its own header fields, such as
// a multipart/form-data encoder that must communicate its boundary
// via the Content-Type header. The lifecycle merges Header into the
// outgoing request headers without overwriting caller-set fields.
//
// Form is a contract: streamx does not ship a multipart encoder, it
// consumes one.
type Form interface {
	Source

	// Header returns header fields the encoded form requires on the
	// outgoing request.
	Header() http.Header
}

// Bytes returns a reopenable Source over b. The caller must not modify
// b after the call.
func Bytes(b []byte) Source {
	return bytesSource(b)
}

// String returns a reopenable Source over s. Its length is the encoded
// byte length of s, not the character count.
func String(s string) Source {
	return bytesSource(s)
}

// Values returns a reopenable Form over the URL-encoded form data v.
// It carries a Content-Type of application/x-www-form-urlencoded,
// which the lifecycle applies unless the caller set one.
func Values(v url.Values) Form {
	return valuesForm{bytesSource(v.Encode())}
}

type valuesForm struct {
	bytesSource
}

func (valuesForm) Header() http.Header {
	return http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}
}

type bytesSource string

func (s bytesSource) Len() int64 {
	return int64(len(s))
}

func (s bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader([]byte(s))), nil
}

// Reader returns a one-shot Source over r with unknown length. If r
// implements io.Closer it is closed when the returned reader is
// closed.
func Reader(r io.Reader) Source {
	return &readerSource{r: r, n: -1}
}

// ReaderLen returns a one-shot Source over r declaring a length of n
// bytes. The transport trusts n; supplying a reader with different
// content length produces a malformed request.
func ReaderLen(r io.Reader, n int64) Source {
	return &readerSource{r: r, n: n}
}

type readerSource struct {
	r      io.Reader
	n      int64
	opened bool
}

func (s *readerSource) Len() int64 {
	return s.n
}

func (s *readerSource) Open() (io.ReadCloser, error) {
	if s.opened {
		return nil, errReopened
	}
	s.opened = true
	if rc, ok := s.r.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(s.r), nil
}

var errReopened = &ReopenError{}

// A ReopenError is returned when Open is called a second time on a
// one-shot body source.
type ReopenError struct{}

func (err *ReopenError) Error() string {
	return "streamx/body: one-shot body source reopened"
}
