// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamx

import (
	"errors"
	"net/url"
	"strings"
)

// ErrAborted is the terminal result of a Request whose Abort method
// was called before the exchange completed.
var ErrAborted = errors.New("streamx: request aborted")

// An InvalidTargetError reports a request target that has neither a
// usable host nor a Unix-domain-socket path. It surfaces through the
// Failed event and the Wait result, never as a panic or a synchronous
// return from New.
type InvalidTargetError struct {
	// Target is the offending target in string form, possibly empty.
	Target string
	// Cause is the underlying parse error, if parsing itself failed.
	Cause error
}

func (err *InvalidTargetError) Error() string {
	if err.Cause != nil {
		return "streamx: invalid target " + quote(err.Target) + ": " + err.Cause.Error()
	}
	return "streamx: target " + quote(err.Target) + " has no host and no unix socket path"
}

func (err *InvalidTargetError) Unwrap() error {
	return err.Cause
}

// An EmptyBodyError reports a declared request body whose computed
// length is zero. A request that means to send no body should declare
// no body at all; a declared body that measures empty is treated as a
// configuration mistake rather than silently sent as zero bytes.
type EmptyBodyError struct{}

func (err *EmptyBodyError) Error() string {
	return "streamx: declared request body is empty"
}

// An InvalidMethodError reports an HTTP method containing characters
// outside the RFC 7230 token alphabet.
type InvalidMethodError struct {
	Method string
}

func (err *InvalidMethodError) Error() string {
	return "streamx: invalid method " + quote(err.Method)
}

// A SchemeError reports a target scheme for which no transport is
// registered.
type SchemeError struct {
	Scheme string
}

func (err *SchemeError) Error() string {
	return "streamx: no transport registered for scheme " + quote(err.Scheme)
}

func quote(s string) string {
	return `"` + s + `"`
}

// urlWrap gives transport and collaborator errors the *url.Error
// shape callers of the standard HTTP client expect.
func urlWrap(method string, u *url.URL, err error) error {
	if err == nil {
		return nil
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return err
	}
	target := ""
	if u != nil {
		target = u.String()
	}
	return &url.Error{
		Op:  urlErrorOp(method),
		URL: target,
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
