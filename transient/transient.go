// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"errors"
	"syscall"
)

// A Category is the transience category of a particular error, as
// reported by function Categorize.
//
// The category Not means the error is not transient from the
// perspective of completing an HTTP exchange successfully, or in other
// words that repeating the exchange after encountering this error is
// very unlikely to succeed.
//
// Every other category indicates the error is transient, or in other
// words that repeating the exchange has some prospect of success.
type Category int

const (
	// Not indicates any non-transient error.
	Not Category = iota
	// Timeout indicates a client-side timeout. The server may be going
	// through a temporary period of slowness, or a future exchange may
	// succeed if the client waits longer.
	//
	// Categorize returns Timeout if the error, or any of its wrapped
	// causes, has a Timeout() method that reports true.
	Timeout
	// ConnRefused indicates the remote host refused the connection,
	// and corresponds to the POSIX error code ECONNREFUSED.
	//
	// Although refusal may be a permanent condition, it is classified
	// as transient because it commonly occurs while the service on the
	// remote host is starting or restarting and not yet listening on
	// its port.
	//
	// Categorize returns ConnRefused if the error is not a Timeout,
	// and the error or any of its wrapped causes is equal to
	// syscall.ECONNREFUSED.
	ConnRefused
	// ConnReset indicates the remote host sent an RST packet on a
	// previously active TCP connection, and corresponds to the POSIX
	// error code ECONNRESET.
	//
	// A reset is the expected failure mode when a pooled keep-alive
	// connection is reused after the server has silently dropped its
	// end, which is why the streamx lifecycle treats a reset on a
	// reused connection as recoverable on a fresh connection.
	//
	// Categorize returns ConnReset if the error is not a Timeout, and
	// the error or any of its wrapped causes is equal to
	// syscall.ECONNRESET.
	ConnReset
)

// Categorize returns the transience category of the given error. A nil
// error, and any error that is not transient from the perspective of
// completing an HTTP exchange, both produce the return value Not.
//
// Categorize examines wrapped cause errors contained within err, not
// just err itself. It never consults a Temporary() method, as the
// semantics of Temporary() are not well defined.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET:
			return ConnReset
		case syscall.ECONNREFUSED:
			return ConnRefused
		}
	}

	return Not
}
