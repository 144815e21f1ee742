// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamx

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/gogama/streamx/transient"
	"github.com/gogama/streamx/transport"
)

// Send starts the exchange. Only the first call has any effect, and a
// call after Abort is a silent no-op.
//
// Send opens the connection synchronously, so configuration and open
// failures have surfaced as events by the time it returns; body
// transmission and response handling continue on a background
// goroutine. A Request with a declared body (or none) needs nothing
// further from the caller; a caller streaming the body writes with
// Write, which sends automatically, and finishes with End.
func (r *Request) Send() {
	r.send(false)
}

func (r *Request) send(streaming bool) {
	r.mu.Lock()
	if r.started || r.aborted {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.streaming = streaming
	if r.timeout > 0 {
		r.ctx, r.cancel = context.WithTimeout(r.ctx, r.timeout)
	}
	r.mu.Unlock()

	r.x.Start = time.Now()

	if r.fatal != nil {
		// Configuration errors abort the exchange and surface exactly
		// one Failed event, nothing else.
		r.mu.Lock()
		r.aborted = true
		r.mu.Unlock()
		r.fail(r.fatal)
		return
	}

	// Last chance to learn the body length before the transport is
	// asked to open: a source (such as a form encoder) may only know
	// its length now.
	if r.src != nil && r.clen < 0 {
		if n := r.src.Len(); n >= 0 {
			r.clen = n
		}
	}

	switch {
	case streaming:
		r.hasBody = true
	case r.withholdBody():
		// Credentials are pending a challenge: send no body at all.
		// The retry against the challenge belongs to the auth
		// collaborator on the response path.
		r.hasBody = false
		r.src = nil
		r.clen = -1
	case !r.hasBody && r.method != "GET" && r.method != "HEAD":
		// No body on a method that usually carries one: declare an
		// explicit zero Content-Length.
		r.hasBody = true
		r.clen = 0
	}

	r.emit(Started)
	if r.setupErr != nil {
		r.softFail(r.setupErr)
	}

	if err := r.open(false); err != nil {
		r.fail(err)
		return
	}
	r.emit(Socket)

	if streaming {
		// The caller drives Write and End.
		return
	}
	go r.run()
}

func (r *Request) withholdBody() bool {
	return r.authn != nil && r.authn.HasAuth() && !r.authn.SentAuth()
}

// open asks the transport for a stream. With fresh set, the agent's
// idle connections are bypassed; this is the recovery path.
func (r *Request) open(fresh bool) error {
	var tun func(ctx context.Context, conn net.Conn) error
	if r.proxy != nil && r.tun.Enabled() {
		proxy, target, t := r.proxy, r.target, r.tun
		tun = func(ctx context.Context, conn net.Conn) error {
			return t.Setup(ctx, conn, proxy, target)
		}
	}
	s, err := r.trans.Open(r.ctx, &transport.ConnRequest{
		Method:        r.method,
		Scheme:        r.connScheme,
		Host:          r.host,
		Addr:          r.addr,
		Network:       r.network,
		Path:          r.path,
		Header:        r.header,
		HasBody:       r.hasBody,
		ContentLength: r.clen,
		ServerName:    r.serverName,
		Tunnel:        tun,
		Agent:         r.agt,
		Fresh:         fresh,
	})
	if err != nil {
		return err
	}
	r.mu.Lock()
	if r.aborted {
		r.mu.Unlock()
		s.Terminate()
		return ErrAborted
	}
	r.stream = s
	r.mu.Unlock()
	return nil
}

// run drives a lifecycle-owned body: transmit, then receive, with at
// most one recovery on a reused-connection reset.
func (r *Request) run() {
	err := r.attempt()
	if err == nil {
		return
	}
	if r.recoverable(err) {
		r.retried = true
		if rerr := r.reopen(); rerr == nil {
			if err = r.attempt(); err == nil {
				return
			}
		}
	}
	r.fail(err)
}

// recoverable reports whether err is the one transport failure the
// lifecycle absorbs: a connection reset on a connection that was
// reused from the pool, at most once per Request, and only when the
// body can be replayed from the start.
func (r *Request) recoverable(err error) bool {
	r.mu.Lock()
	stream, retried, aborted := r.stream, r.retried, r.aborted
	r.mu.Unlock()
	if retried || aborted || stream == nil || !stream.Reused() {
		return false
	}
	if transient.Categorize(err) != transient.ConnReset {
		return false
	}
	return r.replayable()
}

// replayable reports whether the declared body can be re-sent from
// the start. A one-shot reader that has already been consumed cannot;
// the original failure surfaces instead of a partial replay.
func (r *Request) replayable() bool {
	if r.src == nil {
		return true
	}
	rc, err := r.src.Open()
	if err != nil {
		return false
	}
	rc.Close()
	return true
}

func (r *Request) reopen() error {
	r.mu.Lock()
	old := r.stream
	r.stream = nil
	r.mu.Unlock()
	if old != nil {
		old.Terminate()
	}
	r.x.Attempt++
	if err := r.open(true); err != nil {
		return err
	}
	r.emit(Socket)
	return nil
}

// attempt transmits the declared body, ends it, and receives and
// relays the response.
func (r *Request) attempt() error {
	stream := r.currentStream()
	if stream == nil {
		return ErrAborted
	}
	if r.src != nil && r.hasBody {
		rc, err := r.src.Open()
		if err != nil {
			return err
		}
		if _, err = io.Copy(stream, rc); err != nil {
			rc.Close()
			return err
		}
		if err = rc.Close(); err != nil {
			return err
		}
	}
	if err := stream.Close(); err != nil {
		return err
	}
	return r.receive(stream)
}

func (r *Request) currentStream() transport.Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream
}

// Write streams request body bytes. The first Write sends the request
// in streaming mode; the body is transmitted with chunked transfer
// encoding unless a length was declared. Write on an aborted or ended
// Request discards p and reports success: consuming a dead Request is
// defined as a no-op, not an error.
func (r *Request) Write(p []byte) (int, error) {
	r.mu.Lock()
	inert := r.aborted || r.finished
	started := r.started
	r.mu.Unlock()
	if inert {
		return len(p), nil
	}
	if !started {
		r.send(true)
	}
	stream := r.currentStream()
	if stream == nil {
		// Open failed; the error already surfaced as an event.
		return len(p), nil
	}
	n, err := stream.Write(p)
	if err != nil {
		r.fail(err)
		return n, err
	}
	return n, nil
}

// End finishes the caller-streamed request body and waits for the
// response path to take over. On a Request that was never sent, End
// is equivalent to Send. End on an aborted or ended Request is a
// no-op.
func (r *Request) End() {
	r.mu.Lock()
	if r.aborted || r.finished {
		r.mu.Unlock()
		return
	}
	if !r.started {
		r.mu.Unlock()
		r.send(false)
		return
	}
	if !r.streaming {
		// The lifecycle owns the body; nothing for the caller to end.
		r.mu.Unlock()
		return
	}
	r.streaming = false
	stream := r.stream
	r.mu.Unlock()
	if stream == nil {
		return
	}
	go func() {
		if err := stream.Close(); err != nil {
			r.fail(err)
			return
		}
		// Caller-streamed bodies are never replayed, so no recovery
		// applies on this path.
		if err := r.receive(stream); err != nil {
			r.fail(err)
		}
	}()
}

// Abort cancels the exchange. The first call terminates any open
// stream and fires a single Aborted event; later calls have no
// further effect. After Abort the Request is inert: no events fire
// other than the abort notification itself and an error already in
// flight.
//
// Abort is safe to call from an event handler: the Aborted event then
// fires as soon as the current handler chain has run.
func (r *Request) Abort() {
	r.mu.Lock()
	if r.aborted || r.finished {
		r.mu.Unlock()
		return
	}
	r.aborted = true
	r.abortPending = true
	stream := r.stream
	resp := r.x.Response
	cancel := r.cancel
	r.mu.Unlock()

	if stream != nil {
		stream.Terminate()
	} else if resp != nil {
		resp.Body.Close()
	}
	if cancel != nil {
		cancel()
	}

	// A handler chain may be running right now, possibly on this very
	// goroutine. Taking emitMu unconditionally would deadlock an
	// abort issued from inside a handler, so the notification is
	// handed to whoever holds the lock when it cannot be taken: emit
	// fires pending aborts after every chain.
	if r.emitMu.TryLock() {
		r.notifyAbort()
		r.emitMu.Unlock()
	}
}

// notifyAbort fires the pending Aborted event. The caller holds
// emitMu, which also serializes the exchange mutations here against
// handlers reading the exchange.
func (r *Request) notifyAbort() {
	r.mu.Lock()
	pending := r.abortPending
	r.abortPending = false
	r.mu.Unlock()
	if !pending {
		return
	}
	r.x.Aborted = true
	if r.x.Err == nil {
		r.x.Err = ErrAborted
	}
	r.Handlers.run(Aborted, r.x)
	r.finish(ErrAborted)
}

// Wait blocks until the exchange has finished and returns the final
// exchange state along with the terminal error, if any. Call Wait
// after Send (or after the first Write, or Abort); a Request that was
// never started never finishes.
func (r *Request) Wait() (*Exchange, error) {
	<-r.done
	return r.x, r.result
}

// emit runs the handler chain for evt. Emissions are serialized, and
// after abort only the abort notification itself and an in-flight
// failure get through.
func (r *Request) emit(evt Event) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	if evt != Failed {
		r.mu.Lock()
		aborted := r.aborted
		r.mu.Unlock()
		if aborted {
			r.notifyAbort()
			return
		}
	}
	r.Handlers.run(evt, r.x)
	r.notifyAbort()
}

// fail surfaces a terminal error: one Failed event and the terminal
// result.
func (r *Request) fail(err error) {
	err = urlWrap(r.method, r.target, err)
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.errored = true
	r.mu.Unlock()
	r.x.Err = err
	r.emit(Failed)
	r.finish(err)
}

// softFail surfaces a non-fatal collaborator error: a Failed event
// without ending the exchange. The exchange continues, but Complete
// is suppressed. Only the first soft failure is surfaced.
func (r *Request) softFail(err error) {
	r.mu.Lock()
	if r.errored {
		r.mu.Unlock()
		return
	}
	r.errored = true
	r.mu.Unlock()
	r.x.Err = urlWrap(r.method, r.target, err)
	r.emit(Failed)
}

// finish records the terminal result exactly once.
func (r *Request) finish(err error) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.result = err
	r.x.End = time.Now()
	close(r.done)
}
