// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package streamx turns a declarative request description into a live
HTTP exchange observed through a chain of event handlers.

Create a Request from a Config to begin, attach handlers, then send:

	r := streamx.New(streamx.Config{
		URL: "https://www.example.com",
	})
	r.Handlers.PushBack(streamx.Data, streamx.HandlerFunc(
		func(_ streamx.Event, x *streamx.Exchange) {
			os.Stdout.Write(x.Chunk)
		}))
	r.Send()
	x, err := r.Wait()

For the common blocking cases, the package-level convenience functions
fold the three steps into one call:

	x, err := streamx.Get("https://www.example.com")
	...
	x, err := streamx.Post("https://www.example.com/upload",
		"application/json", body.Bytes(buf))
	...
	x, err := streamx.PostForm("http://example.com/form",
		url.Values{"key": {"Value"}, "id": {"123"}})

To stream the request body instead of declaring it up front, write to
the Request. The first Write sends the request; End finishes the body:

	r := streamx.New(streamx.Config{Method: "POST", URL: target})
	io.Copy(r, f)
	r.End()
	x, err := r.Wait()

Construction never performs I/O and never fails: configuration
problems surface as a single Failed event when the request is sent,
and as the error returned from Wait. Abort cancels an exchange at any
point; after the Aborted event the Request is inert.

Connections are pooled per scheme by package agent. Pass a custom Pool
to share connections across a group of requests, or set NoPool to give
a request its own throwaway pool. Cookies flow through a jar.Jar,
public-suffix aware by default; authentication, redirect decisions and
proxy tunneling are delegated to the collaborator interfaces in
packages auth, redirect and tunnel.
*/
package streamx
