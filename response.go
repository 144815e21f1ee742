// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamx

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"strings"

	"github.com/gogama/streamx/transport"
)

const relayBufferSize = 32 * 1024

// receive reads the response head from stream and relays the body
// through the handler chain.
func (r *Request) receive(stream transport.Stream) error {
	resp, err := stream.Response()
	if err != nil {
		return err
	}
	r.mu.Lock()
	if r.aborted {
		r.mu.Unlock()
		resp.Body.Close()
		return nil
	}
	r.x.Response = resp
	r.mu.Unlock()

	if r.setHost {
		// The target host was projected into the outgoing header by
		// the lifecycle, not the caller; remove it again so the
		// header observed after the response reflects caller input.
		r.header.Del("Host")
	}

	if r.cjar != nil && !r.disableCookies {
		for _, sc := range resp.Header.Values("Set-Cookie") {
			if err := r.cjar.SetCookie(sc, r.target); err != nil {
				r.softFail(err)
				break
			}
		}
	}

	if r.redir != nil && r.redir.OnResponse(resp.StatusCode, resp.Header) {
		// The redirect collaborator claimed the response. The
		// exchange ends quietly: no further events on this Request.
		r.x.Redirected = true
		resp.Body.Close()
		r.finish(nil)
		return nil
	}

	r.emit(Response)

	// Responses defined to have no body, such as for HEAD or 204, may
	// still carry a Content-Encoding header; there are no body bytes
	// to decode, and a decoder would choke on the empty stream.
	noBody := r.method == "HEAD" ||
		resp.StatusCode < 200 ||
		resp.StatusCode == 204 ||
		resp.StatusCode == 304

	body := resp.Body
	if r.decompress && !noBody {
		body, err = decode(resp, body)
		if err != nil {
			resp.Body.Close()
			return err
		}
	}
	return r.relay(resp, body)
}

// decode wraps body with a decompressing reader when the response
// declares a content coding the lifecycle handles transparently.
// Unrecognized codings pass through untouched.
func decode(resp *transport.Response, body io.ReadCloser) (io.ReadCloser, error) {
	coding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch coding {
	case "gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, err
		}
		return &decodedBody{r: zr, raw: body}, nil
	case "deflate":
		return &decodedBody{r: deflateReader(body), raw: body}, nil
	default:
		return body, nil
	}
}

// deflateReader returns a reader for a "deflate" coded body. The
// coding officially means zlib (RFC 7231 3.1.2.1), but some servers
// send raw deflate streams; sniff the two-byte zlib header without
// consuming it and fall back to raw deflate when it is absent.
func deflateReader(body io.Reader) io.Reader {
	br := bufio.NewReader(body)
	head, err := br.Peek(2)
	if err == nil && head[0]&0x0f == 0x08 && (uint16(head[0])<<8|uint16(head[1]))%31 == 0 {
		if zr, zerr := zlib.NewReader(br); zerr == nil {
			return zr
		}
	}
	return flate.NewReader(br)
}

type decodedBody struct {
	r   io.Reader
	raw io.ReadCloser
}

func (b *decodedBody) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

func (b *decodedBody) Close() error {
	if c, ok := b.r.(io.Closer); ok {
		c.Close()
	}
	return b.raw.Close()
}

// relay pumps the response body through Data events and accumulates
// it on the exchange, then fires the terminal event sequence.
func (r *Request) relay(resp *transport.Response, body io.ReadCloser) error {
	buf := make([]byte, relayBufferSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			r.mu.Lock()
			aborted := r.aborted
			r.mu.Unlock()
			if aborted {
				body.Close()
				return nil
			}
			r.x.Chunk = buf[:n]
			r.x.Body = append(r.x.Body, buf[:n]...)
			r.emit(Data)
			r.x.Chunk = nil
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			body.Close()
			return err
		}
	}
	if err := body.Close(); err != nil {
		return err
	}

	r.mu.Lock()
	aborted, errored := r.aborted, r.errored
	r.mu.Unlock()
	if aborted {
		return nil
	}
	r.emit(End)
	if !errored {
		r.emit(Complete)
	}
	r.emit(Closed)
	r.finish(nil)
	return nil
}
