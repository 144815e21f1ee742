// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/gogama/streamx/agent"
)

// HTTP1 is the built-in Transport. It speaks HTTP/1.1 over plain TCP,
// TLS (negotiated by the connection agent), or Unix-domain sockets,
// with Content-Length or chunked request framing and keep-alive
// connection reuse through the agent's idle list.
type HTTP1 struct{}

// Default is the transport used for the http and https schemes when a
// request does not register its own.
var Default Transport = HTTP1{}

// Open dials through the connection agent and buffers the request
// head. The head reaches the wire together with the first body bytes,
// or at Close or Response for bodiless requests, so write errors on a
// dead reused connection surface from the Stream, where the reuse
// flag is available to the recovery logic.
func (HTTP1) Open(ctx context.Context, r *ConnRequest) (Stream, error) {
	if err := checkHeader(r.Header); err != nil {
		return nil, err
	}
	conn, reused, err := r.Agent.Dial(ctx, r.Network, r.Addr, r.ServerName, r.Fresh, r.Tunnel)
	if err != nil {
		return nil, err
	}
	if d, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(d)
	}
	s := &http1Stream{
		conn:     conn,
		ag:       r.Agent,
		addr:     r.Addr,
		reused:   reused,
		tunneled: r.Tunnel != nil,
		method:   r.Method,
		bw:       bufio.NewWriter(conn),
	}
	s.tp = textproto.NewReader(bufio.NewReader(conn))
	s.writeHead(r)
	if r.HasBody {
		if r.ContentLength < 0 {
			s.body = httputil.NewChunkedWriter(s.bw)
			s.chunked = true
		} else {
			s.body = s.bw
		}
	}
	return s, nil
}

func checkHeader(h http.Header) error {
	for k, vs := range h {
		if !httpguts.ValidHeaderFieldName(k) {
			return fmt.Errorf("streamx/transport: invalid header field name %q", k)
		}
		for _, v := range vs {
			if !httpguts.ValidHeaderFieldValue(v) {
				return fmt.Errorf("streamx/transport: invalid value for header field %q", k)
			}
		}
	}
	return nil
}

type http1Stream struct {
	conn     net.Conn
	ag       *agent.Agent
	addr     string
	reused   bool
	tunneled bool
	method   string

	bw      *bufio.Writer
	tp      *textproto.Reader
	body    io.Writer
	chunked bool

	mu         sync.Mutex
	bodyClosed bool
	terminated bool
	released   bool
}

func (s *http1Stream) writeHead(r *ConnRequest) {
	w := s.bw
	w.WriteString(r.Method)
	w.WriteByte(' ')
	w.WriteString(r.Path)
	w.WriteString(" HTTP/1.1\r\n")
	w.WriteString("Host: ")
	w.WriteString(r.Host)
	w.WriteString("\r\n")
	if r.HasBody {
		if r.ContentLength >= 0 {
			w.WriteString("Content-Length: ")
			w.WriteString(strconv.FormatInt(r.ContentLength, 10))
			w.WriteString("\r\n")
		} else {
			w.WriteString("Transfer-Encoding: chunked\r\n")
		}
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			w.WriteString(k)
			w.WriteString(": ")
			w.WriteString(v)
			w.WriteString("\r\n")
		}
	}
	w.WriteString("\r\n")
}

func (s *http1Stream) Write(p []byte) (int, error) {
	if s.body == nil {
		return 0, errors.New("streamx/transport: write on bodiless exchange")
	}
	s.mu.Lock()
	closed := s.bodyClosed || s.terminated
	s.mu.Unlock()
	if closed {
		return 0, errors.New("streamx/transport: write after body end")
	}
	return s.body.Write(p)
}

// Close ends the request body. For chunked bodies it writes the
// terminating zero chunk and trailing CRLF.
func (s *http1Stream) Close() error {
	s.mu.Lock()
	if s.bodyClosed {
		s.mu.Unlock()
		return nil
	}
	s.bodyClosed = true
	s.mu.Unlock()
	if s.chunked {
		if err := s.body.(io.Closer).Close(); err != nil {
			return err
		}
		s.bw.WriteString("\r\n")
	}
	return s.bw.Flush()
}

func (s *http1Stream) Response() (*Response, error) {
	// The body side is normally closed before Response is called; the
	// flush covers bodiless exchanges where nothing forced the head
	// onto the wire yet.
	if err := s.bw.Flush(); err != nil {
		return nil, err
	}
	line, err := s.tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok {
		return nil, fmt.Errorf("streamx/transport: malformed status line %q", line)
	}
	status = strings.TrimLeft(status, " ")
	codeText, _, _ := strings.Cut(status, " ")
	code, err := strconv.Atoi(codeText)
	if err != nil || code < 100 || len(codeText) != 3 {
		return nil, fmt.Errorf("streamx/transport: malformed status code %q", codeText)
	}
	mimeHeader, err := s.tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	header := http.Header(mimeHeader)
	resp := &Response{
		StatusCode: code,
		Status:     status,
		Header:     header,
	}
	return resp, s.framing(proto, resp)
}

// framing selects the response body reader per RFC 7230 section 3.3.3
// and decides whether the connection can go back to the idle list.
func (s *http1Stream) framing(proto string, resp *Response) error {
	cl, err := contentLength(resp.Header)
	if err != nil {
		return err
	}
	resp.ContentLength = cl

	keepAlive := proto == "HTTP/1.1" &&
		!strings.EqualFold(resp.Header.Get("Connection"), "close") &&
		!s.tunneled

	noBody := s.method == "HEAD" ||
		resp.StatusCode < 200 ||
		resp.StatusCode == 204 ||
		resp.StatusCode == 304

	chunked := strings.EqualFold(resp.Header.Get("Transfer-Encoding"), "chunked")

	switch {
	case noBody:
		s.release(keepAlive)
		resp.Body = io.NopCloser(strings.NewReader(""))
	case chunked:
		resp.ContentLength = -1
		resp.Body = &http1Body{s: s, r: httputil.NewChunkedReader(s.tp.R), keepAlive: keepAlive, trailer: true}
	case cl == 0:
		s.release(keepAlive)
		resp.Body = io.NopCloser(strings.NewReader(""))
	case cl > 0:
		resp.Body = &http1Body{s: s, r: io.LimitReader(s.tp.R, cl), keepAlive: keepAlive}
	default:
		// Close-delimited body. The connection cannot be reused.
		resp.Body = &http1Body{s: s, r: s.tp.R, keepAlive: false}
	}
	return nil
}

// contentLength extracts and de-duplicates the Content-Length header.
// Conflicting values are rejected per RFC 7230 section 3.3.2, which
// hardens against request smuggling.
func contentLength(h http.Header) (int64, error) {
	vs := h["Content-Length"]
	if len(vs) == 0 {
		return -1, nil
	}
	first := textproto.TrimString(vs[0])
	for _, v := range vs[1:] {
		if textproto.TrimString(v) != first {
			return 0, fmt.Errorf("streamx/transport: conflicting Content-Length headers %q", vs)
		}
	}
	n, err := strconv.ParseUint(first, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("streamx/transport: bad Content-Length %q", first)
	}
	return int64(n), nil
}

func (s *http1Stream) Terminate() {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	s.terminated = true
	s.released = true
	s.mu.Unlock()
	s.conn.Close()
}

func (s *http1Stream) Reused() bool {
	return s.reused
}

// release returns the connection to the agent's idle list, or closes
// it. It is a no-op after the first call or after Terminate.
func (s *http1Stream) release(reusable bool) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()
	if reusable {
		_ = s.conn.SetDeadline(time.Time{})
		s.ag.Put(s.addr, s.conn)
		return
	}
	s.conn.Close()
}

// http1Body reads a framed response body, releasing the underlying
// connection when the body is fully drained.
type http1Body struct {
	s         *http1Stream
	r         io.Reader
	keepAlive bool
	trailer   bool
	done      bool
}

func (b *http1Body) Read(p []byte) (int, error) {
	if b.done {
		return 0, io.EOF
	}
	n, err := b.r.Read(p)
	if err == io.EOF {
		b.done = true
		if b.trailer {
			// Chunked framing ends with optional trailer fields and a
			// blank line; consume them before reusing the connection.
			if _, terr := b.s.tp.ReadMIMEHeader(); terr != nil {
				b.keepAlive = false
			}
		}
		b.s.release(b.keepAlive)
	}
	return n, err
}

func (b *http1Body) Close() error {
	if b.done {
		return nil
	}
	b.done = true
	// Abandoning an unread body leaves unframed bytes on the wire, so
	// the connection cannot go back to the idle list.
	b.s.release(false)
	return nil
}
