// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamx

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/gogama/streamx/agent"
	"github.com/gogama/streamx/auth"
	"github.com/gogama/streamx/body"
	"github.com/gogama/streamx/jar"
	"github.com/gogama/streamx/redirect"
	"github.com/gogama/streamx/transport"
	"github.com/gogama/streamx/tunnel"
)

// A Request is one configured HTTP exchange: readable and writable
// byte-stream capability around a single request/response pair.
//
// New configures a Request without performing any I/O. The caller then
// installs event handlers on Handlers and starts the exchange with
// Send, or by writing body bytes with Write. Data arrives through
// Data events and the Exchange's Body field; Wait blocks until the
// exchange is over and returns the terminal state.
//
// A Request is used for exactly one exchange. A redirect policy that
// follows a redirect constructs a new Request for the new target.
type Request struct {
	// Handlers holds the event handlers for the exchange. Install
	// handlers between New and Send; the slot is never nil.
	Handlers *HandlerGroup

	x *Exchange

	method  string
	target  *url.URL
	header  http.Header
	host    string
	setHost bool

	connScheme string
	network    string
	addr       string
	path       string
	serverName string
	insecure   bool

	src     body.Source
	clen    int64
	hasBody bool

	agt   *agent.Agent
	cjar  jar.Jar
	authn auth.Authenticator
	redir redirect.Policy
	trans transport.Transport

	timeout        time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
	proxy          *url.URL
	tun            tunnel.Tunneler
	disableCookies bool
	decompress     bool

	fatal    error // configuration error, surfaced at Send
	setupErr error // non-fatal setup error (cookie jar), surfaced at Send

	mu           sync.Mutex
	started      bool
	aborted      bool
	abortPending bool
	streaming    bool
	retried      bool
	errored      bool
	finished     bool
	stream       transport.Stream

	emitMu sync.Mutex
	done   chan struct{}
	result error
}

// New constructs a Request from cfg. It performs no network I/O and
// never fails synchronously: configuration problems surface as a
// single Failed event, and from Wait, once the request is sent.
func New(cfg Config) *Request {
	r := &Request{
		Handlers: &HandlerGroup{},
		x:        &Exchange{},
		clen:     -1,
		done:     make(chan struct{}),
	}

	r.method = cfg.Method
	if r.method == "" {
		r.method = "GET"
	}
	if !validMethod(r.method) {
		r.fail0(&InvalidMethodError{Method: r.method})
	}

	r.parseTarget(cfg)
	r.header = canonicalHeader(cfg.Header)
	r.resolveHost(cfg)
	r.resolveConnection(cfg)
	r.resolveCookies(cfg)
	r.resolveCollaborators(cfg)
	r.resolveBody(cfg)

	if cfg.Decompress {
		r.decompress = true
		if r.header.Get("Accept-Encoding") == "" {
			r.header.Set("Accept-Encoding", "gzip, deflate")
		}
	}

	r.resolveTransport(cfg)
	r.resolveAgent(cfg)

	r.timeout = cfg.Timeout
	r.ctx = cfg.Context
	if r.ctx == nil {
		r.ctx = context.Background()
	}

	r.x.Method = r.method
	r.x.URL = r.target
	r.x.Host = r.host
	return r
}

// fail0 records the first configuration error; later ones lose.
func (r *Request) fail0(err error) {
	if r.fatal == nil {
		r.fatal = err
	}
}

func (r *Request) parseTarget(cfg Config) {
	if cfg.Target != nil {
		u := *cfg.Target
		r.target = &u
	} else if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			r.fail0(&InvalidTargetError{Target: cfg.URL, Cause: err})
			return
		}
		r.target = u
	}
	// The target must name a host, unless the connection goes to a
	// Unix-domain socket. This is checked exactly once, here.
	if r.target == nil || (r.target.Host == "" && cfg.UnixPath == "") {
		t := cfg.URL
		if r.target != nil {
			t = r.target.String()
		}
		r.fail0(&InvalidTargetError{Target: t})
	}
}

// canonicalHeader copies h into a case-insensitive header map with
// canonical field names. Entries with a nil value list are dropped so
// they can never reach the transport layer. A Host entry is handled
// by resolveHost and excluded here.
func canonicalHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		if vs == nil {
			continue
		}
		ck := http.CanonicalHeaderKey(k)
		if ck == "Host" {
			continue
		}
		out[ck] = append([]string(nil), vs...)
	}
	return out
}

func (r *Request) resolveHost(cfg Config) {
	switch {
	case cfg.Host != "":
		r.host = cfg.Host
	case len(cfg.Header.Values("Host")) > 0:
		r.host = cfg.Header.Values("Host")[0]
	case r.target != nil && r.target.Host != "":
		r.host = r.target.Host
		r.setHost = true
	}
}

var defaultPorts = map[string]string{"http": "80", "https": "443"}

func (r *Request) resolveConnection(cfg Config) {
	if r.target == nil {
		return
	}
	r.insecure = cfg.InsecureTLS
	r.proxy = cfg.Proxy
	r.tun = cfg.Tunnel
	if r.tun == nil {
		r.tun = tunnel.Direct
	}
	tunneled := r.proxy != nil && r.tun.Enabled()

	switch {
	case cfg.UnixPath != "":
		r.network = "unix"
		r.addr = cfg.UnixPath
		r.connScheme = schemeOrHTTP(r.target)
		r.path = r.target.RequestURI()
		r.serverName = r.target.Hostname()
	case r.proxy != nil && !tunneled:
		// Forwarding at the HTTP layer: connect to the proxy and send
		// the absolute-form request target.
		r.network = "tcp"
		r.connScheme = schemeOrHTTP(r.proxy)
		r.addr = hostPort(r.proxy, r.connScheme)
		r.path = absoluteForm(r.target)
		r.serverName = r.proxy.Hostname()
	case tunneled:
		// Connect to the proxy; the tunnel makes it invisible at the
		// HTTP layer, so the request target and SNI name the target.
		r.network = "tcp"
		r.connScheme = schemeOrHTTP(r.target)
		r.addr = hostPort(r.proxy, schemeOrHTTP(r.proxy))
		r.path = r.target.RequestURI()
		r.serverName = r.target.Hostname()
	default:
		r.network = "tcp"
		r.connScheme = schemeOrHTTP(r.target)
		r.addr = hostPort(r.target, r.connScheme)
		r.path = r.target.RequestURI()
		r.serverName = r.target.Hostname()
	}
}

func schemeOrHTTP(u *url.URL) string {
	if u.Scheme == "" {
		return "http"
	}
	return strings.ToLower(u.Scheme)
}

func hostPort(u *url.URL, scheme string) string {
	port := u.Port()
	if port == "" {
		port = defaultPorts[scheme]
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// absoluteForm renders u as an absolute-form request target, without
// any fragment.
func absoluteForm(u *url.URL) string {
	u2 := *u
	u2.Fragment = ""
	return u2.String()
}

func (r *Request) resolveCookies(cfg Config) {
	r.disableCookies = cfg.DisableCookies
	r.cjar = cfg.Jar
	if r.cjar == nil {
		r.cjar = jar.Default
	}
	if r.disableCookies || r.target == nil {
		return
	}
	s, err := r.cjar.CookieString(r.target)
	if err != nil {
		r.setupErr = err
		return
	}
	if s == "" {
		return
	}
	// All cookies travel in a single Cookie field, per RFC 6265
	// section 5.4.
	if existing := r.header.Get("Cookie"); existing != "" {
		r.header.Set("Cookie", existing+"; "+s)
	} else {
		r.header.Set("Cookie", s)
	}
}

func (r *Request) resolveCollaborators(cfg Config) {
	// Fixed setup order: auth before redirect.
	r.authn = cfg.Auth
	if r.authn != nil {
		r.authn.OnRequest(r.header)
	}
	r.redir = cfg.Redirect
	if r.redir == nil {
		r.redir = redirect.None
	}
	if r.target != nil {
		r.redir.OnRequest(r.method, r.target, r.header)
	}
}

func (r *Request) resolveBody(cfg Config) {
	r.src = cfg.Body
	if r.src == nil {
		return
	}
	r.hasBody = true
	if f, ok := r.src.(body.Form); ok {
		for k, vs := range f.Header() {
			if r.header.Get(k) == "" {
				r.header[http.CanonicalHeaderKey(k)] = vs
			}
		}
	}
	if n := r.src.Len(); n == 0 {
		r.fail0(&EmptyBodyError{})
	} else if n > 0 {
		r.clen = n
	}
}

func (r *Request) resolveTransport(cfg Config) {
	if t, ok := cfg.Transports[r.connScheme]; ok {
		r.trans = t
		return
	}
	switch r.connScheme {
	case "http", "https", "":
		r.trans = transport.Default
	default:
		r.fail0(&SchemeError{Scheme: r.connScheme})
	}
}

func (r *Request) resolveAgent(cfg Config) {
	pool := cfg.Pool
	if cfg.NoPool {
		pool = agent.NewPool()
	} else if pool == nil {
		pool = agent.DefaultPool
	}
	r.agt = pool.Agent(r.connScheme, r.insecure)
}

// validMethod reports whether method is a valid RFC 7230 token.
func validMethod(method string) bool {
	for _, r := range method {
		if !httpguts.IsTokenRune(r) {
			return false
		}
	}
	return len(method) > 0
}
