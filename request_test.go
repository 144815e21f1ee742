// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamx

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogama/streamx/body"
)

func TestNew_NoIO(t *testing.T) {
	f := &fakeTransport{}
	_ = New(fakeConfig(f, Config{
		URL:  "http://example.test/",
		Body: body.String("queued but not sent"),
	}))

	assert.Empty(t, f.requests())
}

func TestNew_Method(t *testing.T) {
	t.Run("defaults to GET", func(t *testing.T) {
		r := New(Config{URL: "http://example.test/"})
		assert.Equal(t, "GET", r.method)
		assert.Equal(t, "GET", r.x.Method)
	})
	t.Run("custom token", func(t *testing.T) {
		r := New(Config{Method: "PURGE", URL: "http://example.test/"})
		assert.Equal(t, "PURGE", r.method)
		assert.Nil(t, r.fatal)
	})
	t.Run("invalid", func(t *testing.T) {
		for _, method := range []string{"GE T", "bogus/", "实验"} {
			r := New(Config{Method: method, URL: "http://example.test/"})
			var ime *InvalidMethodError
			require.ErrorAs(t, r.fatal, &ime)
			assert.Equal(t, method, ime.Method)
		}
	})
}

func TestNew_Header(t *testing.T) {
	t.Run("canonicalized copy", func(t *testing.T) {
		in := http.Header{
			"x-custom":     {"a", "b"},
			"content-type": {"text/plain"},
		}
		r := New(Config{URL: "http://example.test/", Header: in})
		assert.Equal(t, []string{"a", "b"}, r.header["X-Custom"])
		assert.Equal(t, "text/plain", r.header.Get("Content-Type"))
		in.Set("X-Custom", "mutated after New")
		assert.Equal(t, []string{"a", "b"}, r.header["X-Custom"])
	})
	t.Run("nil value dropped", func(t *testing.T) {
		r := New(Config{
			URL:    "http://example.test/",
			Header: http.Header{"X-Ghost": nil, "X-Real": {"here"}},
		})
		_, present := r.header["X-Ghost"]
		assert.False(t, present)
		assert.Equal(t, "here", r.header.Get("X-Real"))
	})
	t.Run("host lifted out", func(t *testing.T) {
		r := New(Config{
			URL:    "http://example.test/",
			Header: http.Header{"Host": {"other.test"}},
		})
		_, present := r.header["Host"]
		assert.False(t, present)
		assert.Equal(t, "other.test", r.host)
	})
}

func TestNew_Host(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		host    string
		setHost bool
	}{
		{
			name: "from target",
			cfg:  Config{URL: "http://example.test:8080/x"},
			host: "example.test:8080", setHost: true,
		},
		{
			name: "config field wins",
			cfg: Config{
				URL:    "http://example.test/",
				Host:   "override.test",
				Header: http.Header{"Host": {"header.test"}},
			},
			host: "override.test",
		},
		{
			name: "header beats target",
			cfg: Config{
				URL:    "http://example.test/",
				Header: http.Header{"Host": {"header.test"}},
			},
			host: "header.test",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			r := New(testCase.cfg)
			assert.Equal(t, testCase.host, r.host)
			assert.Equal(t, testCase.setHost, r.setHost)
			assert.Equal(t, testCase.host, r.x.Host)
		})
	}
}

func TestNew_Connection(t *testing.T) {
	testCases := []struct {
		name       string
		cfg        Config
		scheme     string
		net        string
		addr       string
		path       string
		serverName string
	}{
		{
			name:   "http default port",
			cfg:    Config{URL: "http://example.test/a/b?q=1"},
			scheme: "http", net: "tcp", addr: "example.test:80", path: "/a/b?q=1",
			serverName: "example.test",
		},
		{
			name:   "https default port",
			cfg:    Config{URL: "https://example.test/"},
			scheme: "https", net: "tcp", addr: "example.test:443", path: "/",
			serverName: "example.test",
		},
		{
			name:   "explicit port",
			cfg:    Config{URL: "http://example.test:8080/"},
			scheme: "http", net: "tcp", addr: "example.test:8080", path: "/",
			serverName: "example.test",
		},
		{
			name: "proxy absolute form",
			cfg: Config{
				URL:   "http://example.test/page#frag",
				Proxy: mustParse("http://proxy.test:3128"),
			},
			scheme: "http", net: "tcp", addr: "proxy.test:3128",
			path:       "http://example.test/page",
			serverName: "proxy.test",
		},
		{
			name: "tunneled proxy",
			cfg: Config{
				URL:    "https://target.test/secret",
				Proxy:  mustParse("http://proxy.test:3128"),
				Tunnel: &connectTunnel{},
			},
			scheme: "https", net: "tcp", addr: "proxy.test:3128",
			path:       "/secret",
			serverName: "target.test",
		},
		{
			name:   "unix socket",
			cfg:    Config{URL: "http://example.test/status", UnixPath: "/var/run/app.sock"},
			scheme: "http", net: "unix", addr: "/var/run/app.sock", path: "/status",
			serverName: "example.test",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			r := New(testCase.cfg)
			require.Nil(t, r.fatal)
			assert.Equal(t, testCase.scheme, r.connScheme)
			assert.Equal(t, testCase.net, r.network)
			assert.Equal(t, testCase.addr, r.addr)
			assert.Equal(t, testCase.path, r.path)
			assert.Equal(t, testCase.serverName, r.serverName)
		})
	}
}

func TestNew_Scheme(t *testing.T) {
	r := New(Config{URL: "gopher://example.test/"})
	var se *SchemeError
	require.ErrorAs(t, r.fatal, &se)
	assert.Equal(t, "gopher", se.Scheme)
}

func TestNew_Cookies(t *testing.T) {
	t.Run("jar cookie attached", func(t *testing.T) {
		r := New(Config{URL: "http://example.test/", Jar: stubJar{s: "a=1; b=2"}})
		assert.Equal(t, "a=1; b=2", r.header.Get("Cookie"))
	})
	t.Run("merged after caller cookie", func(t *testing.T) {
		r := New(Config{
			URL:    "http://example.test/",
			Header: http.Header{"Cookie": {"mine=yes"}},
			Jar:    stubJar{s: "a=1"},
		})
		assert.Equal(t, "mine=yes; a=1", r.header.Get("Cookie"))
	})
	t.Run("disabled", func(t *testing.T) {
		r := New(Config{
			URL:            "http://example.test/",
			Jar:            stubJar{s: "a=1"},
			DisableCookies: true,
		})
		assert.Empty(t, r.header.Get("Cookie"))
	})
}

type stubJar struct {
	s string
}

func (j stubJar) SetCookie(string, *url.URL) error {
	return nil
}

func (j stubJar) CookieString(*url.URL) (string, error) {
	return j.s, nil
}

func TestNew_Body(t *testing.T) {
	t.Run("length declared", func(t *testing.T) {
		r := New(Config{Method: "POST", URL: "http://example.test/", Body: body.String("héllo")})
		assert.Equal(t, int64(6), r.clen)
		assert.True(t, r.hasBody)
	})
	t.Run("unknown length", func(t *testing.T) {
		r := New(Config{
			Method: "POST",
			URL:    "http://example.test/",
			Body:   body.Reader(strings.NewReader("stream")),
		})
		assert.Equal(t, int64(-1), r.clen)
		assert.True(t, r.hasBody)
	})
	t.Run("form header merged without overwrite", func(t *testing.T) {
		r := New(Config{
			Method: "POST",
			URL:    "http://example.test/",
			Header: http.Header{"Content-Type": {"application/custom"}},
			Body:   body.Values(url.Values{"k": {"v"}}),
		})
		assert.Equal(t, "application/custom", r.header.Get("Content-Type"))
	})
	t.Run("form content type by default", func(t *testing.T) {
		r := New(Config{
			Method: "POST",
			URL:    "http://example.test/",
			Body:   body.Values(url.Values{"k": {"v"}}),
		})
		assert.Equal(t, "application/x-www-form-urlencoded", r.header.Get("Content-Type"))
	})
}

func mustParse(s string) *url.URL {
	u, err := url.Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}
