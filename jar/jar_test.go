// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jar

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestJarRoundTrip(t *testing.T) {
	j, err := New()
	require.NoError(t, err)
	u := mustURL(t, "http://example.com/resource")

	s, err := j.CookieString(u)
	require.NoError(t, err)
	assert.Empty(t, s)

	require.NoError(t, j.SetCookie("session=abc123; Path=/", u))
	require.NoError(t, j.SetCookie("pref=dark", u))

	s, err = j.CookieString(u)
	require.NoError(t, err)
	assert.Contains(t, s, "session=abc123")
	assert.Contains(t, s, "pref=dark")
}

func TestJarLastWriteWins(t *testing.T) {
	j, err := New()
	require.NoError(t, err)
	u := mustURL(t, "http://example.com/")

	require.NoError(t, j.SetCookie("session=first", u))
	require.NoError(t, j.SetCookie("session=second", u))

	s, err := j.CookieString(u)
	require.NoError(t, err)
	assert.Equal(t, "session=second", s)
}

func TestJarScoping(t *testing.T) {
	j, err := New()
	require.NoError(t, err)

	require.NoError(t, j.SetCookie("session=abc", mustURL(t, "http://example.com/")))

	s, err := j.CookieString(mustURL(t, "http://other.com/"))
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestJarParseError(t *testing.T) {
	j, err := New()
	require.NoError(t, err)

	err = j.SetCookie("", mustURL(t, "http://example.com/"))
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestDefault(t *testing.T) {
	assert.NotNil(t, Default)
}
