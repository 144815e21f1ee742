// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamx

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUrlWrap(t *testing.T) {
	u := mustParse("http://example.test/x")
	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, urlWrap("GET", u, nil))
	})
	t.Run("wraps plain error", func(t *testing.T) {
		cause := errors.New("boom")
		err := urlWrap("POST", u, cause)
		var ue *url.Error
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, "Post", ue.Op)
		assert.Equal(t, "http://example.test/x", ue.URL)
		assert.True(t, errors.Is(err, cause))
	})
	t.Run("idempotent", func(t *testing.T) {
		inner := urlWrap("GET", u, errors.New("boom"))
		outer := urlWrap("GET", u, inner)
		assert.Same(t, inner, outer)
	})
	t.Run("nil target", func(t *testing.T) {
		err := urlWrap("GET", nil, errors.New("boom"))
		var ue *url.Error
		require.ErrorAs(t, err, &ue)
		assert.Empty(t, ue.URL)
	})
}

func TestUrlErrorOp(t *testing.T) {
	assert.Equal(t, "Get", urlErrorOp(""))
	assert.Equal(t, "Get", urlErrorOp("GET"))
	assert.Equal(t, "Post", urlErrorOp("POST"))
	assert.Equal(t, "Purge", urlErrorOp("PURGE"))
}
