// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	f := &fakeTransport{streams: []*fakeStream{okStream(200, nil, "convenient")}}

	x, err := Do(fakeConfig(f, Config{URL: "http://example.test/"}))

	require.NoError(t, err)
	assert.Equal(t, 200, x.StatusCode())
	assert.Equal(t, "convenient", string(x.Body))
	assert.True(t, x.Ended())
}
