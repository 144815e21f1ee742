// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tunnel

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirect(t *testing.T) {
	assert.False(t, Direct.Enabled())
	assert.NoError(t, Direct.Setup(context.Background(), nil, &url.URL{}, &url.URL{}))
}
