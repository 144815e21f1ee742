// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamx

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerGroup(t *testing.T) {
	var evts []string
	var xs []*Exchange
	h1 := &testHandler{seq: 1, evts: &evts, xs: &xs}
	h2 := &testHandler{seq: 2, evts: &evts, xs: &xs}
	g := &HandlerGroup{}
	t.Run("PushBack", func(t *testing.T) {
		assert.Panics(t, func() { g.PushBack(Started, nil) })
		assert.Panics(t, func() { g.PushBack(Event(123), h1) })
		g.PushBack(Started, h1)
		g.PushBack(Started, h2)
		g.PushBack(Closed, h1)
	})
	t.Run("run", func(t *testing.T) {
		x1 := &Exchange{Attempt: 1}
		x2 := &Exchange{Attempt: 2}
		assert.Empty(t, evts)
		assert.Empty(t, xs)
		g.run(Failed, x1)
		assert.Empty(t, evts)
		assert.Empty(t, xs)
		g.run(Started, x1)
		assert.Equal(t, []string{"1.Started", "2.Started"}, evts)
		assert.Equal(t, []*Exchange{x1, x1}, xs)
		evts = evts[:0]
		xs = xs[:0]
		g.run(Closed, x2)
		assert.Equal(t, []string{"1.Closed"}, evts)
		assert.Equal(t, []*Exchange{x2}, xs)
		evts = evts[:0]
		xs = xs[:0]
		g.run(Started, x2)
		assert.Equal(t, []string{"1.Started", "2.Started"}, evts)
		assert.Equal(t, []*Exchange{x2, x2}, xs)
	})
}

type testHandler struct {
	seq  int
	evts *[]string
	xs   *[]*Exchange
}

func (h *testHandler) Handle(evt Event, x *Exchange) {
	*h.evts = append(*h.evts, fmt.Sprintf("%d.%s", h.seq, evt))
	*h.xs = append(*h.xs, x)
}

func TestHandlerFunc(t *testing.T) {
	var _evt Event
	var _x *Exchange
	var f = func(evt Event, x *Exchange) {
		_evt = evt
		_x = x
	}
	h := HandlerFunc(f)
	x := &Exchange{}
	h.Handle(Data, x)

	assert.Equal(t, Data, _evt)
	assert.Same(t, x, _x)
}
