// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package agent

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "http", Key("http", false))
	assert.Equal(t, "http", Key("http", true))
	assert.Equal(t, "https", Key("https", false))
	assert.Equal(t, "https:insecure", Key("https", true))
}

func TestPoolAgent(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		p := NewPool()
		a1 := p.Agent("http", false)
		a2 := p.Agent("http", false)
		assert.Same(t, a1, a2)
	})
	t.Run("distinct keys", func(t *testing.T) {
		p := NewPool()
		assert.NotSame(t, p.Agent("http", false), p.Agent("https", false))
		assert.NotSame(t, p.Agent("https", false), p.Agent("https", true))
	})
	t.Run("distinct pools", func(t *testing.T) {
		assert.NotSame(t, NewPool().Agent("http", false), NewPool().Agent("http", false))
	})
	t.Run("concurrent first use", func(t *testing.T) {
		p := NewPool()
		agents := make([]*Agent, 8)
		var wg sync.WaitGroup
		for i := range agents {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				agents[i] = p.Agent("https", true)
			}(i)
		}
		wg.Wait()
		for _, a := range agents {
			assert.Same(t, agents[0], a)
		}
	})
}

func TestAgentDialReuse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()
	addr := ln.Addr().String()

	a := NewPool().Agent("http", false)
	c1, reused, err := a.Dial(context.Background(), "tcp", addr, "", false, nil)
	require.NoError(t, err)
	assert.False(t, reused)

	a.Put(addr, c1)
	c2, reused, err := a.Dial(context.Background(), "tcp", addr, "", false, nil)
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Same(t, c1, c2)

	// The fresh path must bypass the idle list.
	a.Put(addr, c2)
	c3, reused, err := a.Dial(context.Background(), "tcp", addr, "", true, nil)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.NotSame(t, c2, c3)
	c3.Close()
	a.CloseIdle()
}

func TestAgentDialSetup(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()
	addr := ln.Addr().String()
	a := NewPool().Agent("http", false)

	t.Run("bypasses idle list", func(t *testing.T) {
		c1, _, err := a.Dial(context.Background(), "tcp", addr, "", false, nil)
		require.NoError(t, err)
		a.Put(addr, c1)

		var got net.Conn
		c2, reused, err := a.Dial(context.Background(), "tcp", addr, "", false, func(_ context.Context, c net.Conn) error {
			got = c
			return nil
		})
		require.NoError(t, err)
		assert.False(t, reused)
		assert.NotSame(t, c1, c2)
		assert.Same(t, c2, got)
		c2.Close()
		a.CloseIdle()
	})

	t.Run("error closes conn", func(t *testing.T) {
		var got net.Conn
		boom := errors.New("handshake refused")
		_, _, err := a.Dial(context.Background(), "tcp", addr, "", false, func(_ context.Context, c net.Conn) error {
			got = c
			return boom
		})
		assert.Same(t, boom, err)
		require.NotNil(t, got)
		_, err = got.Write([]byte("x"))
		assert.Error(t, err)
	})
}

func TestAgentPutBounded(t *testing.T) {
	a := &Agent{scheme: "http", MaxIdlePerHost: 1}
	c1, c2 := &closeCounter{}, &closeCounter{}
	a.Put("x", c1)
	a.Put("x", c2)
	assert.Equal(t, 0, c1.closes)
	assert.Equal(t, 1, c2.closes)
	a.CloseIdle()
	assert.Equal(t, 1, c1.closes)
}

type closeCounter struct {
	net.Conn
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return nil
}
