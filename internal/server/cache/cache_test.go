package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	c := New(time.Minute, time.Minute)

	_, ok := c.Get("pairs")
	assert.False(t, ok)

	c.Set("pairs", []string{"p1"})
	v, ok := c.Get("pairs")
	require.True(t, ok)
	assert.Equal(t, []string{"p1"}, v)
	assert.Equal(t, 1, c.ItemCount())

	c.Delete("pairs")
	_, ok = c.Get("pairs")
	assert.False(t, ok)
}

func TestRemember(t *testing.T) {
	c := New(time.Minute, time.Minute)
	loads := 0
	load := func() (any, error) {
		loads++
		return loads, nil
	}

	v, err := c.Remember("k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = c.Remember("k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, loads)
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	c := New(time.Minute, time.Minute)
	_, err := c.Remember("k", func() (any, error) { return nil, errors.New("store down") })
	require.Error(t, err)
	assert.Equal(t, 0, c.ItemCount())
}

func TestExpiry(t *testing.T) {
	c := New(10*time.Millisecond, time.Hour)
	c.Set("k", "v")
	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestFlush(t *testing.T) {
	c := New(time.Minute, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Flush()
	assert.Equal(t, 0, c.ItemCount())
}
