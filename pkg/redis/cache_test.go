package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIsStable(t *testing.T) {
	k1 := Key("quote", "AAPL")
	k2 := Key("quote", "AAPL")
	k3 := Key("quote", "MSFT")
	k4 := Key("candles", "AAPL")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.NotEqual(t, k1, k4)
	assert.Contains(t, k1, "quote:")
}

func TestKeyMixedArgs(t *testing.T) {
	k1 := Key("candles", "AAPL", 180)
	k2 := Key("candles", "AAPL", 90)
	assert.NotEqual(t, k1, k2)
}

// With Redis disabled the cache degrades to calling fn every time.
func TestGetOrSetPassThroughWhenDisabled(t *testing.T) {
	cache := NewCache(&Client{enabled: false}, "test")

	calls := 0
	var got string
	for i := 0; i < 2; i++ {
		err := cache.GetOrSet(context.Background(), Key("quote", "AAPL"), &got, time.Minute, func() (interface{}, error) {
			calls++
			return "fresh", nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, "fresh", got)
	assert.Equal(t, 2, calls)
}

func TestGetOrSetPropagatesFnError(t *testing.T) {
	cache := NewCache(&Client{enabled: false}, "test")

	wantErr := errors.New("provider down")
	var got string
	err := cache.GetOrSet(context.Background(), "k", &got, time.Minute, func() (interface{}, error) {
		return nil, wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Empty(t, got)
}

func TestGetMissWhenDisabled(t *testing.T) {
	cache := NewCache(&Client{enabled: false}, "test")

	var got int
	assert.False(t, cache.Get(context.Background(), "k", &got))
}
