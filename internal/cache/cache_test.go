package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordinals-plus/indexer/internal/provider"
)

func TestCacheHitMiss(t *testing.T) {
	c := New(time.Hour)

	_, ok := c.GetDetails("abcd...i0")
	assert.False(t, ok)

	c.PutDetails("abcd...i0", &provider.Details{InscriptionID: "abcd...i0", Sat: 1000})
	got, ok := c.GetDetails("abcd...i0")
	require.True(t, ok)
	assert.EqualValues(t, 1000, got.Sat)

	_, ok = c.GetSatInfo(1000)
	assert.False(t, ok)

	c.PutSatInfo(1000, &provider.SatInfo{InscriptionIDs: []string{"abcd...i0"}})
	info, ok := c.GetSatInfo(1000)
	require.True(t, ok)
	assert.Equal(t, []string{"abcd...i0"}, info.InscriptionIDs)

	d, s := c.Len()
	assert.Equal(t, 1, d)
	assert.Equal(t, 1, s)
}

func TestCacheExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.PutDetails("id1", &provider.Details{InscriptionID: "id1", Sat: 1})

	_, ok := c.GetDetails("id1")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)

	_, ok = c.GetDetails("id1")
	assert.False(t, ok, "entry should have expired")
}
