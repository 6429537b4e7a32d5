package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slider struct {
	Titulo string `json:"titulo"`
	Orden  int    `json:"orden"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	var got []slider
	ok, err := c.Get(ctx, "sliders", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "sliders", []slider{{Titulo: "Vinos", Orden: 1}}, 0))
	ok, err = c.Get(ctx, "sliders", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []slider{{Titulo: "Vinos", Orden: 1}}, got)

	require.NoError(t, c.Delete(ctx, "sliders"))
	ok, _ = c.Get(ctx, "sliders", &got)
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "dashboard", map[string]int{"pedidos": 3}, time.Minute))

	var got map[string]int
	ok, err := c.Get(ctx, "dashboard", &got)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(61 * time.Second)
	ok, err = c.Get(ctx, "dashboard", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
