package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaim(t *testing.T) {
	mr := miniredis.RunT(t)

	g, err := New(mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer g.Close()

	ctx := context.Background()

	ok, err := g.Claim(ctx, "0xa")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Claim(ctx, "0xa")
	require.NoError(t, err)
	assert.False(t, ok, "second claim inside the window")

	ok, err = g.Claim(ctx, "0xb")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = g.Claim(ctx, "0xa")
	require.NoError(t, err)
	assert.True(t, ok, "claim expires with the window")
}

func TestRelease(t *testing.T) {
	mr := miniredis.RunT(t)

	g, err := New(mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer g.Close()

	ctx := context.Background()

	_, err = g.Claim(ctx, "0xa")
	require.NoError(t, err)
	require.NoError(t, g.Release(ctx, "0xa"))

	ok, err := g.Claim(ctx, "0xa")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(addr, time.Minute)
	assert.Error(t, err)
}
