// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJitter_Bounds(t *testing.T) {
	for range 200 {
		d := Jitter(2*time.Millisecond, 5*time.Millisecond)
		assert.GreaterOrEqual(t, d, 2*time.Millisecond)
		assert.LessOrEqual(t, d, 5*time.Millisecond)
	}
}

func TestJitter_Degenerate(t *testing.T) {
	assert.Equal(t, time.Duration(0), Jitter(0, 0))
	assert.Equal(t, 3*time.Second, Jitter(3*time.Second, time.Second))
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleep_Zero(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
}
