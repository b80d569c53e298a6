package hold

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeperRunOnceRunsEveryStep(t *testing.T) {
	var order []string
	s := NewSweeper(time.Minute,
		SweepStep{Name: "bookings", Run: func(context.Context) (int, error) {
			order = append(order, "bookings")
			return 2, errors.New("partial failure")
		}},
		SweepStep{Name: "holds", Run: func(context.Context) (int, error) {
			order = append(order, "holds")
			return 3, nil
		}},
	)

	got := s.RunOnce(context.Background())
	assert.Equal(t, map[string]int{"bookings": 2, "holds": 3}, got)
	assert.Equal(t, []string{"bookings", "holds"}, order)
}

func TestSweeperStartRunsOnInterval(t *testing.T) {
	var runs atomic.Int32
	s := NewSweeper(20*time.Millisecond, SweepStep{Name: "count", Run: func(context.Context) (int, error) {
		runs.Add(1)
		return 0, nil
	}})

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop(), "stop is idempotent")
}
