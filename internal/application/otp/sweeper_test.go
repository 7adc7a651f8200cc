package otp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockExpirer struct{ mock.Mock }

func (m *mockExpirer) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

// countingExpirer counts passes without the bookkeeping of testify mocks.
type countingExpirer struct{ calls atomic.Int32 }

func (c *countingExpirer) DeleteExpired(context.Context, time.Time) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestSweepOnce_PassesCurrentTime(t *testing.T) {
	ex := &mockExpirer{}
	ex.On("DeleteExpired", mock.Anything, fixedNow).Return(3, nil).Once()

	s := NewSweeper(ex, time.Minute)
	s.now = func() time.Time { return fixedNow }

	assert.Equal(t, 3, s.SweepOnce(context.Background()))
	ex.AssertExpectations(t)
}

func TestSweepOnce_ErrorIsSwallowed(t *testing.T) {
	ex := &mockExpirer{}
	ex.On("DeleteExpired", mock.Anything, mock.Anything).Return(1, errors.New("throttled"))

	assert.Equal(t, 1, NewSweeper(ex, time.Minute).SweepOnce(context.Background()))
}

func TestNewSweeper_DefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultSweepInterval, NewSweeper(&countingExpirer{}, 0).interval)
}

func TestRun_SweepsRepeatedlyUntilCancelled(t *testing.T) {
	ex := &countingExpirer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		NewSweeper(ex, 5*time.Millisecond).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return ex.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
