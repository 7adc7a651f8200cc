package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/otp-store/internal/config"
	"github.com/otp-store/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockExpirer struct{ mock.Mock }

func (m *mockExpirer) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(&domain.ValidationError{Fields: []domain.FieldError{{Field: "OTP", Message: "OTP is required"}}}))
	assert.Equal(t, 3, exitCode(fmt.Errorf("lookup: %w", domain.ErrNotFound)))
	assert.Equal(t, 4, exitCode(&domain.NotificationError{Reason: "timeout"}))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestRun_NoArgs(t *testing.T) {
	err := run(context.Background(), &config.Config{}, nil)
	assert.ErrorContains(t, err, "usage")
}

func TestRun_UnknownBackend(t *testing.T) {
	err := run(context.Background(), &config.Config{StoreBackend: "nope"}, []string{"sweep"})
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestSweep_StoreFailure_ReturnsError(t *testing.T) {
	ex := &mockExpirer{}
	ex.On("DeleteExpired", mock.Anything, mock.Anything).Return(2, errors.New("throttled"))

	err := sweep(context.Background(), ex, time.Now())

	assert.ErrorContains(t, err, "throttled")
	assert.Equal(t, 1, exitCode(err))
	ex.AssertExpectations(t)
}

func TestSweep_Success(t *testing.T) {
	now := time.Unix(1_000, 0)
	ex := &mockExpirer{}
	ex.On("DeleteExpired", mock.Anything, now).Return(3, nil).Once()

	assert.NoError(t, sweep(context.Background(), ex, now))
	ex.AssertExpectations(t)
}
