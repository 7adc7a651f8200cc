package app

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/otp-store/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	_, _, err := OpenStore(context.Background(), &config.Config{StoreBackend: "sqlite"})
	assert.ErrorContains(t, err, `unknown store backend "sqlite"`)
}

func TestOpenStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	store, closeFn, err := OpenStore(context.Background(), &config.Config{
		StoreBackend: config.StoreRedis,
		RedisAddr:    mr.Addr(),
	})
	require.NoError(t, err)
	defer closeFn()
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNewOTPService(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		StoreBackend: config.StoreRedis,
		RedisAddr:    mr.Addr(),
		OTPTTL:       5 * time.Minute,
		MailTimeout:  time.Second,
		MailSubject:  "Verification Email",
		SMTPHost:     "localhost",
		SMTPPort:     1025,
	}
	store, closeFn, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	svc, err := NewOTPService(cfg, store)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}
