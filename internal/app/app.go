package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/otp-store/internal/application/otp"
	"github.com/otp-store/internal/config"
	"github.com/otp-store/internal/infrastructure/dynamo"
	"github.com/otp-store/internal/infrastructure/mailtemplate"
	redisinfra "github.com/otp-store/internal/infrastructure/redis"
	"github.com/otp-store/internal/infrastructure/smtp"
)

// Store is everything the process needs from an OTP store backend.
type Store interface {
	otp.Store
	otp.Expirer
	Ping(ctx context.Context) error
}

// OpenStore connects to the backend named by cfg.StoreBackend. The returned
// close function releases its connections.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := dynamo.Bootstrap(ctx, client, cfg.DynamoTables); err != nil {
			return nil, nil, err
		}
		return dynamo.NewOTPRepo(client, cfg.DynamoTables.OTPs), func() {}, nil
	case config.StoreRedis:
		client, err := redisinfra.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return redisinfra.NewOTPRepo(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// NewOTPService wires the OTP service to store, the SMTP mailer and the embedded template.
func NewOTPService(cfg *config.Config, store otp.Store) (otp.Service, error) {
	renderer, err := mailtemplate.NewRenderer(cfg.MailSubject, cfg.OTPTTL)
	if err != nil {
		return nil, err
	}
	return otp.NewService(otp.ServiceDeps{
		Store:       store,
		Mailer:      smtp.NewMailer(cfg),
		Renderer:    renderer,
		TTL:         cfg.OTPTTL,
		MailTimeout: cfg.MailTimeout,
		Subject:     cfg.MailSubject,
	}), nil
}

// SetupLogger installs a JSON slog handler at the configured level as the default logger.
func SetupLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger.With("env", cfg.AppEnv))
	return slog.Default()
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
