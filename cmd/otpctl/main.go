// Command otpctl issues and inspects OTP records against the configured store.
//
//	otpctl create -email user@example.com -otp 482913
//	otpctl get <otp_id>
//	otpctl list -email user@example.com
//	otpctl sweep
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/otp-store/internal/app"
	"github.com/otp-store/internal/application/otp"
	"github.com/otp-store/internal/config"
	"github.com/otp-store/internal/domain"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	app.SetupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "otpctl:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: otpctl <create|get|list|sweep> [flags]")
	}

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc, err := app.NewOTPService(cfg, store)
	if err != nil {
		return err
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "create":
		fs := flag.NewFlagSet("create", flag.ContinueOnError)
		email := fs.String("email", "", "recipient email address")
		code := fs.String("otp", "", "one-time password, at least 6 characters")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		rec, err := svc.Create(ctx, *email, *code)
		if err != nil {
			return err
		}
		return printJSON(rec)
	case "get":
		if len(rest) != 1 {
			return errors.New("usage: otpctl get <otp_id>")
		}
		rec, err := svc.Get(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(rec)
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		email := fs.String("email", "", "email address to list records for")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		recs, err := svc.ListByEmail(ctx, *email)
		if err != nil {
			return err
		}
		return printJSON(recs)
	case "sweep":
		return sweep(ctx, store, time.Now())
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// sweep runs one expiry pass and reports store failures, unlike the daemon's Sweeper.
func sweep(ctx context.Context, store otp.Expirer, now time.Time) error {
	n, err := store.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("sweep: removed %d before failure: %w", n, err)
	}
	return printJSON(map[string]int{"removed": n})
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return 2
	case errors.Is(err, domain.ErrNotFound):
		return 3
	case errors.Is(err, domain.ErrNotification):
		return 4
	default:
		return 1
	}
}
