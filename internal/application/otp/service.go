package otp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otp-store/internal/domain"
	"github.com/otp-store/internal/pkg/id"
	"github.com/otp-store/internal/pkg/validate"
)

// DefaultTTL is how long a record stays readable after creation.
const DefaultTTL = 5 * time.Minute

// DefaultSubject is the subject line of the verification email.
const DefaultSubject = "Verification Email"

var fieldMessages = map[string]string{
	"Email.required": "Email is required",
	"Email.otpemail": "Invalid email format",
	"OTP.required":   "OTP is required",
	"OTP.min":        "OTP must be at least 6 characters long",
}

// Store is the persistence boundary for OTP records.
type Store interface {
	Put(ctx context.Context, rec *domain.OTPRecord) error
	Get(ctx context.Context, otpID string) (*domain.OTPRecord, error)
	ListByEmail(ctx context.Context, email string) ([]domain.OTPRecord, error)
	Delete(ctx context.Context, otpID string) error
}

// Mailer delivers a message to a single recipient.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Renderer produces the verification email body for an OTP.
type Renderer interface {
	Render(otp string) (string, error)
}

type Service interface {
	// Create validates, persists and notifies. On notification failure the record is removed again.
	Create(ctx context.Context, email, otp string) (*domain.OTPRecord, error)
	Persist(ctx context.Context, rec *domain.OTPRecord) error
	Notify(ctx context.Context, rec *domain.OTPRecord) error
	Get(ctx context.Context, otpID string) (*domain.OTPRecord, error)
	ListByEmail(ctx context.Context, email string) ([]domain.OTPRecord, error)
}

// ServiceDeps bundles the collaborators of the OTP service.
// Zero TTL and empty Subject fall back to defaults, zero MailTimeout leaves the send unbounded
// by this service, and a nil Now uses time.Now.
type ServiceDeps struct {
	Store       Store
	Mailer      Mailer
	Renderer    Renderer
	TTL         time.Duration
	MailTimeout time.Duration
	Subject     string
	Now         func() time.Time
}

type service struct {
	store       Store
	mailer      Mailer
	renderer    Renderer
	ttl         time.Duration
	mailTimeout time.Duration
	subject     string
	now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:       deps.Store,
		mailer:      deps.Mailer,
		renderer:    deps.Renderer,
		ttl:         deps.TTL,
		mailTimeout: deps.MailTimeout,
		subject:     deps.Subject,
		now:         deps.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.subject == "" {
		s.subject = DefaultSubject
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) Create(ctx context.Context, email, otp string) (*domain.OTPRecord, error) {
	slog.Info("creating otp record", "email", email)

	rec := &domain.OTPRecord{Email: email, OTP: otp}
	if err := s.Persist(ctx, rec); err != nil {
		return nil, err
	}

	if err := s.Notify(ctx, rec); err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), rec.ID); delErr != nil {
			slog.Error("failed to roll back otp record after notification failure",
				"otp_id", rec.ID, "email", rec.Email, "err", delErr)
		}
		return nil, err
	}
	return rec, nil
}

func (s *service) Persist(ctx context.Context, rec *domain.OTPRecord) error {
	if err := validateRecord(rec); err != nil {
		slog.Warn("otp record rejected", "email", rec.Email, "err", err)
		return err
	}

	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.ID == "" {
		rec.ID = id.NewAt(rec.CreatedAt)
	}
	rec.ExpiresAt = domain.ExpiryFor(rec.CreatedAt, s.ttl)

	if err := s.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("persist otp record: %w", err)
	}
	return nil
}

func (s *service) Notify(ctx context.Context, rec *domain.OTPRecord) error {
	body, err := s.renderer.Render(rec.OTP)
	if err != nil {
		slog.Error("failed to render verification email", "otp_id", rec.ID, "err", err)
		return &domain.NotificationError{Reason: err.Error()}
	}

	if s.mailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.mailTimeout)
		defer cancel()
	}

	if err := s.mailer.SendEmail(ctx, rec.Email, s.subject, body); err != nil {
		slog.Error("failed to send verification email", "otp_id", rec.ID, "email", rec.Email, "err", err)
		return &domain.NotificationError{Reason: err.Error()}
	}
	slog.Info("verification email sent", "otp_id", rec.ID, "email", rec.Email)
	return nil
}

func (s *service) Get(ctx context.Context, otpID string) (*domain.OTPRecord, error) {
	rec, err := s.store.Get(ctx, otpID)
	if err != nil {
		return nil, err
	}
	if rec.Expired(s.now()) {
		return nil, fmt.Errorf("otp record expired: %w", domain.ErrNotFound)
	}
	return rec, nil
}

func (s *service) ListByEmail(ctx context.Context, email string) ([]domain.OTPRecord, error) {
	recs, err := s.store.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	now := s.now()
	live := recs[:0]
	for _, r := range recs {
		if !r.Expired(now) {
			live = append(live, r)
		}
	}
	return live, nil
}

func validateRecord(rec *domain.OTPRecord) error {
	fields, err := validate.Fields(rec, fieldMessages)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
