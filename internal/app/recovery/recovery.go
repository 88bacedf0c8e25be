// Package recovery drives account-recovery form submission. The
// environment-specific part (actually filling a web form) hides behind
// FormFiller; the Runner owns the retry policy: submit, wait a fixed
// window, ask the operator to confirm, and try again up to a bounded
// attempt count.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Form is one recovery request.
type Form struct {
	Email    string
	Username string
	Fields   map[string]string
}

// FormFiller submits a recovery form. Implementations wrap whatever
// automation is available in the deployment.
type FormFiller interface {
	Fill(ctx context.Context, form Form) error
}

// Confirmer answers whether a submission went through. Typically
// backed by an operator prompt.
type Confirmer interface {
	Confirm(ctx context.Context, attempt int) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, attempt int) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, attempt int) (bool, error) {
	return f(ctx, attempt)
}

// Config controls the retry policy.
type Config struct {
	// MaxAttempts bounds the submit/confirm loop (default 3).
	MaxAttempts int
	// SettleWait is how long to wait after a submission before asking
	// for confirmation (default 5s).
	SettleWait time.Duration
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		SettleWait:  5 * time.Second,
	}
}

// Runner runs recovery submissions with bounded confirmation retries.
type Runner struct {
	cfg       Config
	filler    FormFiller
	confirmer Confirmer
	logger    *slog.Logger
}

// New creates a runner.
func New(cfg Config, filler FormFiller, confirmer Confirmer) *Runner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.SettleWait <= 0 {
		cfg.SettleWait = DefaultConfig().SettleWait
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, filler: filler, confirmer: confirmer, logger: logger}
}

// Run submits the form until a confirmed success or the attempt budget
// runs out. Returns the number of attempts made.
func (r *Runner) Run(ctx context.Context, form Form) (int, error) {
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := r.filler.Fill(ctx, form); err != nil {
			r.logger.Warn("recovery submission failed", "attempt", attempt, "error", err)
			continue
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(r.cfg.SettleWait):
		}

		confirmed, err := r.confirmer.Confirm(ctx, attempt)
		if err != nil {
			return attempt, fmt.Errorf("recovery confirmation: %w", err)
		}
		if confirmed {
			r.logger.Info("recovery confirmed", "attempt", attempt)
			return attempt, nil
		}
		r.logger.Info("recovery not confirmed, retrying", "attempt", attempt)
	}
	return r.cfg.MaxAttempts, fmt.Errorf("recovery not confirmed after %d attempts", r.cfg.MaxAttempts)
}
