// Package vouch tracks the obligation to post a vouch message after
// receiving an account. Obligations live in memory only; a restart
// forgives anyone currently on the clock.
package vouch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vaultgen/vaultgen/internal/domain"
	"github.com/vaultgen/vaultgen/internal/infra/observability"
)

// Marker is the substring (matched case-insensitively) that makes a
// message count as a vouch.
const Marker = "legit"

// TimeoutBanReason is the reason recorded on bans issued by the sweep.
const TimeoutBanReason = "failed to vouch in time"

// BanStore is the slice of the ban ledger the tracker needs.
type BanStore interface {
	Lookup(userID string) (domain.Ban, bool)
	Add(userID, issuerID, reason string, duration time.Duration) (domain.Ban, error)
}

// Counter persists lifetime vouch totals.
type Counter interface {
	IncrementVouches(userID string) (int, error)
}

// Reactions stamped on vouch messages.
const (
	reactAccepted = "✅"
	reactRejected = "❌"
)

// Notifier delivers replies, reactions, and timeout notices.
type Notifier interface {
	SendMessage(ctx context.Context, channelID, content string) error
	SendDM(ctx context.Context, userID, content string) error
	React(ctx context.Context, channelID, messageID, emoji string) error
}

// Config configures a Tracker.
type Config struct {
	// Grace is how long a user has to vouch after an issuance.
	Grace time.Duration
	// TimeoutBan is the ban length applied when the grace period lapses.
	TimeoutBan time.Duration
	// Channel is the only channel where vouch messages count.
	Channel string
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Grace:      120 * time.Second,
		TimeoutBan: 30 * time.Minute,
	}
}

// Tracker holds pending vouch obligations.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]domain.Obligation

	cfg      Config
	bans     BanStore
	counter  Counter
	notifier Notifier
	logger   *slog.Logger

	now func() time.Time // injectable for tests
}

// New creates a tracker.
func New(cfg Config, bans BanStore, counter Counter, notifier Notifier) *Tracker {
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultConfig().Grace
	}
	if cfg.TimeoutBan <= 0 {
		cfg.TimeoutBan = DefaultConfig().TimeoutBan
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		pending:  make(map[string]domain.Obligation),
		cfg:      cfg,
		bans:     bans,
		counter:  counter,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Start opens (or restarts) a user's obligation clock.
func (t *Tracker) Start(userID string) {
	t.mu.Lock()
	t.pending[userID] = domain.Obligation{UserID: userID, IssuedAt: t.now()}
	n := len(t.pending)
	t.mu.Unlock()
	observability.PendingObligations.Set(float64(n))
}

// Clear drops a user's obligation without consequence.
func (t *Tracker) Clear(userID string) {
	t.mu.Lock()
	delete(t.pending, userID)
	n := len(t.pending)
	t.mu.Unlock()
	observability.PendingObligations.Set(float64(n))
}

// Pending reports whether a user currently owes a vouch.
func (t *Tracker) Pending(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[userID]
	return ok
}

// HandleMessage processes a chat message. Messages outside the vouch
// channel, or from users with no obligation, are ignored. A qualifying
// vouch is stamped ✅, clears the obligation, and bumps the persistent
// counter; a non-qualifying one is stamped ❌ with feedback; a vouch
// posted while banned clears the obligation but earns nothing.
func (t *Tracker) HandleMessage(ctx context.Context, userID, channelID, messageID, text string) {
	if t.cfg.Channel != "" && channelID != t.cfg.Channel {
		return
	}

	t.mu.Lock()
	_, owes := t.pending[userID]
	t.mu.Unlock()
	if !owes {
		return
	}

	if !strings.Contains(strings.ToLower(text), Marker) {
		t.react(ctx, channelID, messageID, reactRejected)
		t.reply(ctx, channelID, fmt.Sprintf(
			"<@%s> that doesn't count as a vouch. Your message must contain %q.", userID, Marker))
		return
	}

	if ban, banned := t.bans.Lookup(userID); banned {
		t.Clear(userID)
		t.react(ctx, channelID, messageID, reactRejected)
		if ban.Permanent() {
			t.reply(ctx, channelID, fmt.Sprintf("<@%s> you are permanently banned. The vouch was not counted.", userID))
		} else {
			t.reply(ctx, channelID, fmt.Sprintf("<@%s> you are banned for another %s. The vouch was not counted.",
				userID, domain.FormatRemaining(ban.Remaining(t.now()))))
		}
		return
	}

	t.Clear(userID)
	total, err := t.counter.IncrementVouches(userID)
	if err != nil {
		t.logger.Error("record vouch", "user", userID, "error", err)
	}
	observability.VouchesAccepted.Inc()
	t.react(ctx, channelID, messageID, reactAccepted)
	t.reply(ctx, channelID, fmt.Sprintf("<@%s> thanks for vouching! Total vouches: %d.", userID, total))
}

// SweepExpired evicts obligations older than the grace period and bans
// their owners for the timeout duration. Safe to call on any cadence;
// an immediate second sweep finds nothing to do.
func (t *Tracker) SweepExpired(ctx context.Context) int {
	now := t.now()

	t.mu.Lock()
	var overdue []string
	for userID, ob := range t.pending {
		if ob.Overdue(now, t.cfg.Grace) {
			overdue = append(overdue, userID)
		}
	}
	for _, userID := range overdue {
		delete(t.pending, userID)
	}
	n := len(t.pending)
	t.mu.Unlock()

	observability.VouchSweeps.Inc()
	observability.PendingObligations.Set(float64(n))

	for _, userID := range overdue {
		if _, err := t.bans.Add(userID, "system", TimeoutBanReason, t.cfg.TimeoutBan); err != nil {
			t.logger.Error("ban for vouch timeout", "user", userID, "error", err)
			continue
		}
		observability.VouchEvictions.Inc()
		observability.BansIssued.WithLabelValues("vouch_timeout").Inc()
		t.logger.Info("vouch obligation expired", "user", userID, "ban", t.cfg.TimeoutBan)

		// DM is best effort; the ban stands either way.
		if t.notifier != nil {
			msg := fmt.Sprintf("You didn't vouch within %s, so you've been banned from generating for %s.",
				domain.FormatRemaining(t.cfg.Grace), domain.FormatRemaining(t.cfg.TimeoutBan))
			if err := t.notifier.SendDM(ctx, userID, msg); err != nil {
				t.logger.Warn("vouch timeout dm failed", "user", userID, "error", err)
			}
		}
	}
	return len(overdue)
}

// Run sweeps on the given cadence until the context is cancelled.
func (t *Tracker) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.SweepExpired(ctx)
		}
	}
}

func (t *Tracker) reply(ctx context.Context, channelID, content string) {
	if t.notifier == nil {
		return
	}
	if err := t.notifier.SendMessage(ctx, channelID, content); err != nil {
		t.logger.Warn("vouch reply failed", "channel", channelID, "error", err)
	}
}

// react stamps the vouch message itself. Best effort; message events
// without an id are skipped.
func (t *Tracker) react(ctx context.Context, channelID, messageID, emoji string) {
	if t.notifier == nil || messageID == "" {
		return
	}
	if err := t.notifier.React(ctx, channelID, messageID, emoji); err != nil {
		t.logger.Warn("vouch reaction failed", "channel", channelID, "error", err)
	}
}
