// Package dispatch executes bot commands against the injected state
// stores. Nothing here reaches for ambient globals: the stock store,
// ban ledger, admin roster, cooldown gate, vouch tracker, and database
// all arrive through New, which keeps ordering explicit and the whole
// layer testable with fakes.
//
// Generate is the hot path. Per-user serialization (a keyed mutex)
// makes ban-check, cooldown-reserve, pop, and delivery atomic for one
// user, so two concurrent invocations can never both pass the checks
// and drain two credentials on one cooldown.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vaultgen/vaultgen/internal/app/cooldown"
	"github.com/vaultgen/vaultgen/internal/app/vouch"
	"github.com/vaultgen/vaultgen/internal/config"
	"github.com/vaultgen/vaultgen/internal/domain"
	"github.com/vaultgen/vaultgen/internal/gateway"
	"github.com/vaultgen/vaultgen/internal/infra/banlist"
	"github.com/vaultgen/vaultgen/internal/infra/observability"
	"github.com/vaultgen/vaultgen/internal/infra/roster"
	"github.com/vaultgen/vaultgen/internal/infra/sqlite"
	"github.com/vaultgen/vaultgen/internal/infra/stock"
)

// Issuance outcomes recorded in the audit log and metrics.
const (
	OutcomeIssued         = "issued"
	OutcomeWrongChannel   = "wrong_channel"
	OutcomeBanned         = "banned"
	OutcomeCooldown       = "cooldown"
	OutcomeOutOfStock     = "out_of_stock"
	OutcomeDeliveryFailed = "delivery_failed"
)

// Dispatcher routes commands to the state stores.
type Dispatcher struct {
	cfg     *config.Config
	cfgPath string
	cfgMu   sync.Mutex // guards cfg mutation + Save

	stock   *stock.Store
	bans    *banlist.Registry
	admins  *roster.Roster
	gate    *cooldown.Gate
	vouches *vouch.Tracker
	db      *sqlite.DB
	gw      gateway.Client
	logger  *slog.Logger

	started time.Time
	now     func() time.Time

	// Per-user locks serializing the generate pipeline.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a dispatcher. cfgPath is where SetLogChannel and
// SetCooldown persist configuration changes; empty disables saving.
func New(cfg *config.Config, cfgPath string, st *stock.Store, bans *banlist.Registry,
	admins *roster.Roster, gate *cooldown.Gate, vouches *vouch.Tracker,
	db *sqlite.DB, gw gateway.Client, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:     cfg,
		cfgPath: cfgPath,
		stock:   st,
		bans:    bans,
		admins:  admins,
		gate:    gate,
		vouches: vouches,
		db:      db,
		gw:      gw,
		logger:  logger,
		started: time.Now(),
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockUser acquires the invoking user's pipeline lock.
func (d *Dispatcher) lockUser(userID string) func() {
	d.locksMu.Lock()
	l, ok := d.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		d.locks[userID] = l
	}
	d.locksMu.Unlock()
	l.Lock()
	return l.Unlock
}

// ─── Generate ───────────────────────────────────────────────────────────────

// Generate runs the issuance pipeline for one tier. The first failing
// stage answers the user and stops; only a completed delivery consumes
// cooldown or stock.
func (d *Dispatcher) Generate(ctx context.Context, inv domain.Invocation, tier domain.Tier, service string) error {
	unlock := d.lockUser(inv.UserID)
	defer unlock()

	service = domain.NormalizeService(service)

	// 1. Channel scope.
	if !d.channelAllowed(tier, inv.ChannelID) {
		d.audit(inv.UserID, tier, service, OutcomeWrongChannel)
		inv.Reply(fmt.Sprintf("Wrong channel. Use %s commands in: %s",
			tier, d.channelMentions(tier)))
		return domain.ErrWrongChannel
	}

	// 2. Ban check. Never consumes cooldown.
	if ban, banned := d.bans.Lookup(inv.UserID); banned {
		d.audit(inv.UserID, tier, service, OutcomeBanned)
		if ban.Permanent() {
			inv.Reply("You are permanently banned from generating accounts.")
		} else {
			inv.Reply(fmt.Sprintf("You are temporarily banned. Time remaining: %s.",
				domain.FormatRemaining(ban.Remaining(d.now()))))
		}
		return domain.ErrBanned
	}

	// 3. Cooldown reserve.
	if remaining, ok := d.gate.Reserve(inv.UserID, tier); !ok {
		d.audit(inv.UserID, tier, service, OutcomeCooldown)
		inv.Reply(fmt.Sprintf("Slow down! You can generate another %s account in %s.",
			tier, domain.FormatRemaining(remaining)))
		return domain.ErrCooldownActive
	}

	// 4. Stock pop. Out of stock refunds the reservation.
	credential, err := d.stock.Pop(tier, service)
	if err != nil {
		d.gate.Reset(inv.UserID, tier)
		d.audit(inv.UserID, tier, service, OutcomeOutOfStock)
		inv.Reply(fmt.Sprintf("**%s** (%s) is out of stock. Try again later or ask for a restock.",
			domain.DisplayService(service), tier))
		d.opsLog(ctx, "out of stock", "user", inv.UserID, "tier", string(tier), "service", service)
		return err
	}

	// 5. Private delivery. Failure restores the credential to the head
	// of the stock and refunds the cooldown.
	dm := fmt.Sprintf("Here is your **%s** account (%s tier):\n```%s```\nRemember to vouch in %s within %s!",
		domain.DisplayService(service), tier, credential,
		gateway.ChannelMention(d.cfg.Channels.Vouch),
		domain.FormatRemaining(d.cfg.GracePeriod()))
	if err := d.gw.SendDM(ctx, inv.UserID, dm); err != nil {
		d.stock.PushFront(tier, service, credential)
		d.gate.Reset(inv.UserID, tier)
		d.audit(inv.UserID, tier, service, OutcomeDeliveryFailed)
		inv.Reply("Couldn't DM you the account. Open your DMs and try again — your cooldown was not consumed.")
		d.logger.Warn("delivery failed", "user", inv.UserID, "service", service, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}

	d.vouches.Start(inv.UserID)
	d.audit(inv.UserID, tier, service, OutcomeIssued)
	d.updateStockGauge(tier, service)
	inv.Reply(fmt.Sprintf("<@%s> check your DMs! Don't forget to vouch in %s.",
		inv.UserID, gateway.ChannelMention(d.cfg.Channels.Vouch)))
	d.opsLog(ctx, "account issued", "user", inv.UserID, "tier", string(tier), "service", service)
	return nil
}

func (d *Dispatcher) channelAllowed(tier domain.Tier, channelID string) bool {
	allowed := d.cfg.ChannelsFor(tier)
	if len(allowed) == 0 {
		return true
	}
	for _, id := range allowed {
		if id == channelID {
			return true
		}
	}
	return false
}

func (d *Dispatcher) channelMentions(tier domain.Tier) string {
	ids := d.cfg.ChannelsFor(tier)
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = gateway.ChannelMention(id)
	}
	return strings.Join(mentions, " ")
}

// ─── Shared helpers ─────────────────────────────────────────────────────────

// audit records an issuance outcome in the database and metrics.
func (d *Dispatcher) audit(userID string, tier domain.Tier, service, outcome string) {
	observability.Issuances.WithLabelValues(string(tier), outcome).Inc()
	if d.db == nil {
		return
	}
	if err := d.db.RecordIssuance(uuid.NewString(), userID, tier, service, outcome); err != nil {
		d.logger.Error("record issuance", "user", userID, "outcome", outcome, "error", err)
	}
}

// opsLog posts a structured notification to the operations log
// channel. Best effort: failures are logged and swallowed.
func (d *Dispatcher) opsLog(ctx context.Context, event string, kv ...string) {
	channel := d.cfg.Channels.Log
	if channel == "" {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s`", event, uuid.NewString())
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, "\n%s: %s", kv[i], kv[i+1])
	}
	if err := d.gw.SendMessage(ctx, channel, b.String()); err != nil {
		d.logger.Warn("ops log post failed", "event", event, "error", err)
	}
}

func (d *Dispatcher) updateStockGauge(tier domain.Tier, service string) {
	n := d.stock.Count(tier, service)
	observability.StockRemaining.WithLabelValues(string(tier), service).Set(float64(n))
}

// saveConfig persists the current configuration if a path was given.
func (d *Dispatcher) saveConfig() {
	if d.cfgPath == "" {
		return
	}
	if err := config.Save(d.cfgPath, *d.cfg); err != nil {
		d.logger.Error("save config", "path", d.cfgPath, "error", err)
	}
}

// requireAdmin answers the user and returns an error when they are not
// on the admin roster.
func (d *Dispatcher) requireAdmin(inv domain.Invocation) error {
	if d.admins.IsAdmin(inv.UserID) {
		return nil
	}
	inv.Reply("You don't have permission to use that command.")
	return domain.ErrNotAdmin
}
