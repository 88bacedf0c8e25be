package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vaultgen/vaultgen/internal/domain"
	"github.com/vaultgen/vaultgen/internal/gateway"
	"github.com/vaultgen/vaultgen/internal/infra/observability"
)

// ─── Stock administration ───────────────────────────────────────────────────

// ViewStock replies with every service's remaining count, grouped by tier.
func (d *Dispatcher) ViewStock(ctx context.Context, inv domain.Invocation) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}

	counts := d.stock.Counts()
	var b strings.Builder
	b.WriteString("**Current stock**\n")
	for _, tier := range domain.Tiers() {
		services := counts[tier]
		b.WriteString(fmt.Sprintf("\n__%s__\n", tier.Title()))
		if len(services) == 0 {
			b.WriteString("(no services)\n")
			continue
		}
		names := make([]string, 0, len(services))
		for name := range services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString(fmt.Sprintf("%s: %d\n", domain.DisplayService(name), services[name]))
		}
	}
	return inv.Reply(b.String())
}

// CreateService registers a new (empty) service under a tier.
func (d *Dispatcher) CreateService(ctx context.Context, inv domain.Invocation, tier domain.Tier, service string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	service = domain.NormalizeService(service)
	if err := d.stock.Create(tier, service); err != nil {
		inv.Reply(fmt.Sprintf("Couldn't create **%s** (%s): %v", domain.DisplayService(service), tier, err))
		return err
	}
	inv.Reply(fmt.Sprintf("Created **%s** under the %s tier.", domain.DisplayService(service), tier))
	d.opsLog(ctx, "service created", "admin", inv.UserID, "tier", string(tier), "service", service)
	return nil
}

// DeleteService removes a service and whatever stock it still holds.
func (d *Dispatcher) DeleteService(ctx context.Context, inv domain.Invocation, tier domain.Tier, service string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	service = domain.NormalizeService(service)
	if err := d.stock.Delete(tier, service); err != nil {
		inv.Reply(fmt.Sprintf("Couldn't delete **%s** (%s): %v", domain.DisplayService(service), tier, err))
		return err
	}
	inv.Reply(fmt.Sprintf("Deleted **%s** from the %s tier.", domain.DisplayService(service), tier))
	d.opsLog(ctx, "service deleted", "admin", inv.UserID, "tier", string(tier), "service", service)
	return nil
}

// AddStock appends the credentials in body (one per line) to a service.
func (d *Dispatcher) AddStock(ctx context.Context, inv domain.Invocation, tier domain.Tier, service, body string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	service = domain.NormalizeService(service)
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	total, err := d.stock.Append(tier, service, lines)
	if err != nil {
		inv.Reply(fmt.Sprintf("Couldn't add stock to **%s** (%s): %v", domain.DisplayService(service), tier, err))
		return err
	}
	d.updateStockGauge(tier, service)
	inv.Reply(fmt.Sprintf("Added stock to **%s** (%s). Now holding %d accounts.",
		domain.DisplayService(service), tier, total))
	d.opsLog(ctx, "stock added", "admin", inv.UserID, "tier", string(tier), "service", service,
		"total", fmt.Sprint(total))
	return nil
}

// UploadStock appends the credentials in the invocation's attached
// file to a service.
func (d *Dispatcher) UploadStock(ctx context.Context, inv domain.Invocation, tier domain.Tier, service string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	if len(inv.Attachment) == 0 {
		inv.Reply("Attach a text file with one account per line.")
		return fmt.Errorf("upload stock: no attachment")
	}
	return d.AddStock(ctx, inv, tier, service, string(inv.Attachment))
}

// ClearStock empties a service's stock file.
func (d *Dispatcher) ClearStock(ctx context.Context, inv domain.Invocation, tier domain.Tier, service string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	service = domain.NormalizeService(service)
	removed, err := d.stock.Clear(tier, service)
	if err != nil {
		inv.Reply(fmt.Sprintf("Couldn't clear **%s** (%s): %v", domain.DisplayService(service), tier, err))
		return err
	}
	d.updateStockGauge(tier, service)
	inv.Reply(fmt.Sprintf("Cleared %d accounts from **%s** (%s).",
		removed, domain.DisplayService(service), tier))
	d.opsLog(ctx, "stock cleared", "admin", inv.UserID, "tier", string(tier), "service", service,
		"removed", fmt.Sprint(removed))
	return nil
}

// ─── Configuration ──────────────────────────────────────────────────────────

// SetLogChannel repoints the operations log channel and persists it.
func (d *Dispatcher) SetLogChannel(ctx context.Context, inv domain.Invocation, channelID string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	d.cfgMu.Lock()
	d.cfg.Channels.Log = channelID
	d.saveConfig()
	d.cfgMu.Unlock()
	inv.Reply(fmt.Sprintf("Operations log channel set to %s.", gateway.ChannelMention(channelID)))
	d.opsLog(ctx, "log channel changed", "admin", inv.UserID, "channel", channelID)
	return nil
}

// SetBanLogChannel repoints the ban log channel and persists it.
func (d *Dispatcher) SetBanLogChannel(ctx context.Context, inv domain.Invocation, channelID string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	d.cfgMu.Lock()
	d.cfg.Channels.BanLogs = channelID
	d.saveConfig()
	d.cfgMu.Unlock()
	inv.Reply(fmt.Sprintf("Ban log channel set to %s.", gateway.ChannelMention(channelID)))
	d.opsLog(ctx, "ban log channel changed", "admin", inv.UserID, "channel", channelID)
	return nil
}

// SetRestockLogChannel repoints the restock log channel and persists it.
func (d *Dispatcher) SetRestockLogChannel(ctx context.Context, inv domain.Invocation, channelID string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	d.cfgMu.Lock()
	d.cfg.Channels.RestockLogs = channelID
	d.saveConfig()
	d.cfgMu.Unlock()
	inv.Reply(fmt.Sprintf("Restock log channel set to %s.", gateway.ChannelMention(channelID)))
	d.opsLog(ctx, "restock log channel changed", "admin", inv.UserID, "channel", channelID)
	return nil
}

// SetBoosterChannel repoints the booster generation channel and
// persists it.
func (d *Dispatcher) SetBoosterChannel(ctx context.Context, inv domain.Invocation, channelID string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	d.cfgMu.Lock()
	d.cfg.Channels.Booster = []string{channelID}
	d.saveConfig()
	d.cfgMu.Unlock()
	inv.Reply(fmt.Sprintf("Booster generation channel set to %s.", gateway.ChannelMention(channelID)))
	d.opsLog(ctx, "booster channel changed", "admin", inv.UserID, "channel", channelID)
	return nil
}

// SetCooldown changes a tier's generation cooldown from a duration
// string like "10m" or "2h" and persists it.
func (d *Dispatcher) SetCooldown(ctx context.Context, inv domain.Invocation, tier domain.Tier, durationStr string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	dur, err := domain.ParseDuration(durationStr)
	if err != nil {
		inv.Reply(fmt.Sprintf("Bad duration %q. Use forms like 30m, 2h, 3d, 1w, 1mo.", durationStr))
		return err
	}
	d.gate.SetDuration(tier, dur)
	d.cfgMu.Lock()
	d.cfg.SetCooldown(tier, dur)
	d.saveConfig()
	d.cfgMu.Unlock()
	inv.Reply(fmt.Sprintf("%s cooldown set to %s.", tier.Title(), domain.FormatRemaining(dur)))
	d.opsLog(ctx, "cooldown changed", "admin", inv.UserID, "tier", string(tier), "duration", durationStr)
	return nil
}

// ─── Bans ───────────────────────────────────────────────────────────────────

// BanUser bans a user for a duration string, or permanently when the
// string is empty.
func (d *Dispatcher) BanUser(ctx context.Context, inv domain.Invocation, targetID, durationStr, reason string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	var dur time.Duration // zero = permanent
	if durationStr != "" {
		var err error
		dur, err = domain.ParseDuration(durationStr)
		if err != nil {
			inv.Reply(fmt.Sprintf("Bad duration %q. Use forms like 30m, 2h, 3d, 1w, 1mo — or omit it for a permanent ban.", durationStr))
			return err
		}
	}
	if reason == "" {
		reason = "no reason given"
	}

	ban, err := d.bans.Add(targetID, inv.UserID, reason, dur)
	if err != nil {
		inv.Reply(fmt.Sprintf("Couldn't ban <@%s>: %v", targetID, err))
		return err
	}
	observability.BansIssued.WithLabelValues("admin").Inc()
	observability.ActiveBans.Set(float64(d.bans.Count()))

	if ban.Permanent() {
		inv.Reply(fmt.Sprintf("<@%s> is now permanently banned. Reason: %s", targetID, reason))
	} else {
		inv.Reply(fmt.Sprintf("<@%s> is banned for %s. Reason: %s",
			targetID, domain.FormatRemaining(dur), reason))
	}
	d.banLog(ctx, fmt.Sprintf("**ban** `%s`\nuser: <@%s>\nby: <@%s>\nduration: %s\nreason: %s",
		uuid.NewString(), targetID, inv.UserID, durationOrPermanent(durationStr), reason))
	return nil
}

// UnbanUser lifts a user's ban. Unbanning a user who isn't banned is
// not an error.
func (d *Dispatcher) UnbanUser(ctx context.Context, inv domain.Invocation, targetID string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	if err := d.bans.Remove(targetID); err != nil {
		inv.Reply(fmt.Sprintf("Couldn't unban <@%s>: %v", targetID, err))
		return err
	}
	observability.ActiveBans.Set(float64(d.bans.Count()))
	inv.Reply(fmt.Sprintf("<@%s> is no longer banned.", targetID))
	d.banLog(ctx, fmt.Sprintf("**unban** `%s`\nuser: <@%s>\nby: <@%s>",
		uuid.NewString(), targetID, inv.UserID))
	return nil
}

// SweepExpiredBans drops every lapsed temporary ban and posts one
// ban-log notification per expiry. The background ticker calls it on
// the sweep cadence.
func (d *Dispatcher) SweepExpiredBans(ctx context.Context) int {
	purged, err := d.bans.PurgeExpired()
	if err != nil {
		d.logger.Error("purge expired bans", "error", err)
		return 0
	}
	observability.ActiveBans.Set(float64(d.bans.Count()))
	for _, ban := range purged {
		d.logger.Info("temp ban expired", "user", ban.UserID, "reason", ban.Reason)
		d.banLog(ctx, fmt.Sprintf("**ban expired** `%s`\nuser: <@%s>\nby: <@%s>\nreason: %s",
			uuid.NewString(), ban.UserID, ban.IssuerID, ban.Reason))
	}
	return len(purged)
}

// ─── Admin roster ───────────────────────────────────────────────────────────

// AddAdmin adds a user to the admin roster.
func (d *Dispatcher) AddAdmin(ctx context.Context, inv domain.Invocation, targetID string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	added, err := d.admins.Add(targetID)
	if err != nil {
		inv.Reply(fmt.Sprintf("Couldn't add admin: %v", err))
		return err
	}
	if !added {
		inv.Reply(fmt.Sprintf("<@%s> is already an admin.", targetID))
		return nil
	}
	inv.Reply(fmt.Sprintf("<@%s> is now an admin.", targetID))
	d.opsLog(ctx, "admin added", "admin", inv.UserID, "target", targetID)
	return nil
}

// RemoveAdmin removes a user from the admin roster.
func (d *Dispatcher) RemoveAdmin(ctx context.Context, inv domain.Invocation, targetID string) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	removed, err := d.admins.Remove(targetID)
	if err != nil {
		inv.Reply(fmt.Sprintf("Couldn't remove admin: %v", err))
		return err
	}
	if !removed {
		inv.Reply(fmt.Sprintf("<@%s> isn't an admin.", targetID))
		return nil
	}
	inv.Reply(fmt.Sprintf("<@%s> is no longer an admin.", targetID))
	d.opsLog(ctx, "admin removed", "admin", inv.UserID, "target", targetID)
	return nil
}

// ListAdmins replies with the current admin roster.
func (d *Dispatcher) ListAdmins(ctx context.Context, inv domain.Invocation) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}
	ids := d.admins.List()
	if len(ids) == 0 {
		return inv.Reply("No admins configured.")
	}
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = "<@" + id + ">"
	}
	return inv.Reply("**Admins:** " + strings.Join(mentions, ", "))
}

// banLog posts to the ban log channel, falling back to the operations
// log channel. Best effort.
func (d *Dispatcher) banLog(ctx context.Context, content string) {
	channel := d.cfg.Channels.BanLogs
	if channel == "" {
		channel = d.cfg.Channels.Log
	}
	if channel == "" {
		return
	}
	if err := d.gw.SendMessage(ctx, channel, content); err != nil {
		d.logger.Warn("ban log post failed", "error", err)
	}
}

func durationOrPermanent(s string) string {
	if s == "" {
		return "permanent"
	}
	return s
}
