package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vaultgen/vaultgen/internal/domain"
)

// ─── User-facing commands ───────────────────────────────────────────────────

// Help replies with the command reference. Admins see the admin
// section too.
func (d *Dispatcher) Help(ctx context.Context, inv domain.Invocation) error {
	var b strings.Builder
	b.WriteString("**Commands**\n")
	b.WriteString("`free <service>` — generate a free account\n")
	b.WriteString("`premium <service>` — generate a premium account\n")
	b.WriteString("`booster <service>` — generate a booster account\n")
	b.WriteString("`stock` — show what's in stock\n")
	b.WriteString("`vouches` — your lifetime vouch count\n")
	b.WriteString("`info` — about this bot\n")

	if d.admins.IsAdmin(inv.UserID) {
		b.WriteString("\n**Admin**\n")
		b.WriteString("`create <tier> <service>` / `delete <tier> <service>`\n")
		b.WriteString("`add <tier> <service>` (accounts in message body or attachment)\n")
		b.WriteString("`clear <tier> <service>`\n")
		b.WriteString("`ban <user> [duration] [reason]` / `unban <user>`\n")
		b.WriteString("`cooldown <tier> <duration>`\n")
		b.WriteString("`setlog|setbanlogs|setrestocklogs|setbooster <channel>`\n")
		b.WriteString("`admin add|remove <user>` / `admins`\n")
		b.WriteString("`restock` — announce current stock levels\n")
		b.WriteString("`status` — bot health summary\n")
	}
	return inv.Reply(b.String())
}

// Info replies with a short description of the bot.
func (d *Dispatcher) Info(ctx context.Context, inv domain.Invocation) error {
	return inv.Reply(fmt.Sprintf(
		"**vaultgen** — account generator.\nTiers: free, premium, booster. "+
			"Generate in the right channel, receive by DM, and vouch in %s within %s.",
		mentionOrUnset(d.cfg.Channels.Vouch), domain.FormatRemaining(d.cfg.GracePeriod())))
}

// Status replies with a health summary: uptime, stock totals, vouch
// totals, active bans, admin count.
func (d *Dispatcher) Status(ctx context.Context, inv domain.Invocation) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}

	uptime := time.Since(d.started).Round(time.Second)
	totalIssued := 0
	if d.db != nil {
		totalIssued, _ = d.db.CountIssuances(OutcomeIssued)
	}

	var b strings.Builder
	b.WriteString("**Status**\n")
	fmt.Fprintf(&b, "uptime: %s\n", uptime)
	fmt.Fprintf(&b, "stock: %d accounts\n", d.stock.Total())
	fmt.Fprintf(&b, "issued (all time): %d\n", totalIssued)
	fmt.Fprintf(&b, "active bans: %d\n", d.bans.Count())
	fmt.Fprintf(&b, "admins: %d\n", d.admins.Count())
	return inv.Reply(b.String())
}

// Vouches replies with the invoking user's lifetime vouch count.
func (d *Dispatcher) Vouches(ctx context.Context, inv domain.Invocation) error {
	total := 0
	if d.db != nil {
		var err error
		total, err = d.db.TotalVouches(inv.UserID)
		if err != nil {
			d.logger.Error("read vouch total", "user", inv.UserID, "error", err)
			inv.Reply("Couldn't look up your vouches right now.")
			return err
		}
	}
	return inv.Reply(fmt.Sprintf("<@%s> you have %d vouches.", inv.UserID, total))
}

// Restock announces current stock levels in the restock channel with a
// role ping, and records the announcement in the restock log channel.
func (d *Dispatcher) Restock(ctx context.Context, inv domain.Invocation) error {
	if err := d.requireAdmin(inv); err != nil {
		return err
	}

	channel := d.cfg.Channels.Restock
	if channel == "" {
		inv.Reply("No restock channel configured.")
		return fmt.Errorf("restock: no channel configured")
	}

	var b strings.Builder
	if role := d.cfg.Channels.RestockRole; role != "" {
		fmt.Fprintf(&b, "<@&%s> ", role)
	}
	b.WriteString("**Stock update!**\n")
	counts := d.stock.Counts()
	for _, tier := range domain.Tiers() {
		services := counts[tier]
		if len(services) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n__%s__\n", tier.Title())
		names := make([]string, 0, len(services))
		for name := range services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "%s: %d\n", domain.DisplayService(name), services[name])
		}
	}

	if err := d.gw.SendMessage(ctx, channel, b.String()); err != nil {
		inv.Reply("Couldn't post the restock announcement.")
		return fmt.Errorf("restock announcement: %w", err)
	}

	if logChan := d.cfg.Channels.RestockLogs; logChan != "" {
		msg := fmt.Sprintf("restock announced by <@%s> (%d accounts total)", inv.UserID, d.stock.Total())
		if err := d.gw.SendMessage(ctx, logChan, msg); err != nil {
			d.logger.Warn("restock log post failed", "error", err)
		}
	}
	inv.Reply("Restock announced.")
	return nil
}

func mentionOrUnset(channelID string) string {
	if channelID == "" {
		return "(vouch channel not configured)"
	}
	return "<#" + channelID + ">"
}
