// Package domain contains pure business types with zero infrastructure
// imports. This is the innermost ring — it depends on nothing.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ─── Tiers ──────────────────────────────────────────────────────────────────

// Tier is a service level governing cooldown duration and stock pool.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierBooster Tier = "booster"
)

// Tiers lists all valid tiers in display order.
func Tiers() []Tier {
	return []Tier{TierFree, TierPremium, TierBooster}
}

// ParseTier normalizes and validates a tier name.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierFree:
		return TierFree, nil
	case TierPremium:
		return TierPremium, nil
	case TierBooster:
		return TierBooster, nil
	default:
		return "", fmt.Errorf("%w: %q (choose free, premium, or booster)", ErrBadTier, s)
	}
}

// Title returns the tier name with a leading capital, for user-facing text.
func (t Tier) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t)[:1]) + string(t)[1:]
}

// DefaultCooldown returns the tier's default generation cooldown.
func (t Tier) DefaultCooldown() time.Duration {
	switch t {
	case TierPremium:
		return 3600 * time.Second
	case TierBooster:
		return 1800 * time.Second
	default:
		return 600 * time.Second
	}
}

// NormalizeService converts a user-supplied service name to its canonical
// form: lowercase with spaces collapsed to underscores. This is the name
// used for stock file lookup.
func NormalizeService(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// DisplayService converts a canonical service name back to display form.
func DisplayService(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, "_", " "))
}

// ─── Bans ───────────────────────────────────────────────────────────────────

// Ban is a generation ban record. A zero ExpiresAt means permanent.
// A user has at most one active ban; a new ban overwrites any prior one.
type Ban struct {
	UserID    string
	IssuerID  string
	Reason    string
	ExpiresAt time.Time // zero = permanent
	CreatedAt time.Time
}

// Permanent reports whether the ban never expires.
func (b Ban) Permanent() bool { return b.ExpiresAt.IsZero() }

// Expired reports whether the ban's expiry has strictly passed.
// Both the lazy lookup path and the background sweep use this single
// predicate so they cannot disagree on the boundary.
func (b Ban) Expired(now time.Time) bool {
	return !b.Permanent() && now.After(b.ExpiresAt)
}

// Remaining returns the time left on a temporary ban, zero if permanent
// or already expired.
func (b Ban) Remaining(now time.Time) time.Duration {
	if b.Permanent() || b.Expired(now) {
		return 0
	}
	return b.ExpiresAt.Sub(now)
}

// ─── Vouch Obligations ──────────────────────────────────────────────────────

// Obligation is the pending requirement for a user to vouch after an
// issuance. Held in memory only; lost on restart by design.
type Obligation struct {
	UserID   string
	IssuedAt time.Time
}

// Overdue reports whether the obligation is older than the grace period.
func (o Obligation) Overdue(now time.Time, grace time.Duration) bool {
	return now.Sub(o.IssuedAt) >= grace
}

// ─── Command Invocations ────────────────────────────────────────────────────

// Invocation is the normalized shape of a command or message event,
// regardless of which transport delivered it. Every handler consumes this
// and nothing else.
type Invocation struct {
	UserID     string   // invoking user
	ChannelID  string   // channel the event arrived in
	GuildID    string   // guild/server scope
	Command    string   // command name, empty for plain messages
	Args       []string // positional arguments
	Text       string   // raw message text (vouch checks, add-stock body)
	Attachment []byte   // attached file body (upload-stock), nil if none
	Replier    Replier  // how to answer the invoking user, nil = silent
}

// Reply answers the invoking user if a reply capability is attached.
func (inv Invocation) Reply(text string) error {
	if inv.Replier == nil {
		return nil
	}
	return inv.Replier.Reply(text)
}

// Replier is the capability to answer the invoking user in-channel.
type Replier interface {
	Reply(text string) error
}

// ReplyFunc adapts a function to the Replier interface.
type ReplyFunc func(text string) error

// Reply implements Replier.
func (f ReplyFunc) Reply(text string) error { return f(text) }
