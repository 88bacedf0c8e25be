// Package cooldown implements the per-user issuance rate gate.
// A user's timer only advances when an account is actually reserved
// for them; denied attempts never consume cooldown, and failed
// deliveries refund the reservation via Reset.
package cooldown

import (
	"sync"
	"time"

	"github.com/vaultgen/vaultgen/internal/domain"
)

// Gate tracks when each user last received an account per tier.
type Gate struct {
	mu        sync.Mutex
	last      map[string]time.Time // userID/tier -> last successful reservation
	durations map[domain.Tier]time.Duration

	now func() time.Time // injectable for tests
}

// New creates a gate with per-tier durations. Tiers absent from the
// map fall back to their defaults.
func New(durations map[domain.Tier]time.Duration) *Gate {
	d := make(map[domain.Tier]time.Duration, len(domain.Tiers()))
	for _, tier := range domain.Tiers() {
		d[tier] = tier.DefaultCooldown()
	}
	for tier, dur := range durations {
		d[tier] = dur
	}
	return &Gate{
		last:      make(map[string]time.Time),
		durations: d,
		now:       time.Now,
	}
}

// Reserve checks whether the user's cooldown for the tier has elapsed
// and, if so, starts a new one. Returns the remaining wait when the
// gate is still closed.
func (g *Gate) Reserve(userID string, tier domain.Tier) (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	key := gateKey(userID, tier)
	if last, ok := g.last[key]; ok {
		elapsed := now.Sub(last)
		if dur := g.durations[tier]; elapsed < dur {
			return dur - elapsed, false
		}
	}
	g.last[key] = now
	return 0, true
}

// Remaining reports the wait left on a user's cooldown without
// touching the timer.
func (g *Gate) Remaining(userID string, tier domain.Tier) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.last[gateKey(userID, tier)]
	if !ok {
		return 0
	}
	rem := g.durations[tier] - g.now().Sub(last)
	if rem < 0 {
		return 0
	}
	return rem
}

// Reset clears a user's timer for one tier, refunding a reservation
// whose issuance did not complete.
func (g *Gate) Reset(userID string, tier domain.Tier) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.last, gateKey(userID, tier))
}

func gateKey(userID string, tier domain.Tier) string {
	return userID + "/" + string(tier)
}

// Duration returns the configured cooldown for a tier.
func (g *Gate) Duration(tier domain.Tier) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.durations[tier]
}

// SetDuration changes a tier's cooldown. Timers already running are
// judged against the new duration on their next Reserve.
func (g *Gate) SetDuration(tier domain.Tier, d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.durations[tier] = d
}
