package cooldown

import (
	"testing"
	"time"

	"github.com/vaultgen/vaultgen/internal/domain"
)

func newTestGate(start time.Time) (*Gate, *time.Time) {
	clock := start
	g := New(nil)
	g.now = func() time.Time { return clock }
	return g, &clock
}

func TestReserveStartsTimer(t *testing.T) {
	g, clock := newTestGate(time.Unix(1000, 0))

	if rem, ok := g.Reserve("u1", domain.TierFree); !ok || rem != 0 {
		t.Fatalf("first Reserve = (%v, %v), want (0, true)", rem, ok)
	}

	// 599s later the free gate (600s) is still closed.
	*clock = clock.Add(599 * time.Second)
	rem, ok := g.Reserve("u1", domain.TierFree)
	if ok {
		t.Fatal("Reserve succeeded inside cooldown window")
	}
	if rem != time.Second {
		t.Errorf("remaining = %v, want 1s", rem)
	}

	*clock = clock.Add(time.Second)
	if _, ok := g.Reserve("u1", domain.TierFree); !ok {
		t.Error("Reserve failed after cooldown elapsed")
	}
}

func TestDeniedReserveLeavesTimerUntouched(t *testing.T) {
	g, clock := newTestGate(time.Unix(1000, 0))

	g.Reserve("u1", domain.TierFree)
	*clock = clock.Add(100 * time.Second)

	first, _ := g.Reserve("u1", domain.TierFree)
	*clock = clock.Add(10 * time.Second)
	second, _ := g.Reserve("u1", domain.TierFree)

	// Each denial reports against the original reservation, not the
	// previous denial.
	if first != 500*time.Second {
		t.Errorf("first denial remaining = %v, want 500s", first)
	}
	if second != 490*time.Second {
		t.Errorf("second denial remaining = %v, want 490s", second)
	}
}

func TestResetRefundsReservation(t *testing.T) {
	g, _ := newTestGate(time.Unix(1000, 0))

	g.Reserve("u1", domain.TierPremium)
	if _, ok := g.Reserve("u1", domain.TierPremium); ok {
		t.Fatal("second Reserve succeeded without reset")
	}

	g.Reset("u1", domain.TierPremium)
	if _, ok := g.Reserve("u1", domain.TierPremium); !ok {
		t.Error("Reserve failed after Reset")
	}
}

func TestPerTierDurations(t *testing.T) {
	g, clock := newTestGate(time.Unix(1000, 0))

	g.Reserve("u1", domain.TierBooster)
	*clock = clock.Add(1799 * time.Second)
	if _, ok := g.Reserve("u1", domain.TierBooster); ok {
		t.Error("booster gate opened before 1800s")
	}
	*clock = clock.Add(time.Second)
	if _, ok := g.Reserve("u1", domain.TierBooster); !ok {
		t.Error("booster gate closed at 1800s")
	}
}

func TestSetDuration(t *testing.T) {
	g, clock := newTestGate(time.Unix(1000, 0))

	g.SetDuration(domain.TierFree, 10*time.Second)
	if g.Duration(domain.TierFree) != 10*time.Second {
		t.Fatalf("Duration = %v, want 10s", g.Duration(domain.TierFree))
	}

	g.Reserve("u1", domain.TierFree)
	*clock = clock.Add(10 * time.Second)
	if _, ok := g.Reserve("u1", domain.TierFree); !ok {
		t.Error("Reserve failed after shortened cooldown elapsed")
	}
}

func TestTiersAreIndependent(t *testing.T) {
	g, _ := newTestGate(time.Unix(1000, 0))

	g.Reserve("u1", domain.TierFree)
	if _, ok := g.Reserve("u1", domain.TierPremium); !ok {
		t.Error("free reservation blocked the premium gate")
	}
}

func TestUsersAreIndependent(t *testing.T) {
	g, _ := newTestGate(time.Unix(1000, 0))

	g.Reserve("u1", domain.TierFree)
	if _, ok := g.Reserve("u2", domain.TierFree); !ok {
		t.Error("u1's reservation blocked u2")
	}
	if rem := g.Remaining("u3", domain.TierFree); rem != 0 {
		t.Errorf("unknown user remaining = %v, want 0", rem)
	}
}
