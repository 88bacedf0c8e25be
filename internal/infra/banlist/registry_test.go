package banlist

import (
	"path/filepath"
	"testing"
	"time"
)

func openRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "bans.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return r
}

func TestAddAndLookup(t *testing.T) {
	r := openRegistry(t)

	ban, err := r.Add("u1", "mod1", "abuse", 30*time.Minute)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if ban.Permanent() {
		t.Error("temporary ban reported permanent")
	}

	got, banned := r.Lookup("u1")
	if !banned {
		t.Fatal("user should be banned")
	}
	if got.Reason != "abuse" || got.IssuerID != "mod1" {
		t.Errorf("ban record = %+v", got)
	}

	if _, banned := r.Lookup("stranger"); banned {
		t.Error("unknown user reported banned")
	}
}

func TestPermanentBan(t *testing.T) {
	r := openRegistry(t)
	ban, err := r.Add("u1", "mod1", "forever", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !ban.Permanent() {
		t.Error("zero-duration ban should be permanent")
	}

	r.now = func() time.Time { return time.Now().Add(1000 * time.Hour) }
	if _, banned := r.Lookup("u1"); !banned {
		t.Error("permanent ban expired")
	}
}

func TestOverwriteExistingBan(t *testing.T) {
	r := openRegistry(t)
	r.Add("u1", "mod1", "first", time.Hour)
	r.Add("u1", "mod2", "second", 0)

	got, banned := r.Lookup("u1")
	if !banned {
		t.Fatal("user should still be banned")
	}
	if got.Reason != "second" || !got.Permanent() {
		t.Errorf("overwrite did not take: %+v", got)
	}
}

func TestLookupIsPureOnExpiredBan(t *testing.T) {
	r := openRegistry(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	r.Add("u1", "mod1", "temp", 10*time.Minute)

	r.now = func() time.Time { return base.Add(11 * time.Minute) }

	// Two lookups in a row both report not-banned, and neither deletes.
	if _, banned := r.Lookup("u1"); banned {
		t.Error("expired ban reported active (first lookup)")
	}
	if _, banned := r.Lookup("u1"); banned {
		t.Error("expired ban reported active (second lookup)")
	}
	if len(r.bans) != 1 {
		t.Error("Lookup must not purge; the record belongs to PurgeExpired")
	}
}

func TestPurgeExpired(t *testing.T) {
	r := openRegistry(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	r.Add("u1", "mod1", "temp", 10*time.Minute)
	r.Add("u2", "mod1", "perm", 0)
	r.Add("u3", "mod1", "long", 2*time.Hour)

	r.now = func() time.Time { return base.Add(30 * time.Minute) }

	purged, err := r.PurgeExpired()
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if len(purged) != 1 || purged[0].UserID != "u1" {
		t.Fatalf("purged = %+v, want just u1", purged)
	}

	// Second pass right after finds nothing.
	purged, err = r.PurgeExpired()
	if err != nil {
		t.Fatal(err)
	}
	if purged != nil {
		t.Errorf("second purge = %+v, want nil", purged)
	}

	if r.Count() != 2 {
		t.Errorf("active count = %d, want 2", r.Count())
	}
}

func TestExpiryBoundaryIsStrict(t *testing.T) {
	r := openRegistry(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	r.Add("u1", "mod1", "temp", time.Minute)

	// At the exact expiry instant the ban still holds; one second later
	// the lookup and the sweep agree it is gone.
	r.now = func() time.Time { return base.Add(time.Minute) }
	if _, banned := r.Lookup("u1"); !banned {
		t.Error("ban should still hold at the exact expiry instant")
	}
	if purged, _ := r.PurgeExpired(); purged != nil {
		t.Error("sweep purged at the exact expiry instant")
	}

	r.now = func() time.Time { return base.Add(time.Minute + time.Second) }
	if _, banned := r.Lookup("u1"); banned {
		t.Error("ban should be gone past expiry")
	}
	if purged, _ := r.PurgeExpired(); len(purged) != 1 {
		t.Error("sweep should purge past expiry")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := openRegistry(t)
	r.Add("u1", "mod1", "x", 0)

	if err := r.Remove("u1"); err != nil {
		t.Fatal(err)
	}
	if err := r.Remove("u1"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if _, banned := r.Lookup("u1"); banned {
		t.Error("user still banned after remove")
	}
}

func TestLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bans.json")
	r1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	r1.Add("u1", "mod1", "persisted", time.Hour)

	r2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, banned := r2.Lookup("u1")
	if !banned || got.Reason != "persisted" {
		t.Errorf("reloaded ban = %+v banned=%v", got, banned)
	}
}
