package sqlite

import (
	"testing"

	"github.com/vaultgen/vaultgen/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestVouchTotals(t *testing.T) {
	db := openTestDB(t)

	total, err := db.TotalVouches("u1")
	if err != nil {
		t.Fatalf("TotalVouches: %v", err)
	}
	if total != 0 {
		t.Errorf("unknown user total = %d, want 0", total)
	}

	for i := 1; i <= 3; i++ {
		total, err = db.IncrementVouches("u1")
		if err != nil {
			t.Fatalf("IncrementVouches: %v", err)
		}
		if total != i {
			t.Errorf("after %d increments total = %d", i, total)
		}
	}

	// Other users are unaffected.
	if total, _ := db.TotalVouches("u2"); total != 0 {
		t.Errorf("u2 total = %d, want 0", total)
	}
}

func TestIssuanceLog(t *testing.T) {
	db := openTestDB(t)

	records := []struct {
		id, user, service, outcome string
		tier                       domain.Tier
	}{
		{"a1", "u1", "netflix", "issued", domain.TierFree},
		{"a2", "u1", "netflix", "out_of_stock", domain.TierFree},
		{"a3", "u2", "spotify", "issued", domain.TierPremium},
	}
	for _, r := range records {
		if err := db.RecordIssuance(r.id, r.user, r.tier, r.service, r.outcome); err != nil {
			t.Fatalf("RecordIssuance(%s): %v", r.id, err)
		}
	}

	n, err := db.CountIssuances("")
	if err != nil {
		t.Fatalf("CountIssuances: %v", err)
	}
	if n != 3 {
		t.Errorf("total count = %d, want 3", n)
	}
	if n, _ := db.CountIssuances("issued"); n != 2 {
		t.Errorf("issued count = %d, want 2", n)
	}

	recent, err := db.RecentIssuances(2)
	if err != nil {
		t.Fatalf("RecentIssuances: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("RecentIssuances returned %d rows, want 2", len(recent))
	}
	// Same created_at second; ordering falls back to id DESC.
	if recent[0].ID != "a3" {
		t.Errorf("newest row id = %s, want a3", recent[0].ID)
	}
	if recent[0].Tier != domain.TierPremium {
		t.Errorf("newest row tier = %s, want premium", recent[0].Tier)
	}
}

func TestStatusFlags(t *testing.T) {
	db := openTestDB(t)

	if on, _ := db.StatusFlag("g1", "u1"); on {
		t.Error("unknown user reports granted")
	}

	if err := db.SetStatusFlag("g1", "u1", true); err != nil {
		t.Fatalf("SetStatusFlag: %v", err)
	}
	if err := db.SetStatusFlag("g1", "u2", true); err != nil {
		t.Fatalf("SetStatusFlag: %v", err)
	}
	if err := db.SetStatusFlag("g1", "u3", false); err != nil {
		t.Fatalf("SetStatusFlag: %v", err)
	}

	if on, _ := db.StatusFlag("g1", "u1"); !on {
		t.Error("u1 not granted after set")
	}

	users, err := db.GrantedStatusUsers("g1")
	if err != nil {
		t.Fatalf("GrantedStatusUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("granted users = %v, want u1 and u2", users)
	}

	// Flip and clear.
	if err := db.SetStatusFlag("g1", "u1", false); err != nil {
		t.Fatalf("SetStatusFlag: %v", err)
	}
	if on, _ := db.StatusFlag("g1", "u1"); on {
		t.Error("u1 still granted after unset")
	}
	if err := db.ClearStatusFlag("g1", "u2"); err != nil {
		t.Fatalf("ClearStatusFlag: %v", err)
	}
	if users, _ := db.GrantedStatusUsers("g1"); len(users) != 0 {
		t.Errorf("granted users after clear = %v, want none", users)
	}
}
