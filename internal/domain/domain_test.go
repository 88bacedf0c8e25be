package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		input   string
		want    Tier
		wantErr bool
	}{
		{"free", TierFree, false},
		{"PREMIUM", TierPremium, false},
		{"  Booster ", TierBooster, false},
		{"gold", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTier(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrBadTier) {
					t.Fatalf("ParseTier(%q) err = %v, want ErrBadTier", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTier(%q) err = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTier(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultCooldowns(t *testing.T) {
	if got := TierFree.DefaultCooldown(); got != 600*time.Second {
		t.Errorf("free cooldown = %v, want 600s", got)
	}
	if got := TierPremium.DefaultCooldown(); got != 3600*time.Second {
		t.Errorf("premium cooldown = %v, want 3600s", got)
	}
	if got := TierBooster.DefaultCooldown(); got != 1800*time.Second {
		t.Errorf("booster cooldown = %v, want 1800s", got)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"5m", 5 * time.Minute, false},
		{"1h", time.Hour, false},
		{"3d", 259200 * time.Second, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"2mo", 5184000 * time.Second, false},
		{"1MO", 30 * 24 * time.Hour, false},
		{"x", 0, true},
		{"", 0, true},
		{"m5", 0, true},
		{"0m", 0, true},
		{"-1h", 0, true},
		{"5s", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrBadDuration) {
					t.Fatalf("ParseDuration(%q) err = %v, want ErrBadDuration", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDuration(%q) err = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBanExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	perm := Ban{UserID: "u1", Reason: "perm"}
	if !perm.Permanent() {
		t.Error("zero ExpiresAt should be permanent")
	}
	if perm.Expired(now.Add(1000 * time.Hour)) {
		t.Error("permanent ban must never expire")
	}

	temp := Ban{UserID: "u2", ExpiresAt: now.Add(30 * time.Minute)}
	if temp.Expired(now) {
		t.Error("ban expired before its expiry instant")
	}
	if temp.Expired(temp.ExpiresAt) {
		t.Error("expiry is strict: not expired at the exact instant")
	}
	if !temp.Expired(temp.ExpiresAt.Add(time.Second)) {
		t.Error("ban should be expired one second past expiry")
	}
	if got := temp.Remaining(now); got != 30*time.Minute {
		t.Errorf("Remaining = %v, want 30m", got)
	}
}

func TestObligationOverdue(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o := Obligation{UserID: "u1", IssuedAt: issued}
	grace := 120 * time.Second

	if o.Overdue(issued.Add(119*time.Second), grace) {
		t.Error("obligation overdue inside the grace window")
	}
	if !o.Overdue(issued.Add(120*time.Second), grace) {
		t.Error("obligation not overdue at the grace boundary")
	}
	if !o.Overdue(issued.Add(125*time.Second), grace) {
		t.Error("obligation not overdue past the grace window")
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "less than a minute"},
		{time.Minute, "1 minute"},
		{95 * time.Minute, "1 hour, 35 minutes"},
		{26*time.Hour + 5*time.Minute, "1 day, 2 hours, 5 minutes"},
		{0, "less than a minute"},
	}

	for _, tt := range tests {
		if got := FormatRemaining(tt.d); got != tt.want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestNormalizeService(t *testing.T) {
	if got := NormalizeService("  Disney Plus "); got != "disney_plus" {
		t.Errorf("NormalizeService = %q", got)
	}
	if got := DisplayService("disney_plus"); got != "DISNEY PLUS" {
		t.Errorf("DisplayService = %q", got)
	}
}
