package roster

import (
	"path/filepath"
	"testing"
)

func TestAddRemoveList(t *testing.T) {
	r, err := Open(filepath.Join(t.TempDir(), "admins.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	added, err := r.Add("u2")
	if err != nil || !added {
		t.Fatalf("add: added=%v err=%v", added, err)
	}
	if added, _ := r.Add("u2"); added {
		t.Error("duplicate add should report false")
	}
	r.Add("u1")

	if !r.IsAdmin("u1") || !r.IsAdmin("u2") {
		t.Error("added users should be admins")
	}
	if r.IsAdmin("u3") {
		t.Error("unknown user reported admin")
	}

	got := r.List()
	if len(got) != 2 || got[0] != "u1" || got[1] != "u2" {
		t.Errorf("list = %v, want sorted [u1 u2]", got)
	}

	removed, err := r.Remove("u1")
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	if removed, _ := r.Remove("u1"); removed {
		t.Error("second remove should report false")
	}
	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}
}

func TestRosterSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admins.json")
	r1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	r1.Add("u1")

	r2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !r2.IsAdmin("u1") {
		t.Error("admin lost across reopen")
	}
}
