// Package roster manages the bot admin set, persisted as a JSON file
// {"admin_ids": [...]}. Admins are only ever added or removed by other
// admins; the first admin id is seeded by editing the file directly.
package roster

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

type ledger struct {
	AdminIDs []string `json:"admin_ids"`
}

// Roster is the set of user ids with elevated command privileges.
type Roster struct {
	mu     sync.Mutex
	path   string
	admins map[string]struct{}
}

// Open loads the roster at path, creating an empty one if absent.
func Open(path string) (*Roster, error) {
	r := &Roster{path: path, admins: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := r.save(); err != nil {
			return nil, fmt.Errorf("create admin roster: %w", err)
		}
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read admin roster: %w", err)
	}

	var l ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse admin roster %s: %w", path, err)
	}
	for _, id := range l.AdminIDs {
		r.admins[id] = struct{}{}
	}
	return r, nil
}

// IsAdmin reports whether the user holds admin privileges.
func (r *Roster) IsAdmin(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.admins[userID]
	return ok
}

// Add grants admin privileges. Returns false if already an admin.
func (r *Roster) Add(userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.admins[userID]; ok {
		return false, nil
	}
	r.admins[userID] = struct{}{}
	return true, r.save()
}

// Remove revokes admin privileges. Returns false if not an admin.
func (r *Roster) Remove(userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.admins[userID]; !ok {
		return false, nil
	}
	delete(r.admins, userID)
	return true, r.save()
}

// List returns all admin ids, sorted.
func (r *Roster) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.admins))
	for id := range r.admins {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of admins.
func (r *Roster) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.admins)
}

// save rewrites the roster file. Caller holds the mutex.
func (r *Roster) save() error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	l := ledger{AdminIDs: make([]string, 0, len(r.admins))}
	for id := range r.admins {
		l.AdminIDs = append(l.AdminIDs, id)
	}
	sort.Strings(l.AdminIDs)
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o644)
}
