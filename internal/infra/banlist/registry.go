// Package banlist implements the generation ban registry.
//
// Bans live in a JSON ledger file mapping user id to
// {moderator, reason, end_ts or null-for-permanent, created_ts}.
// The registry holds the ledger in memory behind a mutex and rewrites
// the whole file on every mutation.
//
// Lookup is a pure query: it never deletes expired records. Removal of
// expired bans happens only in PurgeExpired, which the background sweep
// calls, so reads stay idempotent and safe from any call site.
package banlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vaultgen/vaultgen/internal/domain"
)

// record is the on-disk shape of one ban, timestamps in unix seconds.
type record struct {
	Moderator string `json:"moderator"`
	Reason    string `json:"reason"`
	EndTS     *int64 `json:"end_ts"` // nil = permanent
	CreatedTS int64  `json:"created_ts"`
}

// Registry manages the ban ledger. Thread-safe.
type Registry struct {
	mu   sync.Mutex
	path string
	bans map[string]record

	// Injectable clock for testing.
	now func() time.Time
}

// Open loads the ledger at path, creating an empty one if absent.
func Open(path string) (*Registry, error) {
	r := &Registry{
		path: path,
		bans: make(map[string]record),
		now:  time.Now,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := r.save(); err != nil {
			return nil, fmt.Errorf("create ban ledger: %w", err)
		}
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ban ledger: %w", err)
	}
	if err := json.Unmarshal(data, &r.bans); err != nil {
		return nil, fmt.Errorf("parse ban ledger %s: %w", path, err)
	}
	return r, nil
}

// Lookup reports whether the user is actively banned. It never mutates:
// a record whose expiry has passed reports not-banned and is left for
// PurgeExpired to remove.
func (r *Registry) Lookup(userID string) (domain.Ban, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.bans[userID]
	if !ok {
		return domain.Ban{}, false
	}
	ban := rec.toBan(userID)
	if ban.Expired(r.now()) {
		return domain.Ban{}, false
	}
	return ban, true
}

// Add bans a user, overwriting any existing record unconditionally.
// A zero duration means permanent. Returns the stored ban.
func (r *Registry) Add(userID, issuerID, reason string, duration time.Duration) (domain.Ban, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	rec := record{
		Moderator: issuerID,
		Reason:    reason,
		CreatedTS: now.Unix(),
	}
	if duration > 0 {
		end := now.Add(duration).Unix()
		rec.EndTS = &end
	}
	r.bans[userID] = rec
	if err := r.save(); err != nil {
		return domain.Ban{}, err
	}
	return rec.toBan(userID), nil
}

// Remove unbans a user. A no-op if no record exists.
func (r *Registry) Remove(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bans[userID]; !ok {
		return nil
	}
	delete(r.bans, userID)
	return r.save()
}

// PurgeExpired deletes every record whose expiry has strictly passed and
// returns the purged bans, ordered by user id. Calling it again
// immediately yields nothing.
func (r *Registry) PurgeExpired() ([]domain.Ban, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var purged []domain.Ban
	for userID, rec := range r.bans {
		ban := rec.toBan(userID)
		if ban.Expired(now) {
			purged = append(purged, ban)
			delete(r.bans, userID)
		}
	}
	if len(purged) == 0 {
		return nil, nil
	}
	sort.Slice(purged, func(i, j int) bool { return purged[i].UserID < purged[j].UserID })
	return purged, r.save()
}

// Active returns all currently active bans, ordered by user id.
func (r *Registry) Active() []domain.Ban {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var out []domain.Ban
	for userID, rec := range r.bans {
		ban := rec.toBan(userID)
		if !ban.Expired(now) {
			out = append(out, ban)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Count returns the number of active bans.
func (r *Registry) Count() int { return len(r.Active()) }

// save rewrites the ledger file. Caller holds the mutex.
func (r *Registry) save() error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(r.bans, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o644)
}

func (rec record) toBan(userID string) domain.Ban {
	ban := domain.Ban{
		UserID:    userID,
		IssuerID:  rec.Moderator,
		Reason:    rec.Reason,
		CreatedAt: time.Unix(rec.CreatedTS, 0),
	}
	if rec.EndTS != nil {
		ban.ExpiresAt = time.Unix(*rec.EndTS, 0)
	}
	return ban
}
