// Package statusrole grants and revokes a vanity role based on the
// text a user displays in their presence status. Per user this is a
// flat has-role / lacks-role machine. Grants are persisted so holders
// survive a restart, and a revoked-only-because-offline grant stays on
// record so the role comes back if the user's status still qualifies
// when they return.
package statusrole

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Transition events posted to the status log channel.
const (
	eventGiven       = "Role Given"
	eventRemoved     = "Role Removed"
	eventRestored    = "Role Restored"
	eventNotRestored = "Role Not Restored"
)

// RoleStore persists role grants across restarts. A set flag means the
// user is entitled to the role: held while online, pending restore
// while offline.
type RoleStore interface {
	SetStatusFlag(guildID, userID string, granted bool) error
	StatusFlag(guildID, userID string) (bool, error)
	ClearStatusFlag(guildID, userID string) error
}

// RoleMutator grants and revokes the guild role.
type RoleMutator interface {
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
}

// Notifier posts transition events to the status log channel.
type Notifier interface {
	SendMessage(ctx context.Context, channelID, content string) error
}

// Config configures a Machine.
type Config struct {
	GuildID     string
	RoleID      string
	MustContain string // case-insensitive substring the status must show
	LogChannel  string // transition events land here; empty = silent
	Logger      *slog.Logger
}

// Machine applies presence transitions to role state.
type Machine struct {
	mu      sync.Mutex
	hasRole map[string]bool

	cfg      Config
	store    RoleStore
	roles    RoleMutator
	notifier Notifier
	logger   *slog.Logger
}

// New creates a machine.
func New(cfg Config, store RoleStore, roles RoleMutator, notifier Notifier) *Machine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		hasRole:  make(map[string]bool),
		cfg:      cfg,
		store:    store,
		roles:    roles,
		notifier: notifier,
		logger:   logger,
	}
}

// Enabled reports whether the companion is configured to do anything.
func (m *Machine) Enabled() bool {
	return m.cfg.RoleID != "" && m.cfg.MustContain != ""
}

func (m *Machine) matches(status string) bool {
	return strings.Contains(strings.ToLower(status), strings.ToLower(m.cfg.MustContain))
}

// Restore seeds the in-memory role map from the persisted grants.
// Call once at startup, before presence events arrive; without it a
// holder from before the restart would be invisible to the machine and
// keep the role through their next offline transition.
func (m *Machine) Restore(userIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range userIDs {
		m.hasRole[id] = true
	}
}

// HandlePresence processes one presence update. Role mutation errors
// are logged and the in-memory state is left unchanged, so the next
// update retries naturally.
func (m *Machine) HandlePresence(ctx context.Context, userID string, online bool, status string) {
	if !m.Enabled() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !online {
		if m.hasRole[userID] {
			if err := m.revoke(ctx, userID, eventRemoved); err != nil {
				return
			}
			// The grant record stays so the role can come back on
			// reconnect.
			if err := m.store.SetStatusFlag(m.cfg.GuildID, userID, true); err != nil {
				m.logger.Error("persist restore flag", "user", userID, "error", err)
			}
		}
		return
	}

	// A reconnecting prior holder gets the role back only if the
	// displayed status still qualifies.
	if !m.hasRole[userID] {
		if eligible, err := m.store.StatusFlag(m.cfg.GuildID, userID); err != nil {
			m.logger.Error("read restore flag", "user", userID, "error", err)
		} else if eligible {
			if m.matches(status) {
				m.grant(ctx, userID, eventRestored)
				return
			}
			if err := m.store.ClearStatusFlag(m.cfg.GuildID, userID); err != nil {
				m.logger.Error("clear restore flag", "user", userID, "error", err)
			}
			m.notify(ctx, eventNotRestored, userID)
			return
		}
	}

	switch {
	case m.matches(status) && !m.hasRole[userID]:
		m.grant(ctx, userID, eventGiven)
	case !m.matches(status) && m.hasRole[userID]:
		if err := m.revoke(ctx, userID, eventRemoved); err == nil {
			if err := m.store.ClearStatusFlag(m.cfg.GuildID, userID); err != nil {
				m.logger.Error("clear grant record", "user", userID, "error", err)
			}
		}
	}
}

// CheckNow verifies a user's status on demand and applies the role
// immediately. Reports whether the user holds the role afterwards.
func (m *Machine) CheckNow(ctx context.Context, userID, status string) bool {
	if !m.Enabled() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.matches(status) && !m.hasRole[userID]:
		m.grant(ctx, userID, eventGiven)
	case !m.matches(status) && m.hasRole[userID]:
		if err := m.revoke(ctx, userID, eventRemoved); err == nil {
			if err := m.store.ClearStatusFlag(m.cfg.GuildID, userID); err != nil {
				m.logger.Error("clear grant record", "user", userID, "error", err)
			}
		}
	}
	return m.hasRole[userID]
}

// HasRole reports the machine's view of a user's role state.
func (m *Machine) HasRole(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasRole[userID]
}

// grant, revoke, and notify assume m.mu is held.

func (m *Machine) grant(ctx context.Context, userID, event string) error {
	if err := m.roles.AddRole(ctx, m.cfg.GuildID, userID, m.cfg.RoleID); err != nil {
		m.logger.Error("grant status role", "user", userID, "error", err)
		return err
	}
	m.hasRole[userID] = true
	if err := m.store.SetStatusFlag(m.cfg.GuildID, userID, true); err != nil {
		m.logger.Error("persist grant record", "user", userID, "error", err)
	}
	m.logger.Info("status role granted", "user", userID)
	m.notify(ctx, event, userID)
	return nil
}

func (m *Machine) revoke(ctx context.Context, userID, event string) error {
	if err := m.roles.RemoveRole(ctx, m.cfg.GuildID, userID, m.cfg.RoleID); err != nil {
		m.logger.Error("revoke status role", "user", userID, "error", err)
		return err
	}
	m.hasRole[userID] = false
	m.logger.Info("status role revoked", "user", userID)
	m.notify(ctx, event, userID)
	return nil
}

// notify posts a transition to the status log channel. Best effort.
func (m *Machine) notify(ctx context.Context, event, userID string) {
	if m.notifier == nil || m.cfg.LogChannel == "" {
		return
	}
	msg := fmt.Sprintf("**%s** <@%s>", event, userID)
	if err := m.notifier.SendMessage(ctx, m.cfg.LogChannel, msg); err != nil {
		m.logger.Warn("status log post failed", "event", event, "error", err)
	}
}
