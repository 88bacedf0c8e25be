// Package stock implements the credential stock store: one plain-text file
// per (tier, service), one credential per line, popped front-first.
//
// The store is the single owner of the stock directory; handlers never
// touch the files directly. All mutation is read-modify-write of whole
// files under one mutex, so a pop can never race an append.
package stock

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vaultgen/vaultgen/internal/domain"
)

// Store manages per-tier, per-service credential files.
type Store struct {
	mu      sync.Mutex
	baseDir string
	logger  *slog.Logger
}

// New creates a store rooted at baseDir (the stock/ directory) and ensures
// the per-tier subdirectories exist.
func New(baseDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, tier := range domain.Tiers() {
		if err := os.MkdirAll(filepath.Join(baseDir, string(tier)), 0o755); err != nil {
			return nil, fmt.Errorf("create stock directory: %w", err)
		}
	}
	return &Store{baseDir: baseDir, logger: logger}, nil
}

func (s *Store) path(tier domain.Tier, service string) string {
	return filepath.Join(s.baseDir, string(tier), domain.NormalizeService(service)+".txt")
}

// Exists reports whether the service has been created for the tier.
func (s *Store) Exists(tier domain.Tier, service string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := os.Stat(s.path(tier, service))
	return err == nil
}

// Create establishes an empty stock file for a new service.
func (s *Store) Create(tier domain.Tier, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(tier, service)
	if _, err := os.Stat(path); err == nil {
		return domain.ErrServiceExists
	}
	return s.write(path, nil)
}

// Delete removes a service's stock file entirely.
func (s *Store) Delete(tier domain.Tier, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(tier, service)
	if _, err := os.Stat(path); err != nil {
		return domain.ErrServiceNotFound
	}
	return os.Remove(path)
}

// Pop removes and returns the first credential of the (tier, service)
// stock. Returns ErrOutOfStock when the file is absent or empty.
func (s *Store) Pop(tier domain.Tier, service string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(tier, service)
	lines := s.read(path)
	if len(lines) == 0 {
		return "", domain.ErrOutOfStock
	}

	head := lines[0]
	if err := s.write(path, lines[1:]); err != nil {
		return "", fmt.Errorf("rewrite stock after pop: %w", err)
	}
	return head, nil
}

// PushFront returns a credential to the head of the stock, used to
// compensate a failed delivery so no stock is consumed.
func (s *Store) PushFront(tier domain.Tier, service, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(tier, service)
	lines := s.read(path)
	return s.write(path, append([]string{credential}, lines...))
}

// Append adds credentials to the tail of an existing service's stock.
// Returns the new total count.
func (s *Store) Append(tier domain.Tier, service string, creds []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(tier, service)
	if _, err := os.Stat(path); err != nil {
		return 0, domain.ErrServiceNotFound
	}

	lines := s.read(path)
	for _, c := range creds {
		c = strings.TrimSpace(c)
		if c != "" {
			lines = append(lines, c)
		}
	}
	if err := s.write(path, lines); err != nil {
		return 0, err
	}
	return len(lines), nil
}

// Clear truncates a service's stock and returns how many credentials
// were removed.
func (s *Store) Clear(tier domain.Tier, service string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(tier, service)
	if _, err := os.Stat(path); err != nil {
		return 0, domain.ErrServiceNotFound
	}

	n := len(s.read(path))
	return n, s.write(path, nil)
}

// Count returns the number of credentials held for one service.
func (s *Store) Count(tier domain.Tier, service string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.read(s.path(tier, service)))
}

// Counts scans every stock file and returns per-tier, per-service counts.
// Service keys are canonical (lowercase, underscored) names.
func (s *Store) Counts() map[domain.Tier]map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[domain.Tier]map[string]int, 3)
	for _, tier := range domain.Tiers() {
		out[tier] = make(map[string]int)
		dir := filepath.Join(s.baseDir, string(tier))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("read stock directory", "dir", dir, "error", err)
			}
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, ".txt") {
				continue
			}
			service := strings.TrimSuffix(name, ".txt")
			out[tier][service] = len(s.read(filepath.Join(dir, name)))
		}
	}
	return out
}

// Total returns the total credential count across all tiers.
func (s *Store) Total() int {
	total := 0
	for _, services := range s.Counts() {
		for _, n := range services {
			total += n
		}
	}
	return total
}

// read returns all non-blank lines of a stock file. A missing file reads
// as empty; an unreadable one is logged and also reads as empty, since a
// generation attempt should degrade to "out of stock" rather than crash.
func (s *Store) read(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Error("read stock file", "path", path, "error", err)
		}
		return nil
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		s.logger.Error("scan stock file", "path", path, "error", err)
	}
	return lines
}

// write replaces a stock file's contents, one credential per line.
func (s *Store) write(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
