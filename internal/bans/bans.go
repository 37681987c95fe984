// Package bans keeps host bans. A host is a client address without its
// port, so a banned machine cannot reconnect from a new source port.
package bans

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

type Ban struct {
	Host      string    `toml:"host"`
	Name      string    `toml:"name"`
	Reason    string    `toml:"reason"`
	BannedBy  string    `toml:"banned_by"`
	BannedAt  time.Time `toml:"banned_at"`
	ExpiresAt time.Time `toml:"expires_at,omitempty"`
	Permanent bool      `toml:"permanent"`
}

func (b *Ban) Expired(now time.Time) bool {
	return !b.Permanent && !now.Before(b.ExpiresAt)
}

type banFile struct {
	Bans []*Ban `toml:"bans"`
}

type Manager struct {
	bans     map[string]*Ban
	filePath string
	now      func() time.Time
	mu       sync.RWMutex
}

// NewManager keeps bans in memory only when filePath is empty.
func NewManager(filePath string) *Manager {
	return &Manager{
		bans:     make(map[string]*Ban),
		filePath: filePath,
		now:      time.Now,
	}
}

// HostOf strips the port from an address. Addresses without a port are
// returned unchanged.
func HostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func (m *Manager) Load() error {
	if m.filePath == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var file banFile
	if _, err := toml.DecodeFile(m.filePath, &file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read bans file: %w", err)
	}

	now := m.now()
	m.bans = make(map[string]*Ban, len(file.Bans))
	for _, ban := range file.Bans {
		if ban.Host == "" || ban.Expired(now) {
			continue
		}
		m.bans[ban.Host] = ban
	}

	return nil
}

// IsBanned reports the active ban for the host of addr.
func (m *Manager) IsBanned(addr string) (bool, *Ban) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ban, exists := m.bans[HostOf(addr)]
	if !exists || ban.Expired(m.now()) {
		return false, nil
	}
	return true, ban
}

// AddBan bans the host of addr. A zero duration bans permanently.
func (m *Manager) AddBan(addr, name, reason, bannedBy string, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	ban := &Ban{
		Host:      HostOf(addr),
		Name:      name,
		Reason:    reason,
		BannedBy:  bannedBy,
		BannedAt:  now,
		Permanent: duration == 0,
	}
	if duration > 0 {
		ban.ExpiresAt = now.Add(duration)
	}

	m.bans[ban.Host] = ban
	return m.saveUnlocked()
}

func (m *Manager) RemoveBan(addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.bans, HostOf(addr))
	return m.saveUnlocked()
}

// GetAll returns the active bans ordered by host.
func (m *Manager) GetAll() []*Ban {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeUnlocked()
}

func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for host, ban := range m.bans {
		if ban.Expired(now) {
			delete(m.bans, host)
		}
	}
	return m.saveUnlocked()
}

func (m *Manager) activeUnlocked() []*Ban {
	now := m.now()
	out := make([]*Ban, 0, len(m.bans))
	for _, ban := range m.bans {
		if !ban.Expired(now) {
			out = append(out, ban)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

func (m *Manager) saveUnlocked() error {
	if m.filePath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(m.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create bans directory: %w", err)
	}

	f, err := os.Create(m.filePath)
	if err != nil {
		return fmt.Errorf("failed to write bans file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(banFile{Bans: m.activeUnlocked()}); err != nil {
		return fmt.Errorf("failed to encode bans: %w", err)
	}
	return nil
}
