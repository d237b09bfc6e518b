package state

import (
	"math/rand"
	"sync"
	"time"

	"pusdash/models"
	"pusdash/seed"
)

// clock bundles the injectable time sources shared by all sessions.
type clock struct {
	sleep     func(time.Duration)
	after     func(time.Duration, func())
	randFloat func() float64
	now       func() time.Time
}

// ManagerConfig wires the manager explicitly: durable theme slot, seed data,
// and optional fake timers for tests. Zero values take real defaults.
type ManagerConfig struct {
	Theme        models.Theme
	PersistTheme func(value string)
	Seed         seed.Data

	Sleep func(time.Duration)
	After func(time.Duration, func())
	Rand  func() float64
	Now   func() time.Time
}

// Manager owns every live session plus the single global theme preference.
// Sessions are in-memory only; a restart starts everyone over, which is the
// intended lifecycle for mocked data.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	theme   models.Theme
	persist func(string)

	seed seed.Data
	clk  clock
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Theme != models.ThemeDark {
		// Absent or unrecognized stored value defaults to light.
		cfg.Theme = models.ThemeLight
	}
	if cfg.PersistTheme == nil {
		cfg.PersistTheme = func(string) {}
	}
	if len(cfg.Seed.Users) == 0 && len(cfg.Seed.Kelurahan) == 0 {
		cfg.Seed = seed.Default()
	}
	clk := clock{
		sleep:     cfg.Sleep,
		after:     cfg.After,
		randFloat: cfg.Rand,
		now:       cfg.Now,
	}
	if clk.sleep == nil {
		clk.sleep = time.Sleep
	}
	if clk.after == nil {
		clk.after = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	if clk.randFloat == nil {
		clk.randFloat = rand.Float64
	}
	if clk.now == nil {
		clk.now = time.Now
	}

	return &Manager{
		sessions: make(map[string]*Session),
		theme:    cfg.Theme,
		persist:  cfg.PersistTheme,
		seed:     cfg.Seed,
		clk:      clk,
	}
}

// Get returns the session for id, creating it on first sight.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := newSession(m.seed.Users, m.clk)
	m.sessions[id] = s
	return s
}

// Drop discards a session entirely (used on logout; the next request starts
// fresh, directory included).
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// BaseRows exposes the seeded kelurahan rows the report derivations start from.
func (m *Manager) BaseRows() []models.KelurahanRow {
	rows := make([]models.KelurahanRow, len(m.seed.Kelurahan))
	copy(rows, m.seed.Kelurahan)
	return rows
}

func (m *Manager) Theme() models.Theme {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.theme
}

// ToggleTheme flips the preference and writes it through to durable storage.
func (m *Manager) ToggleTheme() models.Theme {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.theme == models.ThemeDark {
		m.theme = models.ThemeLight
	} else {
		m.theme = models.ThemeDark
	}
	m.persist(string(m.theme))
	return m.theme
}
