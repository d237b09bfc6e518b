// Package state holds the per-session view state of the dashboard and the
// simulated-async engine every feature runs through. All "backend" work is a
// timed delay followed by a canned resolution; the run helper is the single
// seam where a real network call would replace the sleep without touching any
// caller.
package state

import (
	"errors"
	"sync"
	"time"

	"pusdash/directory"
	"pusdash/models"
	"pusdash/report"
	"pusdash/seed"
)

// Action names. Each owns one pending flag per session.
const (
	ActionLogin         = "login"
	ActionRefresh       = "refresh"
	ActionDashFilter    = "dashboard-filter"
	ActionDashPreset    = "dashboard-preset"
	ActionExport        = "export"
	ActionImport        = "import"
	ActionReportsFilter = "reports-filter"
)

// Simulated backend latencies.
const (
	LoginDelay        = 1500 * time.Millisecond
	RefreshDelay      = 1000 * time.Millisecond
	DashFilterDelay   = 800 * time.Millisecond
	DashPresetDelay   = 600 * time.Millisecond
	ExportDelay       = 2000 * time.Millisecond
	ImportDelay       = 2500 * time.Millisecond
	ReportsFilterBase = 800 * time.Millisecond
	ImportSuccessTTL  = 4000 * time.Millisecond
)

var (
	// ErrActionPending: the same action was started again while running.
	// The UI equivalent is a disabled control.
	ErrActionPending = errors.New("action already pending")
	// ErrActionBlocked: a grouped action (import/export) refused to start
	// while another member of its group is running.
	ErrActionBlocked = errors.New("action blocked by a running action")

	// Declared for a future real backend; nothing returns them today —
	// every simulated action resolves successfully.
	ErrInvalidImportPayload = errors.New("invalid import payload")
	ErrBackendUnavailable   = errors.New("backend unavailable")
)

// exportImportGroup reproduces the shared disable condition on the reports
// toolbar: import and export stay untouchable while any of import, export, or
// the reports filter is in flight.
var exportImportGroup = []string{ActionImport, ActionExport, ActionReportsFilter}

var defaultRange = models.DateRange{Start: "2024-01-01", End: "2024-01-31"}

// Session is one visitor's view state. Every mutation happens under its lock;
// a pending->resolved transition is atomic with respect to all reads.
type Session struct {
	mu sync.Mutex

	user        *models.UserProfile
	activeTab   models.Tab
	settingsTab string

	dashDraft   models.DateRange
	dashApplied models.DateRange
	dashPreset  string

	reportsDraft   models.DateRange
	reportsApplied models.DateRange

	importSuccess bool

	users *directory.Directory

	pending map[string]string

	sleep     func(time.Duration)
	after     func(time.Duration, func())
	randFloat func() float64
	now       func() time.Time
}

func newSession(users []seed.User, clk clock) *Session {
	return &Session{
		activeTab:      models.TabDashboard,
		settingsTab:    "profile",
		dashDraft:      defaultRange,
		dashApplied:    defaultRange,
		dashPreset:     report.PresetThisMonth,
		reportsDraft:   defaultRange,
		reportsApplied: defaultRange,
		users:          directory.New(users),
		pending:        make(map[string]string),
		sleep:          clk.sleep,
		after:          clk.after,
		randFloat:      clk.randFloat,
		now:            clk.now,
	}
}

// run is the simulated-async contract: mark the action pending synchronously,
// wait out the delay, then clear the flag and apply the resolution in one
// locked step. There is no cancellation and no failure path; once started an
// action always resolves.
func (s *Session) run(name, tag string, delay time.Duration, blockedBy []string, resolve func()) error {
	s.mu.Lock()
	if _, busy := s.pending[name]; busy {
		s.mu.Unlock()
		return ErrActionPending
	}
	for _, b := range blockedBy {
		if b == name {
			continue
		}
		if _, busy := s.pending[b]; busy {
			s.mu.Unlock()
			return ErrActionBlocked
		}
	}
	s.pending[name] = tag
	s.mu.Unlock()

	s.sleep(delay)

	s.mu.Lock()
	delete(s.pending, name)
	if resolve != nil {
		resolve()
	}
	s.mu.Unlock()
	return nil
}

// Pending reports whether the named action is in flight and with which tag.
func (s *Session) Pending(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tag, ok := s.pending[name]
	return tag, ok
}

// Login resolves after the simulated delay by installing the profile and
// landing the visitor on the dashboard.
func (s *Session) Login(p models.UserProfile) error {
	return s.run(ActionLogin, "", LoginDelay, nil, func() {
		u := p
		s.user = &u
		s.activeTab = models.TabDashboard
	})
}

// Logout clears the user immediately and resets the active tab. It is not a
// simulated action.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.activeTab = models.TabDashboard
	s.settingsTab = "profile"
}

func (s *Session) User() (models.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.UserProfile{}, false
	}
	return *s.user, true
}

// UpdateProfile shallow-merges the non-empty fields into the current user.
// No-op when nobody is authenticated.
func (s *Session) UpdateProfile(name, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	if name != "" {
		s.user.Name = name
	}
	if username != "" {
		s.user.Username = username
	}
}

// SetActiveTab is unconditional; role gating happens at view selection, not
// at state mutation.
func (s *Session) SetActiveTab(t models.Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTab = t
}

func (s *Session) ActiveTab() models.Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTab
}

func (s *Session) SetSettingsTab(tab string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tab == "management" {
		s.settingsTab = "management"
	} else {
		s.settingsTab = "profile"
	}
}

func (s *Session) SettingsTab() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settingsTab
}

// Refresh only spins: the resolution clears the flag and nothing else.
func (s *Session) Refresh() error {
	return s.run(ActionRefresh, "", RefreshDelay, nil, nil)
}

func (s *Session) SetDashboardDraft(r models.DateRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dashDraft = r
}

// ApplyDashboardFilter commits the draft range and marks the preset custom.
func (s *Session) ApplyDashboardFilter() error {
	return s.run(ActionDashFilter, "", DashFilterDelay, nil, func() {
		s.dashApplied = s.dashDraft
		s.dashPreset = report.PresetCustom
	})
}

// ApplyDashboardPreset resolves by installing the preset's dates as both the
// draft and applied range.
func (s *Session) ApplyDashboardPreset(preset string) error {
	r, ok := report.PresetRange(preset, s.now())
	if !ok {
		return nil
	}
	return s.run(ActionDashPreset, preset, DashPresetDelay, nil, func() {
		s.dashDraft = r
		s.dashApplied = r
		s.dashPreset = preset
	})
}

func (s *Session) DashboardRange() (draft, applied models.DateRange, preset string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dashDraft, s.dashApplied, s.dashPreset
}

func (s *Session) SetReportsDraft(r models.DateRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportsDraft = r
}

// ApplyReportsFilter commits the draft after a short randomized delay
// (400-800 ms), mimicking upstream jitter.
func (s *Session) ApplyReportsFilter() error {
	delay := time.Duration(float64(ReportsFilterBase) * (0.5 + s.randFloat()*0.5))
	return s.run(ActionReportsFilter, "", delay, nil, func() {
		s.reportsApplied = s.reportsDraft
	})
}

func (s *Session) ReportsRange() (draft, applied models.DateRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportsDraft, s.reportsApplied
}

// Export simulates producing the named artifact (CSV or PDF) for the applied
// range. No bytes are written; the caller composes the confirmation message.
func (s *Session) Export(kind string) error {
	return s.run(ActionExport, kind, ExportDelay, exportImportGroup, nil)
}

// Import simulates ingesting an upload. The file contents are never read;
// the success indicator self-clears after ImportSuccessTTL.
func (s *Session) Import() error {
	err := s.run(ActionImport, "", ImportDelay, exportImportGroup, func() {
		s.importSuccess = true
	})
	if err != nil {
		return err
	}
	s.after(ImportSuccessTTL, func() {
		s.mu.Lock()
		s.importSuccess = false
		s.mu.Unlock()
	})
	return nil
}

func (s *Session) ImportSuccess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.importSuccess
}

func (s *Session) Users() *directory.Directory {
	return s.users
}
