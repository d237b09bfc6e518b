// Package view resolves (session, tab, role) to exactly one renderable view.
// Keeping the decision in a single tagged selector means the access rules
// live in one place instead of scattered template conditionals.
package view

import "pusdash/models"

type Kind int

const (
	KindLogin Kind = iota
	KindDashboard
	KindReportsContent
	KindReportsDenied
	KindSettingsProfile
	KindSettingsManagement
)

// Select picks the view. Invariants: an unauthenticated visitor only ever
// sees the login view; a Viewer pointed at reports gets the denied
// placeholder, never report content; the management sub-view is Admin-only.
func Select(authenticated bool, tab models.Tab, role models.Role, settingsTab string) Kind {
	if !authenticated {
		return KindLogin
	}

	switch tab {
	case models.TabReports:
		if role == models.RoleViewer {
			return KindReportsDenied
		}
		return KindReportsContent
	case models.TabSettings:
		if settingsTab == "management" && role == models.RoleAdmin {
			return KindSettingsManagement
		}
		return KindSettingsProfile
	default:
		return KindDashboard
	}
}

// Template maps a view to its template file.
func (k Kind) Template() string {
	switch k {
	case KindLogin:
		return "login.html"
	case KindReportsContent:
		return "reports.html"
	case KindReportsDenied:
		return "reports_denied.html"
	case KindSettingsProfile:
		return "settings.html"
	case KindSettingsManagement:
		return "users.html"
	default:
		return "dashboard.html"
	}
}
