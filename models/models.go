package models

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleOperator Role = "Operator"
	RoleViewer   Role = "Viewer"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOperator || r == RoleViewer
}

type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabReports   Tab = "reports"
	TabSettings  Tab = "settings"
)

func (t Tab) Valid() bool {
	return t == TabDashboard || t == TabReports || t == TabSettings
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type UserProfile struct {
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// DateRange keeps the ISO form the date inputs submit ("2006-01-02").
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type KelurahanRow struct {
	Name   string `json:"name" yaml:"name"`
	Visits int    `json:"visits" yaml:"visits"`
}

// ReportRow is a kelurahan row after the date-range perturbation, with its
// share of the total visit count.
type ReportRow struct {
	Name    string  `json:"name"`
	Visits  int     `json:"visits"`
	Percent float64 `json:"percent"`
}

type NameValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type AgeGroupRow struct {
	Range  string `json:"range"`
	Visits int    `json:"visits"`
}

// ActivityLog is one row of the reports activity history.
type ActivityLog struct {
	User   string `json:"user"`
	Action string `json:"action"`
	Date   string `json:"date"`
}
