package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"

	"pusdash/auth"
	"pusdash/config"
	"pusdash/i18n"
	"pusdash/models"
	"pusdash/report"
	"pusdash/state"
	"pusdash/view"
)

// TemplateDir is relative to the working directory; tests point it at the
// repository copy.
var TemplateDir = "templates"

// App carries the explicit application state into every handler — no ambient
// singletons beyond config and the cookie store.
type App struct {
	State *state.Manager
}

func NewApp(m *state.Manager) *App {
	return &App{State: m}
}

func RegisterHandlers(mux *http.ServeMux, app *App) {
	mux.HandleFunc("/", app.IndexHandler)
	mux.HandleFunc("/login", app.LoginHandler)
	mux.HandleFunc("/logout", app.LogoutHandler)
	mux.HandleFunc("/tab", app.TabHandler)
	mux.HandleFunc("/theme/toggle", app.ThemeToggleHandler)
	mux.HandleFunc("/dashboard", app.DashboardHandler)
	mux.HandleFunc("/dashboard/refresh", app.DashboardRefreshHandler)
	mux.HandleFunc("/dashboard/filter", app.DashboardFilterHandler)
	mux.HandleFunc("/dashboard/preset", app.DashboardPresetHandler)
	mux.HandleFunc("/reports", app.ReportsHandler)
	mux.HandleFunc("/reports/filter", app.ReportsFilterHandler)
	mux.HandleFunc("/reports/export", app.ReportsExportHandler)
	mux.HandleFunc("/reports/import", app.ReportsImportHandler)
	mux.HandleFunc("/reports/template", app.ReportsTemplateHandler)
	mux.HandleFunc("/reports/history", app.ReportsHistoryHandler)
	mux.HandleFunc("/settings", app.SettingsHandler)
	mux.HandleFunc("/settings/profile", app.ProfileUpdateHandler)
	mux.HandleFunc("/settings/users/add", app.UserAddHandler)
	mux.HandleFunc("/settings/users/edit", app.UserEditHandler)
	mux.HandleFunc("/settings/users/delete", app.UserDeleteHandler)

	// Mobile API endpoints (JSON)
	mux.HandleFunc("/api/v1/login", app.APILoginHandler)
	mux.HandleFunc("/api/v1/logout", app.APILogoutHandler)
	mux.HandleFunc("/api/v1/session", app.APISessionHandler)
	mux.HandleFunc("/api/v1/theme", app.APIThemeHandler)
	mux.HandleFunc("/api/v1/profile", app.APIProfileHandler)
	mux.HandleFunc("/api/v1/dashboard", app.APIDashboardHandler)
	mux.HandleFunc("/api/v1/dashboard/refresh", app.APIDashboardRefreshHandler)
	mux.HandleFunc("/api/v1/dashboard/filter", app.APIDashboardFilterHandler)
	mux.HandleFunc("/api/v1/dashboard/preset", app.APIDashboardPresetHandler)
	mux.HandleFunc("/api/v1/reports", app.APIReportsHandler)
	mux.HandleFunc("/api/v1/reports/filter", app.APIReportsFilterHandler)
	mux.HandleFunc("/api/v1/reports/export", app.APIReportsExportHandler)
	mux.HandleFunc("/api/v1/reports/import", app.APIReportsImportHandler)
	mux.HandleFunc("/api/v1/reports/history", app.APIReportsHistoryHandler)
	mux.HandleFunc("/api/v1/users", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			app.APIListUsersHandler(w, r)
		case http.MethodPost:
			app.APIAddUserHandler(w, r)
		case http.MethodDelete:
			app.APIDeleteUserHandler(w, r)
		default:
			sendJSONResponse(w, http.StatusMethodNotAllowed, APIResponse{Status: "error", Message: "Method not allowed"})
		}
	})
}

// session resolves the cookie-bound view state, if any.
func (a *App) session(r *http.Request) *state.Session {
	sid := auth.GetSessionID(r)
	if sid == "" {
		return nil
	}
	return a.State.Get(sid)
}

// requireUser redirects unauthenticated visitors to the login page.
func (a *App) requireUser(w http.ResponseWriter, r *http.Request) (*state.Session, models.UserProfile, bool) {
	sess := a.session(r)
	if sess == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, models.UserProfile{}, false
	}
	u, ok := sess.User()
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, models.UserProfile{}, false
	}
	return sess, u, true
}

func (a *App) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if sess := a.session(r); sess != nil {
		if _, ok := sess.User(); ok {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
	}
	a.renderTemplate(w, r, "login.html", nil)
}

func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.renderTemplate(w, r, "login.html", nil)
		return
	}

	lang := i18n.DetectLanguage(r)
	ip := getClientIP(r)
	if !loginLimiter.Allow(ip) {
		http.Error(w, i18n.T(lang, "TooManyAttempts"), http.StatusTooManyRequests)
		return
	}

	profile, err := auth.DeriveProfile(r.FormValue("email"))
	if err != nil {
		loginLimiter.RecordFailure(ip)
		w.Header().Set("HX-Trigger", "loginError")
		// HTMX doesn't process HX-Trigger on 4xx by default, so HTMX
		// requests get a 200 to keep the trigger working.
		if r.Header.Get("HX-Request") == "true" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusBadRequest)
		}
		w.Write([]byte(i18n.T(lang, "EmptyIdentifier")))
		return
	}

	sid := auth.EnsureSession(w, r)
	sess := a.State.Get(sid)
	if err := sess.Login(profile); err != nil {
		a.actionError(w, r, err)
		return
	}
	loginLimiter.Reset(ip)

	w.Header().Set("HX-Redirect", "/dashboard")
}

func (a *App) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if sid := auth.GetSessionID(r); sid != "" {
		a.State.Drop(sid)
	}
	auth.ClearSession(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// TabHandler backs the sidebar and the denied view's return button: the tab
// switch itself is unconditional.
func (a *App) TabHandler(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := a.requireUser(w, r)
	if !ok || r.Method != http.MethodPost {
		return
	}
	tab := models.Tab(r.FormValue("tab"))
	if !tab.Valid() {
		http.Error(w, "Unknown tab", http.StatusBadRequest)
		return
	}
	sess.SetActiveTab(tab)
	w.Header().Set("HX-Redirect", "/"+string(tab))
}

func (a *App) ThemeToggleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.State.ToggleTheme()
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusOK)
		return
	}
	target := r.Header.Get("Referer")
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (a *App) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	sess, u, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	sess.SetActiveTab(models.TabDashboard)

	draft, applied, preset := sess.DashboardRange()
	base := a.State.BaseRows()
	a.renderTemplate(w, r, "dashboard.html", map[string]any{
		"User":         u,
		"ActiveTab":    models.TabDashboard,
		"Summary":      report.Summarize(base),
		"Gender":       report.Gender(),
		"VisitTypes":   report.VisitTypes(),
		"PaymentTypes": report.PaymentTypes(),
		"AgeGroups":    report.AgeGroups(),
		"Kelurahan":    base,
		"Draft":        draft,
		"Applied":      applied,
		"Preset":       preset,
	})
}

func (a *App) DashboardRefreshHandler(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := a.requireUser(w, r)
	if !ok || r.Method != http.MethodPost {
		return
	}
	if err := sess.Refresh(); err != nil {
		a.actionError(w, r, err)
		return
	}
	w.Header().Set("HX-Redirect", "/dashboard")
}

func (a *App) DashboardFilterHandler(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := a.requireUser(w, r)
	if !ok || r.Method != http.MethodPost {
		return
	}
	sess.SetDashboardDraft(models.DateRange{
		Start: r.FormValue("start"),
		End:   r.FormValue("end"),
	})
	if err := sess.ApplyDashboardFilter(); err != nil {
		a.actionError(w, r, err)
		return
	}
	w.Header().Set("HX-Redirect", "/dashboard")
}

func (a *App) DashboardPresetHandler(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := a.requireUser(w, r)
	if !ok || r.Method != http.MethodPost {
		return
	}
	if err := sess.ApplyDashboardPreset(r.FormValue("preset")); err != nil {
		a.actionError(w, r, err)
		return
	}
	w.Header().Set("HX-Redirect", "/dashboard")
}

func (a *App) ReportsHandler(w http.ResponseWriter, r *http.Request) {
	sess, u, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	sess.SetActiveTab(models.TabReports)

	kind := view.Select(true, models.TabReports, u.Role, sess.SettingsTab())
	if kind == view.KindReportsDenied {
		a.renderTemplate(w, r, "reports_denied.html", map[string]any{
			"User":      u,
			"ActiveTab": models.TabReports,
		})
		return
	}

	draft, applied := sess.ReportsRange()
	rows := report.DeriveVisits(a.State.BaseRows(), applied)
	a.renderTemplate(w, r, "reports.html", map[string]any{
		"User":          u,
		"ActiveTab":     models.TabReports,
		"Rows":          rows,
		"Draft":         draft,
		"Applied":       applied,
		"ImportSuccess": sess.ImportSuccess(),
	})
}

// requireReporter rejects Viewer sessions from report mutations; the HTML UI
// never offers them, but the route is still a policy boundary.
func (a *App) requireReporter(w http.ResponseWriter, r *http.Request) (*state.Session, bool) {
	sess, u, ok := a.requireUser(w, r)
	if !ok {
		return nil, false
	}
	if u.Role == models.RoleViewer {
		http.Error(w, i18n.T(i18n.DetectLanguage(r), "Forbidden"), http.StatusForbidden)
		return nil, false
	}
	return sess, true
}

func (a *App) ReportsFilterHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireReporter(w, r)
	if !ok || r.Method != http.MethodPost {
		return
	}
	sess.SetReportsDraft(models.DateRange{
		Start: r.FormValue("start"),
		End:   r.FormValue("end"),
	})
	if err := sess.ApplyReportsFilter(); err != nil {
		a.actionError(w, r, err)
		return
	}
	w.Header().Set("HX-Redirect", "/reports")
}

func (a *App) ReportsExportHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireReporter(w, r)
	if !ok || r.Method != http.MethodPost {
		return
	}

	lang := i18n.DetectLanguage(r)
	kind := r.FormValue("type")
	if kind != "CSV" && kind != "PDF" {
		http.Error(w, i18n.T(lang, "InvalidRequestBody"), http.StatusBadRequest)
		return
	}

	if err := sess.Export(kind); err != nil {
		a.actionError(w, r, err)
		return
	}

	_, applied := sess.ReportsRange()
	w.Header().Set("HX-Retarget", "#notice")
	fmt.Fprintf(w, i18n.T(lang, "ExportDone"), kind, applied.Start, applied.End)
}

func (a *App) ReportsImportHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireReporter(w, r)
	if !ok || r.Method != http.MethodPost {
		return
	}

	lang := i18n.DetectLanguage(r)
	file, _, err := r.FormFile("file")
	if err != nil {
		w.Header().Set("HX-Retarget", "#notice")
		w.Write([]byte(i18n.T(lang, "FileRequired")))
		return
	}
	// The upload's contents are deliberately never read: the import is a
	// simulation and always succeeds.
	file.Close()

	if err := sess.Import(); err != nil {
		a.actionError(w, r, err)
		return
	}
	w.Header().Set("HX-Redirect", "/reports")
}

func (a *App) ReportsTemplateHandler(w http.ResponseWriter, r *http.Request) {
	_, ok := a.requireReporter(w, r)
	if !ok || r.Method != http.MethodPost {
		return
	}
	w.Header().Set("HX-Retarget", "#notice")
	w.Write([]byte(i18n.T(i18n.DetectLanguage(r), "TemplateDownload")))
}

// ReportsHistoryHandler serves the activity-history dialog the reports page
// loads on demand. The trail is mocked, like everything behind it.
func (a *App) ReportsHistoryHandler(w http.ResponseWriter, r *http.Request) {
	_, ok := a.requireReporter(w, r)
	if !ok || r.Method != http.MethodGet {
		return
	}

	lang := i18n.DetectLanguage(r)
	funcMap := template.FuncMap{
		"T": func(key string) string {
			return i18n.T(lang, key)
		},
	}
	tmpl, err := template.New("reports_history.html").Funcs(funcMap).ParseFiles(TemplateDir + "/reports_history.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	tmpl.ExecuteTemplate(w, "history", map[string]any{
		"Logs": report.HistoryLogs(),
	})
}

func (a *App) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	sess, u, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	sess.SetActiveTab(models.TabSettings)
	if tab := r.URL.Query().Get("tab"); tab != "" {
		sess.SetSettingsTab(tab)
	}

	kind := view.Select(true, models.TabSettings, u.Role, sess.SettingsTab())
	data := map[string]any{
		"User":      u,
		"ActiveTab": models.TabSettings,
		"IsAdmin":   u.Role == models.RoleAdmin,
	}
	if kind == view.KindSettingsManagement {
		data["Users"] = sess.Users().List()
	}
	a.renderTemplate(w, r, kind.Template(), data)
}

func (a *App) ProfileUpdateHandler(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := a.requireUser(w, r)
	if !ok || r.Method != http.MethodPost {
		return
	}
	sess.UpdateProfile(r.FormValue("name"), r.FormValue("username"))
	w.Header().Set("HX-Trigger", "profileSaved")
	w.Write([]byte(i18n.T(i18n.DetectLanguage(r), "ProfileSaved")))
}

// requireAdmin guards the user-management mutations.
func (a *App) requireAdmin(w http.ResponseWriter, r *http.Request) (*state.Session, bool) {
	sess, u, ok := a.requireUser(w, r)
	if !ok {
		return nil, false
	}
	if u.Role != models.RoleAdmin {
		http.Error(w, i18n.T(i18n.DetectLanguage(r), "Forbidden"), http.StatusForbidden)
		return nil, false
	}
	return sess, true
}

func (a *App) UserAddHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireAdmin(w, r)
	if !ok || r.Method != http.MethodPost {
		return
	}

	lang := i18n.DetectLanguage(r)
	role := models.Role(r.FormValue("role"))
	if !role.Valid() {
		http.Error(w, i18n.T(lang, "InvalidRole"), http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	sess.Users().Add(models.UserProfile{
		Name:     r.FormValue("name"),
		Role:     role,
		Username: username,
		Email:    r.FormValue("email"),
		Avatar:   "https://picsum.photos/seed/" + username + "/200/200",
	}, r.FormValue("password"))

	w.Header().Set("HX-Redirect", "/settings?tab=management")
}

// UserEditHandler stays a placeholder, as in the source system: it only
// reports the simulated-modal message.
func (a *App) UserEditHandler(w http.ResponseWriter, r *http.Request) {
	_, ok := a.requireAdmin(w, r)
	if !ok || r.Method != http.MethodPost {
		return
	}
	lang := i18n.DetectLanguage(r)
	w.Header().Set("HX-Retarget", "#notice")
	fmt.Fprintf(w, i18n.T(lang, "EditUserStub"), r.FormValue("name"))
}

func (a *App) UserDeleteHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireAdmin(w, r)
	if !ok || r.Method != http.MethodPost {
		return
	}

	lang := i18n.DetectLanguage(r)
	// Deleting is destructive enough to demand the confirm flag the UI
	// collects via its dialog.
	if r.FormValue("confirm") != "yes" {
		http.Error(w, i18n.T(lang, "ConfirmationRequired"), http.StatusBadRequest)
		return
	}

	sess.Users().Delete(r.FormValue("username"))
	w.Header().Set("HX-Redirect", "/settings?tab=management")
}

func (a *App) actionError(w http.ResponseWriter, r *http.Request, err error) {
	lang := i18n.DetectLanguage(r)
	switch {
	case errors.Is(err, state.ErrActionPending):
		http.Error(w, i18n.T(lang, "ActionPending"), http.StatusConflict)
	case errors.Is(err, state.ErrActionBlocked):
		http.Error(w, i18n.T(lang, "ActionBlocked"), http.StatusConflict)
	default:
		http.Error(w, i18n.T(lang, "InternalServerError"), http.StatusInternalServerError)
	}
}

func (a *App) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	lang := i18n.DetectLanguage(r)

	funcMap := template.FuncMap{
		"T": func(key string) string {
			return i18n.T(lang, key)
		},
	}

	tmpl, err := template.New(name).Funcs(funcMap).ParseFiles(TemplateDir+"/layout.html", TemplateDir+"/"+name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["AppName"]; !exists {
		data["AppName"] = config.AppConfig.AppName
	}
	data["Lang"] = lang
	data["csrfField"] = csrf.TemplateField(r)
	theme := a.State.Theme()
	data["Theme"] = theme
	data["Dark"] = theme == models.ThemeDark

	tmpl.ExecuteTemplate(w, "layout", data)
}
