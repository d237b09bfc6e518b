package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"pusdash/auth"
	"pusdash/i18n"
	"pusdash/models"
	"pusdash/report"
	"pusdash/state"
)

// APIResponse is the uniform envelope for the JSON API.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func sendJSONResponse(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// apiToken pulls the token from X-API-Token or an Authorization bearer.
func apiToken(r *http.Request) string {
	if tok := r.Header.Get("X-API-Token"); tok != "" {
		return tok
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// apiSession authenticates the request and resolves its session state. API
// tokens carry the same state ID the cookie would, so both surfaces observe
// one session.
func (a *App) apiSession(w http.ResponseWriter, r *http.Request) (*state.Session, models.UserProfile, bool) {
	lang := i18n.DetectLanguage(r)
	tok := apiToken(r)
	if tok == "" {
		sendJSONResponse(w, http.StatusUnauthorized, APIResponse{Status: "error", Message: i18n.T(lang, "Unauthorized")})
		return nil, models.UserProfile{}, false
	}
	claims, err := auth.ParseAPIToken(tok)
	if err != nil {
		sendJSONResponse(w, http.StatusUnauthorized, APIResponse{Status: "error", Message: i18n.T(lang, "Unauthorized")})
		return nil, models.UserProfile{}, false
	}
	sess := a.State.Get(claims.SID)
	u, ok := sess.User()
	if !ok {
		sendJSONResponse(w, http.StatusUnauthorized, APIResponse{Status: "error", Message: i18n.T(lang, "Unauthorized")})
		return nil, models.UserProfile{}, false
	}
	return sess, u, true
}

func (a *App) apiActionError(w http.ResponseWriter, r *http.Request, err error) {
	lang := i18n.DetectLanguage(r)
	switch {
	case errors.Is(err, state.ErrActionPending):
		sendJSONResponse(w, http.StatusConflict, APIResponse{Status: "error", Message: i18n.T(lang, "ActionPending")})
	case errors.Is(err, state.ErrActionBlocked):
		sendJSONResponse(w, http.StatusConflict, APIResponse{Status: "error", Message: i18n.T(lang, "ActionBlocked")})
	default:
		sendJSONResponse(w, http.StatusInternalServerError, APIResponse{Status: "error", Message: i18n.T(lang, "InternalServerError")})
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		sendJSONResponse(w, http.StatusMethodNotAllowed, APIResponse{Status: "error", Message: i18n.T(i18n.DetectLanguage(r), "MethodNotAllowed")})
		return false
	}
	return true
}

func (a *App) APILoginHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	lang := i18n.DetectLanguage(r)

	ip := getClientIP(r)
	if !loginLimiter.Allow(ip) {
		sendJSONResponse(w, http.StatusTooManyRequests, APIResponse{Status: "error", Message: i18n.T(lang, "TooManyAttempts")})
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}

	profile, err := auth.DeriveProfile(req.Email)
	if err != nil {
		loginLimiter.RecordFailure(ip)
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "EmptyIdentifier")})
		return
	}

	sid := uuid.NewString()
	sess := a.State.Get(sid)
	if err := sess.Login(profile); err != nil {
		a.apiActionError(w, r, err)
		return
	}
	loginLimiter.Reset(ip)

	token, err := auth.CreateAPIToken(sid, profile)
	if err != nil {
		sendJSONResponse(w, http.StatusInternalServerError, APIResponse{Status: "error", Message: i18n.T(lang, "InternalServerError")})
		return
	}

	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]interface{}{
		"token": token,
		"user":  profile,
		"theme": a.State.Theme(),
	}})
}

func (a *App) APILogoutHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	tok := apiToken(r)
	if claims, err := auth.ParseAPIToken(tok); err == nil {
		a.State.Drop(claims.SID)
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success"})
}

func (a *App) APISessionHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	sess, u, ok := a.apiSession(w, r)
	if !ok {
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]interface{}{
		"user":         u,
		"active_tab":   sess.ActiveTab(),
		"settings_tab": sess.SettingsTab(),
		"theme":        a.State.Theme(),
	}})
}

func (a *App) APIThemeHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]interface{}{
			"theme": a.State.Theme(),
		}})
	case http.MethodPost:
		if _, _, ok := a.apiSession(w, r); !ok {
			return
		}
		sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]interface{}{
			"theme": a.State.ToggleTheme(),
		}})
	default:
		sendJSONResponse(w, http.StatusMethodNotAllowed, APIResponse{Status: "error", Message: i18n.T(i18n.DetectLanguage(r), "MethodNotAllowed")})
	}
}

func (a *App) APIProfileHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	sess, _, ok := a.apiSession(w, r)
	if !ok {
		return
	}
	lang := i18n.DetectLanguage(r)

	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}
	sess.UpdateProfile(req.Name, req.Username)

	u, _ := sess.User()
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Message: i18n.T(lang, "ProfileSaved"), Data: map[string]interface{}{
		"user": u,
	}})
}

func (a *App) APIDashboardHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	sess, _, ok := a.apiSession(w, r)
	if !ok {
		return
	}

	draft, applied, preset := sess.DashboardRange()
	base := a.State.BaseRows()
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]interface{}{
		"summary":       report.Summarize(base),
		"gender":        report.Gender(),
		"visit_types":   report.VisitTypes(),
		"payment_types": report.PaymentTypes(),
		"age_groups":    report.AgeGroups(),
		"kelurahan":     base,
		"draft":         draft,
		"applied":       applied,
		"preset":        preset,
	}})
}

func (a *App) APIDashboardRefreshHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess, _, ok := a.apiSession(w, r)
	if !ok {
		return
	}
	if err := sess.Refresh(); err != nil {
		a.apiActionError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success"})
}

func (a *App) APIDashboardFilterHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess, _, ok := a.apiSession(w, r)
	if !ok {
		return
	}
	lang := i18n.DetectLanguage(r)

	var req models.DateRange
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}
	sess.SetDashboardDraft(req)
	if err := sess.ApplyDashboardFilter(); err != nil {
		a.apiActionError(w, r, err)
		return
	}

	_, applied, preset := sess.DashboardRange()
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]interface{}{
		"applied": applied,
		"preset":  preset,
	}})
}

func (a *App) APIDashboardPresetHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess, _, ok := a.apiSession(w, r)
	if !ok {
		return
	}
	lang := i18n.DetectLanguage(r)

	var req struct {
		Preset string `json:"preset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}
	if err := sess.ApplyDashboardPreset(req.Preset); err != nil {
		a.apiActionError(w, r, err)
		return
	}

	_, applied, preset := sess.DashboardRange()
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]interface{}{
		"applied": applied,
		"preset":  preset,
	}})
}

// apiReporter applies the same Viewer gate as the HTML reports surface.
func (a *App) apiReporter(w http.ResponseWriter, r *http.Request) (*state.Session, bool) {
	sess, u, ok := a.apiSession(w, r)
	if !ok {
		return nil, false
	}
	if u.Role == models.RoleViewer {
		sendJSONResponse(w, http.StatusForbidden, APIResponse{Status: "error", Message: i18n.T(i18n.DetectLanguage(r), "Forbidden")})
		return nil, false
	}
	return sess, true
}

func (a *App) APIReportsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	sess, ok := a.apiReporter(w, r)
	if !ok {
		return
	}

	draft, applied := sess.ReportsRange()
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]interface{}{
		"rows":           report.DeriveVisits(a.State.BaseRows(), applied),
		"draft":          draft,
		"applied":        applied,
		"import_success": sess.ImportSuccess(),
	}})
}

func (a *App) APIReportsFilterHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess, ok := a.apiReporter(w, r)
	if !ok {
		return
	}
	lang := i18n.DetectLanguage(r)

	var req models.DateRange
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}
	sess.SetReportsDraft(req)
	if err := sess.ApplyReportsFilter(); err != nil {
		a.apiActionError(w, r, err)
		return
	}

	_, applied := sess.ReportsRange()
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]interface{}{
		"rows":    report.DeriveVisits(a.State.BaseRows(), applied),
		"applied": applied,
	}})
}

func (a *App) APIReportsExportHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess, ok := a.apiReporter(w, r)
	if !ok {
		return
	}
	lang := i18n.DetectLanguage(r)

	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Type != "CSV" && req.Type != "PDF") {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}

	if err := sess.Export(req.Type); err != nil {
		a.apiActionError(w, r, err)
		return
	}

	_, applied := sess.ReportsRange()
	sendJSONResponse(w, http.StatusOK, APIResponse{
		Status:  "success",
		Message: fmt.Sprintf(i18n.T(lang, "ExportDone"), req.Type, applied.Start, applied.End),
	})
}

func (a *App) APIReportsHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if _, ok := a.apiReporter(w, r); !ok {
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]interface{}{
		"logs": report.HistoryLogs(),
	}})
}

func (a *App) APIReportsImportHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	sess, ok := a.apiReporter(w, r)
	if !ok {
		return
	}
	lang := i18n.DetectLanguage(r)

	// Mirrors the HTML surface: the payload is acknowledged but never parsed.
	if err := sess.Import(); err != nil {
		a.apiActionError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Message: i18n.T(lang, "ImportSuccessTitle")})
}

// apiAdmin gates the user-management endpoints.
func (a *App) apiAdmin(w http.ResponseWriter, r *http.Request) (*state.Session, bool) {
	sess, u, ok := a.apiSession(w, r)
	if !ok {
		return nil, false
	}
	if u.Role != models.RoleAdmin {
		sendJSONResponse(w, http.StatusForbidden, APIResponse{Status: "error", Message: i18n.T(i18n.DetectLanguage(r), "Forbidden")})
		return nil, false
	}
	return sess, true
}

func (a *App) APIListUsersHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.apiAdmin(w, r)
	if !ok {
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]interface{}{
		"users": sess.Users().List(),
	}})
}

func (a *App) APIAddUserHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.apiAdmin(w, r)
	if !ok {
		return
	}
	lang := i18n.DetectLanguage(r)

	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}
	role := models.Role(req.Role)
	if !role.Valid() {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRole")})
		return
	}

	entry := sess.Users().Add(models.UserProfile{
		Name:     req.Name,
		Role:     role,
		Username: req.Username,
		Email:    req.Email,
		Avatar:   "https://picsum.photos/seed/" + req.Username + "/200/200",
	}, req.Password)

	sendJSONResponse(w, http.StatusCreated, APIResponse{Status: "success", Message: i18n.T(lang, "UserAdded"), Data: map[string]interface{}{
		"user": entry,
	}})
}

func (a *App) APIDeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.apiAdmin(w, r)
	if !ok {
		return
	}
	lang := i18n.DetectLanguage(r)

	var req struct {
		Username string `json:"username"`
		Confirm  bool   `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}
	if !req.Confirm {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "ConfirmationRequired")})
		return
	}

	sess.Users().Delete(req.Username)
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Message: i18n.T(lang, "UserDeleted")})
}
