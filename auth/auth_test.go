package auth

import (
	"errors"
	"net/http/httptest"
	"os"
	"testing"

	"pusdash/config"
	"pusdash/models"
)

func TestMain(m *testing.M) {
	config.AppConfig.SessionKey = "test-secret-key-12345678901234567890123456789012"
	InitStore()
	os.Exit(m.Run())
}

func TestDeriveProfileRoles(t *testing.T) {
	cases := []struct {
		identifier string
		role       models.Role
		name       string
		username   string
	}{
		{"admin@puskesmastambora.id", models.RoleAdmin, "dr. Andi Wijaya", "admin"},
		{"operator@puskesmastambora.id", models.RoleOperator, "Siti Aminah", "operator"},
		{"viewer@x.id", models.RoleViewer, "Budi Santoso", "viewer"},
		// substring match, anywhere in the identifier
		{"x-viewer", models.RoleViewer, "Budi Santoso", "x-viewer"},
		// operator wins when both substrings appear
		{"operatorviewer@x.id", models.RoleOperator, "Siti Aminah", "operatorviewer"},
		// case-sensitive: uppercase does not match
		{"VIEWER@x.id", models.RoleAdmin, "dr. Andi Wijaya", "VIEWER"},
	}

	for _, c := range cases {
		p, err := DeriveProfile(c.identifier)
		if err != nil {
			t.Fatalf("DeriveProfile(%q) failed: %v", c.identifier, err)
		}
		if p.Role != c.role {
			t.Errorf("DeriveProfile(%q): expected role %s, got %s", c.identifier, c.role, p.Role)
		}
		if p.Name != c.name {
			t.Errorf("DeriveProfile(%q): expected name %s, got %s", c.identifier, c.name, p.Name)
		}
		if p.Username != c.username {
			t.Errorf("DeriveProfile(%q): expected username %s, got %s", c.identifier, c.username, p.Username)
		}
		if p.Email != c.identifier {
			t.Errorf("DeriveProfile(%q): expected email preserved, got %s", c.identifier, p.Email)
		}
	}
}

func TestDeriveProfileEmpty(t *testing.T) {
	_, err := DeriveProfile("")
	if !errors.Is(err, ErrEmptyIdentifier) {
		t.Errorf("Expected ErrEmptyIdentifier, got %v", err)
	}
}

func TestSessionIDRoundTrip(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)

	if sid := GetSessionID(r); sid != "" {
		t.Errorf("Expected empty sid on fresh request, got %q", sid)
	}

	sid := EnsureSession(w, r)
	if sid == "" {
		t.Fatal("EnsureSession returned empty sid")
	}

	// Pass cookies back in a new request
	cookies := w.Result().Cookies()
	r2 := httptest.NewRequest("GET", "/", nil)
	for _, c := range cookies {
		r2.AddCookie(c)
	}

	if got := GetSessionID(r2); got != sid {
		t.Errorf("Expected sid %q, got %q", sid, got)
	}
}

func TestAPITokenRoundTrip(t *testing.T) {
	p, _ := DeriveProfile("operator@puskesmastambora.id")
	token, err := CreateAPIToken("sid-123", p)
	if err != nil {
		t.Fatalf("CreateAPIToken failed: %v", err)
	}

	claims, err := ParseAPIToken(token)
	if err != nil {
		t.Fatalf("ParseAPIToken failed: %v", err)
	}
	if claims.SID != "sid-123" {
		t.Errorf("Expected sid-123, got %s", claims.SID)
	}
	if claims.Role != models.RoleOperator {
		t.Errorf("Expected Operator role, got %s", claims.Role)
	}

	if _, err := ParseAPIToken("not-a-token"); err == nil {
		t.Error("ParseAPIToken accepted garbage")
	}
}
