package seed

import (
	"os"
	"testing"

	"pusdash/models"
)

func TestDefaultData(t *testing.T) {
	d := Default()
	if len(d.Users) != 3 {
		t.Fatalf("Expected 3 seed users, got %d", len(d.Users))
	}
	if d.Users[0].Role != models.RoleAdmin {
		t.Errorf("Expected first seed user to be Admin, got %s", d.Users[0].Role)
	}
	if len(d.Kelurahan) != 6 {
		t.Fatalf("Expected 6 kelurahan rows, got %d", len(d.Kelurahan))
	}
	for i := 1; i < len(d.Kelurahan); i++ {
		if d.Kelurahan[i].Visits > d.Kelurahan[i-1].Visits {
			t.Errorf("Kelurahan rows not sorted by visits at index %d", i)
		}
	}
}

func TestLoadEmptyPath(t *testing.T) {
	d, err := Load("")
	if err != nil {
		t.Fatalf("Load with empty path failed: %v", err)
	}
	if len(d.Users) != 3 || len(d.Kelurahan) != 6 {
		t.Error("Empty path should return defaults")
	}
}

func TestLoadFile(t *testing.T) {
	content := `
users:
  - name: Test User
    role: Operator
    username: testuser
    email: test@puskesmas.id
kelurahan:
  - name: Duri Utara
    visits: 77
`
	tmpfile, err := os.CreateTemp("", "seed.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpfile.Name())
	tmpfile.WriteString(content)
	tmpfile.Close()

	d, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(d.Users) != 1 || d.Users[0].Username != "testuser" {
		t.Errorf("Unexpected users: %+v", d.Users)
	}
	if len(d.Kelurahan) != 1 || d.Kelurahan[0].Visits != 77 {
		t.Errorf("Unexpected kelurahan rows: %+v", d.Kelurahan)
	}
}

func TestLoadMissingSectionFallsBack(t *testing.T) {
	tmpfile, _ := os.CreateTemp("", "seed.yaml")
	defer os.Remove(tmpfile.Name())
	tmpfile.WriteString("users:\n  - name: Solo\n    role: Admin\n    username: solo\n")
	tmpfile.Close()

	d, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(d.Kelurahan) != 6 {
		t.Errorf("Expected default kelurahan rows, got %d", len(d.Kelurahan))
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpfile, _ := os.CreateTemp("", "seed.yaml")
	defer os.Remove(tmpfile.Name())
	tmpfile.WriteString("users: [unclosed")
	tmpfile.Close()

	if _, err := Load(tmpfile.Name()); err == nil {
		t.Error("Load with invalid YAML should have failed")
	}
}
