package db

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	dbPath := "./test_db.db"
	InitDB(dbPath)

	code := m.Run()

	DB.Close()
	os.Remove(dbPath)

	os.Exit(code)
}

func TestPreferenceRoundTrip(t *testing.T) {
	if got := GetPreference("theme"); got != "" {
		t.Errorf("Expected empty value for unset key, got %q", got)
	}

	if err := SetPreference("theme", "dark"); err != nil {
		t.Fatalf("SetPreference failed: %v", err)
	}
	if got := GetPreference("theme"); got != "dark" {
		t.Errorf("Expected 'dark', got %q", got)
	}

	// Overwrite must replace, not duplicate
	if err := SetPreference("theme", "light"); err != nil {
		t.Fatalf("SetPreference overwrite failed: %v", err)
	}
	if got := GetPreference("theme"); got != "light" {
		t.Errorf("Expected 'light' after overwrite, got %q", got)
	}

	var count int
	if err := DB.QueryRow("SELECT COUNT(*) FROM preferences WHERE key = 'theme'").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected a single row for key, got %d", count)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("rahasia123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !CheckPasswordHash("rahasia123", hash) {
		t.Error("CheckPasswordHash rejected the correct password")
	}
	if CheckPasswordHash("salah", hash) {
		t.Error("CheckPasswordHash accepted a wrong password")
	}
}
