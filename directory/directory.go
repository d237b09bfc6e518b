// Package directory holds the in-memory system-user list shown in the admin
// management view. It is session-scoped and never persisted: a fresh session
// starts again from the seed users.
package directory

import (
	"sync"

	"github.com/google/uuid"

	"pusdash/db"
	"pusdash/models"
	"pusdash/seed"
)

type Entry struct {
	ID string `json:"id"`
	models.UserProfile
	PasswordHash string `json:"-"`
}

type Directory struct {
	mu      sync.Mutex
	entries []Entry
}

func New(users []seed.User) *Directory {
	d := &Directory{}
	for _, u := range users {
		d.entries = append(d.entries, Entry{
			ID: uuid.NewString(),
			UserProfile: models.UserProfile{
				Name:     u.Name,
				Role:     u.Role,
				Username: u.Username,
				Email:    u.Email,
				Avatar:   u.Avatar,
			},
		})
	}
	return d
}

// List returns a snapshot in insertion order.
func (d *Directory) List() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Add appends the profile. Username uniqueness is not enforced; the source
// system never did either. An empty password leaves the hash empty.
func (d *Directory) Add(p models.UserProfile, password string) Entry {
	entry := Entry{ID: uuid.NewString(), UserProfile: p}
	if password != "" {
		if hash, err := db.HashPassword(password); err == nil {
			entry.PasswordHash = hash
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, entry)
	return entry
}

// Delete removes the first entry matching username. Returns false when no
// entry matched.
func (d *Directory) Delete(username string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, e := range d.entries {
		if e.Username == username {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
