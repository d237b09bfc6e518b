package seed

import (
	"os"

	"gopkg.in/yaml.v3"

	"pusdash/models"
)

// Data is the bootstrap dataset: the system-user directory every session
// starts from, and the base kelurahan rows the report derivations perturb.
type Data struct {
	Users     []User                `yaml:"users"`
	Kelurahan []models.KelurahanRow `yaml:"kelurahan"`
}

type User struct {
	Name     string      `yaml:"name"`
	Role     models.Role `yaml:"role"`
	Username string      `yaml:"username"`
	Email    string      `yaml:"email"`
	Avatar   string      `yaml:"avatar"`
}

// Default mirrors the demo dataset of the original dashboard. Kelurahan rows
// are kept sorted by visit count, highest first.
func Default() Data {
	return Data{
		Users: []User{
			{Name: "dr. Andi Wijaya", Role: models.RoleAdmin, Username: "andiwijaya", Email: "admin@puskesmastambora.id", Avatar: "https://picsum.photos/seed/doctor/200/200"},
			{Name: "Siti Aminah", Role: models.RoleOperator, Username: "siti_a", Email: "siti@puskesmastambora.id", Avatar: "https://picsum.photos/seed/nurse/200/200"},
			{Name: "Budi Santoso", Role: models.RoleViewer, Username: "budi_v", Email: "budi@puskesmastambora.id", Avatar: "https://picsum.photos/seed/staff/200/200"},
		},
		Kelurahan: []models.KelurahanRow{
			{Name: "Krendang", Visits: 250},
			{Name: "Jembatan Besi", Visits: 210},
			{Name: "Tambora", Visits: 180},
			{Name: "Angke", Visits: 140},
			{Name: "Pekojan", Visits: 130},
			{Name: "Roa Malaka", Visits: 90},
		},
	}
}

// Load reads the seed file at path. An empty path returns the built-in
// defaults; a file with a missing section falls back per section.
func Load(path string) (Data, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, err
	}

	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Data{}, err
	}

	def := Default()
	if len(d.Users) == 0 {
		d.Users = def.Users
	}
	if len(d.Kelurahan) == 0 {
		d.Kelurahan = def.Kelurahan
	}
	return d, nil
}
