package main

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"

	"pusdash/auth"
	"pusdash/config"
	"pusdash/db"
	"pusdash/handlers"
	"pusdash/i18n"
	"pusdash/models"
	"pusdash/seed"
	"pusdash/state"
)

func main() {
	if err := config.LoadConfig("config.json"); err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	if err := i18n.LoadTranslations("i18n"); err != nil {
		log.Fatalf("Error loading translations: %v", err)
	}

	auth.InitStore()

	db.InitDB(config.AppConfig.DBPath)
	defer db.DB.Close()

	seedData, err := seed.Load(config.AppConfig.SeedPath)
	if err != nil {
		log.Fatalf("Error loading seed data: %v", err)
	}

	manager := state.NewManager(state.ManagerConfig{
		Theme: models.Theme(db.GetPreference("theme")),
		PersistTheme: func(value string) {
			if err := db.SetPreference("theme", value); err != nil {
				log.Printf("Error persisting theme: %v", err)
			}
		},
		Seed: seedData,
	})

	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	handlers.RegisterHandlers(mux, handlers.NewApp(manager))

	addr := fmt.Sprintf("%s:%d", config.AppConfig.ListenIP, config.AppConfig.ListenPort)
	log.Printf("Server starting on %s (%s)", addr, config.AppConfig.AppName)

	// CSRF protection for the browser surface. The JSON API authenticates with
	// bearer tokens, not cookies, so it bypasses the CSRF check.
	csrfMiddleware := csrf.Protect(
		[]byte(config.AppConfig.SessionKey),
		csrf.Secure(config.AppConfig.ListenPort != 8080),
		csrf.Path("/"),
	)
	protected := csrfMiddleware(mux)
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			mux.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})

	if err := http.ListenAndServe(addr, handlers.CORSMiddleware(handlers.SecurityHeadersMiddleware(root))); err != nil {
		log.Fatal(err)
	}
}
