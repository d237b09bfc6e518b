package auth

import (
	"crypto/sha256"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"pusdash/config"
	"pusdash/models"
)

var Store *sessions.CookieStore

func InitStore() {
	// Derive two 32-byte keys from the session key to ensure secure encryption
	// Auth key for signing (HMAC)
	authKey := sha256.Sum256([]byte(config.AppConfig.SessionKey + "auth"))
	// Encryption key for content encryption (AES)
	encKey := sha256.Sum256([]byte(config.AppConfig.SessionKey + "encryption"))

	Store = sessions.NewCookieStore(authKey[:], encKey[:])

	// Ensure cookie security settings
	Store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   config.AppConfig.ListenPort != 8080, // Default to true unless dev port
		SameSite: http.SameSiteLaxMode,
	}
}

const SessionName = "pusdash-session"

// GetSessionID returns the server-side state ID bound to the cookie, or "".
func GetSessionID(r *http.Request) string {
	session, _ := Store.Get(r, SessionName)
	if sid, ok := session.Values["sid"].(string); ok {
		return sid
	}
	return ""
}

// EnsureSession returns the existing state ID or mints a fresh one and binds
// it to the cookie.
func EnsureSession(w http.ResponseWriter, r *http.Request) string {
	session, _ := Store.Get(r, SessionName)
	if sid, ok := session.Values["sid"].(string); ok && sid != "" {
		return sid
	}
	sid := uuid.NewString()
	session.Values["sid"] = sid
	session.Save(r, w)
	return sid
}

func ClearSession(w http.ResponseWriter, r *http.Request) {
	session, _ := Store.Get(r, SessionName)
	session.Options.MaxAge = -1
	session.Save(r, w)
}

var ErrEmptyIdentifier = errors.New("empty login identifier")

// DeriveProfile maps a login identifier to its demo profile. There is no
// credential check: any non-empty identifier authenticates, and the role
// falls out of a plain case-sensitive substring match.
func DeriveProfile(identifier string) (models.UserProfile, error) {
	if identifier == "" {
		return models.UserProfile{}, ErrEmptyIdentifier
	}

	role := models.RoleAdmin
	if strings.Contains(identifier, "operator") {
		role = models.RoleOperator
	} else if strings.Contains(identifier, "viewer") {
		role = models.RoleViewer
	}

	p := models.UserProfile{
		Role:     role,
		Email:    identifier,
		Username: strings.SplitN(identifier, "@", 2)[0],
	}
	switch role {
	case models.RoleOperator:
		p.Name = "Siti Aminah"
		p.Avatar = "https://picsum.photos/seed/nurse/200/200"
	case models.RoleViewer:
		p.Name = "Budi Santoso"
		p.Avatar = "https://picsum.photos/seed/staff/200/200"
	default:
		p.Name = "dr. Andi Wijaya"
		p.Avatar = "https://picsum.photos/seed/doctor/200/200"
	}
	return p, nil
}

// Token-based auth for the JSON API. Tokens carry the state ID so API calls
// share the same per-session view state as the HTML surface.
type Claims struct {
	SID      string      `json:"sid"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

func apiSecret() []byte {
	key := sha256.Sum256([]byte(config.AppConfig.SessionKey + "api"))
	return key[:]
}

func CreateAPIToken(sid string, p models.UserProfile) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		SID:      sid,
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(apiSecret())
}

func ParseAPIToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return apiSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
