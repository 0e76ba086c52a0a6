package web

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"thirdcoast.systems/clipforge/internal/jobs"
)

const (
	SessionName = "clipforge_session"
	UserIDKey   = "user_id"
	AnonIDKey   = "anon_id"
)

// SessionManager issues the anonymous session cookie and reads the identity
// the external auth layer may have stored.
type SessionManager struct {
	store *sessions.CookieStore
}

func NewSessionManager(secret string) *SessionManager {
	if secret == "" {
		secret = generateSecret()
	}
	return &SessionManager{
		store: sessions.NewCookieStore([]byte(secret)),
	}
}

func generateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.StdEncoding.EncodeToString(b)
}

// Identity resolves the caller: the authenticated user id when the external
// auth flow has stored one, otherwise an anonymous session id minted on
// first contact. The second return value is the anonymous id still present
// alongside a user id, which signals a pending promotion.
func (sm *SessionManager) Identity(w http.ResponseWriter, r *http.Request) (jobs.Identity, string, error) {
	session, _ := sm.store.Get(r, SessionName)

	userID, _ := session.Values[UserIDKey].(string)
	anonID, _ := session.Values[AnonIDKey].(string)

	if userID != "" {
		return jobs.UserIdentity(userID), anonID, nil
	}

	if anonID == "" {
		anonID = uuid.NewString()
		session.Values[AnonIDKey] = anonID

		isHTTPS := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
		session.Options = &sessions.Options{
			Path:     "/",
			MaxAge:   86400, // anonymous clips live 24h
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   isHTTPS,
		}
		if err := session.Save(r, w); err != nil {
			return jobs.Identity{}, "", err
		}
	}

	return jobs.SessionIdentity(anonID), "", nil
}

// ClearAnonymous drops the anonymous id after a successful promotion.
func (sm *SessionManager) ClearAnonymous(w http.ResponseWriter, r *http.Request) error {
	session, _ := sm.store.Get(r, SessionName)
	delete(session.Values, AnonIDKey)
	return session.Save(r, w)
}
