package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"imagegen/config"

	"github.com/gorilla/sessions"
)

const (
	// SessionName is the key for the cookie session.
	SessionName = "imagegen-session"
	// UserSessionKey is the key used to store the authenticated status in the session.
	UserSessionKey = "authenticated"
)

// SessionAuth guards the panel pages with a password login kept in a cookie session.
// When no password is configured it lets every request through.
type SessionAuth struct {
	Store    *sessions.CookieStore
	Password string
	// LoginPath is where unauthenticated requests are redirected.
	LoginPath string
}

// NewSessionAuth creates the cookie store from the web settings.
func NewSessionAuth(web config.WebSettings) *SessionAuth {
	if web.SessionSecret == config.DefaultSessionSecret && web.WebPassword != "" {
		log.Println("Warning: SESSION_SECRET is not set or is the default. Using a default, insecure key. Please set a strong secret in your .env file for production.")
	}
	store := sessions.NewCookieStore([]byte(web.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   false, // Set to true if using HTTPS
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionAuth{
		Store:     store,
		Password:  web.WebPassword,
		LoginPath: "/login",
	}
}

// Enabled reports whether a password is configured.
func (a *SessionAuth) Enabled() bool {
	return a.Password != ""
}

// Authenticated reports whether r carries a valid session.
func (a *SessionAuth) Authenticated(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}
	session, err := a.Store.Get(r, SessionName)
	if err != nil {
		// This could happen if the cookie secret changes.
		log.Printf("Session error: %v. Forcing login.", err)
		return false
	}
	auth, ok := session.Values[UserSessionKey].(bool)
	return ok && auth
}

// Login marks the session as authenticated when password matches.
func (a *SessionAuth) Login(w http.ResponseWriter, r *http.Request, password string) bool {
	if subtle.ConstantTimeCompare([]byte(password), []byte(a.Password)) != 1 {
		return false
	}
	session, _ := a.Store.Get(r, SessionName)
	session.Values[UserSessionKey] = true
	if err := session.Save(r, w); err != nil {
		log.Printf("Error saving session: %v", err)
		return false
	}
	return true
}

// Logout clears the session.
func (a *SessionAuth) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := a.Store.Get(r, SessionName)
	session.Values[UserSessionKey] = false
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		log.Printf("Error clearing session: %v", err)
	}
}

// Middleware protects web routes that require authentication.
func (a *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Authenticated(r) {
			http.Redirect(w, r, a.LoginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AccessKeyAuth protects the relay route with a shared bearer key.
// An empty key disables the check, which is the normal setup when the
// route is only reachable from the local host.
func AccessKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteError(w, http.StatusUnauthorized, "Authorization header is required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				WriteError(w, http.StatusUnauthorized, "Invalid Authorization header format. Expected 'Bearer <key>'")
				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(key)) != 1 {
				WriteError(w, http.StatusUnauthorized, "Invalid access key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HostAuth guards routes that spend the saved API key. A request passes with
// the bearer access key or with a logged-in panel session. When neither a key
// nor a password is configured every request passes.
func HostAuth(session *SessionAuth, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		passwordSet := session != nil && session.Enabled()
		if key == "" && !passwordSet {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" && bearerMatches(r, key) {
				next.ServeHTTP(w, r)
				return
			}
			if passwordSet && session.Authenticated(r) {
				next.ServeHTTP(w, r)
				return
			}
			WriteError(w, http.StatusUnauthorized, "Authentication required")
		})
	}
}

func bearerMatches(r *http.Request, key string) bool {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(parts[1]), []byte(key)) == 1
}
