// Package cookie carries the cart token in a cookie for browser clients that
// do not manage the Cart-Token header themselves.
package cookie

import (
	"net/http"
	"time"
)

// CartCookieName stores the anonymous cart key for guest users.
const CartCookieName = "freyja_cart"

// Config holds cookie configuration for domain-aware cookie operations.
type Config struct {
	// Domain scopes the cookie. Empty means host-only.
	Domain string

	// Secure determines whether cookies require HTTPS.
	// Should be true in production, false in development.
	Secure bool

	// MaxAge is how long the browser keeps the cookie.
	MaxAge time.Duration
}

// NewConfig creates a new cookie configuration.
func NewConfig(domain string, secure bool, maxAge time.Duration) *Config {
	return &Config{
		Domain: domain,
		Secure: secure,
		MaxAge: maxAge,
	}
}

// SetCart sets the cart cookie. The cookie is HttpOnly and SameSite=Lax.
func (c *Config) SetCart(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookieName,
		Value:    value,
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   int(c.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCart removes the cart cookie by setting MaxAge to -1.
func (c *Config) ClearCart(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookieName,
		Value:    "",
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Get retrieves a cookie value from the request.
// Returns empty string if cookie not found.
func Get(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
