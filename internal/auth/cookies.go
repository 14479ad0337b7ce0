package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	// TokenCookieName carries the first-party credential.
	TokenCookieName = "token"
	// CallbackURLCookieName is set by the social login flow. The flow carries its
	// CSRF check in the state cookie, so CSRFCookieName is only ever cleared, for
	// browsers still holding one from an earlier deployment.
	CSRFCookieName        = "csrf-token"
	CallbackURLCookieName = "callback-url"
)

// CookieSettings controls attributes of auth cookies.
type CookieSettings struct {
	Secure            bool
	Domain            string
	SessionCookieName string
}

// SetCredentialCookie stores a first-party credential until it expires.
func (s CookieSettings) SetCredentialCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		Domain:   s.Domain,
		Expires:  expiresAt,
		Secure:   s.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// SetSessionCookie stores a provider session id.
func (s CookieSettings) SetSessionCookie(c *fiber.Ctx, sessionID string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     s.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   s.Domain,
		Expires:  expiresAt,
		Secure:   s.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearAuthCookies expires every cookie either login mechanism may have set.
func (s CookieSettings) ClearAuthCookies(c *fiber.Ctx) {
	names := []string{TokenCookieName, s.SessionCookieName, CSRFCookieName, CallbackURLCookieName}
	for _, name := range names {
		if name == "" {
			continue
		}
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   s.Domain,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			Secure:   s.Secure,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
}
