package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"inkpress/internal/config"
)

const CookieName = "access_token"

// CookiePolicy carries the deployment-dependent attributes of the session
// cookie. Development defaults to Secure=false/SameSite=Lax so the frontend
// dev server can use plain http; production defaults to Secure/Strict.
type CookiePolicy struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
	MaxAge   time.Duration
}

func NewCookiePolicy(cfg *config.Config) CookiePolicy {
	p := CookiePolicy{
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		Domain:   cfg.Auth.CookieDomain,
		MaxAge:   cfg.TokenTTL(),
	}
	if cfg.IsProduction() {
		p.Secure = true
		p.SameSite = http.SameSiteStrictMode
	}
	if cfg.Auth.CookieSecure != nil {
		p.Secure = *cfg.Auth.CookieSecure
	}
	switch strings.ToLower(cfg.Auth.CookieSameSite) {
	case "strict":
		p.SameSite = http.SameSiteStrictMode
	case "lax":
		p.SameSite = http.SameSiteLaxMode
	case "none":
		// Browsers drop SameSite=None cookies that are not Secure.
		p.SameSite = http.SameSiteNoneMode
		p.Secure = true
	}
	return p
}

// Set writes the session cookie carrying token.
func (p CookiePolicy) Set(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   p.Domain,
		MaxAge:   int(p.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	})
}

// Clear expires the session cookie on the client.
func (p CookiePolicy) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   p.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	})
}
