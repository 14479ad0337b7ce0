package social

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/pixelvault/marketplace/internal/auth"
	"github.com/pixelvault/marketplace/internal/config"
	"github.com/pixelvault/marketplace/internal/domain"
	"github.com/pixelvault/marketplace/internal/service"
	apperrors "github.com/pixelvault/marketplace/pkg/util/errorutil"
)

const (
	stateCookieName        = "oidc-state"
	stateCookiePath        = "/auth/social"
	stateCookieTTL         = 5 * time.Minute
	randomEntropyByteCount = 32
)

// Logins reconciles a verified provider profile with a local account and opens a session.
type Logins interface {
	SocialLogin(ctx context.Context, profile service.SocialProfile) (*domain.User, *domain.Session, error)
}

// Provider runs the OIDC authorization-code flow with PKCE.
type Provider struct {
	verifier *gooidc.IDTokenVerifier
	oauth2   oauth2.Config
	cookies  auth.CookieSettings
	logins   Logins
	logger   *zap.Logger
}

type callbackState struct {
	State        string `json:"state"`
	Nonce        string `json:"nonce"`
	CodeVerifier string `json:"code_verifier"`
	ExpiresAt    int64  `json:"expires_at"`
}

// NewProvider discovers the issuer and builds the provider.
func NewProvider(ctx context.Context, cfg config.OIDCConfig, cookies auth.CookieSettings, logins Logins, logger *zap.Logger) (*Provider, error) {
	if !cfg.Enabled() {
		return nil, errors.New("social login disabled")
	}
	if logins == nil {
		return nil, errors.New("social login requires an account service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	discovery, err := gooidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}

	return &Provider{
		verifier: discovery.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     discovery.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{gooidc.ScopeOpenID, "profile", "email"},
		},
		cookies: cookies,
		logins:  logins,
		logger:  logger.Named("social"),
	}, nil
}

// HandleLogin redirects the browser to the identity provider.
func (p *Provider) HandleLogin(c *fiber.Ctx) error {
	state, err := randomToken(randomEntropyByteCount)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	nonce, err := randomToken(randomEntropyByteCount)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	codeVerifier, err := randomToken(randomEntropyByteCount)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	encoded, err := encodeState(callbackState{
		State:        state,
		Nonce:        nonce,
		CodeVerifier: codeVerifier,
		ExpiresAt:    time.Now().Add(stateCookieTTL).Unix(),
	})
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookieName,
		Value:    encoded,
		Path:     stateCookiePath,
		Domain:   p.cookies.Domain,
		Expires:  time.Now().Add(stateCookieTTL),
		MaxAge:   int(stateCookieTTL.Seconds()),
		Secure:   p.cookies.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	if redirect := safeRedirect(c.Query("redirect")); redirect != "" {
		c.Cookie(&fiber.Cookie{
			Name:     auth.CallbackURLCookieName,
			Value:    redirect,
			Path:     "/",
			Domain:   p.cookies.Domain,
			Expires:  time.Now().Add(stateCookieTTL),
			Secure:   p.cookies.Secure,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	authURL := p.oauth2.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("code_challenge", pkceChallenge(codeVerifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	return c.Redirect(authURL, fiber.StatusFound)
}

// HandleCallback verifies the provider response, signs the user in and sets the session cookie.
func (p *Provider) HandleCallback(c *fiber.Ctx) error {
	raw := strings.TrimSpace(c.Cookies(stateCookieName))
	if raw == "" {
		return apperrors.NewUnauthenticated("missing login state")
	}
	stored, err := decodeState(raw)
	if err != nil {
		return apperrors.NewUnauthenticated("invalid login state")
	}
	if time.Now().Unix() > stored.ExpiresAt {
		return apperrors.NewUnauthenticated("login state expired")
	}
	if got := strings.TrimSpace(c.Query("state")); got == "" || got != stored.State {
		return apperrors.NewUnauthenticated("invalid login state")
	}
	p.clearStateCookie(c)

	if providerErr := c.Query("error"); providerErr != "" {
		return apperrors.NewUnauthenticated("provider denied login: " + providerErr)
	}
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		return apperrors.NewValidationError("missing authorization code", nil)
	}

	ctx := c.UserContext()
	tok, err := p.oauth2.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", stored.CodeVerifier))
	if err != nil {
		p.logger.Warn("token exchange failed", zap.Error(err))
		return apperrors.NewUnauthenticated("token exchange failed")
	}
	rawIDToken, _ := tok.Extra("id_token").(string)
	if strings.TrimSpace(rawIDToken) == "" {
		return apperrors.NewUnauthenticated("provider did not return an id_token")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		p.logger.Warn("id_token rejected", zap.Error(err))
		return apperrors.NewUnauthenticated("invalid id_token")
	}
	if idToken.Nonce == "" || idToken.Nonce != stored.Nonce {
		return apperrors.NewUnauthenticated("invalid nonce")
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return apperrors.NewUnauthenticated("invalid claims")
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return apperrors.NewForbidden("email address is not verified")
	}

	_, sess, err := p.logins.SocialLogin(ctx, service.SocialProfile{
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	})
	if err != nil {
		return err
	}
	p.cookies.SetSessionCookie(c, sess.ID, sess.ExpiresAt)

	redirect := safeRedirect(c.Cookies(auth.CallbackURLCookieName))
	if c.Cookies(auth.CallbackURLCookieName) != "" {
		p.expireCookie(c, auth.CallbackURLCookieName, "/")
	}
	if redirect == "" {
		redirect = "/"
	}
	return c.Redirect(redirect, fiber.StatusFound)
}

func (p *Provider) clearStateCookie(c *fiber.Ctx) {
	p.expireCookie(c, stateCookieName, stateCookiePath)
}

func (p *Provider) expireCookie(c *fiber.Ctx, name, path string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Domain:   p.cookies.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   p.cookies.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// safeRedirect accepts only same-site absolute paths.
func safeRedirect(target string) string {
	target = strings.TrimSpace(target)
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return ""
	}
	return target
}

func encodeState(state callbackState) (string, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeState(encoded string) (*callbackState, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	var out callbackState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out.State == "" || out.Nonce == "" || out.CodeVerifier == "" {
		return nil, errors.New("incomplete state payload")
	}
	return &out, nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
