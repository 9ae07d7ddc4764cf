package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionCookieName = "session"
	StateCookieName   = "oauth_state"

	cookieIssuer  = "perfguide"
	sessionAud    = "session"
	stateAud      = "oauth_state"
	stateLifetime = 10 * time.Minute
)

// ErrInvalidCookie is returned for cookies that are malformed, forged or expired
var ErrInvalidCookie = errors.New("invalid cookie")

// ErrStateMismatch is returned when the OAuth callback state does not match the state cookie
var ErrStateMismatch = errors.New("OAuth state mismatch")

type stateClaims struct {
	jwt.RegisteredClaims
	RedirectTo string `json:"redirect_to,omitempty"`
}

// CookieCodec signs and verifies the session and OAuth state cookies as HS256 JWTs
type CookieCodec struct {
	secret []byte
	now    func() time.Time
}

func NewCookieCodec(secret string) *CookieCodec {
	return &CookieCodec{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// EncodeSession wraps an opaque session token for the session cookie
func (c *CookieCodec) EncodeSession(token string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   token,
		Issuer:    cookieIssuer,
		Audience:  jwt.ClaimStrings{sessionAud},
		IssuedAt:  jwt.NewNumericDate(c.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	return c.sign(claims)
}

// DecodeSession returns the session token and cookie expiry
func (c *CookieCodec) DecodeSession(value string) (string, time.Time, error) {
	var claims jwt.RegisteredClaims
	if err := c.parse(value, &claims, sessionAud); err != nil {
		return "", time.Time{}, err
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return "", time.Time{}, ErrInvalidCookie
	}
	return claims.Subject, claims.ExpiresAt.Time, nil
}

// EncodeState binds an OAuth state value to the post-login redirect target
func (c *CookieCodec) EncodeState(state, redirectTo string) (string, error) {
	now := c.now()
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        state,
			Issuer:    cookieIssuer,
			Audience:  jwt.ClaimStrings{stateAud},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateLifetime)),
		},
		RedirectTo: redirectTo,
	}
	return c.sign(claims)
}

// DecodeState returns the state value and redirect target
func (c *CookieCodec) DecodeState(value string) (string, string, error) {
	var claims stateClaims
	if err := c.parse(value, &claims, stateAud); err != nil {
		return "", "", err
	}
	if claims.ID == "" {
		return "", "", ErrInvalidCookie
	}
	return claims.ID, claims.RedirectTo, nil
}

// VerifyState checks the state returned by the provider against the state
// cookie and returns the redirect target stored with it
func (c *CookieCodec) VerifyState(cookie, returned string) (string, error) {
	state, redirectTo, err := c.DecodeState(cookie)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStateMismatch, err)
	}
	if returned == "" || state != returned {
		return "", ErrStateMismatch
	}
	return redirectTo, nil
}

// StateMaxAge is the cookie lifetime in seconds for the OAuth state cookie
func StateMaxAge() int {
	return int(stateLifetime / time.Second)
}

func (c *CookieCodec) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *CookieCodec) parse(value string, claims jwt.Claims, audience string) error {
	_, err := jwt.ParseWithClaims(value, claims,
		func(*jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return ErrInvalidCookie
	}
	return nil
}

// SafeRedirect accepts only same-site absolute paths and falls back otherwise
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}
