package models

import (
	"strings"
	"time"
)

type UserMetadata struct {
	AvatarURL string `json:"avatar_url,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}

// AuthUser is the user record exposed alongside a session
type AuthUser struct {
	ID       string       `json:"id"`
	Email    string       `json:"email,omitempty"`
	Metadata UserMetadata `json:"user_metadata"`
}

// DisplayName falls back from full name to login to a generic label
func (u AuthUser) DisplayName() string {
	if u.Metadata.FullName != "" {
		return u.Metadata.FullName
	}
	if u.Metadata.UserName != "" {
		return u.Metadata.UserName
	}
	return "User"
}

// Initials returns up to two upper-case initials of the display name
func (u AuthUser) Initials() string {
	var initials []rune
	for _, word := range strings.Fields(u.DisplayName()) {
		initials = append(initials, []rune(word)[0])
		if len(initials) == 2 {
			break
		}
	}
	return strings.ToUpper(string(initials))
}

// Session is an authenticated session. Token is opaque to everything
// outside the auth backend.
type Session struct {
	Token     string    `json:"access_token"`
	User      AuthUser  `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type AuthEventType string

const (
	AuthEventSignedIn       AuthEventType = "SIGNED_IN"
	AuthEventSignedOut      AuthEventType = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is published by the auth backend whenever a session changes.
// Session is nil for sign-outs.
type AuthEvent struct {
	Type    AuthEventType
	Token   string
	Session *Session
}
