package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthUserDisplayName(t *testing.T) {
	testCases := []struct {
		name     string
		metadata UserMetadata
		expected string
	}{
		{"full name wins", UserMetadata{FullName: "Ada Lovelace", UserName: "ada"}, "Ada Lovelace"},
		{"login fallback", UserMetadata{UserName: "ada"}, "ada"},
		{"generic fallback", UserMetadata{}, "User"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			user := AuthUser{Metadata: tc.metadata}
			assert.Equal(t, tc.expected, user.DisplayName())
		})
	}
}

func TestAuthUserInitials(t *testing.T) {
	assert.Equal(t, "AL", AuthUser{Metadata: UserMetadata{FullName: "ada lovelace byron"}}.Initials())
	assert.Equal(t, "A", AuthUser{Metadata: UserMetadata{UserName: "ada"}}.Initials())
	assert.Equal(t, "U", AuthUser{}.Initials())
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	session := &Session{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, session.Expired(now))
	assert.True(t, session.Expired(now.Add(time.Minute)))
}

func TestUserProjection(t *testing.T) {
	user := NewUser(42, "octocat")
	user.Name = "The Octocat"
	user.Email = "octo@example.com"
	user.ProfilePicture = "https://avatars.example.com/42"

	projected := user.AuthUser()

	assert.Equal(t, user.ID.String(), projected.ID)
	assert.Equal(t, "octo@example.com", projected.Email)
	assert.Equal(t, "The Octocat", projected.Metadata.FullName)
	assert.Equal(t, "octocat", projected.Metadata.UserName)
	assert.Equal(t, "https://avatars.example.com/42", projected.Metadata.AvatarURL)
	assert.False(t, user.HasGitLabToken())
}

func TestPaginationNormalize(t *testing.T) {
	assert.Equal(t, PaginationParams{Page: 1, PerPage: 10}, PaginationParams{}.Normalize())
	assert.Equal(t, PaginationParams{Page: 3, PerPage: 50}, PaginationParams{Page: 3, PerPage: 50}.Normalize())
}

func TestParseVisibility(t *testing.T) {
	for _, value := range []string{"private", "internal", "public"} {
		visibility, err := ParseVisibility(value)
		assert.NoError(t, err)
		assert.Equal(t, Visibility(value), visibility)
	}

	for _, value := range []string{"", "publc", "secret", "PUBLIC"} {
		visibility, err := ParseVisibility(value)
		assert.ErrorIs(t, err, ErrInvalidVisibility, value)
		assert.Empty(t, visibility)
	}
}
