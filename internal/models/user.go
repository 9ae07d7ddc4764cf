package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the persisted account behind a GitHub sign-in
type User struct {
	ID                uuid.UUID
	GitHubID          int64
	Name              string
	Username          string
	Email             string
	ProfilePicture    string
	GitHubAccessToken string
	GitLabToken       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewUser creates a User with a generated UUID
func NewUser(githubID int64, username string) *User {
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New(),
		GitHubID:  githubID,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasGitLabToken reports whether the user connected a GitLab account
func (u *User) HasGitLabToken() bool {
	return u.GitLabToken != ""
}

// AuthUser projects the account onto the read-only user record carried by sessions
func (u *User) AuthUser() AuthUser {
	return AuthUser{
		ID:    u.ID.String(),
		Email: u.Email,
		Metadata: UserMetadata{
			AvatarURL: u.ProfilePicture,
			FullName:  u.Name,
			UserName:  u.Username,
		},
	}
}
