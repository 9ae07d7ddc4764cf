package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alimgiray/perfguide/internal/models"
	"github.com/alimgiray/perfguide/internal/repositories"
)

// ErrEmptyGitLabToken is returned when connecting GitLab without a token
var ErrEmptyGitLabToken = errors.New("GitLab API token is required")

// GitHubProfile is the subset of a GitHub account used to provision users
type GitHubProfile struct {
	ID          int64
	Login       string
	Name        string
	Email       string
	AvatarURL   string
	AccessToken string
}

type UserService struct {
	userRepo *repositories.UserRepository
}

func NewUserService(userRepo *repositories.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(id string) (*models.User, error) {
	return s.userRepo.GetByID(id)
}

// UpsertGitHubUser creates the user on first sign-in and refreshes the
// profile and GitHub token on later ones
func (s *UserService) UpsertGitHubUser(profile GitHubProfile) (*models.User, error) {
	user, err := s.userRepo.GetByGitHubID(profile.ID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		user = models.NewUser(profile.ID, profile.Login)
		applyProfile(user, profile)
		if err := s.userRepo.Create(user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return user, nil
	case err != nil:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	applyProfile(user, profile)
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func applyProfile(user *models.User, profile GitHubProfile) {
	user.Username = profile.Login
	user.Name = profile.Name
	user.Email = profile.Email
	user.ProfilePicture = profile.AvatarURL
	user.GitHubAccessToken = profile.AccessToken
}

// ConnectGitLab stores the GitLab personal access token for a user
func (s *UserService) ConnectGitLab(userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyGitLabToken
	}
	return s.userRepo.UpdateGitLabToken(userID, token)
}

// DisconnectGitLab forgets the user's GitLab token
func (s *UserService) DisconnectGitLab(userID string) error {
	return s.userRepo.UpdateGitLabToken(userID, "")
}
