package repositories

import (
	"database/sql"
	"errors"
	"time"

	"github.com/alimgiray/perfguide/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

const userColumns = `id, github_id, name, username, email, profile_picture, github_access_token, gitlab_token, created_at, updated_at`

// Create creates a new user
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		user.ID.String(),
		user.GitHubID,
		user.Name,
		user.Username,
		user.Email,
		user.ProfilePicture,
		user.GitHubAccessToken,
		user.GitLabToken,
		user.CreatedAt.UTC(),
		user.UpdatedAt.UTC(),
	)
	return err
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(r.db.QueryRow(query, id))
}

// GetByGitHubID retrieves a user by the numeric GitHub account id
func (r *UserRepository) GetByGitHubID(githubID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE github_id = ?`
	return scanUser(r.db.QueryRow(query, githubID))
}

// Update updates a user's profile and tokens
func (r *UserRepository) Update(user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE users
		SET name = ?, username = ?, email = ?, profile_picture = ?, github_access_token = ?, gitlab_token = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		user.Name,
		user.Username,
		user.Email,
		user.ProfilePicture,
		user.GitHubAccessToken,
		user.GitLabToken,
		user.UpdatedAt,
		user.ID.String(),
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// UpdateGitLabToken stores or clears the user's GitLab personal access token
func (r *UserRepository) UpdateGitLabToken(id, token string) error {
	result, err := r.db.Exec(`UPDATE users SET gitlab_token = ?, updated_at = ? WHERE id = ?`,
		token, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var userID string
	err := row.Scan(
		&userID,
		&user.GitHubID,
		&user.Name,
		&user.Username,
		&user.Email,
		&user.ProfilePicture,
		&user.GitHubAccessToken,
		&user.GitLabToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	user.ID, err = uuid.Parse(userID)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
