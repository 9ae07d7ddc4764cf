package repositories

import (
	"database/sql"
	"errors"
	"time"

	"github.com/alimgiray/perfguide/internal/models"
	"github.com/google/uuid"
)

// SessionRecord is a stored session joined with its owner
type SessionRecord struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	User      *models.User
}

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{
		db: db,
	}
}

// Create stores a new session
func (r *SessionRepository) Create(record *SessionRecord) error {
	_, err := r.db.Exec(`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		record.Token, record.UserID, record.CreatedAt.UTC(), record.ExpiresAt.UTC())
	return err
}

// GetByToken loads a session together with its user
func (r *SessionRepository) GetByToken(token string) (*SessionRecord, error) {
	query := `
		SELECT s.token, s.user_id, s.created_at, s.expires_at,
		       u.github_id, u.name, u.username, u.email, u.profile_picture,
		       u.github_access_token, u.gitlab_token, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = ?
	`

	var record SessionRecord
	user := &models.User{}
	err := r.db.QueryRow(query, token).Scan(
		&record.Token,
		&record.UserID,
		&record.CreatedAt,
		&record.ExpiresAt,
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

	user.ID, err = uuid.Parse(record.UserID)
	if err != nil {
		return nil, err
	}
	record.User = user

	return &record, nil
}

// Extend moves a session's expiry forward
func (r *SessionRepository) Extend(token string, expiresAt time.Time) error {
	result, err := r.db.Exec(`UPDATE sessions SET expires_at = ? WHERE token = ?`, expiresAt.UTC(), token)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(token string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// DeleteExpired removes sessions that expired before the given time
func (r *SessionRepository) DeleteExpired(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
