package repositories

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/alimgiray/perfguide/internal/models"
	"github.com/alimgiray/perfguide/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, repo *UserRepository, githubID int64, username string) *models.User {
	t.Helper()
	user := models.NewUser(githubID, username)
	user.Name = "Test " + username
	user.Email = username + "@example.com"
	require.NoError(t, repo.Create(user))
	return user
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	user := createUser(t, repo, 7, "octocat")

	t.Run("Get by id", func(t *testing.T) {
		found, err := repo.GetByID(user.ID.String())
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.Equal(t, "octocat", found.Username)
		assert.Equal(t, "octocat@example.com", found.Email)
	})

	t.Run("Get by GitHub id", func(t *testing.T) {
		found, err := repo.GetByGitHubID(7)
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("Missing user", func(t *testing.T) {
		_, err := repo.GetByGitHubID(8)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Update profile", func(t *testing.T) {
		user.Name = "Renamed"
		user.GitHubAccessToken = "gho_new"
		require.NoError(t, repo.Update(user))

		found, err := repo.GetByID(user.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "Renamed", found.Name)
		assert.Equal(t, "gho_new", found.GitHubAccessToken)
	})

	t.Run("GitLab token", func(t *testing.T) {
		require.NoError(t, repo.UpdateGitLabToken(user.ID.String(), "glpat-123"))
		found, err := repo.GetByID(user.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "glpat-123", found.GitLabToken)

		require.NoError(t, repo.UpdateGitLabToken(user.ID.String(), ""))
		found, err = repo.GetByID(user.ID.String())
		require.NoError(t, err)
		assert.False(t, found.HasGitLabToken())
	})

	t.Run("Token for unknown user", func(t *testing.T) {
		assert.ErrorIs(t, repo.UpdateGitLabToken("missing", "x"), ErrNotFound)
	})
}

func TestSessionRepository(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	sessions := NewSessionRepository(db)
	user := createUser(t, users, 1, "ada")

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, sessions.Create(&SessionRecord{
		Token:     "live",
		UserID:    user.ID.String(),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, sessions.Create(&SessionRecord{
		Token:     "stale",
		UserID:    user.ID.String(),
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}))

	t.Run("Load with user", func(t *testing.T) {
		record, err := sessions.GetByToken("live")
		require.NoError(t, err)
		assert.Equal(t, user.ID, record.User.ID)
		assert.Equal(t, "ada", record.User.Username)
		assert.True(t, record.ExpiresAt.Equal(now.Add(time.Hour)))
	})

	t.Run("Extend", func(t *testing.T) {
		require.NoError(t, sessions.Extend("live", now.Add(3*time.Hour)))
		record, err := sessions.GetByToken("live")
		require.NoError(t, err)
		assert.True(t, record.ExpiresAt.Equal(now.Add(3*time.Hour)))

		assert.ErrorIs(t, sessions.Extend("missing", now), ErrNotFound)
	})

	t.Run("Purge expired", func(t *testing.T) {
		n, err := sessions.DeleteExpired(now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = sessions.GetByToken("stale")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, sessions.Delete("live"))
		_, err := sessions.GetByToken("live")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, sessions.Delete("live"))
	})
}
