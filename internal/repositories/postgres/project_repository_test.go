package postgres

import (
	"context"
	"testing"

	"stream-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *ProjectRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive for the whole test
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Project{}, &models.ProjectMember{}))
	return NewProjectRepository(db)
}

func TestProjectRepository_IsProjectMember(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(&models.Project{ID: "proj-9", Title: "Launch"}))
	require.NoError(t, repo.AddMember("proj-9", "u1", "owner"))

	member, err := repo.IsProjectMember(ctx, "proj-9", "u1")
	require.NoError(t, err)
	assert.True(t, member)

	member, err = repo.IsProjectMember(ctx, "proj-9", "u2")
	require.NoError(t, err)
	assert.False(t, member)

	member, err = repo.IsProjectMember(ctx, "proj-missing", "u1")
	require.NoError(t, err)
	assert.False(t, member)
}

func TestProjectRepository_MembershipChangesAreSeenImmediately(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(&models.Project{ID: "proj-1"}))
	require.NoError(t, repo.AddMember("proj-1", "u1", "member"))
	require.NoError(t, repo.AddMember("proj-1", "u2", "member"))

	ids, err := repo.GetMemberIDs("proj-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, ids)

	require.NoError(t, repo.RemoveMember("proj-1", "u1"))

	member, err := repo.IsProjectMember(ctx, "proj-1", "u1")
	require.NoError(t, err)
	assert.False(t, member)
}

func TestProjectRepository_SyncMembers(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(&models.Project{ID: "proj-launch"}))
	require.NoError(t, repo.SyncMembers("proj-launch", map[string]string{"admin": "owner", "alice": "member", "bob": "member"}))

	ids, err := repo.GetMemberIDs("proj-launch")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "alice", "bob"}, ids)

	// Re-running with bob dropped and carol added revokes bob
	require.NoError(t, repo.SyncMembers("proj-launch", map[string]string{"admin": "owner", "alice": "member", "carol": "member"}))

	ids, err = repo.GetMemberIDs("proj-launch")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "alice", "carol"}, ids)

	member, err := repo.IsProjectMember(ctx, "proj-launch", "bob")
	require.NoError(t, err)
	assert.False(t, member)
}
