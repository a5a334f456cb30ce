// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskdash/internal/database"
	"github.com/yukikurage/taskdash/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database. A single connection is
// kept open so every query sees the same in-memory schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with a throwaway password hash
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateOrganization inserts an organization owned by ownerID
func CreateOrganization(t *testing.T, db *gorm.DB, name string, ownerID uint64) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Name:       name,
		InviteCode: name + "_CODE",
	}
	require.NoError(t, db.Create(org).Error)
	AddMember(t, db, org.ID, ownerID, models.RoleOwner)
	return org
}

// AddMember inserts an organization membership
func AddMember(t *testing.T, db *gorm.DB, orgID, userID uint64, role models.OrganizationRole) {
	t.Helper()

	member := &models.OrganizationMember{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		JoinedAt:       time.Now(),
	}
	require.NoError(t, db.Create(member).Error)
}

// CreateTask inserts a task due tomorrow
func CreateTask(t *testing.T, db *gorm.DB, name string, orgID uint64) *models.Task {
	t.Helper()

	description := "Description of " + name
	task := &models.Task{
		Name:           name,
		Description:    &description,
		DueDate:        time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second),
		OrganizationID: orgID,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

// CreateTasks inserts count tasks named prefix1..prefixN in order
func CreateTasks(t *testing.T, db *gorm.DB, prefix string, count int, orgID uint64) []*models.Task {
	t.Helper()

	tasks := make([]*models.Task, 0, count)
	for i := 1; i <= count; i++ {
		tasks = append(tasks, CreateTask(t, db, fmt.Sprintf("%s%d", prefix, i), orgID))
	}
	return tasks
}
