// Package testutil provides sqlite-backed fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/database"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/seed"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens an isolated in-memory sqlite database with foreign keys
// enforced, migrates every model and seeds roles and the notification taxonomy.
// A single connection is used so transactions serialize like row locks would.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := NewEmptyDB(t)
	require.NoError(t, seed.Apply(context.Background(), db))
	return db
}

// NewEmptyDB is NewTestDB without the seeded defaults
func NewEmptyDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Role returns the seeded role with the given name
func Role(t *testing.T, db *gorm.DB, name domain.UserRoleType) *domain.Role {
	t.Helper()
	var role domain.Role
	require.NoError(t, db.Where("name = ?", name).First(&role).Error)
	return &role
}

// CreateUser inserts an active user with the given role. An empty role leaves
// the user without one.
func CreateUser(t *testing.T, db *gorm.DB, name string, role domain.UserRoleType) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:     name,
		Email:    fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		IsActive: true,
	}
	if role != "" {
		r := Role(t, db, role)
		user.RoleID = &r.ID
		user.Role = r
		user.IsSuperuser = role == domain.RoleSuperuser
	}
	require.NoError(t, db.Omit("Role").Create(user).Error)
	return user
}

// CreateEnquiry inserts an enquiry directly, bypassing the lifecycle engine
func CreateEnquiry(t *testing.T, db *gorm.DB, createdBy *domain.User, mutate ...func(*domain.Enquiry)) *domain.Enquiry {
	t.Helper()
	e := &domain.Enquiry{
		ContactName: "Test Contact",
		PhoneNumber: "+1555" + fmt.Sprintf("%07d", time.Now().UnixNano()%10000000),
		Priority:    domain.PriorityMedium,
		Stage:       domain.StageReceived,
		Status:      domain.StatusNotFulfilled,
	}
	if createdBy != nil {
		e.CreatedByID = &createdBy.ID
	}
	for _, m := range mutate {
		m(e)
	}
	require.NoError(t, db.Create(e).Error)
	return e
}

// CreateFollowUp inserts a follow-up directly with its status derived at now
func CreateFollowUp(t *testing.T, db *gorm.DB, enquiry *domain.Enquiry, owner *domain.User, scheduledAt, now time.Time) *domain.FollowUp {
	t.Helper()
	f := &domain.FollowUp{
		EnquiryID:    enquiry.ID,
		ScheduledAt:  scheduledAt.UTC(),
		Type:         domain.FollowUpCall,
		CreatedByID:  owner.ID,
		AssignedToID: owner.ID,
	}
	f.ApplyDerivedStatus(now)
	require.NoError(t, db.Create(f).Error)
	return f
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
