// Package testutil provides an in-memory database and fixtures for tests
package testutil

import (
	"testing"
	"time"

	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/pkg/password"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// UserPassword is the plain password of every fixture user
const UserPassword = "password123"

// NewDB opens a migrated in-memory SQLite database private to t
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	// Every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))

	prev := password.SetCost(bcrypt.MinCost)
	t.Cleanup(func() { password.SetCost(prev) })

	return db
}

// Region is a seeded municipality with two barangays
type Region struct {
	Municipality models.Municipality
	Barangay     models.Barangay
	Other        models.Barangay
}

// SeedRegion creates one municipality with two barangays
func SeedRegion(t *testing.T, db *gorm.DB) Region {
	t.Helper()

	r := Region{Municipality: models.Municipality{Name: "Santa Maria"}}
	require.NoError(t, db.Create(&r.Municipality).Error)

	r.Barangay = models.Barangay{Name: "Poblacion", MunicipalityID: r.Municipality.ID}
	require.NoError(t, db.Create(&r.Barangay).Error)

	r.Other = models.Barangay{Name: "San Jose", MunicipalityID: r.Municipality.ID}
	require.NoError(t, db.Create(&r.Other).Error)

	return r
}

// CreateUser inserts a verified active user with role in barangayID
func CreateUser(t *testing.T, db *gorm.DB, username, role string, barangayID *uint) *models.User {
	t.Helper()

	hashed, err := password.Hash(UserPassword)
	require.NoError(t, err)

	user := &models.User{
		Username:   username,
		Email:      username + "@example.com",
		Password:   hashed,
		FirstName:  username,
		Role:       role,
		Status:     "active",
		BarangayID: barangayID,
		IsVerified: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
