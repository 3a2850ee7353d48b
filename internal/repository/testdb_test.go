package repository

import (
	"testing"

	"sectrain_backend/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory sqlite database so the repository
// contract suite runs without a server. MaxOpenConns(1) keeps every
// transaction on the single shared connection.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.Tenant{},
		&model.User{},
		&model.RoleProfile{},
		&model.TrainingSession{},
		&model.TrainingModule{},
		&model.TrainingEvidence{},
		&model.ComplianceUpload{},
		&model.AuditEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
