package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/straye-as/enquiry-api/internal/config"
	"github.com/straye-as/enquiry-api/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.ConnectionString()+" TimeZone=UTC"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// HealthCheck pings the database
func HealthCheck(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Ping()
}

// HealthCheckWithStats pings the database and returns connection pool stats
func HealthCheckWithStats(db *gorm.DB) (sql.DBStats, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return sql.DBStats{}, fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return sqlDB.Stats(), err
	}
	return sqlDB.Stats(), nil
}

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&domain.Role{},
		&domain.User{},
		&domain.UserPermission{},
		&domain.Account{},
		&domain.Contact{},
		&domain.Reason{},
		&domain.LeadSource{},
		&domain.Category{},
		&domain.Subcategory{},
		&domain.Enquiry{},
		&domain.EnquiryStageHistory{},
		&domain.ActivityLog{},
		&domain.FollowUp{},
		&domain.NotificationType{},
		&domain.NotificationPreference{},
		&domain.Notification{},
		&domain.NotificationLog{},
	}
}

// AutoMigrate creates tables from the models. Production schemas are
// managed by goose migrations; this is for tests and local sqlite runs.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
