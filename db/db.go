package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sidhant-sriv/homie-api/auth"
	"github.com/sidhant-sriv/homie-api/config"
	"github.com/sidhant-sriv/homie-api/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the postgres store.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Open(postgres.Open(cfg.DSN()), cfg.Debug)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Open wraps gorm.Open with the settings every dialect shares. Driver errors
// are translated so duplicate keys surface as gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector, debug bool) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Silent)
	if debug {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		// users are referenced through UserSummary, which is not migrated itself
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// MakeMigration creates or updates every table.
func MakeMigration(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.SavedProperty{},
		&models.Application{},
		&models.MaintenanceRequest{},
		&models.Transaction{},
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// SeedAdmin makes sure an admin account exists for email. Admins cannot
// register through the API. It is a no-op when email is empty or the account
// already exists.
func SeedAdmin(ctx context.Context, db *gorm.DB, email, password string, cost int) (bool, error) {
	if email == "" {
		return false, nil
	}
	if password == "" {
		return false, errors.New("admin password is required when an admin email is set")
	}

	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("look up admin: %w", err)
	}

	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	admin := models.User{Name: "Administrator", Email: email, Password: hash, Role: models.RoleAdmin}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
