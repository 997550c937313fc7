// Command seed prepares the database schema and bootstraps the instance
// superadmin from SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD.
package main

import (
	"log"
	"os"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"appforge-controlplane/pkg/config"
	"appforge-controlplane/pkg/db"
	"appforge-controlplane/pkg/gen"
	"appforge-controlplane/pkg/logger"
	"appforge-controlplane/services/ability"
	"appforge-controlplane/services/app"
	"appforge-controlplane/services/audit"
	"appforge-controlplane/services/license"
	"appforge-controlplane/services/organization"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		gen.Module,
		db.Module,
		fx.Invoke(seed),
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

func seed(sd fx.Shutdowner, gdb *gorm.DB, node *snowflake.Node) error {
	defer sd.Shutdown()

	if err := gdb.AutoMigrate(
		&organization.User{},
		&organization.Organization{},
		&organization.OrganizationUser{},
		&license.License{},
		&app.App{},
		&audit.AuditLog{},
	); err != nil {
		return err
	}

	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		zap.L().Info("schema migrated, no superadmin seeded")
		return nil
	}

	var count int64
	if err := gdb.Model(&organization.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		zap.L().Info("superadmin already exists", zap.String("email", email))
		return nil
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &organization.User{
		ID:             node.Generate().String(),
		Email:          email,
		PasswordDigest: string(digest),
		Type:           ability.UserTypeInstance,
	}
	if err := gdb.Create(user).Error; err != nil {
		return err
	}

	zap.L().Info("superadmin seeded", zap.String("email", email))
	return nil
}
