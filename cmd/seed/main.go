package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/tailms-api/internal/models"
	"github.com/noah-isme/tailms-api/internal/repository"
	"github.com/noah-isme/tailms-api/pkg/config"
	"github.com/noah-isme/tailms-api/pkg/database"
	"github.com/noah-isme/tailms-api/pkg/logger"
)

type seedAccount struct {
	email    string
	password string
	role     models.UserRole
	status   models.UserStatus
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, logr); err != nil {
		logr.Fatal("migrations failed", zap.Error(err))
	}

	users := repository.NewUserRepository(db)
	accounts := []seedAccount{
		{email: cfg.Seed.AdminEmail, password: cfg.Seed.AdminPassword, role: models.RoleAdmin, status: models.UserStatusActive},
		{email: cfg.Seed.StudentEmail, password: cfg.Seed.StudentPassword, role: models.RoleStudent, status: models.UserStatusActive},
		{email: cfg.Seed.PendingEmail, password: cfg.Seed.StudentPassword, role: models.RoleStudent, status: models.UserStatusPending},
	}

	for _, acc := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(acc.password), bcrypt.DefaultCost)
		if err != nil {
			logr.Fatal("hash password", zap.Error(err))
		}
		created, err := users.CreateIfMissing(ctx, &models.User{
			Email:        acc.email,
			PasswordHash: string(hash),
			Role:         acc.role,
			Status:       acc.status,
		})
		if err != nil {
			logr.Fatal("seed user failed", zap.String("email", acc.email), zap.Error(err))
		}
		logr.Info("seed user", zap.String("email", acc.email), zap.String("role", string(acc.role)), zap.Bool("created", created))
	}
}
