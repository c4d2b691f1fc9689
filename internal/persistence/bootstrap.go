package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/bug-tracker/internal/auth"
	"github.com/spec-kit/bug-tracker/internal/config"
	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/repository"
)

// EnsureAdminUser seeds the bootstrap admin account when it does not exist,
// so a fresh deployment always has a way in.
func EnsureAdminUser(ctx context.Context, store repository.Store, cfg config.BootstrapConfig, bcryptCost int, logger *zap.Logger) error {
	if cfg.AdminUsername == "" {
		return nil
	}

	_, err := store.Users().GetByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword, bcryptCost)
	if err != nil {
		return err
	}

	admin := &domain.User{
		ID:           domain.NewID(),
		Username:     cfg.AdminUsername,
		DisplayName:  cfg.AdminDisplayName,
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
	}
	if err := store.Users().Create(ctx, admin); err != nil {
		return err
	}

	logger.Info("bootstrap admin created", zap.String("username", cfg.AdminUsername))
	return nil
}
