package user_management

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/domain/entity"
	domainerror "github.com/fixora/gatekeeper/domain/error"
	"github.com/fixora/gatekeeper/infrastructure/service/logger"
)

// DemoIdentities are the development accounts.
var DemoIdentities = []inbound.SeedIdentity{
	{Username: "admin", Email: "admin@example.com", Password: "admin123", Roles: []entity.RoleName{entity.RoleAdmin, entity.RoleUser}},
	{Username: "user", Email: "user@example.com", Password: "user123", Roles: []entity.RoleName{entity.RoleUser}},
}

// SeedUseCase creates missing seed identities. Existing identities, and
// their passwords, are left untouched.
type SeedUseCase struct {
	userRepo    outbound.UserRepository
	passwordSvc outbound.PasswordService
	logger      logger.Logger
	now         func() time.Time
}

func NewSeedUseCase(userRepo outbound.UserRepository, passwordSvc outbound.PasswordService, log logger.Logger, now func() time.Time) *SeedUseCase {
	return &SeedUseCase{userRepo: userRepo, passwordSvc: passwordSvc, logger: log, now: now}
}

func (uc *SeedUseCase) Execute(ctx context.Context, seeds []inbound.SeedIdentity) (int, error) {
	created := 0
	for _, seed := range seeds {
		email := normalizeEmail(seed.Email)

		_, err := uc.userRepo.FindByEmail(ctx, email)
		if err == nil {
			uc.logger.Debug(ctx, "Seed identity exists, skipping", map[string]interface{}{"email": email})
			continue
		}
		if !errors.Is(err, outbound.ErrUserNotFound) {
			return created, domainerror.ErrInternalServerError("failed to look up seed identity", err)
		}
		if _, err := uc.userRepo.FindByUsername(ctx, seed.Username); err == nil {
			uc.logger.Warn(ctx, "Seed username taken by another identity, skipping", map[string]interface{}{"username": seed.Username})
			continue
		}

		hash, err := uc.passwordSvc.HashPassword(seed.Password)
		if err != nil {
			return created, domainerror.ErrInternalServerError("failed to hash seed password", err)
		}

		identity := entity.NewIdentity(uuid.NewString(), seed.Username, email, hash, entity.NewRoleSet(seed.Roles...), uc.now())
		if err := uc.userRepo.Save(ctx, identity); err != nil {
			if errors.Is(err, outbound.ErrUserAlreadyExists) {
				continue
			}
			return created, domainerror.ErrInternalServerError("failed to save seed identity", err)
		}

		uc.logger.Info(ctx, "Seed identity created", map[string]interface{}{
			"username": seed.Username,
			"roles":    identity.Roles.Names(),
		})
		created++
	}
	return created, nil
}
