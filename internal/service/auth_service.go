package service

import (
	"context"
	"errors"

	"sectrain_backend/internal/config"
	"sectrain_backend/internal/model"
	"sectrain_backend/internal/repository"
	"sectrain_backend/internal/util"
	"sectrain_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService struct {
	Users   *repository.UserRepository
	Tenants *TenantService
	JWT     config.JWTConfig
}

func NewAuthService(users *repository.UserRepository, tenants *TenantService, jwtCfg config.JWTConfig) *AuthService {
	return &AuthService{Users: users, Tenants: tenants, JWT: jwtCfg}
}

// Register creates a user inside the tenant identified by slug. Email
// uniqueness is scoped per tenant by the database index.
func (s *AuthService) Register(ctx context.Context, tenantSlug, email, password, name string, role model.UserRole) (*model.User, error) {
	tenant, err := s.Tenants.GetBySlug(ctx, tenantSlug)
	if err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		TenantID: tenant.ID,
		Email:    email,
		Password: string(hashed),
		Name:     name,
		Role:     role,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates within a single tenant and issues a JWT carrying
// the tenant and role claims the middleware scopes every request by.
func (s *AuthService) Login(ctx context.Context, tenantSlug, email, password string) (string, *model.User, error) {
	tenant, err := s.Tenants.GetBySlug(ctx, tenantSlug)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.Users.FindByEmail(ctx, tenant.ID, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.JWT.Secret, s.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}

	if err := s.Users.UpdateLastSeen(user.ID); err != nil {
		logger.Log.Warn("last seen update failed", zap.String("userId", user.ID), zap.Error(err))
	}
	return token, user, nil
}

func (s *AuthService) GetUser(ctx context.Context, tenantID, userID string) (*model.User, error) {
	return s.Users.FindByID(ctx, tenantID, userID)
}

func (s *AuthService) ListUsers(ctx context.Context, tenantID string, page, limit int) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Users.ListByTenant(ctx, tenantID, page, limit)
}
