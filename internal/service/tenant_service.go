package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"sectrain_backend/internal/config"
	"sectrain_backend/internal/model"
	"sectrain_backend/internal/repository"
	"sectrain_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const tenantCacheTTL = 5 * time.Minute

// TenantService loads tenants and resolves their effective training
// policy against the platform defaults. Tenant reads sit on every
// request path, so they go through a short-lived redis cache.
type TenantService struct {
	Tenants  *repository.TenantRepository
	Redis    *redis.Client
	Defaults config.TrainingConfig
}

func NewTenantService(tenants *repository.TenantRepository, rdb *redis.Client, defaults config.TrainingConfig) *TenantService {
	return &TenantService{Tenants: tenants, Redis: rdb, Defaults: defaults}
}

func (s *TenantService) Get(ctx context.Context, tenantID string) (*model.Tenant, error) {
	if s.Redis != nil {
		key := "tenant:" + tenantID
		if raw, err := s.Redis.Get(ctx, key).Result(); err == nil {
			var tenant model.Tenant
			if err := json.Unmarshal([]byte(raw), &tenant); err == nil {
				return &tenant, nil
			}
		}
	}

	tenant, err := s.Tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, tenant)
	return tenant, nil
}

func (s *TenantService) GetBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	return s.Tenants.FindBySlug(ctx, slug)
}

func (s *TenantService) List(ctx context.Context) ([]model.Tenant, error) {
	return s.Tenants.List(ctx)
}

func (s *TenantService) cache(ctx context.Context, tenant *model.Tenant) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(tenant)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, "tenant:"+tenant.ID, raw, tenantCacheTTL).Err(); err != nil {
		logger.Log.Warn("tenant cache write failed", zap.String("tenantId", tenant.ID), zap.Error(err))
	}
}

func (s *TenantService) invalidate(ctx context.Context, tenantID string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, "tenant:"+tenantID).Err(); err != nil {
		logger.Log.Warn("tenant cache invalidate failed", zap.String("tenantId", tenantID), zap.Error(err))
	}
}

// ResolvePolicy merges the tenant's overrides over the platform
// defaults. Zero values mean "not set" and fall through.
func (s *TenantService) ResolvePolicy(tenant *model.Tenant) model.TrainingPolicy {
	policy := model.TrainingPolicy{
		PassThreshold: s.Defaults.PassThreshold,
		MaxAttempts:   s.Defaults.MaxAttempts,
		MaxModules:    s.Defaults.MaxModules,
	}
	if tenant.Policy.PassThreshold > 0 {
		policy.PassThreshold = tenant.Policy.PassThreshold
	}
	if tenant.Policy.MaxAttempts > 0 {
		policy.MaxAttempts = tenant.Policy.MaxAttempts
	}
	if tenant.Policy.MaxModules > 0 {
		policy.MaxModules = tenant.Policy.MaxModules
	}
	return policy
}

// ComputeConfigHash digests the resolved policy so evidence can attest
// which configuration governed a session.
func ComputeConfigHash(policy model.TrainingPolicy) string {
	canonical := fmt.Sprintf("passThreshold=%.4f;maxAttempts=%d;maxModules=%d",
		policy.PassThreshold, policy.MaxAttempts, policy.MaxModules)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func (s *TenantService) Create(ctx context.Context, tenant *model.Tenant) error {
	tenant.ConfigHash = ComputeConfigHash(s.ResolvePolicy(tenant))
	return s.Tenants.Create(ctx, tenant)
}

// UpdatePolicy replaces the tenant's policy overrides, refreshes the
// config hash, and drops the cache entry.
func (s *TenantService) UpdatePolicy(ctx context.Context, tenantID string, policy model.TrainingPolicy) (*model.Tenant, error) {
	tenant, err := s.Tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	tenant.Policy = policy
	tenant.ConfigHash = ComputeConfigHash(s.ResolvePolicy(tenant))
	if err := s.Tenants.Update(ctx, tenant); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenantID)
	return tenant, nil
}

// UpdateCompliance replaces the tenant's compliance integration
// settings and drops the cache entry.
func (s *TenantService) UpdateCompliance(ctx context.Context, tenantID string, settings model.ComplianceSettings) (*model.Tenant, error) {
	tenant, err := s.Tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	tenant.Compliance = settings
	if err := s.Tenants.Update(ctx, tenant); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenantID)
	return tenant, nil
}
