package repository

import (
	"context"
	"errors"

	"sectrain_backend/internal/model"
	"sectrain_backend/internal/util"

	"gorm.io/gorm"
)

type TenantRepository struct {
	DB *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{DB: db}
}

func (r *TenantRepository) Create(ctx context.Context, tenant *model.Tenant) error {
	return r.DB.WithContext(ctx).Create(tenant).Error
}

func (r *TenantRepository) FindByID(ctx context.Context, id string) (*model.Tenant, error) {
	var t model.Tenant
	err := r.DB.WithContext(ctx).First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &util.NotFoundError{Entity: "tenant", ID: id}
		}
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) FindBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	var t model.Tenant
	err := r.DB.WithContext(ctx).First(&t, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &util.NotFoundError{Entity: "tenant", ID: slug}
		}
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) Update(ctx context.Context, tenant *model.Tenant) error {
	return r.DB.WithContext(ctx).Save(tenant).Error
}

func (r *TenantRepository) List(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	err := r.DB.WithContext(ctx).Order("created_at asc").Find(&tenants).Error
	return tenants, err
}
