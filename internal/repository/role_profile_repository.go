package repository

import (
	"context"
	"errors"

	"sectrain_backend/internal/model"
	"sectrain_backend/internal/util"

	"gorm.io/gorm"
)

type RoleProfileRepository struct {
	DB *gorm.DB
}

func NewRoleProfileRepository(db *gorm.DB) *RoleProfileRepository {
	return &RoleProfileRepository{DB: db}
}

func (r *RoleProfileRepository) Create(ctx context.Context, profile *model.RoleProfile) error {
	return r.DB.WithContext(ctx).Create(profile).Error
}

func (r *RoleProfileRepository) FindByID(ctx context.Context, tenantID, id string) (*model.RoleProfile, error) {
	var p model.RoleProfile
	err := r.DB.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &util.NotFoundError{Entity: "role_profile", ID: id}
		}
		return nil, err
	}
	return &p, nil
}

func (r *RoleProfileRepository) List(ctx context.Context, tenantID string) ([]model.RoleProfile, error) {
	var profiles []model.RoleProfile
	err := r.DB.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at asc").Find(&profiles).Error
	return profiles, err
}

// Update bumps the profile version so in-flight sessions keep pointing
// at the version they were generated from.
func (r *RoleProfileRepository) Update(ctx context.Context, profile *model.RoleProfile) error {
	profile.Version++
	return r.DB.WithContext(ctx).Save(profile).Error
}
