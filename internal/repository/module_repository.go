package repository

import (
	"context"
	"errors"
	"time"

	"sectrain_backend/internal/model"
	"sectrain_backend/internal/util"
	"sectrain_backend/internal/workflow"

	"gorm.io/gorm"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

// ModulePatch mirrors SessionPatch for module updates. Responses and
// answers replace the stored slices wholesale; append semantics live in
// the service layer, which always writes the full accumulated slice.
type ModulePatch struct {
	Status            *workflow.ModuleState
	Content           *model.ModuleContent
	ScenarioResponses []model.ScenarioResponse
	QuizAnswers       []model.QuizAnswer
	ModuleScore       *float64
	ClearContent      bool
}

func (p *ModulePatch) apply(m *model.TrainingModule) {
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.Content != nil {
		m.Content = p.Content
	}
	if p.ScenarioResponses != nil {
		m.ScenarioResponses = p.ScenarioResponses
	}
	if p.QuizAnswers != nil {
		m.QuizAnswers = p.QuizAnswers
	}
	if p.ModuleScore != nil {
		m.ModuleScore = p.ModuleScore
	}
	if p.ClearContent {
		m.Content = nil
	}
}

func (r *ModuleRepository) CreateModules(ctx context.Context, modules []model.TrainingModule) error {
	if len(modules) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&modules).Error
}

// ReplaceModules swaps a session's module set atomically, used when a
// remediation curriculum restarts the session.
func (r *ModuleRepository) ReplaceModules(ctx context.Context, tenantID, sessionID string, modules []model.TrainingModule) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
			Delete(&model.TrainingModule{}).Error; err != nil {
			return err
		}
		if len(modules) == 0 {
			return nil
		}
		return tx.Create(&modules).Error
	})
}

func (r *ModuleRepository) FindBySession(ctx context.Context, tenantID, sessionID string) ([]model.TrainingModule, error) {
	var modules []model.TrainingModule
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
		Order("module_index asc").
		Find(&modules).Error
	return modules, err
}

func (r *ModuleRepository) FindModule(ctx context.Context, tenantID, sessionID string, moduleIndex int) (*model.TrainingModule, error) {
	var m model.TrainingModule
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND session_id = ? AND module_index = ?", tenantID, sessionID, moduleIndex).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &util.NotFoundError{Entity: "training_module", ID: sessionID}
		}
		return nil, err
	}
	return &m, nil
}

// UpdateModule applies the same transactional read-check-write as
// UpdateSession. See there for why the version guard appears twice.
func (r *ModuleRepository) UpdateModule(ctx context.Context, tenantID, id string, patch ModulePatch, expectedVersion int) (*model.TrainingModule, error) {
	var updated model.TrainingModule
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur model.TrainingModule
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).First(&cur).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &util.VersionConflictError{Entity: "training_module", ID: id}
			}
			return err
		}
		if cur.Version != expectedVersion {
			return &util.VersionConflictError{Entity: "training_module", ID: id}
		}

		patch.apply(&cur)
		cur.Version = expectedVersion + 1
		cur.UpdatedAt = time.Now()

		res := tx.Model(&model.TrainingModule{}).
			Where("tenant_id = ? AND id = ? AND version = ?", tenantID, id, expectedVersion).
			Select("*").Omit("id", "created_at", "deleted_at").
			Updates(&cur)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &util.VersionConflictError{Entity: "training_module", ID: id}
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
