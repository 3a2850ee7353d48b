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

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// SessionPatch carries the mutable fields of a session update. Nil
// pointers are left untouched; ClearOutcome nulls the previous attempt's
// aggregate score and weak areas when remediation restarts.
type SessionPatch struct {
	Status         *workflow.SessionState
	AttemptNumber  *int
	Curriculum     *model.Curriculum
	AggregateScore *float64
	WeakAreas      []string
	CompletedAt    *time.Time
	ClearOutcome   bool
}

func (p *SessionPatch) apply(s *model.TrainingSession) {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.AttemptNumber != nil {
		s.AttemptNumber = *p.AttemptNumber
	}
	if p.Curriculum != nil {
		s.Curriculum = p.Curriculum
	}
	if p.AggregateScore != nil {
		s.AggregateScore = p.AggregateScore
	}
	if p.WeakAreas != nil {
		s.WeakAreas = p.WeakAreas
	}
	if p.CompletedAt != nil {
		s.CompletedAt = p.CompletedAt
	}
	if p.ClearOutcome {
		s.AggregateScore = nil
		s.WeakAreas = nil
	}
}

// CreateSession persists a new session after re-checking, inside one
// transaction, that the employee has no other non-terminal session.
func (r *SessionRepository) CreateSession(ctx context.Context, session *model.TrainingSession) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []model.TrainingSession
		if err := tx.Where("tenant_id = ? AND employee_id = ?", session.TenantID, session.EmployeeID).
			Find(&existing).Error; err != nil {
			return err
		}
		for i := range existing {
			if !workflow.IsTerminalSession(existing[i].Status) {
				return util.ErrActiveSessionExists
			}
		}
		return tx.Create(session).Error
	})
}

// FindActiveSession returns the employee's single non-terminal session,
// or nil. Terminal filtering happens here over the full result set; the
// query layer cannot express a "not in" over the terminal status set
// without encoding the state tables into SQL.
func (r *SessionRepository) FindActiveSession(ctx context.Context, tenantID, employeeID string) (*model.TrainingSession, error) {
	var sessions []model.TrainingSession
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND employee_id = ?", tenantID, employeeID).
		Order("created_at desc").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if !workflow.IsTerminalSession(sessions[i].Status) {
			return &sessions[i], nil
		}
	}
	return nil, nil
}

func (r *SessionRepository) FindByID(ctx context.Context, tenantID, id string) (*model.TrainingSession, error) {
	var s model.TrainingSession
	err := r.DB.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &util.NotFoundError{Entity: "training_session", ID: id}
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) FindSessionHistory(ctx context.Context, tenantID, employeeID string) ([]model.TrainingSession, error) {
	var sessions []model.TrainingSession
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND employee_id = ?", tenantID, employeeID).
		Order("created_at asc").
		Find(&sessions).Error
	return sessions, err
}

// DeleteSession removes a session outright. Only the curriculum
// generation rollback uses this, before any module exists.
func (r *SessionRepository) DeleteSession(ctx context.Context, tenantID, id string) error {
	return r.DB.WithContext(ctx).Unscoped().
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&model.TrainingSession{}).Error
}

// UpdateSession performs the read-check-write sequence inside one
// transaction. The re-read detects missing rows and stale versions up
// front; the version guard on the UPDATE itself closes the remaining
// window between two writers that both read version N.
func (r *SessionRepository) UpdateSession(ctx context.Context, tenantID, id string, patch SessionPatch, expectedVersion int) (*model.TrainingSession, error) {
	var updated model.TrainingSession
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur model.TrainingSession
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).First(&cur).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Missing row and stale version fail the same way.
				return &util.VersionConflictError{Entity: "training_session", ID: id}
			}
			return err
		}
		if cur.Version != expectedVersion {
			return &util.VersionConflictError{Entity: "training_session", ID: id}
		}

		patch.apply(&cur)
		cur.Version = expectedVersion + 1
		cur.UpdatedAt = time.Now()

		res := tx.Model(&model.TrainingSession{}).
			Where("tenant_id = ? AND id = ? AND version = ?", tenantID, id, expectedVersion).
			Select("*").Omit("id", "created_at", "deleted_at").
			Updates(&cur)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &util.VersionConflictError{Entity: "training_session", ID: id}
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
