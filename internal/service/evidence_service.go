package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"sectrain_backend/internal/model"
	"sectrain_backend/internal/repository"
	"sectrain_backend/internal/util"
	"sectrain_backend/internal/workflow"
)

// EvidenceService assembles the immutable compliance attestation for a
// terminal session. It only ever creates evidence; nothing updates or
// re-hashes a record after the single write.
type EvidenceService struct {
	Sessions *repository.SessionRepository
	Modules  *repository.ModuleRepository
	Evidence *repository.EvidenceRepository
	Audit    *AuditService
}

func NewEvidenceService(
	sessions *repository.SessionRepository,
	modules *repository.ModuleRepository,
	evidence *repository.EvidenceRepository,
	audit *AuditService,
) *EvidenceService {
	return &EvidenceService{Sessions: sessions, Modules: modules, Evidence: evidence, Audit: audit}
}

// CanonicalJSON serializes v with stable key ordering and no incidental
// whitespace, independent of struct field order in memory: marshal,
// decode into generic maps, marshal again (encoding/json sorts map
// keys).
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// ComputeContentHash is the SHA-256 over the canonical JSON form of the
// evidence body. Re-hashing the same logical content always reproduces
// the same digest.
func ComputeContentHash(body model.EvidenceBody) (string, error) {
	canonical, err := CanonicalJSON(body)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Generate builds the evidence record for a terminal session. It is
// idempotent per session: an existing record is returned unchanged with
// no further reads or writes.
func (s *EvidenceService) Generate(ctx context.Context, tenant *model.Tenant, policy model.TrainingPolicy, sessionID string) (*model.TrainingEvidence, error) {
	existing, err := s.Evidence.FindBySessionID(ctx, tenant.ID, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	session, err := s.Sessions.FindByID(ctx, tenant.ID, sessionID)
	if err != nil {
		return nil, err
	}
	if !workflow.IsTerminalSession(session.Status) {
		return nil, &util.ExpectedTerminalStateError{SessionID: sessionID, Status: string(session.Status)}
	}

	modules, err := s.Modules.FindBySession(ctx, tenant.ID, sessionID)
	if err != nil {
		return nil, err
	}

	body := buildEvidenceBody(session, modules, policy)
	hash, err := ComputeContentHash(body)
	if err != nil {
		return nil, err
	}

	evidence := &model.TrainingEvidence{
		TenantID:    tenant.ID,
		SessionID:   sessionID,
		Body:        body,
		ContentHash: hash,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.Evidence.Create(ctx, evidence); err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, model.AuditEvent{
		TenantID:   tenant.ID,
		EmployeeID: session.EmployeeID,
		SessionID:  sessionID,
		EventType:  "evidence.generated",
		Outcome:    string(session.Status),
		Count:      len(modules),
	})
	return evidence, nil
}

// buildEvidenceBody projects session and modules into the attestation,
// stripping rubric text and answer keys. Modules that never recorded
// content or scores appear with a nil score and empty item lists;
// incomplete training still produces evidence.
func buildEvidenceBody(session *model.TrainingSession, modules []model.TrainingModule, policy model.TrainingPolicy) model.EvidenceBody {
	body := model.EvidenceBody{
		Summary: model.EvidenceSummary{
			SessionID:     session.ID,
			TenantID:      session.TenantID,
			EmployeeID:    session.EmployeeID,
			RoleProfileID: session.RoleProfileID,
			Status:        string(session.Status),
			AttemptNumber: session.AttemptNumber,
			StartedAt:     session.CreatedAt.UTC(),
			CompletedAt:   session.CompletedAt,
		},
		Policy: model.PolicyAttestation{
			ConfigHash:         session.ConfigHash,
			PassThreshold:      policy.PassThreshold,
			MaxAttempts:        policy.MaxAttempts,
			RoleProfileVersion: session.RoleProfileVersion,
			AppVersion:         session.AppVersion,
		},
		Outcome: model.EvidenceOutcome{
			AggregateScore: session.AggregateScore,
			WeakAreas:      append([]string{}, session.WeakAreas...),
		},
	}
	if session.AggregateScore != nil {
		passed := IsPassing(*session.AggregateScore, policy.PassThreshold)
		body.Outcome.Passed = &passed
	}

	body.Modules = make([]model.EvidenceModule, 0, len(modules))
	for _, m := range modules {
		em := model.EvidenceModule{
			ModuleIndex: m.ModuleIndex,
			Title:       m.Title,
			TopicArea:   m.TopicArea,
			Status:      string(m.Status),
			ModuleScore: m.ModuleScore,
			Scenarios:   []model.EvidenceScenarioItem{},
			Quiz:        []model.EvidenceQuizItem{},
		}
		if m.Content != nil {
			situations := make(map[string]string, len(m.Content.Scenarios))
			for _, sc := range m.Content.Scenarios {
				situations[sc.ID] = sc.Situation
			}
			for _, r := range m.ScenarioResponses {
				em.Scenarios = append(em.Scenarios, model.EvidenceScenarioItem{
					ScenarioID: r.ScenarioID,
					Situation:  situations[r.ScenarioID],
					Response:   r.Response,
					Score:      r.Score,
					Rationale:  r.Rationale,
				})
			}

			answered := make(map[string]model.QuizAnswer, len(m.QuizAnswers))
			for _, a := range m.QuizAnswers {
				answered[a.QuestionID] = a
			}
			for _, q := range m.Content.Quiz {
				answer, ok := answered[q.ID]
				if !ok {
					continue
				}
				item := model.EvidenceQuizItem{
					QuestionID:       q.ID,
					Question:         q.Question,
					SelectedOptionID: answer.SelectedOptionID,
					Score:            answer.Score,
				}
				for _, opt := range q.Options {
					item.Options = append(item.Options, model.EvidenceQuizOption{ID: opt.ID, Text: opt.Text})
				}
				em.Quiz = append(em.Quiz, item)
			}
		}
		body.Modules = append(body.Modules, em)
	}
	return body
}

func (s *EvidenceService) Get(ctx context.Context, tenantID, evidenceID string) (*model.TrainingEvidence, error) {
	return s.Evidence.FindByID(ctx, tenantID, evidenceID)
}

func (s *EvidenceService) GetBySession(ctx context.Context, tenantID, sessionID string) (*model.TrainingEvidence, error) {
	evidence, err := s.Evidence.FindBySessionID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if evidence == nil {
		return nil, &util.NotFoundError{Entity: "training_evidence", ID: sessionID}
	}
	return evidence, nil
}

// VerifyHash recomputes the content hash over the stored body and
// compares it to the persisted digest.
func (s *EvidenceService) VerifyHash(ctx context.Context, tenantID, evidenceID string) (bool, error) {
	evidence, err := s.Evidence.FindByID(ctx, tenantID, evidenceID)
	if err != nil {
		return false, err
	}
	hash, err := ComputeContentHash(evidence.Body)
	if err != nil {
		return false, err
	}
	return hash == evidence.ContentHash, nil
}
