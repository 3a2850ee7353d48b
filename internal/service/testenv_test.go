package service

import (
	"context"
	"testing"
	"time"

	"sectrain_backend/internal/model"
	"sectrain_backend/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubGenerator serves fixed content so lifecycle tests run without a
// provider. Errors are injectable per call site.
type stubGenerator struct {
	curriculum     *model.Curriculum
	remediation    *model.Curriculum
	content        *model.ModuleContent
	curriculumErr  error
	remediationErr error
	contentErr     error
	contentCalls   int
}

func (g *stubGenerator) GenerateCurriculum(ctx context.Context, profile *model.RoleProfile, maxModules int) (*model.Curriculum, error) {
	if g.curriculumErr != nil {
		return nil, g.curriculumErr
	}
	return g.curriculum, nil
}

func (g *stubGenerator) GenerateRemediationCurriculum(ctx context.Context, weakAreas []string, profile *model.RoleProfile, maxModules int) (*model.Curriculum, error) {
	if g.remediationErr != nil {
		return nil, g.remediationErr
	}
	return g.remediation, nil
}

func (g *stubGenerator) GenerateModuleContent(ctx context.Context, outline model.ModuleOutline, profile *model.RoleProfile) (*model.ModuleContent, error) {
	g.contentCalls++
	if g.contentErr != nil {
		return nil, g.contentErr
	}
	return g.content, nil
}

func twoModuleCurriculum() *model.Curriculum {
	return &model.Curriculum{
		GeneratedAt: time.Now().UTC(),
		Modules: []model.ModuleOutline{
			{Title: "Phishing Basics", TopicArea: "phishing", JobExpectationIndices: []int{0}},
			{Title: "Credential Hygiene", TopicArea: "passwords", JobExpectationIndices: []int{1}},
		},
	}
}

func standardContent() *model.ModuleContent {
	return &model.ModuleContent{
		Instruction: "Read the material, then work the scenario and quiz.",
		Scenarios: []model.Scenario{
			{ID: "s1", Situation: "An urgent invoice email arrives.", Prompt: "What do you do?", Rubric: "Mentions verifying the sender."},
		},
		Quiz: []model.QuizQuestion{
			{ID: "q1", Question: "Best response to a suspicious link?", Options: []model.QuizOption{
				{ID: "q1-0", Text: "Click it", Correct: false},
				{ID: "q1-1", Text: "Report it", Correct: true},
			}},
			{ID: "q2", Question: "Who to notify?", Options: []model.QuizOption{
				{ID: "q2-0", Text: "Security team", Correct: true},
				{ID: "q2-1", Text: "Nobody", Correct: false},
			}},
		},
	}
}

type testEnv struct {
	db       *gorm.DB
	tenant   *model.Tenant
	policy   model.TrainingPolicy
	profile  *model.RoleProfile
	sessions *repository.SessionRepository
	modules  *repository.ModuleRepository
	evidence *repository.EvidenceRepository
	uploads  *repository.ComplianceUploadRepository
	tenants  *repository.TenantRepository
	training *TrainingService
	evsvc    *EvidenceService
	gen      *stubGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.Tenant{},
		&model.User{},
		&model.RoleProfile{},
		&model.TrainingSession{},
		&model.TrainingModule{},
		&model.TrainingEvidence{},
		&model.ComplianceUpload{},
		&model.AuditEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &testEnv{
		db:       db,
		sessions: repository.NewSessionRepository(db),
		modules:  repository.NewModuleRepository(db),
		evidence: repository.NewEvidenceRepository(db),
		uploads:  repository.NewComplianceUploadRepository(db),
		tenants:  repository.NewTenantRepository(db),
		gen: &stubGenerator{
			curriculum:  twoModuleCurriculum(),
			remediation: twoModuleCurriculum(),
			content:     standardContent(),
		},
	}

	env.tenant = &model.Tenant{Name: "Acme", Slug: "acme", ConfigHash: "cfg-hash-1"}
	if err := env.tenants.Create(context.Background(), env.tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	env.policy = model.TrainingPolicy{PassThreshold: 0.70, MaxAttempts: 3, MaxModules: 6}

	profiles := repository.NewRoleProfileRepository(db)
	env.profile = &model.RoleProfile{
		TenantID:        env.tenant.ID,
		Name:            "Engineer",
		Version:         1,
		JobExpectations: []string{"Handles customer data", "Reviews third-party code"},
	}
	if err := profiles.Create(context.Background(), env.profile); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	audit := NewAuditService(repository.NewAuditRepository(db))
	scoring := NewScoringService(&stubEvaluator{score: 0.9, rationale: "ok"})
	env.training = NewTrainingService(env.sessions, env.modules, profiles, scoring, env.gen, audit, "test")
	env.evsvc = NewEvidenceService(env.sessions, env.modules, env.evidence, audit)
	return env
}

// completeModule drives one module from locked through scored with the
// stub generator's standard content.
func (env *testEnv) completeModule(t *testing.T, sessionID string, index int) {
	t.Helper()
	ctx := context.Background()

	if _, err := env.training.GenerateModuleContent(ctx, env.tenant, sessionID, index); err != nil {
		t.Fatalf("generate content for module %d: %v", index, err)
	}
	if _, err := env.training.StartScenario(ctx, env.tenant, sessionID, index); err != nil {
		t.Fatalf("start scenario for module %d: %v", index, err)
	}
	if _, err := env.training.SubmitScenarioResponse(ctx, env.tenant, sessionID, index, "s1", "I would verify the sender first."); err != nil {
		t.Fatalf("submit scenario for module %d: %v", index, err)
	}
	_, err := env.training.SubmitQuizAnswers(ctx, env.tenant, env.policy, sessionID, index, []QuizSubmission{
		{QuestionID: "q1", SelectedOptionID: "q1-1"},
		{QuestionID: "q2", SelectedOptionID: "q2-0"},
	})
	if err != nil {
		t.Fatalf("submit quiz for module %d: %v", index, err)
	}
}
