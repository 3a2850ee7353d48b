package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sectrain_backend/internal/config"
	"sectrain_backend/internal/model"
	"sectrain_backend/internal/util"
)

// scriptedProvider returns its results in order, then repeats the last
// one. Every call is counted.
type scriptedProvider struct {
	refs     []string
	errs     []error
	calls    int
	settings []model.ComplianceSettings
}

func (p *scriptedProvider) Submit(ctx context.Context, settings model.ComplianceSettings, document []byte, contentHash string) (string, error) {
	i := p.calls
	p.calls++
	p.settings = append(p.settings, settings)
	if i >= len(p.errs) {
		i = len(p.errs) - 1
	}
	if p.errs[i] != nil {
		return "", p.errs[i]
	}
	return p.refs[i], nil
}

type stubRenderer struct {
	err   error
	calls int
}

func (r *stubRenderer) Render(evidence *model.TrainingEvidence) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4 stub"), nil
}

type complianceEnv struct {
	*testEnv
	provider *scriptedProvider
	renderer *stubRenderer
	svc      *ComplianceService
	evidence *model.TrainingEvidence
}

func newComplianceEnv(t *testing.T, maxAttempts int) *complianceEnv {
	t.Helper()
	env := newTestEnv(t)
	ctx := context.Background()

	env.tenant.Compliance = model.ComplianceSettings{
		Enabled:         true,
		Provider:        "vanta",
		Endpoint:        "https://compliance.example.com/checks",
		APIKey:          "key",
		WorkflowCheckID: "chk-1",
		MaxAttempts:     maxAttempts,
	}
	if err := env.tenants.Update(ctx, env.tenant); err != nil {
		t.Fatalf("update tenant: %v", err)
	}

	session, err := env.training.StartSession(ctx, env.tenant, env.policy, "emp-1", env.profile.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	env.completeModule(t, session.ID, 0)
	env.completeModule(t, session.ID, 1)
	evidence, err := env.evsvc.Generate(ctx, env.tenant, env.policy, session.ID)
	if err != nil {
		t.Fatalf("generate evidence: %v", err)
	}

	provider := &scriptedProvider{}
	renderer := &stubRenderer{}
	audit := NewAuditService(env.training.Audit.Repo)
	svc := NewComplianceService(
		env.evidence, env.uploads, env.tenants,
		provider, renderer, nil, audit,
		config.ComplianceConfig{DefaultMaxAttempts: 3, DispatchInterval: time.Minute, DispatchBatchSize: 10},
	)
	return &complianceEnv{testEnv: env, provider: provider, renderer: renderer, svc: svc, evidence: evidence}
}

func TestDispatchSucceedsFirstAttempt(t *testing.T) {
	env := newComplianceEnv(t, 3)
	env.provider.errs = []error{nil}
	env.provider.refs = []string{"ref-123"}

	upload, err := env.svc.Dispatch(context.Background(), env.tenant, env.evidence.ID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if upload.Status != model.UploadSucceeded || upload.AttemptCount != 1 {
		t.Fatalf("unexpected record: %+v", upload)
	}
	if upload.ProviderReferenceID != "ref-123" {
		t.Fatalf("expected provider reference, got %q", upload.ProviderReferenceID)
	}
	if env.provider.calls != 1 || env.renderer.calls != 1 {
		t.Fatalf("expected one submit and one render, got %d/%d", env.provider.calls, env.renderer.calls)
	}
}

func TestDispatchRetriesServerErrors(t *testing.T) {
	env := newComplianceEnv(t, 2)
	env.provider.errs = []error{
		&util.UploadError{Code: util.UploadCodeServerError, Retryable: true},
	}
	env.provider.refs = []string{""}

	upload, err := env.svc.Dispatch(context.Background(), env.tenant, env.evidence.ID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if upload.Status != model.UploadFailed {
		t.Fatalf("expected failed, got %s", upload.Status)
	}
	if upload.AttemptCount != 2 || env.provider.calls != 2 {
		t.Fatalf("expected exactly 2 attempts, got record=%d calls=%d", upload.AttemptCount, env.provider.calls)
	}
	if upload.LastErrorCode != util.UploadCodeServerError || !upload.Retryable {
		t.Fatalf("unexpected failure bookkeeping: %+v", upload)
	}
}

func TestDispatchStopsOnAuthFailure(t *testing.T) {
	env := newComplianceEnv(t, 3)
	env.provider.errs = []error{
		&util.UploadError{Code: util.UploadCodeAuthFailed, Retryable: false},
	}
	env.provider.refs = []string{""}

	upload, err := env.svc.Dispatch(context.Background(), env.tenant, env.evidence.ID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if upload.Status != model.UploadFailed || upload.AttemptCount != 1 {
		t.Fatalf("auth failure must stop after one attempt: %+v", upload)
	}
	if env.provider.calls != 1 {
		t.Fatalf("expected one call, got %d", env.provider.calls)
	}
	if upload.LastErrorCode != util.UploadCodeAuthFailed || upload.Retryable {
		t.Fatalf("unexpected failure bookkeeping: %+v", upload)
	}
}

func TestDispatchRecoversOnRetry(t *testing.T) {
	env := newComplianceEnv(t, 3)
	env.provider.errs = []error{
		&util.UploadError{Code: util.UploadCodeNetworkError, Retryable: true},
		nil,
	}
	env.provider.refs = []string{"", "ref-late"}

	upload, err := env.svc.Dispatch(context.Background(), env.tenant, env.evidence.ID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if upload.Status != model.UploadSucceeded || upload.AttemptCount != 2 {
		t.Fatalf("expected success on attempt 2: %+v", upload)
	}
	if upload.ProviderReferenceID != "ref-late" || upload.LastErrorCode != "" {
		t.Fatalf("success must clear error bookkeeping: %+v", upload)
	}
}

func TestDispatchIsIdempotentPerEvidence(t *testing.T) {
	env := newComplianceEnv(t, 3)
	env.provider.errs = []error{nil}
	env.provider.refs = []string{"ref-123"}

	first, err := env.svc.Dispatch(context.Background(), env.tenant, env.evidence.ID)
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	second, err := env.svc.Dispatch(context.Background(), env.tenant, env.evidence.ID)
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same record, got %s and %s", first.ID, second.ID)
	}
	if env.provider.calls != 1 || env.renderer.calls != 1 {
		t.Fatalf("re-dispatch must not contact the provider: %d calls, %d renders", env.provider.calls, env.renderer.calls)
	}
}

func TestDispatchNoopWhenIntegrationDisabled(t *testing.T) {
	env := newComplianceEnv(t, 3)
	env.tenant.Compliance.Enabled = false

	upload, err := env.svc.Dispatch(context.Background(), env.tenant, env.evidence.ID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if upload != nil {
		t.Fatalf("disabled integration must be a no-op, got %+v", upload)
	}
	if env.provider.calls != 0 || env.renderer.calls != 0 {
		t.Fatal("disabled integration must not render or submit")
	}
}

func TestDispatchMissingEvidence(t *testing.T) {
	env := newComplianceEnv(t, 3)

	_, err := env.svc.Dispatch(context.Background(), env.tenant, "no-such-id")
	var upErr *util.UploadError
	if !errors.As(err, &upErr) || upErr.Code != util.UploadCodeEvidenceNotFound || upErr.Retryable {
		t.Fatalf("expected non-retryable EVIDENCE_NOT_FOUND, got %v", err)
	}

	// No delivery record is written for a pre-flight failure.
	record, err := env.uploads.FindByEvidence(context.Background(), env.tenant.ID, "no-such-id", "vanta")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if record != nil {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestDispatchRenderFailure(t *testing.T) {
	env := newComplianceEnv(t, 3)
	env.renderer.err = errors.New("font table corrupt")

	_, err := env.svc.Dispatch(context.Background(), env.tenant, env.evidence.ID)
	var upErr *util.UploadError
	if !errors.As(err, &upErr) || upErr.Code != util.UploadCodePDFRenderFailed || upErr.Retryable {
		t.Fatalf("expected non-retryable PDF_RENDER_FAILED, got %v", err)
	}
	if env.provider.calls != 0 {
		t.Fatal("render failure must not reach the provider")
	}
}

func TestDispatchPendingSweepsUndispatchedEvidence(t *testing.T) {
	env := newComplianceEnv(t, 3)
	env.provider.errs = []error{nil}
	env.provider.refs = []string{"ref-sweep"}

	if err := env.svc.DispatchPending(context.Background()); err != nil {
		t.Fatalf("dispatch pending: %v", err)
	}

	upload, err := env.uploads.FindByEvidence(context.Background(), env.tenant.ID, env.evidence.ID, "vanta")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if upload == nil || upload.Status != model.UploadSucceeded {
		t.Fatalf("sweep did not dispatch: %+v", upload)
	}

	// A second sweep finds nothing left to do.
	if err := env.svc.DispatchPending(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if env.provider.calls != 1 {
		t.Fatalf("expected one provider call total, got %d", env.provider.calls)
	}
}
