package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"sectrain_backend/internal/model"
	"sectrain_backend/internal/util"
)

// ComplianceProvider delivers a rendered evidence document to an
// external compliance system. Submit classifies every failure into a
// UploadError so the orchestrator never inspects transport details.
type ComplianceProvider interface {
	Submit(ctx context.Context, settings model.ComplianceSettings, document []byte, contentHash string) (string, error)
}

type providerSubmission struct {
	WorkflowCheckID string `json:"workflowCheckId"`
	ContentHash     string `json:"contentHash"`
	ContentType     string `json:"contentType"`
	Document        string `json:"document"`
}

type providerAcceptance struct {
	ReferenceID string `json:"referenceId"`
}

// HTTPComplianceProvider posts the document to the tenant's configured
// endpoint as base64 inside a JSON envelope.
type HTTPComplianceProvider struct {
	client *http.Client
}

func NewHTTPComplianceProvider() *HTTPComplianceProvider {
	return &HTTPComplianceProvider{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *HTTPComplianceProvider) Submit(ctx context.Context, settings model.ComplianceSettings, document []byte, contentHash string) (string, error) {
	payload, err := json.Marshal(providerSubmission{
		WorkflowCheckID: settings.WorkflowCheckID,
		ContentHash:     contentHash,
		ContentType:     util.MimePDF,
		Document:        base64.StdEncoding.EncodeToString(document),
	})
	if err != nil {
		return "", &util.UploadError{Code: util.UploadCodeNetworkError, Retryable: false, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, settings.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &util.UploadError{Code: util.UploadCodeNetworkError, Retryable: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+settings.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &util.UploadError{Code: util.UploadCodeNetworkError, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &util.UploadError{
			Code:      util.UploadCodeAuthFailed,
			Retryable: false,
			Err:       fmt.Errorf("provider rejected credentials with status %d", resp.StatusCode),
		}
	case resp.StatusCode >= 500:
		return "", &util.UploadError{
			Code:      util.UploadCodeServerError,
			Retryable: true,
			Err:       fmt.Errorf("provider returned status %d", resp.StatusCode),
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", &util.UploadError{
			Code:      util.UploadCodeServerError,
			Retryable: false,
			Err:       fmt.Errorf("provider returned status %d", resp.StatusCode),
		}
	}

	var acceptance providerAcceptance
	if err := json.NewDecoder(resp.Body).Decode(&acceptance); err != nil {
		return "", &util.UploadError{
			Code:      util.UploadCodeServerError,
			Retryable: true,
			Err:       fmt.Errorf("provider acceptance unreadable: %w", err),
		}
	}
	return acceptance.ReferenceID, nil
}
