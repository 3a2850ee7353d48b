package model

type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadSucceeded UploadStatus = "succeeded"
	UploadFailed    UploadStatus = "failed"
)

// ComplianceUpload tracks delivery of one evidence record to one
// provider. It is the single source of truth for whether evidence was
// ever sent; a terminal record makes re-dispatch a no-op.
// swagger:model
type ComplianceUpload struct {
	UUIDBase
	TenantID            string       `gorm:"index;type:varchar(36);not null" json:"tenantId"`
	EvidenceID          string       `gorm:"uniqueIndex:idx_upload_evidence_provider;type:varchar(36);not null" json:"evidenceId"`
	Provider            string       `gorm:"uniqueIndex:idx_upload_evidence_provider;size:100;not null" json:"provider"`
	Status              UploadStatus `gorm:"size:20;default:'pending'" json:"status"`
	AttemptCount        int          `gorm:"default:0" json:"attemptCount"`
	ProviderReferenceID string       `gorm:"size:255" json:"providerReferenceId,omitempty"`
	LastErrorCode       string       `gorm:"size:50" json:"lastErrorCode,omitempty"`
	LastError           string       `gorm:"type:text" json:"lastError,omitempty"`
	Retryable           bool         `json:"retryable"`
	ArchiveKey          string       `gorm:"size:255" json:"archiveKey,omitempty"`
}

func (ComplianceUpload) TableName() string {
	return "compliance_uploads"
}
