package service

import (
	"bytes"
	"fmt"

	"sectrain_backend/internal/model"

	"github.com/go-pdf/fpdf"
)

// EvidenceRenderer turns an evidence record into the document shipped
// to the compliance provider.
type EvidenceRenderer interface {
	Render(evidence *model.TrainingEvidence) ([]byte, error)
}

// PDFRenderer renders a one-page-per-section attestation PDF.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(evidence *model.TrainingEvidence) ([]byte, error) {
	body := evidence.Body

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Security Training Attestation")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	line := func(format string, args ...interface{}) {
		pdf.Cell(0, 7, fmt.Sprintf(format, args...))
		pdf.Ln(7)
	}

	line("Session: %s", body.Summary.SessionID)
	line("Employee: %s", body.Summary.EmployeeID)
	line("Status: %s (attempt %d)", body.Summary.Status, body.Summary.AttemptNumber)
	if body.Summary.CompletedAt != nil {
		line("Completed: %s", body.Summary.CompletedAt.Format("2006-01-02 15:04:05 UTC"))
	}
	line("Content hash: %s", evidence.ContentHash)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	line("Policy")
	pdf.SetFont("Helvetica", "", 11)
	line("Pass threshold: %.2f, max attempts: %d", body.Policy.PassThreshold, body.Policy.MaxAttempts)
	line("Config hash: %s (app %s, profile v%d)", body.Policy.ConfigHash, body.Policy.AppVersion, body.Policy.RoleProfileVersion)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	line("Outcome")
	pdf.SetFont("Helvetica", "", 11)
	if body.Outcome.AggregateScore != nil {
		line("Aggregate score: %.4f", *body.Outcome.AggregateScore)
	} else {
		line("Aggregate score: not evaluated")
	}
	if body.Outcome.Passed != nil {
		line("Passed: %t", *body.Outcome.Passed)
	}
	if len(body.Outcome.WeakAreas) > 0 {
		line("Weak areas: %v", body.Outcome.WeakAreas)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	line("Modules")
	pdf.SetFont("Helvetica", "", 11)
	for _, m := range body.Modules {
		if m.ModuleScore != nil {
			line("%d. %s [%s] score %.4f", m.ModuleIndex+1, m.Title, m.TopicArea, *m.ModuleScore)
		} else {
			line("%d. %s [%s] not scored", m.ModuleIndex+1, m.Title, m.TopicArea)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
