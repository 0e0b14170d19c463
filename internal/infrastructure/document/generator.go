package document

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Generator produces the invoice document attached to a reminder
// notification and returns a reference to it.
type Generator interface {
	Generate(ctx context.Context, invoiceID uuid.UUID) (string, error)
}

// RefGenerator returns a stable storage reference for the invoice
// without rendering anything. Rendering backends plug in behind the
// Generator interface.
type RefGenerator struct {
	logger *zap.Logger
}

// NewRefGenerator creates a new RefGenerator
func NewRefGenerator(logger *zap.Logger) *RefGenerator {
	return &RefGenerator{logger: logger}
}

// Generate returns the document reference for the invoice
func (g *RefGenerator) Generate(_ context.Context, invoiceID uuid.UUID) (string, error) {
	ref := fmt.Sprintf("documents/invoices/%s.pdf", invoiceID)
	g.logger.Debug("invoice document reference resolved",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("document_ref", ref),
	)
	return ref, nil
}

// Ensure RefGenerator implements Generator
var _ Generator = (*RefGenerator)(nil)
