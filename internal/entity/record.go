package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/gst-invoices/constants"
)

// InvoiceRecord is the stored view of one uploaded document.
type InvoiceRecord struct {
	ID          uuid.UUID               `json:"id"`
	Filename    string                  `json:"filename"`
	ContentType string                  `json:"content_type"`
	BlobPath    string                  `json:"-"`
	Status      constants.InvoiceStatus `json:"status"`
	Error       string                  `json:"error,omitempty"`
	Result      *InvoiceResult          `json:"result,omitempty"`
	IsCorrected bool                    `json:"is_corrected"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}
