package constants

// InvoiceStatus is the lifecycle state of a stored invoice.
type InvoiceStatus string

// Stable values (store these exact strings in DB).
const (
	InvoiceStatusUploaded    InvoiceStatus = "UPLOADED"
	InvoiceStatusProcessing  InvoiceStatus = "PROCESSING"
	InvoiceStatusExtracted   InvoiceStatus = "EXTRACTED"
	InvoiceStatusNeedsReview InvoiceStatus = "NEEDS_REVIEW" // extracted with low model confidence
	InvoiceStatusFailed      InvoiceStatus = "FAILED"
)

// IsTerminal reports whether no further processing will happen for s.
func (s InvoiceStatus) IsTerminal() bool {
	switch s {
	case InvoiceStatusExtracted, InvoiceStatusNeedsReview, InvoiceStatusFailed:
		return true
	}
	return false
}
