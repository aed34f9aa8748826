package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/gst-invoices/constants"
)

// AllowedExt checks if a file extension is one the pipeline accepts.
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// OutputName is the JSON file written for a source document. The source
// extension is kept so inv.pdf and inv.png do not collide.
func OutputName(sourcePath string) string {
	return filepath.Base(sourcePath) + ".json"
}
