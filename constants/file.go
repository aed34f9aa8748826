package constants

import (
	"bytes"
	"strings"
)

const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// AllowedExtensions holds the file extensions accepted for invoice upload.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
}

var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"bmp":  "image/bmp",
}

var pdfMagic = []byte("%PDF-")

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// IsAllowedExt reports whether ext (with or without the dot) can be uploaded.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// ContentTypeForExt returns the MIME type for a file extension,
// or application/octet-stream when unknown.
func ContentTypeForExt(ext string) string {
	if ct, ok := contentTypes[NormalizeExt(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ExtForContentType is the inverse of ContentTypeForExt. Returns "" when unknown.
func ExtForContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "application/pdf":
		return "pdf"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/tiff":
		return "tiff"
	case "image/bmp":
		return "bmp"
	}
	return ""
}

// DetectFormat classifies a document as PDF or IMAGE from its content-type
// hint, file extension and leading bytes, in that order. Anything that is
// not recognisably a PDF is treated as an image.
func DetectFormat(contentType, ext string, head []byte) string {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return PDF
	}
	if NormalizeExt(ext) == "pdf" {
		return PDF
	}
	if bytes.HasPrefix(head, pdfMagic) {
		return PDF
	}
	return IMAGE
}
