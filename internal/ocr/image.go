package ocr

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/gst-invoices/constants"
	"github.com/joseph-ayodele/gst-invoices/internal/common"
)

// prepareImage decodes a photographed or scanned invoice and writes an
// OCR-friendly PNG into dir: grayscale, upscaled when narrow, mild contrast.
func prepareImage(content []byte, dir string, minWidth int) (string, error) {
	src, err := imaging.Decode(bytes.NewReader(content), imaging.AutoOrientation(true))
	if err != nil {
		return "", common.InvalidInputf("decode image: %v", err)
	}

	img := imaging.Grayscale(src)
	if w := img.Bounds().Dx(); w > 0 && w < minWidth {
		img = imaging.Resize(img, minWidth, 0, imaging.Lanczos)
	}
	img = imaging.AdjustContrast(img, 20)

	out := filepath.Join(dir, "page.png")
	if err := imaging.Save(img, out); err != nil {
		return "", err
	}
	return out, nil
}

func (e *Extractor) recoverImage(ctx context.Context, content []byte) (Result, error) {
	res := Result{SourceType: constants.IMAGE, Method: MethodImageOCR, Pages: 1}

	tmpDir, err := os.MkdirTemp("", "gst-img-*")
	if err != nil {
		return res, err
	}
	defer e.removeAll(tmpDir)

	path, err := prepareImage(content, tmpDir, e.cfg.MinImageWidth)
	if err != nil {
		return res, err
	}
	if err := e.recognizer.Check(); err != nil {
		return res, err
	}
	txt, err := e.recognizer.Recognize(ctx, path)
	if err != nil {
		return res, err
	}
	res.Text = Normalize(txt)
	return res, nil
}
