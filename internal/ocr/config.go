package ocr

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Lang        string // tesseract language spec, default "eng+hin"
	TessdataDir string
	PSM         int // tesseract page segmentation mode; 0 leaves tesseract's default

	// DPI used to rasterize PDF pages; 144 is twice the PDF's 72 dpi user space.
	DPI int

	// MinEmbeddedChars is the trimmed length embedded PDF text must exceed
	// before the OCR pass is skipped.
	MinEmbeddedChars int

	// MinImageWidth: narrower images are upscaled before OCR.
	MinImageWidth int
}

func (c Config) withDefaults() Config {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Lang == "" {
		c.Lang = "eng+hin"
	}
	if c.DPI <= 0 {
		c.DPI = 144
	}
	if c.MinEmbeddedChars <= 0 {
		c.MinEmbeddedChars = 20
	}
	if c.MinImageWidth <= 0 {
		c.MinImageWidth = 1000
	}
	return c
}
