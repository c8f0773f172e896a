package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sunshineplan/imgconv"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
)

// Page segmentation modes tried on every page, in order.
const (
	PSMUniformBlock = 6
	PSMSparseText   = 11
	PSMColumns      = 4
)

// Config names the external engines and tunes the OCR fallback.
type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "por"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 450
	MaxPages      int // 0 = no limit

	// MinOCRDimension is the side length below which pages are upscaled 2x.
	MinOCRDimension int // default 2000
	PageWorkers     int // default 2
}

// ExtractOptions controls a single ExtractText call.
type ExtractOptions struct {
	ForceOCR bool
}

// RecoveredText is the best plain-text rendition of one document.
// An empty Text means nothing was recognized; it is not an error.
type RecoveredText struct {
	Text       string
	Source     constants.TextSource
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Empty reports whether nothing was recovered.
func (r RecoveredText) Empty() bool { return strings.TrimSpace(r.Text) == "" }

type Extractor struct {
	cfg    Config
	text   TextLayer
	raster Rasterizer
	rec    Recognizer
	logger *slog.Logger
}

type Option func(*Extractor)

func WithTextLayer(t TextLayer) Option {
	return func(e *Extractor) {
		if t != nil {
			e.text = t
		}
	}
}

func WithRasterizer(r Rasterizer) Option {
	return func(e *Extractor) {
		if r != nil {
			e.raster = r
		}
	}
}

func WithRecognizer(r Recognizer) Option {
	return func(e *Extractor) {
		if r != nil {
			e.rec = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "por"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 450
	}
	if cfg.MinOCRDimension <= 0 {
		cfg.MinOCRDimension = 2000
	}
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 2
	}
	runner := execRunner{logger: logger}
	e := &Extractor{
		cfg:    cfg,
		text:   pdfTextLayer{},
		raster: &popplerRasterizer{bin: cfg.Pdftoppm, maxPages: cfg.MaxPages, runner: runner},
		rec:    &tesseractRecognizer{bin: cfg.Tesseract, tessdataDir: cfg.TessdataDir, runner: runner},
		logger: logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (RecoveredText, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting text recovery", "path", path, "ext", ext)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		return e.ExtractText(ctx, path, ExtractOptions{}), nil
	case constants.IMAGE:
		return e.extractImage(ctx, path), nil
	default:
		e.logger.Error("unsupported extension", "extension", ext)
		return RecoveredText{}, fmt.Errorf("unsupported extension: %q", ext)
	}
}

// ExtractText returns the embedded text layer of a PDF when it has one and
// falls back to OCR of every rasterized page otherwise. Failures at any
// stage degrade to empty output and are reported in Warnings.
func (e *Extractor) ExtractText(ctx context.Context, path string, opts ExtractOptions) RecoveredText {
	start := time.Now()
	res := RecoveredText{SourceType: constants.PDF, Language: e.cfg.TesseractLang}

	if !opts.ForceOCR {
		pages, err := e.text.PageTexts(path)
		if err != nil {
			e.logger.Warn("native text extraction failed", "path", path, "error", err)
			res.Warnings = append(res.Warnings, "text layer: "+err.Error())
		}
		if txt := strings.TrimSpace(strings.Join(pages, "\n")); txt != "" {
			res.Text = txt
			res.Source = constants.TextSourceNative
			res.Pages = len(pages)
			res.Confidence = heuristicConfidence(txt)
			res.Duration = time.Since(start)
			e.logger.Info("native text recovered", "path", path, "pages", res.Pages, "bytes", len(txt))
			return res
		}
	}

	images, err := e.raster.Rasterize(ctx, path, e.cfg.DPI)
	if err != nil {
		e.logger.Error("rasterization failed", "path", path, "error", err)
		res.Warnings = append(res.Warnings, "rasterize: "+err.Error())
		res.Duration = time.Since(start)
		return res
	}

	texts, warns := e.recoverPages(ctx, images)
	res.Warnings = append(res.Warnings, warns...)
	res.Pages = len(images)
	res.Text = strings.TrimSpace(strings.Join(texts, "\n\n"))
	if res.Text != "" {
		res.Source = constants.TextSourceOCR
		res.Confidence = heuristicConfidence(res.Text)
	}
	res.Duration = time.Since(start)
	e.logger.Info("ocr text recovered", "path", path, "pages", res.Pages, "bytes", len(res.Text), "duration_ms", res.Duration.Milliseconds())
	return res
}

func (e *Extractor) extractImage(ctx context.Context, path string) RecoveredText {
	start := time.Now()
	res := RecoveredText{SourceType: constants.IMAGE, Language: e.cfg.TesseractLang, Pages: 1}

	f, err := os.Open(path)
	if err != nil {
		res.Warnings = append(res.Warnings, "open: "+err.Error())
		return res
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			e.logger.Warn("close image failed", "path", path, "error", err)
		}
	}(f)

	img, err := imgconv.Decode(f)
	if err != nil {
		e.logger.Error("image decode failed", "path", path, "error", err)
		res.Warnings = append(res.Warnings, "decode: "+err.Error())
		return res
	}

	txt, warns := e.recoverPage(ctx, img)
	res.Warnings = append(res.Warnings, warns...)
	res.Text = strings.TrimSpace(txt)
	if res.Text != "" {
		res.Source = constants.TextSourceOCR
		res.Confidence = heuristicConfidence(res.Text)
	}
	res.Duration = time.Since(start)
	return res
}
