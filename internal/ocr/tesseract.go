package ocr

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/disintegration/imaging"
)

// Recognizer is the text-recognition capability the pipeline needs.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, lang string, psm int) (string, error)
	// DetectRotation returns the clockwise angle, in degrees, the engine
	// would rotate the image by to make it upright.
	DetectRotation(ctx context.Context, img image.Image) (float64, error)
}

var reOSDRotate = regexp.MustCompile(`(?m)^Rotate:\s*(-?\d+(?:\.\d+)?)`)

type tesseractRecognizer struct {
	bin         string
	tessdataDir string
	runner      Runner
}

func (t *tesseractRecognizer) Recognize(ctx context.Context, img image.Image, lang string, psm int) (string, error) {
	path, cleanup, err := writeTempPNG(img)
	if err != nil {
		return "", err
	}
	defer cleanup()

	// tesseract <file> stdout -l <lang> --psm <n>
	args := []string{path, "stdout", "-l", lang, "--psm", strconv.Itoa(psm)}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.bin, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract psm %d: %w: %s", psm, err, truncate(string(errb), 512))
	}
	return string(out), nil
}

func (t *tesseractRecognizer) DetectRotation(ctx context.Context, img image.Image) (float64, error) {
	path, cleanup, err := writeTempPNG(img)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	// tesseract <file> stdout --psm 0
	args := []string{path, "stdout", "--psm", "0"}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.bin, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract osd: %w: %s", err, truncate(string(errb), 512))
	}
	return parseOSDRotation(string(out))
}

func parseOSDRotation(out string) (float64, error) {
	m := reOSDRotate.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("osd output has no rotation")
	}
	return strconv.ParseFloat(m[1], 64)
}

func writeTempPNG(img image.Image) (string, func(), error) {
	dir, err := os.MkdirTemp("", "perdcomp-ocr-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	path := filepath.Join(dir, "page.png")
	if err := imaging.Save(img, path); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write page image: %w", err)
	}
	return path, cleanup, nil
}
