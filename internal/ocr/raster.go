package ocr

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/sunshineplan/imgconv"
)

// Rasterizer renders every page of a PDF to an image.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, dpi int) ([]image.Image, error)
}

type popplerRasterizer struct {
	bin      string
	maxPages int
	runner   Runner
}

func (p *popplerRasterizer) Rasterize(ctx context.Context, path string, dpi int) ([]image.Image, error) {
	tmpDir, err := os.MkdirTemp("", "perdcomp-pp-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(dpi), "-png"}
	if p.maxPages > 0 {
		args = append(args, "-l", strconv.Itoa(p.maxPages))
	}
	args = append(args, path, prefix)

	// pdftoppm -r 450 -png <in.pdf> <tmp/page>
	if _, errb, err := p.runner.Run(ctx, p.bin, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	// pdftoppm zero-pads page numbers to a common width, so lexical order is page order
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}

	images := make([]image.Image, 0, len(matches))
	for _, m := range matches {
		img, err := decodeFile(m)
		if err != nil {
			// keep page positions stable; an undecodable page recovers as ""
			images = append(images, nil)
			continue
		}
		images = append(images, img)
	}
	return images, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return imgconv.Decode(f)
}
