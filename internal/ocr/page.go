package ocr

import (
	"context"
	"fmt"
	"image"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

var segmentationModes = []int{PSMUniformBlock, PSMSparseText, PSMColumns}

// recoverPages runs recoverPage over every image, at most cfg.PageWorkers at
// a time, and returns the texts in page order.
func (e *Extractor) recoverPages(ctx context.Context, images []image.Image) ([]string, []string) {
	texts := make([]string, len(images))
	var (
		mu    sync.Mutex
		warns []string
	)

	var g errgroup.Group
	g.SetLimit(e.cfg.PageWorkers)
	for i, img := range images {
		g.Go(func() error {
			txt, w := e.recoverPage(ctx, img)
			texts[i] = txt
			if len(w) > 0 {
				mu.Lock()
				for _, s := range w {
					warns = append(warns, fmt.Sprintf("page %d: %s", i+1, s))
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return texts, warns
}

// recoverPage cleans up one page image and returns the longest of the
// recognitions made under each segmentation mode.
func (e *Extractor) recoverPage(ctx context.Context, img image.Image) (text string, warns []string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("page recovery panic", "panic", r)
			text, warns = "", append(warns, fmt.Sprintf("panic: %v", r))
		}
	}()
	if img == nil {
		return "", []string{"page image unavailable"}
	}

	var work image.Image = median3(autoContrast(toGray(img)))
	work = upscale(work, e.cfg.MinOCRDimension)

	if angle, err := e.rec.DetectRotation(ctx, work); err != nil {
		e.logger.Debug("orientation detection skipped", "error", err)
	} else if angle != 0 {
		work = rotate(work, -angle)
	}

	page := toGray(work)
	if t, err := otsuThreshold(page); err != nil {
		warns = append(warns, err.Error())
	} else {
		page = binarize(page, t)
	}

	best, bestLen := "", 0
	for _, psm := range segmentationModes {
		if ctx.Err() != nil {
			warns = append(warns, ctx.Err().Error())
			break
		}
		txt, err := e.rec.Recognize(ctx, page, e.cfg.TesseractLang, psm)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		if n := utf8.RuneCountInString(txt); n > bestLen {
			best, bestLen = txt, n
		}
	}
	return Normalize(best), warns
}
