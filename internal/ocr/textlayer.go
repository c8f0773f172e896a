package ocr

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// TextLayer reads the embedded text of every page of a PDF.
type TextLayer interface {
	PageTexts(path string) ([]string, error)
}

type pdfTextLayer struct{}

// PageTexts returns one string per page. Pages that fail to decode yield "".
func (pdfTextLayer) PageTexts(path string) (pages []string, err error) {
	// the reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		txt, perr := p.GetPlainText(nil)
		if perr != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, txt)
	}
	return pages, nil
}
