// Package ocr provides the page-by-page rasterize-then-recognize
// fallback the ingestion pipeline invokes when a PDF's embedded text
// extraction yields too little text to index.
package ocr

import "context"

// Page is one OCR'd page.
type Page struct {
	PageNumber int
	Text       string
}

// Progress reports OCR advancement: the page just finished, the total
// page count, and running character output.
type Progress func(page, total, charsSoFar int)

// Adapter performs OCR over a PDF's page images, processing one page at
// a time and releasing that page's rasterized image before starting the
// next — a strict per-page bound on resident memory, never the whole
// document's images at once.
type Adapter interface {
	Process(ctx context.Context, pdfBytes []byte, progress Progress) ([]Page, error)
}

// NativePage is one page's result from the PDF's embedded-text
// extraction, before any OCR decision is made.
type NativePage struct {
	PageNumber int
	Text       string
}

// NeedsOCR applies the gating rule: average characters-per-page below 50
// over at least 3 pages, or — for very short documents — fewer than 100
// characters total.
func NeedsOCR(pages []NativePage) bool {
	total := 0
	for _, p := range pages {
		total += len(p.Text)
	}
	if len(pages) >= 3 {
		avg := float64(total) / float64(len(pages))
		return avg < 50
	}
	return total < 100
}
