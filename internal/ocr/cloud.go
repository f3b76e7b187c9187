package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ruleoracle/internal/apperr"
)

// CloudAdapter calls an external OCR HTTP endpoint one page at a time,
// never holding more than one page's worth of decoded image data in
// memory at once. The vendor is fixed only through config
// (OCR_BASE_URL/OCR_CREDENTIALS); any cloud OCR service behind the same
// request/response envelope works.
type CloudAdapter struct {
	BaseURL     string
	Credentials string
	HTTPClient  *http.Client
}

func NewCloudAdapter(baseURL, credentials string) *CloudAdapter {
	return &CloudAdapter{
		BaseURL:     baseURL,
		Credentials: credentials,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

type ocrPageRequest struct {
	PDF  []byte `json:"pdf"`
	Page int    `json:"page"`
}

type ocrPageResponse struct {
	Text      string `json:"text"`
	PageCount int    `json:"page_count"`
}

// Process rasterizes and recognizes pdfBytes one page at a time against
// the configured cloud OCR endpoint, reporting progress after each page.
func (a *CloudAdapter) Process(ctx context.Context, pdfBytes []byte, progress Progress) ([]Page, error) {
	if a.Credentials == "" {
		return nil, apperr.New(apperr.KindCorpus, "ocr_unavailable", "no OCR credentials configured")
	}

	first, err := a.processPage(ctx, pdfBytes, 1)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCorpus, "ocr_unavailable", "OCR transport failure", err)
	}
	total := first.PageCount
	if total < 1 {
		total = 1
	}

	out := make([]Page, 0, total)
	charsSoFar := len(first.Text)
	out = append(out, Page{PageNumber: 1, Text: first.Text})
	if progress != nil {
		progress(1, total, charsSoFar)
	}

	for page := 2; page <= total; page++ {
		resp, err := a.processPage(ctx, pdfBytes, page)
		if err != nil {
			return out, apperr.Wrap(apperr.KindCorpus, "ocr_unavailable", "OCR transport failure", err)
		}
		charsSoFar += len(resp.Text)
		out = append(out, Page{PageNumber: page, Text: resp.Text})
		if progress != nil {
			progress(page, total, charsSoFar)
		}
	}
	return out, nil
}

func (a *CloudAdapter) processPage(ctx context.Context, pdfBytes []byte, page int) (ocrPageResponse, error) {
	body, err := json.Marshal(ocrPageRequest{PDF: pdfBytes, Page: page})
	if err != nil {
		return ocrPageResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/ocr/page", bytes.NewReader(body))
	if err != nil {
		return ocrPageResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.Credentials)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return ocrPageResponse{}, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ocrPageResponse{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return ocrPageResponse{}, fmt.Errorf("ocr: status %d: %s", resp.StatusCode, raw)
	}
	var r ocrPageResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return ocrPageResponse{}, err
	}
	return r, nil
}
