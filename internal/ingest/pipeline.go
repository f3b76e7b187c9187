// Package ingest runs the fetch → extract → OCR? → chunk → embed →
// persist pipeline a worker executes for one source, reporting progress
// through the documented percentage bands as it goes.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"ruleoracle/internal/apperr"
	"ruleoracle/internal/chunker"
	"ruleoracle/internal/embedder"
	"ruleoracle/internal/objectstore"
	"ruleoracle/internal/ocr"
	"ruleoracle/internal/queue"
	"ruleoracle/internal/store"
)

// Pipeline owns every collaborator one ingestion run needs. A single
// value is shared by all workers; it carries no per-job state.
type Pipeline struct {
	Sources  *store.SourceRepo
	Chunks   *store.ChunkRepo
	Objects  *objectstore.Store
	Embedder *embedder.Embedder
	OCR      ocr.Adapter
	Queue    *queue.Queue
	Progress *queue.ProgressBus
	Logger   *zap.Logger

	HTTPClient  *http.Client
	ChunkExpiry time.Duration
}

// Args is the enqueued job payload for a kind=ingest job.
type Args struct {
	SourceID int64 `json:"source_id"`
	Force    bool  `json:"force"`
}

// Result is what CompleteIngestion's caller records in the terminal
// progress-bus status.
type Result struct {
	SourceID    int64 `json:"source_id"`
	ChunkCount  int   `json:"chunk_count"`
	OverrideJob bool  `json:"override_job_enqueued"`
}

// Run executes one source's ingestion end to end, writing progress-bus
// updates at the documented bands throughout.
func (p *Pipeline) Run(ctx context.Context, jobID string, args Args) error {
	update := func(state queue.State, pct int, msg string) {
		if err := p.Progress.Update(ctx, jobID, state, pct, msg, nil, ""); err != nil {
			p.Logger.Warn("ingest: progress update failed", zap.Error(err), zap.String("job_id", jobID))
		}
	}

	update(queue.StateQueued, 0, "fetching source record")
	source, err := p.Sources.Get(ctx, args.SourceID)
	if err != nil {
		return p.fail(ctx, jobID, "source_not_found", err)
	}
	update(queue.StateQueued, 5, "source record loaded")

	update(queue.StateDownloading, 5, "downloading document")
	pdfBytes, err := p.download(ctx, source)
	if err != nil {
		return p.fail(ctx, jobID, "download_failed", err)
	}
	update(queue.StateDownloading, 30, "download complete")

	hash := fileHash(pdfBytes)
	if !args.Force && source.FileHash != nil && *source.FileHash == hash {
		update(queue.StateReady, 100, "unchanged file_hash, skipping re-ingestion")
		return p.complete(ctx, jobID, Result{SourceID: source.ID})
	}

	if p.Objects != nil {
		if err := p.Objects.Put(ctx, source.ID, pdfBytes); err != nil {
			p.Logger.Warn("ingest: object store put failed, continuing", zap.Error(err))
		}
	}

	nativePages, err := extractNativeText(pdfBytes)
	if err != nil {
		return p.fail(ctx, jobID, "parse_error", err)
	}
	update(queue.StateExtracting, 50, "native text extraction complete")

	var pages []chunker.Page
	chunkLower, chunkUpper := 50, 60
	if ocr.NeedsOCR(nativePages) {
		update(queue.StateOCR, 50, "native text too sparse, falling back to OCR")
		ocrPages, err := p.runOCR(ctx, jobID, source.ID, pdfBytes)
		if err != nil {
			if errKind, ok := apperr.As(err); ok {
				return p.fail(ctx, jobID, errKind.Code, err)
			}
			return p.fail(ctx, jobID, "needs_ocr", err)
		}
		if totalChars(ocrPages) == 0 {
			return p.fail(ctx, jobID, "needs_ocr", fmt.Errorf("OCR produced no text"))
		}
		pages = ocrPagesToChunkerPages(ocrPages)
		chunkLower, chunkUpper = 80, 85
	} else {
		pages = nativePagesToChunkerPages(nativePages)
	}

	update(queue.StateChunking, chunkLower, "segmenting into chunks")
	chunks := chunker.Document(pages, chunker.DefaultConfig())
	update(queue.StateChunking, chunkUpper, fmt.Sprintf("produced %d chunks", len(chunks)))

	embedLower, embedUpper := 60, 90
	if chunkUpper == 85 {
		embedLower = 85
	}
	update(queue.StateEmbedding, embedLower, "generating embeddings")
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embResult, err := p.Embedder.EmbedBatch(ctx, texts)
	if err != nil && !embResult.Unavailable {
		return p.fail(ctx, jobID, "embedding_failed", err)
	}
	if embResult.Unavailable {
		p.Logger.Warn("ingest: embeddings unavailable, persisting with null vectors",
			zap.Int64("source_id", source.ID))
	}
	update(queue.StateEmbedding, embedUpper, "embeddings complete")

	update(queue.StateSaving, 90, "persisting chunks")
	precedence := store.PrecedenceFor(source.SourceType)
	expiresAt := time.Now().Add(p.ChunkExpiry)
	newChunks := make([]store.NewChunk, len(chunks))
	for i, c := range chunks {
		newChunks[i] = store.NewChunk{
			PageNumber:      c.PageNumber,
			ChunkIndex:      c.ChunkIndex,
			ChunkText:       c.Text,
			Embedding:       embResult.Vectors[i],
			PrecedenceLevel: precedence,
			ExpiresAt:       expiresAt,
		}
	}
	if err := p.Chunks.ReplaceForSource(ctx, source.ID, newChunks); err != nil {
		return p.fail(ctx, jobID, "persist_failed", err)
	}
	if err := p.Sources.CompleteIngestion(ctx, source.ID, hash, time.Now()); err != nil {
		return p.fail(ctx, jobID, "persist_failed", err)
	}

	result := Result{SourceID: source.ID, ChunkCount: len(newChunks)}
	if precedence == store.PrecedenceExpansion {
		overrideJob := queue.Job{
			ID:       jobID + "-override",
			Kind:     queue.JobDetectOverrides,
			Args:     mustJSON(Args{SourceID: source.ID}),
			TimeoutS: 1800,
		}
		if err := p.Queue.Enqueue(ctx, overrideJob); err != nil {
			p.Logger.Warn("ingest: failed to enqueue override-detection job", zap.Error(err))
		} else {
			result.OverrideJob = true
		}
	}

	return p.complete(ctx, jobID, result)
}

func (p *Pipeline) complete(ctx context.Context, jobID string, result Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("ingest: marshal result: %w", err)
	}
	return p.Progress.Update(ctx, jobID, queue.StateReady, 100, "ingestion complete", raw, "")
}

func (p *Pipeline) fail(ctx context.Context, jobID, code string, cause error) error {
	p.Logger.Error("ingest: job failed", zap.String("job_id", jobID), zap.String("code", code), zap.Error(cause))
	_ = p.Progress.Update(ctx, jobID, queue.StateFailed, -1, code, nil, cause.Error())
	return cause
}

func (p *Pipeline) download(ctx context.Context, source *store.Source) ([]byte, error) {
	if source.SourceURL == nil || *source.SourceURL == "" {
		return nil, fmt.Errorf("ingest: source %d has no source_url", source.ID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *source.SourceURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ingest: download transport: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ingest: download status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (p *Pipeline) runOCR(ctx context.Context, jobID string, sourceID int64, pdfBytes []byte) ([]ocr.Page, error) {
	progress := func(page, total, charsSoFar int) {
		pct := 52
		if total > 0 {
			pct = 52 + (page*28)/total
		}
		_ = p.Progress.Update(ctx, jobID, queue.StateOCR, pct,
			fmt.Sprintf("OCR page %d/%d", page, total), nil, "")
	}
	if p.OCR == nil {
		_ = p.Sources.MarkNeedsOCR(ctx, sourceID, true)
		return nil, apperr.New(apperr.KindCorpus, "needs_ocr", "no OCR adapter configured")
	}
	return p.OCR.Process(ctx, pdfBytes, progress)
}

func fileHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func totalChars(pages []ocr.Page) int {
	n := 0
	for _, p := range pages {
		n += len(p.Text)
	}
	return n
}

func nativePagesToChunkerPages(pages []ocr.NativePage) []chunker.Page {
	out := make([]chunker.Page, len(pages))
	for i, p := range pages {
		out[i] = chunker.Page{PageNumber: p.PageNumber, Text: p.Text}
	}
	return out
}

func ocrPagesToChunkerPages(pages []ocr.Page) []chunker.Page {
	out := make([]chunker.Page, len(pages))
	for i, p := range pages {
		out[i] = chunker.Page{PageNumber: p.PageNumber, Text: p.Text}
	}
	return out
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// extractNativeText pulls embedded text per page via the PDF's content
// stream, the same pdf.Open/reader.Page/GetPlainText path the pack's PDF
// parser uses, reading from an in-memory buffer instead of a file path.
func extractNativeText(pdfBytes []byte) ([]ocr.NativePage, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("ingest: open pdf: %w", err)
	}
	total := reader.NumPage()
	pages := make([]ocr.NativePage, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue // a single unreadable page doesn't fail the whole document
		}
		pages = append(pages, ocr.NativePage{PageNumber: i, Text: text})
	}
	return pages, nil
}
