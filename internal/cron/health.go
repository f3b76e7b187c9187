package cron

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"ruleoracle/internal/store"
)

// HealthChecker performs a plain GET against each source's publisher
// URL and compares a hash of the body with the stored one, recording whether the document changed, went
// unreachable, or errored, and flags changed sources for re-ingestion.
type HealthChecker struct {
	sources    *store.SourceRepo
	health     *store.HealthRepo
	httpClient *http.Client
}

func NewHealthChecker(sources *store.SourceRepo, health *store.HealthRepo) *HealthChecker {
	return &HealthChecker{
		sources:    sources,
		health:     health,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HealthChecker) CheckAll(ctx context.Context) error {
	sources, err := c.sources.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("cron: list sources: %w", err)
	}
	for _, s := range sources {
		c.checkOne(ctx, s)
	}
	return nil
}

func (c *HealthChecker) checkOne(ctx context.Context, s store.Source) {
	rec := &store.SourceHealth{SourceID: s.ID}
	if s.SourceURL == nil || *s.SourceURL == "" {
		rec.Status = store.HealthError
		errMsg := "source has no source_url"
		rec.Error = &errMsg
		_ = c.health.Insert(ctx, rec)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *s.SourceURL, nil)
	if err != nil {
		rec.Status = store.HealthError
		errMsg := err.Error()
		rec.Error = &errMsg
		_ = c.health.Insert(ctx, rec)
		return
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		rec.Status = store.HealthUnreachable
		errMsg := err.Error()
		rec.Error = &errMsg
		_ = c.health.Insert(ctx, rec)
		return
	}
	defer resp.Body.Close()
	code := resp.StatusCode
	rec.HTTPCode = &code

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		rec.Status = store.HealthError
		errMsg := err.Error()
		rec.Error = &errMsg
		_ = c.health.Insert(ctx, rec)
		return
	}
	length := int64(len(body))
	rec.ContentLength = &length
	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	rec.FileHash = &hash

	if code < 200 || code >= 300 {
		rec.Status = store.HealthUnreachable
		_ = c.health.Insert(ctx, rec)
		return
	}

	if s.FileHash != nil && *s.FileHash != hash {
		rec.Status = store.HealthChanged
		_ = c.sources.MarkNeedsReingest(ctx, s.ID, true)
	} else {
		rec.Status = store.HealthOK
	}
	_ = c.health.Insert(ctx, rec)
}
