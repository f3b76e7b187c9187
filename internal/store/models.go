// Package store owns every persisted entity: games, expansions, sources,
// chunks, ask history, feedback, source health, and API cost rows. No
// other package issues SQL directly.
package store

import "time"

type SourceType string

const (
	SourceRulebook     SourceType = "rulebook"
	SourceExpansion    SourceType = "expansion"
	SourceFAQ          SourceType = "faq"
	SourceErrata       SourceType = "errata"
	SourceReferenceCard SourceType = "reference_card"
)

type PrecedenceLevel int

const (
	PrecedenceBase      PrecedenceLevel = 1
	PrecedenceExpansion PrecedenceLevel = 2
	PrecedenceErrata    PrecedenceLevel = 3
)

// PrecedenceFor derives the ranking tier from a source's type, per the
// base(1)/expansion(2)/errata-or-faq(3) split.
func PrecedenceFor(t SourceType) PrecedenceLevel {
	switch t {
	case SourceFAQ, SourceErrata:
		return PrecedenceErrata
	case SourceExpansion:
		return PrecedenceExpansion
	default:
		return PrecedenceBase
	}
}

type Game struct {
	ID         int64
	Name       string
	Slug       string
	ExternalID *string
	CoverURL   *string
}

type Expansion struct {
	ID          int64
	GameID      int64
	Name        string
	Code        string
	ReleaseDate *time.Time
	DisplayOrder int
}

type Source struct {
	ID             int64
	GameID         int64
	ExpansionID    *int64
	Edition        string
	SourceType     SourceType
	SourceURL      *string
	FileHash       *string
	NeedsOCR       bool
	NeedsReingest  bool
	LastIngestedAt *time.Time
}

type Chunk struct {
	ID                int64
	SourceID          int64
	PageNumber        int
	ChunkIndex        int
	SectionTitle      *string
	ChunkText         string
	Embedding         []float32
	PrecedenceLevel   PrecedenceLevel
	OverridesChunkID  *int64
	OverrideConfidence *int
	OverrideEvidence  *string
	PhaseTags         []string
	ExpiresAt         *time.Time
}

type Citation struct {
	ChunkID  int64  `json:"chunk_id"`
	Quote    string `json:"quote"`
	Page     int    `json:"page"`
	Verified bool   `json:"verified"`
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type AskHistory struct {
	ID                int64
	GameID            int64
	Edition           *string
	ExpansionsUsed    []int64
	Question          string
	NormalizedQuestion string
	QuestionEmbedding []float32
	Verdict           string
	Confidence        Confidence
	ConfidenceReason  string
	Citations         []Citation
	ResponseTimeMS    int
	ModelUsed         string
	CreatedAt         time.Time
}

type FeedbackType string

const (
	FeedbackHelpful            FeedbackType = "helpful"
	FeedbackWrongQuote         FeedbackType = "wrong_quote"
	FeedbackWrongInterpretation FeedbackType = "wrong_interpretation"
	FeedbackMissingContext     FeedbackType = "missing_context"
	FeedbackWrongSource        FeedbackType = "wrong_source"
)

type Feedback struct {
	ID            int64
	AskHistoryID  int64
	FeedbackType  FeedbackType
	SelectedChunkID *int64
	UserNote      *string
	CreatedAt     time.Time
}

type HealthStatus string

const (
	HealthOK          HealthStatus = "ok"
	HealthChanged     HealthStatus = "changed"
	HealthUnreachable HealthStatus = "unreachable"
	HealthError       HealthStatus = "error"
)

type SourceHealth struct {
	ID            int64
	SourceID      int64
	CheckedAt     time.Time
	Status        HealthStatus
	HTTPCode      *int
	FileHash      *string
	ContentLength *int64
	Error         *string
}

type ApiCost struct {
	ID          int64
	RequestID   string
	Endpoint    string
	Model       string
	InputTokens int
	OutputTokens int
	CostUSD     float64
	CacheHit    bool
	CreatedAt   time.Time
}
