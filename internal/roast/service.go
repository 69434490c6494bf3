package roast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"roast-backend/internal/extract"
	"roast-backend/internal/llm"
	"roast-backend/internal/roasts"
	"roast-backend/internal/shared/metrics"
	"roast-backend/internal/shared/storage/object"
	"roast-backend/internal/shared/telemetry"
)

// ErrValidation means the caller sent no resume text.
var ErrValidation = errors.New("resume text is required")

// Sampling carries generation parameters forwarded to the provider.
type Sampling struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

// Outcome is a successful roast.
type Outcome struct {
	Items     []Item
	Degraded  bool
	Truncated bool
	// RecordIDs holds ids of persisted items, in item order. Items that
	// failed to persist are skipped.
	RecordIDs []string
}

// Service runs the roast pipeline: build, critique, normalize, persist.
type Service struct {
	LLM      llm.Client
	Repo     roasts.Repo
	Store    object.ObjectStore
	Sampling Sampling
	Provider string
	Model    string
}

// Roast critiques resume text. Only validation, configuration and upstream
// failures are returned; unparseable completions degrade to a single item.
func (s *Service) Roast(ctx context.Context, text string) (Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return Outcome{}, ErrValidation
	}
	if s.LLM == nil {
		return Outcome{}, fmt.Errorf("%w: AI_API_KEY is not set", llm.ErrNotConfigured)
	}
	metrics.IncRoastStarted()

	req := Build(text)
	if req.Truncated {
		metrics.IncRoastTruncated()
	}

	start := time.Now()
	raw, err := s.LLM.Complete(ctx, llm.CompletionInput{
		SystemPrompt:    SystemPrompt(),
		UserPrompt:      UserPrompt(req),
		Temperature:     s.Sampling.Temperature,
		TopP:            s.Sampling.TopP,
		TopK:            s.Sampling.TopK,
		MaxOutputTokens: s.Sampling.MaxOutputTokens,
	})
	elapsed := time.Since(start)
	metrics.ObserveCritiqueDurationMs(float64(elapsed.Milliseconds()))
	if err != nil {
		metrics.IncRoastFailed()
		telemetry.Error("roast.critique_failed", map[string]any{
			"provider":    s.Provider,
			"model":       s.Model,
			"duration_ms": elapsed.Milliseconds(),
			"error":       err.Error(),
		})
		return Outcome{}, err
	}

	result := Normalize(raw, req.Text)
	if result.Fallback {
		metrics.IncRoastFallback()
		telemetry.Warn("roast.normalize_fallback", map[string]any{
			"provider":  s.Provider,
			"raw_chars": len([]rune(raw)),
		})
	}

	out := Outcome{
		Items:     result.Items,
		Degraded:  result.Fallback,
		Truncated: req.Truncated,
		RecordIDs: s.persist(ctx, result.Items),
	}
	metrics.IncRoastCompleted()
	telemetry.Info("roast.completed", map[string]any{
		"provider":    s.Provider,
		"model":       s.Model,
		"items":       len(out.Items),
		"persisted":   len(out.RecordIDs),
		"degraded":    out.Degraded,
		"truncated":   out.Truncated,
		"duration_ms": elapsed.Milliseconds(),
	})
	return out, nil
}

// persist inserts items one at a time, in order. Failures are logged.
func (s *Service) persist(ctx context.Context, items []Item) []string {
	if s.Repo == nil {
		return nil
	}
	ids := make([]string, 0, len(items))
	for i, item := range items {
		rec, err := s.Repo.Insert(ctx, roasts.NewRoast{
			OriginalText:  item.Original,
			RoastFeedback: item.Roast,
			RoastType:     string(item.Category),
		})
		if err != nil {
			telemetry.Error("roast.persist_failed", map[string]any{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		ids = append(ids, rec.ID)
	}
	return ids
}

// Extract decodes an uploaded resume and archives it when a store is set.
// Archive failures are logged and do not fail extraction.
func (s *Service) Extract(ctx context.Context, principal, fileName, mimeType string, data []byte) (string, error) {
	text, err := extract.ExtractText(ctx, data, mimeType, fileName)
	if err != nil {
		return "", err
	}
	if s.Store != nil {
		archived, err := extract.Archive(ctx, s.Store, principal, fileName, data, text)
		if err != nil {
			telemetry.Error("roast.archive_failed", map[string]any{
				"file_name": fileName,
				"error":     err.Error(),
			})
		} else {
			telemetry.Info("roast.archived", map[string]any{
				"upload_key":    archived.UploadKey,
				"extracted_key": archived.ExtractedKey,
				"mime_type":     archived.MimeType,
				"size_bytes":    archived.SizeBytes,
			})
		}
	}
	return text, nil
}

// RoastDocument extracts an uploaded resume and roasts its text.
func (s *Service) RoastDocument(ctx context.Context, principal, fileName, mimeType string, data []byte) (Outcome, error) {
	text, err := s.Extract(ctx, principal, fileName, mimeType, data)
	if err != nil {
		return Outcome{}, err
	}
	return s.Roast(ctx, text)
}
