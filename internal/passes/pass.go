package passes

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"bookvoice/internal/engine"
	"bookvoice/internal/models"
	"bookvoice/internal/parse"
	"bookvoice/internal/util"
)

// Config bounds one pass's inference calls.
type Config struct {
	MaxOutputTokens             int
	Temperature                 float64
	MaxSegmentChars             int
	MaxRetries                  int
	TokenReductionCharsPerRetry int
}

// DefaultConfig mirrors the per-pass budgets the prompts were tuned with.
func DefaultConfig(id models.PassID) Config {
	cfg := Config{
		MaxSegmentChars:             10000,
		MaxRetries:                  2,
		TokenReductionCharsPerRetry: 1000,
	}
	switch id {
	case models.PassCharacters:
		cfg.MaxOutputTokens, cfg.Temperature = 256, 0.1
	case models.PassDialogs:
		cfg.MaxOutputTokens, cfg.Temperature = 1024, 0.15
	case models.PassTraits:
		cfg.MaxOutputTokens, cfg.Temperature = 384, 0.1
		cfg.MaxSegmentChars = 6000
	case models.PassPersonality:
		cfg.MaxOutputTokens, cfg.Temperature = 256, 0.2
	case models.PassVoice:
		cfg.MaxOutputTokens, cfg.Temperature = 384, 0.2
	case models.PassSummary:
		cfg.MaxOutputTokens, cfg.Temperature = 512, 0.3
	default:
		cfg.MaxOutputTokens, cfg.Temperature = 256, 0.1
	}
	return cfg
}

// PromptTokens is the fixed scaffolding cost reserved for each pass's
// prompt when sizing segments.
func PromptTokens(id models.PassID) int {
	switch id {
	case models.PassDialogs:
		return 280
	case models.PassTraits:
		return 260
	case models.PassVoice:
		return 320
	case models.PassSummary:
		return 140
	default:
		return 220
	}
}

// Output is the union of everything a pass can contribute for one unit of
// work. Degraded marks an empty or reduced-quality result that the pipeline
// carries forward instead of failing.
type Output struct {
	Names       []string
	Dialogs     []models.DialogLine
	Traits      map[string][]string
	Personality []string
	Voice       *models.VoiceProfile
	Summary     string
	Themes      []string
	Degraded    bool
}

// SegmentPass processes one text segment with the already-known entity names
// as a hint.
type SegmentPass interface {
	ID() models.PassID
	ExecuteSegment(ctx context.Context, seg models.Segment, known []string, cfg Config) (Output, error)
}

// CharacterPass processes one accumulated character record.
type CharacterPass interface {
	ID() models.PassID
	ExecuteCharacter(ctx context.Context, rec *models.CharacterRecord, dialogs []models.DialogLine, cfg Config) (Output, error)
}

// ChapterPass consumes the whole chapter text in a single call.
type ChapterPass interface {
	ID() models.PassID
	ExecuteChapter(ctx context.Context, text string, known []string, cfg Config) (Output, error)
}

// promptFunc rebuilds the prompt pair for the current (possibly shrunk)
// input text.
type promptFunc func(text string) (system, user string)

// generateJSON drives one inference call with the shared retry policy: on
// overflow the input text is shrunk from the end by
// TokenReductionCharsPerRetry and the prompt rebuilt; malformed output burns
// a retry without shrinking; unavailability and timeouts propagate so the
// orchestrator can fall back to the heuristic pass. When every attempt
// fails recoverably the result is empty and degraded, never an error.
// The raw model text of the last non-overflow attempt is returned alongside
// the payload so passes that tolerate prose answers can salvage it.
func generateJSON(ctx context.Context, eng engine.Engine, op string, text string, cfg Config, build promptFunc) (payload, raw string, degraded bool, err error) {
	if cfg.MaxSegmentChars > 0 && len(text) > cfg.MaxSegmentChars {
		text = text[:cfg.MaxSegmentChars]
	}
	attempts := cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		system, user := build(text)
		out, genErr := eng.Generate(ctx, engine.GenerateRequest{
			Operation:       op,
			System:          system,
			User:            user,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Temperature:     cfg.Temperature,
		})
		if genErr != nil {
			switch engine.Classify(genErr) {
			case engine.KindOverflow:
				text = shrink(text, cfg.TokenReductionCharsPerRetry)
				log.Warn("token overflow, shrinking input", "op", op, "attempt", attempt, "chars", len(text))
				if text == "" {
					return "", raw, true, nil
				}
				continue
			case engine.KindTimeout, engine.KindUnavailable:
				return "", raw, true, genErr
			default:
				log.Warn("inference call failed", "op", op, "attempt", attempt, "error", genErr)
				continue
			}
		}
		if engine.OutputIndicatesOverflow(out.Text) {
			text = shrink(text, cfg.TokenReductionCharsPerRetry)
			if text == "" {
				return "", raw, true, nil
			}
			continue
		}
		raw = out.Text
		if p := parse.ExtractJSON(out.Text); p != "" {
			return p, raw, false, nil
		}
		log.Warn("malformed model output", "op", op, "attempt", attempt,
			"output", util.DisplaySnippet(out.Text, 160))
	}
	return "", raw, true, nil
}

// shrink drops characters from the end of the input, never the middle.
func shrink(text string, by int) string {
	if by <= 0 {
		by = 1000
	}
	if len(text) <= by {
		return ""
	}
	return strings.TrimRight(text[:len(text)-by], " \t")
}
