package passes

import (
	"context"

	"bookvoice/internal/engine"
	"bookvoice/internal/models"
	"bookvoice/internal/parse"
)

// CharacterExtraction asks the model for the proper names present in a
// segment. Known names are passed as a skip hint; re-emitted names are
// still accepted (the merge is an idempotent union).
type CharacterExtraction struct {
	eng engine.Engine
}

func NewCharacterExtraction(eng engine.Engine) *CharacterExtraction {
	return &CharacterExtraction{eng: eng}
}

func (p *CharacterExtraction) ID() models.PassID { return models.PassCharacters }

func (p *CharacterExtraction) ExecuteSegment(ctx context.Context, seg models.Segment, known []string, cfg Config) (Output, error) {
	payload, _, degraded, err := generateJSON(ctx, p.eng, "characters", seg.Text, cfg, func(text string) (string, string) {
		return characterPrompts(text, known)
	})
	if err != nil || degraded {
		return Output{Degraded: true}, err
	}
	return Output{Names: parse.Names(payload)}, nil
}

// DialogExtraction pulls quoted speech in appearance order, attributed to
// the characters known to appear on this segment, with Narrator/Unknown as
// terminal fallbacks.
type DialogExtraction struct {
	eng engine.Engine
}

func NewDialogExtraction(eng engine.Engine) *DialogExtraction {
	return &DialogExtraction{eng: eng}
}

func (p *DialogExtraction) ID() models.PassID { return models.PassDialogs }

func (p *DialogExtraction) ExecuteSegment(ctx context.Context, seg models.Segment, known []string, cfg Config) (Output, error) {
	payload, _, degraded, err := generateJSON(ctx, p.eng, "dialogs", seg.Text, cfg, func(text string) (string, string) {
		return dialogPrompts(text, known)
	})
	if err != nil || degraded {
		return Output{Degraded: true}, err
	}
	return Output{Dialogs: parse.Dialogs(payload)}, nil
}

// TraitExtraction collects explicitly stated traits for the segment's known
// characters. Empty lists are valid results, not failures.
type TraitExtraction struct {
	eng engine.Engine
}

func NewTraitExtraction(eng engine.Engine) *TraitExtraction {
	return &TraitExtraction{eng: eng}
}

func (p *TraitExtraction) ID() models.PassID { return models.PassTraits }

func (p *TraitExtraction) ExecuteSegment(ctx context.Context, seg models.Segment, known []string, cfg Config) (Output, error) {
	if len(known) == 0 {
		return Output{}, nil
	}
	payload, _, degraded, err := generateJSON(ctx, p.eng, "traits", seg.Text, cfg, func(text string) (string, string) {
		return traitPrompts(text, known)
	})
	if err != nil || degraded {
		return Output{Degraded: true}, err
	}
	return Output{Traits: parse.Traits(payload)}, nil
}

// PersonalityInference turns a character's accumulated trait list into 3-5
// descriptors. It never sees raw chapter text, so it cannot introduce facts
// the trait pass did not record.
type PersonalityInference struct {
	eng engine.Engine
}

func NewPersonalityInference(eng engine.Engine) *PersonalityInference {
	return &PersonalityInference{eng: eng}
}

func (p *PersonalityInference) ID() models.PassID { return models.PassPersonality }

// placeholderPersonality is returned without an inference call when no
// traits were found.
var placeholderPersonality = []string{"limited information"}

func (p *PersonalityInference) ExecuteCharacter(ctx context.Context, rec *models.CharacterRecord, dialogs []models.DialogLine, cfg Config) (Output, error) {
	_ = dialogs
	if len(rec.Traits) == 0 {
		return Output{Personality: placeholderPersonality}, nil
	}
	payload, _, degraded, err := generateJSON(ctx, p.eng, "personality", "", cfg, func(string) (string, string) {
		return personalityPrompts(rec.Name, rec.Traits)
	})
	if err != nil || degraded {
		return Output{Personality: placeholderPersonality, Degraded: true}, err
	}
	pts := parse.Personality(payload)
	if len(pts) == 0 {
		return Output{Personality: placeholderPersonality, Degraded: true}, nil
	}
	if len(pts) > 5 {
		pts = pts[:5]
	}
	return Output{Personality: pts}, nil
}

// VoiceProfileSuggestion casts a TTS voice from the character's aggregated
// traits, personality, and a few sample lines. Out-of-range values are
// clamped at the parse boundary.
type VoiceProfileSuggestion struct {
	eng engine.Engine
}

func NewVoiceProfileSuggestion(eng engine.Engine) *VoiceProfileSuggestion {
	return &VoiceProfileSuggestion{eng: eng}
}

func (p *VoiceProfileSuggestion) ID() models.PassID { return models.PassVoice }

func (p *VoiceProfileSuggestion) ExecuteCharacter(ctx context.Context, rec *models.CharacterRecord, dialogs []models.DialogLine, cfg Config) (Output, error) {
	samples := make([]string, 0, 5)
	for _, d := range dialogs {
		if models.CanonicalName(d.Speaker) != models.CanonicalName(rec.Name) {
			continue
		}
		samples = append(samples, d.Text)
		if len(samples) == 5 {
			break
		}
	}
	payload, _, degraded, err := generateJSON(ctx, p.eng, "voice", "", cfg, func(string) (string, string) {
		return voicePrompts(rec.Name, rec.Traits, rec.Personality, samples)
	})
	if err != nil || degraded {
		return Output{Degraded: true}, err
	}
	profile, ok := parse.VoiceProfile(payload)
	if !ok {
		return Output{Degraded: true}, nil
	}
	return Output{Voice: &profile}, nil
}

// ChapterSummary runs once over the whole chapter text after all
// per-segment passes finish.
type ChapterSummary struct {
	eng engine.Engine
}

func NewChapterSummary(eng engine.Engine) *ChapterSummary {
	return &ChapterSummary{eng: eng}
}

func (p *ChapterSummary) ID() models.PassID { return models.PassSummary }

func (p *ChapterSummary) ExecuteChapter(ctx context.Context, text string, known []string, cfg Config) (Output, error) {
	payload, raw, _, err := generateJSON(ctx, p.eng, "summary", text, cfg, func(t string) (string, string) {
		return summaryPrompts(t, known)
	})
	if err != nil {
		return Output{Degraded: true}, err
	}
	// Models often answer this pass in plain prose; that prose is the
	// summary, not a failure.
	summary, themes := parse.Summary(payload, raw)
	if summary == "" {
		return Output{Degraded: true}, nil
	}
	return Output{Summary: summary, Themes: themes}, nil
}
