package passes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"bookvoice/internal/engine"
	"bookvoice/internal/models"
)

// scriptedEngine replays a fixed sequence of responses and records every
// request it saw.
type scriptedEngine struct {
	steps []scriptedStep
	calls []engine.GenerateRequest
}

type scriptedStep struct {
	text string
	err  error
}

func (s *scriptedEngine) Generate(_ context.Context, req engine.GenerateRequest) (engine.GenerateResponse, error) {
	s.calls = append(s.calls, req)
	if len(s.steps) == 0 {
		return engine.GenerateResponse{}, engine.ErrUnavailable
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return engine.GenerateResponse{Text: step.text}, step.err
}

func (s *scriptedEngine) Available(context.Context) bool { return true }
func (s *scriptedEngine) Name() string                   { return "scripted" }

func seg(text string) models.Segment {
	return models.Segment{Text: text, Index: 0, Total: 1}
}

func TestCharacterExtractionParsesNames(t *testing.T) {
	eng := &scriptedEngine{steps: []scriptedStep{
		{text: `{"characters": ["Alice", "Bob"]}`},
	}}
	p := NewCharacterExtraction(eng)

	out, err := p.ExecuteSegment(context.Background(), seg(`Alice said, "Hello." Bob walked away.`), nil, DefaultConfig(p.ID()))
	require.NoError(t, err)
	require.False(t, out.Degraded)
	require.Equal(t, []string{"Alice", "Bob"}, out.Names)
	require.Len(t, eng.calls, 1)
	require.Equal(t, "characters", eng.calls[0].Operation)
}

func TestDialogExtractionKnownNamesInPrompt(t *testing.T) {
	eng := &scriptedEngine{steps: []scriptedStep{
		{text: `{"dialogs": [{"speaker": "Alice", "text": "Hello.", "emotion": "friendly", "intensity": 0.4}]}`},
	}}
	p := NewDialogExtraction(eng)

	out, err := p.ExecuteSegment(context.Background(), seg(`Alice said, "Hello."`), []string{"Alice"}, DefaultConfig(p.ID()))
	require.NoError(t, err)
	require.Len(t, out.Dialogs, 1)
	require.Equal(t, "Alice", out.Dialogs[0].Speaker)
	require.Equal(t, "Hello.", out.Dialogs[0].Text)
	require.Contains(t, eng.calls[0].User, "Alice")
}

func TestGenerateJSONShrinksOnOverflow(t *testing.T) {
	eng := &scriptedEngine{steps: []scriptedStep{
		{err: engine.ErrOverflow},
		{text: `{"characters": ["Eve"]}`},
	}}
	p := NewCharacterExtraction(eng)

	text := make([]byte, 3000)
	for i := range text {
		text[i] = 'a'
	}
	cfg := DefaultConfig(p.ID())
	cfg.TokenReductionCharsPerRetry = 1000

	out, err := p.ExecuteSegment(context.Background(), seg(string(text)), nil, cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"Eve"}, out.Names)
	require.Len(t, eng.calls, 2)
	require.Less(t, len(eng.calls[1].User), len(eng.calls[0].User))
}

func TestGenerateJSONOverflowMarkerInOutput(t *testing.T) {
	eng := &scriptedEngine{steps: []scriptedStep{
		{text: "the prompt exceeds the available context size"},
		{text: `{"characters": ["Eve"]}`},
	}}
	p := NewCharacterExtraction(eng)

	cfg := DefaultConfig(p.ID())
	cfg.TokenReductionCharsPerRetry = 10
	out, err := p.ExecuteSegment(context.Background(), seg("some chapter text. more text follows here."), nil, cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"Eve"}, out.Names)
	require.Len(t, eng.calls, 2)
}

func TestGenerateJSONUnavailablePropagates(t *testing.T) {
	eng := &scriptedEngine{steps: []scriptedStep{
		{err: engine.ErrUnavailable},
	}}
	p := NewDialogExtraction(eng)

	out, err := p.ExecuteSegment(context.Background(), seg("text"), nil, DefaultConfig(p.ID()))
	require.Error(t, err)
	require.Equal(t, engine.KindUnavailable, engine.Classify(err))
	require.True(t, out.Degraded)
	require.Len(t, eng.calls, 1)
}

func TestGenerateJSONMalformedExhaustsToDegraded(t *testing.T) {
	eng := &scriptedEngine{steps: []scriptedStep{
		{text: "no json here"},
		{text: "still prose"},
		{text: "and again"},
	}}
	p := NewCharacterExtraction(eng)

	cfg := DefaultConfig(p.ID())
	cfg.MaxRetries = 2
	out, err := p.ExecuteSegment(context.Background(), seg("text"), nil, cfg)
	require.NoError(t, err)
	require.True(t, out.Degraded)
	require.Empty(t, out.Names)
	require.Len(t, eng.calls, 3)
}

func TestPersonalityPlaceholderWithoutTraits(t *testing.T) {
	eng := &scriptedEngine{}
	p := NewPersonalityInference(eng)

	rec := &models.CharacterRecord{Name: "Silent Extra"}
	out, err := p.ExecuteCharacter(context.Background(), rec, nil, DefaultConfig(p.ID()))
	require.NoError(t, err)
	require.Equal(t, []string{"limited information"}, out.Personality)
	require.Empty(t, eng.calls, "no inference call should be made without traits")
}

func TestPersonalityCapsAtFive(t *testing.T) {
	eng := &scriptedEngine{steps: []scriptedStep{
		{text: `{"personality": ["calm","brave","stern","wry","patient","loud","shy"]}`},
	}}
	p := NewPersonalityInference(eng)

	rec := &models.CharacterRecord{Name: "Alice", Traits: []string{"brave"}}
	out, err := p.ExecuteCharacter(context.Background(), rec, nil, DefaultConfig(p.ID()))
	require.NoError(t, err)
	require.Len(t, out.Personality, 5)
}

func TestVoiceProfileClampsAndSamplesOwnLines(t *testing.T) {
	eng := &scriptedEngine{steps: []scriptedStep{
		{text: `{"voice_profile": {"gender": "female", "age": "adult", "pitch": 9.0, "speed": 1.1, "energy": 0.8, "accent": "neutral", "emotion_bias": {"joy": 0.6}}}`},
	}}
	p := NewVoiceProfileSuggestion(eng)

	rec := &models.CharacterRecord{Name: "Alice", Traits: []string{"brave"}}
	dialogs := []models.DialogLine{
		{Speaker: "Bob", Text: "Not hers."},
		{Speaker: "Alice", Text: "Hello."},
	}
	out, err := p.ExecuteCharacter(context.Background(), rec, dialogs, DefaultConfig(p.ID()))
	require.NoError(t, err)
	require.NotNil(t, out.Voice)
	require.Equal(t, models.GenderFemale, out.Voice.Gender)
	require.Equal(t, 1.5, out.Voice.Pitch, "pitch must be clamped into range")
	require.Contains(t, eng.calls[0].User, "Hello.")
	require.NotContains(t, eng.calls[0].User, "Not hers.")
}

func TestChapterSummary(t *testing.T) {
	eng := &scriptedEngine{steps: []scriptedStep{
		{text: `{"summary": "Alice greets Bob.", "themes": ["meeting"]}`},
	}}
	p := NewChapterSummary(eng)

	out, err := p.ExecuteChapter(context.Background(), "Alice said hello to Bob.", []string{"Alice", "Bob"}, DefaultConfig(p.ID()))
	require.NoError(t, err)
	require.Equal(t, "Alice greets Bob.", out.Summary)
	require.Equal(t, []string{"meeting"}, out.Themes)
}

func TestChapterSummaryAcceptsProse(t *testing.T) {
	eng := &scriptedEngine{steps: []scriptedStep{
		{text: "Alice meets Bob by the river at dusk."},
	}}
	p := NewChapterSummary(eng)

	cfg := DefaultConfig(p.ID())
	cfg.MaxRetries = 0
	out, err := p.ExecuteChapter(context.Background(), "chapter text", nil, cfg)
	require.NoError(t, err)
	require.False(t, out.Degraded)
	require.Equal(t, "Alice meets Bob by the river at dusk.", out.Summary)
	require.Empty(t, out.Themes)
	require.Len(t, eng.calls, 1)
}
