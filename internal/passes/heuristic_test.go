package passes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"bookvoice/internal/models"
)

func TestHeuristicCharacterScan(t *testing.T) {
	text := `The rain fell hard. Alice said, "Hello." Bob walked away from Alice.`
	out, err := HeuristicCharacterExtraction{}.ExecuteSegment(context.Background(), seg(text), nil, Config{})
	require.NoError(t, err)
	require.True(t, out.Degraded)
	require.Equal(t, []string{"Alice", "Bob"}, out.Names)
}

func TestHeuristicCharacterScanHonorific(t *testing.T) {
	text := `Everyone waited for Mr. Darcy to speak.`
	out, err := HeuristicCharacterExtraction{}.ExecuteSegment(context.Background(), seg(text), nil, Config{})
	require.NoError(t, err)
	require.Contains(t, out.Names, "Mr. Darcy")
}

func TestHeuristicCharacterScanIgnoresQuotedInterjections(t *testing.T) {
	text := `Alice opened the door. "Hello there," came a voice.`
	out, err := HeuristicCharacterExtraction{}.ExecuteSegment(context.Background(), seg(text), nil, Config{})
	require.NoError(t, err)
	require.Equal(t, []string{"Alice"}, out.Names)
}

func TestHeuristicDialogAttribution(t *testing.T) {
	text := `Alice said, "Hello." Bob walked away.`
	out, err := HeuristicDialogExtraction{}.ExecuteSegment(context.Background(), seg(text), []string{"Alice", "Bob"}, Config{})
	require.NoError(t, err)
	require.True(t, out.Degraded)
	require.Len(t, out.Dialogs, 3)
	require.Equal(t, models.SpeakerNarrator, out.Dialogs[0].Speaker)
	require.Equal(t, "Alice said,", out.Dialogs[0].Text)
	require.Equal(t, "Alice", out.Dialogs[1].Speaker)
	require.Equal(t, "Hello.", out.Dialogs[1].Text)
	require.Equal(t, models.SpeakerNarrator, out.Dialogs[2].Speaker)
	require.Equal(t, "Bob walked away.", out.Dialogs[2].Text)
}

func TestHeuristicDialogSaidAfterQuote(t *testing.T) {
	text := `"Leave now," said Bob.`
	out, err := HeuristicDialogExtraction{}.ExecuteSegment(context.Background(), seg(text), []string{"Alice", "Bob"}, Config{})
	require.NoError(t, err)
	require.Equal(t, "Bob", out.Dialogs[0].Speaker)
}

func TestHeuristicDialogUnknownSpeaker(t *testing.T) {
	text := `Someone muttered, "Fine."`
	out, err := HeuristicDialogExtraction{}.ExecuteSegment(context.Background(), seg(text), nil, Config{})
	require.NoError(t, err)
	var quote models.DialogLine
	for _, d := range out.Dialogs {
		if d.Text == "Fine." {
			quote = d
		}
	}
	require.Equal(t, models.SpeakerUnknown, quote.Speaker)
}

func TestHeuristicTraits(t *testing.T) {
	text := `Alice was brave. Bob seemed very tired, and Alice looked calm.`
	out, err := HeuristicTraitExtraction{}.ExecuteSegment(context.Background(), seg(text), []string{"Alice", "Bob"}, Config{})
	require.NoError(t, err)
	require.Equal(t, []string{"brave", "calm"}, out.Traits["Alice"])
	require.Equal(t, []string{"tired"}, out.Traits["Bob"])
}

func TestHeuristicPersonalityFromTraits(t *testing.T) {
	rec := &models.CharacterRecord{Name: "Alice", Traits: []string{"brave", "calm"}}
	out, err := HeuristicPersonalityInference{}.ExecuteCharacter(context.Background(), rec, nil, Config{})
	require.NoError(t, err)
	require.Equal(t, []string{"brave", "calm"}, out.Personality)

	out, err = HeuristicPersonalityInference{}.ExecuteCharacter(context.Background(), &models.CharacterRecord{Name: "X"}, nil, Config{})
	require.NoError(t, err)
	require.Equal(t, []string{"limited information"}, out.Personality)
}

func TestHeuristicVoiceDefaultsAndHonorifics(t *testing.T) {
	out, err := HeuristicVoiceProfileSuggestion{}.ExecuteCharacter(context.Background(),
		&models.CharacterRecord{Name: "Mrs. Bennet", Traits: []string{"elderly"}}, nil, Config{})
	require.NoError(t, err)
	require.Equal(t, models.GenderFemale, out.Voice.Gender)
	require.Equal(t, models.AgeElderly, out.Voice.Age)
	require.Equal(t, 1.0, out.Voice.Pitch)
}

func TestHeuristicSummaryFirstSentences(t *testing.T) {
	text := `First sentence. Second one! Third here? Fourth must not appear.`
	out, err := HeuristicChapterSummary{}.ExecuteChapter(context.Background(), text, nil, Config{})
	require.NoError(t, err)
	require.Equal(t, "First sentence. Second one! Third here?", out.Summary)
	require.True(t, out.Degraded)
}
