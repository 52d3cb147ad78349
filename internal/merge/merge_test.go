package merge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bookvoice/internal/models"
)

func TestNamesCaseFoldedIdentity(t *testing.T) {
	acc := models.NewAccum()
	m := NewIncremental(acc)

	m.Names(0, []string{"Alice", "alice", "Bob"})
	require.Len(t, acc.Characters, 2)
	require.Equal(t, []string{"Alice", "Bob"}, acc.SegmentNames[0])

	m.Names(1, []string{"ALICE"})
	require.Len(t, acc.Characters, 2)
	rec := acc.Characters["alice"]
	require.Equal(t, "Alice", rec.Name)
	require.Contains(t, rec.Aliases, "ALICE")
	require.Equal(t, 0, rec.FirstSegment)
}

func TestNamesReplayIsIdempotent(t *testing.T) {
	acc := models.NewAccum()
	m := NewIncremental(acc)

	m.Names(0, []string{"Alice"})
	m.Names(1, []string{"Alice", "Bob"})
	m.Names(1, []string{"Alice", "Bob"})

	require.Len(t, acc.Characters, 2)
	require.Equal(t, []string{"Alice", "Bob"}, acc.SegmentNames[1])
	require.Len(t, acc.Characters["alice"].Aliases, 0)
}

func TestDialogsReplaceNotAppend(t *testing.T) {
	acc := models.NewAccum()
	m := NewIncremental(acc)
	m.Names(0, []string{"Alice"})

	lines := []models.DialogLine{
		{Speaker: "Alice", Text: "Hello.", Intensity: 0.5},
		{Speaker: models.SpeakerNarrator, Text: "Bob walked away.", Intensity: 0.3},
	}
	m.Dialogs(0, lines)
	m.Dialogs(0, lines)

	require.Len(t, acc.SegmentDialogs[0], 2)
	require.Len(t, acc.Dialogs(), 2)
}

func TestDialogsRepeatedSpeechWithinSegmentKept(t *testing.T) {
	acc := models.NewAccum()
	m := NewIncremental(acc)

	m.Dialogs(0, []models.DialogLine{
		{Speaker: "Alice", Text: "No.", Intensity: 0.5},
		{Speaker: "Alice", Text: "No.", Intensity: 0.5},
	})
	require.Len(t, acc.SegmentDialogs[0], 2)
}

func TestDialogsRegisterUnseenSpeaker(t *testing.T) {
	acc := models.NewAccum()
	m := NewIncremental(acc)

	m.Dialogs(2, []models.DialogLine{
		{Speaker: "Eve", Text: "Surprise.", Intensity: 0.5},
		{Speaker: "", Text: "Who said that?", Intensity: 0.5},
	})
	require.Contains(t, acc.Characters, "eve")
	require.Equal(t, 2, acc.Characters["eve"].FirstSegment)
	require.Equal(t, models.SpeakerUnknown, acc.SegmentDialogs[2][1].Speaker)
}

func TestDialogsFlattenInSegmentOrder(t *testing.T) {
	acc := models.NewAccum()
	m := NewIncremental(acc)

	m.Dialogs(1, []models.DialogLine{{Speaker: "Alice", Text: "second", Intensity: 0.5}})
	m.Dialogs(0, []models.DialogLine{{Speaker: "Alice", Text: "first", Intensity: 0.5}})

	all := acc.Dialogs()
	require.Equal(t, "first", all[0].Text)
	require.Equal(t, "second", all[1].Text)
}

func TestTraitsOrderedUnion(t *testing.T) {
	acc := models.NewAccum()
	m := NewIncremental(acc)

	m.Traits(0, map[string][]string{"Alice": {"brave", "calm"}})
	m.Traits(1, map[string][]string{"Alice": {"Brave", "stern"}})

	require.Equal(t, []string{"brave", "calm", "stern"}, acc.Characters["alice"].Traits)

	m.Traits(1, map[string][]string{"Alice": {"Brave", "stern"}})
	require.Equal(t, []string{"brave", "calm", "stern"}, acc.Characters["alice"].Traits)
}

func TestPersonalityNonEmptyWins(t *testing.T) {
	m := NewIncremental(models.NewAccum())
	rec := &models.CharacterRecord{Name: "Alice", Personality: []string{"calm"}}

	m.Personality(rec, nil)
	require.Equal(t, []string{"calm"}, rec.Personality)

	m.Personality(rec, []string{"stern", " "})
	require.Equal(t, []string{"stern"}, rec.Personality)
}

func TestVoiceNonDefaultBeatsDefault(t *testing.T) {
	m := NewIncremental(models.NewAccum())
	rec := &models.CharacterRecord{Name: "Alice"}

	first := models.DefaultVoiceProfile()
	first.Gender = models.GenderFemale
	first.Pitch = 1.2
	m.Voice(rec, &first)
	require.Equal(t, models.GenderFemale, rec.Voice.Gender)
	require.Equal(t, 1.2, rec.Voice.Pitch)

	// An all-default follow-up must not erase what we learned.
	second := models.DefaultVoiceProfile()
	m.Voice(rec, &second)
	require.Equal(t, models.GenderFemale, rec.Voice.Gender)
	require.Equal(t, 1.2, rec.Voice.Pitch)

	// A newer non-default value replaces the older one.
	third := models.DefaultVoiceProfile()
	third.Pitch = 0.8
	m.Voice(rec, &third)
	require.Equal(t, 0.8, rec.Voice.Pitch)
	require.Equal(t, models.GenderFemale, rec.Voice.Gender)
}

func TestVoiceClampsIncoming(t *testing.T) {
	m := NewIncremental(models.NewAccum())
	rec := &models.CharacterRecord{Name: "Alice"}

	in := models.DefaultVoiceProfile()
	in.Speed = 4.0
	m.Voice(rec, &in)
	require.Equal(t, 1.5, rec.Voice.Speed)
}

func TestSummaryKeepsLatestNonEmpty(t *testing.T) {
	acc := models.NewAccum()
	m := NewIncremental(acc)

	m.Summary("Alice meets Bob.", []string{"meeting"})
	m.Summary("   ", nil)
	require.Equal(t, "Alice meets Bob.", acc.Summary)
	require.Equal(t, []string{"meeting"}, acc.Themes)
}

func TestRecountDialogs(t *testing.T) {
	acc := models.NewAccum()
	m := NewIncremental(acc)
	m.Names(0, []string{"Alice"})
	m.Dialogs(0, []models.DialogLine{
		{Speaker: "Alice", Text: "One.", Intensity: 0.5},
		{Speaker: "Alice", Text: "Two.", Intensity: 0.5},
		{Speaker: models.SpeakerUnknown, Text: "Three.", Intensity: 0.5},
	})

	m.RecountDialogs()
	require.Equal(t, 2, acc.Characters["alice"].DialogCount)

	// Replay plus recount must not double-count.
	m.Dialogs(0, acc.SegmentDialogs[0])
	m.RecountDialogs()
	require.Equal(t, 2, acc.Characters["alice"].DialogCount)
}
