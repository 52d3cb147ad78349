package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVoiceProfileClamped(t *testing.T) {
	p := VoiceProfile{
		Pitch:       3.0,
		Speed:       0.1,
		Energy:      1.2,
		Gender:      "WOMAN",
		Age:         "senior",
		EmotionBias: map[string]float64{" Joy ": 1.8},
	}
	c := p.Clamped()
	require.Equal(t, 1.5, c.Pitch)
	require.Equal(t, 0.5, c.Speed)
	require.Equal(t, 1.2, c.Energy)
	require.Equal(t, GenderFemale, c.Gender)
	require.Equal(t, AgeElderly, c.Age)
	require.Equal(t, 1.0, c.EmotionBias["joy"])
}

func TestNormalizeEnumsFallBackToUnknownAndAdult(t *testing.T) {
	require.Equal(t, GenderUnknown, NormalizeGender("robot"))
	require.Equal(t, AgeAdult, NormalizeAge("immortal"))
}

func TestCanonicalName(t *testing.T) {
	require.Equal(t, "mr. darcy", CanonicalName("  Mr. Darcy "))
	require.Equal(t, CanonicalName("ALICE"), CanonicalName("alice"))
}

func TestCheckpointExpired(t *testing.T) {
	cp := NewCheckpoint(42)
	now := time.Now()
	require.False(t, cp.Expired(24*time.Hour, now))
	require.True(t, cp.Expired(24*time.Hour, now.Add(25*time.Hour)))
	require.False(t, cp.Expired(0, now.Add(1000*time.Hour)))
}

func TestAccumOrderingStable(t *testing.T) {
	acc := NewAccum()
	acc.Characters["bob"] = &CharacterRecord{Name: "Bob", FirstSegment: 1}
	acc.Characters["alice"] = &CharacterRecord{Name: "Alice", FirstSegment: 0}
	acc.Characters["eve"] = &CharacterRecord{Name: "Eve", FirstSegment: 0}

	require.Equal(t, []string{"Alice", "Eve", "Bob"}, acc.KnownNames())
}

func TestDialogsFlattenSegmentOrder(t *testing.T) {
	acc := NewAccum()
	acc.SegmentDialogs[2] = []DialogLine{{Speaker: "Alice", Text: "late"}}
	acc.SegmentDialogs[0] = []DialogLine{{Speaker: "Alice", Text: "early"}}

	all := acc.Dialogs()
	require.Equal(t, "early", all[0].Text)
	require.Equal(t, "late", all[1].Text)
}
