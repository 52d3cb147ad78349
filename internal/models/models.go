package models

import (
	"sort"
	"strings"
	"time"
)

// Speaker names that are always valid attribution targets even when no
// character of that name exists in the registry.
const (
	SpeakerNarrator = "Narrator"
	SpeakerUnknown  = "Unknown"
)

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderNeutral Gender = "neutral"
	GenderUnknown Gender = "unknown"
)

type AgeGroup string

const (
	AgeKid        AgeGroup = "kid"
	AgeTeen       AgeGroup = "teen"
	AgeYoung      AgeGroup = "young"
	AgeAdult      AgeGroup = "adult"
	AgeMiddleAged AgeGroup = "middle-aged"
	AgeElderly    AgeGroup = "elderly"
)

// VoiceProfile drives downstream TTS casting. Numeric fields are clamped to
// their declared ranges at the parse boundary, never rejected.
type VoiceProfile struct {
	Pitch       float64            `json:"pitch"`
	Speed       float64            `json:"speed"`
	Energy      float64            `json:"energy"`
	Gender      Gender             `json:"gender"`
	Age         AgeGroup           `json:"age"`
	Tone        string             `json:"tone,omitempty"`
	Accent      string             `json:"accent,omitempty"`
	EmotionBias map[string]float64 `json:"emotion_bias,omitempty"`
}

// DefaultVoiceProfile is the placeholder assigned before any suggestion pass
// has run. Merge rules treat every field at its default as overwritable.
func DefaultVoiceProfile() VoiceProfile {
	return VoiceProfile{
		Pitch:  1.0,
		Speed:  1.0,
		Energy: 1.0,
		Gender: GenderUnknown,
		Age:    AgeAdult,
		Accent: "neutral",
	}
}

// Clamped returns a copy with pitch/speed/energy forced into [0.5,1.5],
// emotion bias values into [0,1], and enum fields normalized.
func (p VoiceProfile) Clamped() VoiceProfile {
	out := p
	out.Pitch = clampRange(p.Pitch, 0.5, 1.5)
	out.Speed = clampRange(p.Speed, 0.5, 1.5)
	out.Energy = clampRange(p.Energy, 0.5, 1.5)
	out.Gender = NormalizeGender(string(p.Gender))
	out.Age = NormalizeAge(string(p.Age))
	if len(p.EmotionBias) > 0 {
		out.EmotionBias = make(map[string]float64, len(p.EmotionBias))
		for k, v := range p.EmotionBias {
			out.EmotionBias[strings.ToLower(strings.TrimSpace(k))] = clampRange(v, 0, 1)
		}
	}
	return out
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func NormalizeGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "man":
		return GenderMale
	case "female", "f", "woman":
		return GenderFemale
	case "neutral":
		return GenderNeutral
	default:
		return GenderUnknown
	}
}

func NormalizeAge(s string) AgeGroup {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kid", "child", "children":
		return AgeKid
	case "teen", "teenager":
		return AgeTeen
	case "young", "young adult":
		return AgeYoung
	case "middle-aged", "middle aged", "middleaged":
		return AgeMiddleAged
	case "elderly", "old", "senior":
		return AgeElderly
	default:
		return AgeAdult
	}
}

// DialogLine is one attributed utterance (or narration span) in appearance
// order. Order is significant for later audio alignment and never changed.
type DialogLine struct {
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	Emotion   string  `json:"emotion,omitempty"`
	Intensity float64 `json:"intensity"`
}

// CharacterRecord accumulates everything the passes learn about one
// character. Identity is the case-folded canonical name.
type CharacterRecord struct {
	Name         string        `json:"name"`
	Aliases      []string      `json:"aliases,omitempty"`
	Traits       []string      `json:"traits,omitempty"`
	Personality  []string      `json:"personality,omitempty"`
	Voice        *VoiceProfile `json:"voice_profile,omitempty"`
	DialogCount  int           `json:"dialog_count"`
	FirstSegment int           `json:"first_segment_seen"`
}

// CanonicalName is the identity key used to merge character mentions.
// Case-folded exact match only; alias resolution is out of scope.
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Segment is a paragraph-aligned slice of chapter text sized to one pass's
// token budget. Immutable once produced.
type Segment struct {
	Text         string `json:"text"`
	Index        int    `json:"index"`
	Total        int    `json:"total_segments"`
	ApproxTokens int    `json:"approx_tokens"`
}

type PassID string

const (
	PassCharacters  PassID = "characters"
	PassDialogs     PassID = "dialogs"
	PassTraits      PassID = "traits"
	PassPersonality PassID = "personality"
	PassVoice       PassID = "voice"
	PassSummary     PassID = "summary"
)

// PassOrder is the dependency order the orchestrator executes. Summary is
// last and consumes the whole chapter rather than segments.
var PassOrder = []PassID{
	PassCharacters,
	PassDialogs,
	PassTraits,
	PassPersonality,
	PassVoice,
	PassSummary,
}

type PassStatus string

const (
	PassNotStarted PassStatus = "not_started"
	PassInProgress PassStatus = "in_progress"
	PassDone       PassStatus = "done"
	PassFailed     PassStatus = "failed"
)

// PassState tracks one pass's progress within a chapter. LastCompleted is -1
// until the first unit finishes. Degraded counts units that fell back to an
// empty or heuristic result; together with EmptyResult it lets resume decide
// whether a Done pass is worth re-running.
type PassState struct {
	Status        PassStatus `json:"status"`
	LastCompleted int        `json:"last_completed_segment"`
	TotalUnits    int        `json:"total_units"`
	Degraded      int        `json:"degraded_segments"`
	EmptyResult   bool       `json:"empty_result"`
}

// Accum is the chapter-level accumulated state every pass folds into.
// Per-segment maps are replaced wholesale when a segment is (re)processed,
// which keeps merging idempotent across resume.
type Accum struct {
	Characters     map[string]*CharacterRecord `json:"characters"`
	SegmentNames   map[int][]string            `json:"segment_names"`
	SegmentDialogs map[int][]DialogLine        `json:"segment_dialogs"`
	Summary        string                      `json:"summary,omitempty"`
	Themes         []string                    `json:"themes,omitempty"`
}

func NewAccum() *Accum {
	return &Accum{
		Characters:     map[string]*CharacterRecord{},
		SegmentNames:   map[int][]string{},
		SegmentDialogs: map[int][]DialogLine{},
	}
}

// KnownNames returns display names of all registered characters, ordered by
// first appearance then name so prompts are stable across runs.
func (a *Accum) KnownNames() []string {
	records := a.SortedCharacters()
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func (a *Accum) SortedCharacters() []*CharacterRecord {
	out := make([]*CharacterRecord, 0, len(a.Characters))
	for _, r := range a.Characters {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstSegment != out[j].FirstSegment {
			return out[i].FirstSegment < out[j].FirstSegment
		}
		return CanonicalName(out[i].Name) < CanonicalName(out[j].Name)
	})
	return out
}

// Dialogs flattens the per-segment dialog map in segment order, preserving
// appearance order within each segment.
func (a *Accum) Dialogs() []DialogLine {
	indices := make([]int, 0, len(a.SegmentDialogs))
	for idx := range a.SegmentDialogs {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	out := make([]DialogLine, 0, 64)
	for _, idx := range indices {
		out = append(out, a.SegmentDialogs[idx]...)
	}
	return out
}

// Checkpoint is the resumable snapshot for one chapter. It is valid only
// while ContentHash matches the current chapter text and the TTL has not
// elapsed.
type Checkpoint struct {
	ContentHash int64                  `json:"content_hash"`
	Passes      map[PassID]*PassState  `json:"passes"`
	Accum       *Accum                 `json:"accumulated"`
	UpdatedAt   int64                  `json:"updated_at"`
}

func NewCheckpoint(contentHash int64) *Checkpoint {
	return &Checkpoint{
		ContentHash: contentHash,
		Passes:      map[PassID]*PassState{},
		Accum:       NewAccum(),
		UpdatedAt:   time.Now().Unix(),
	}
}

// State returns the pass state, creating a fresh NotStarted entry on first
// access.
func (c *Checkpoint) State(id PassID) *PassState {
	if st, ok := c.Passes[id]; ok {
		return st
	}
	st := &PassState{Status: PassNotStarted, LastCompleted: -1}
	c.Passes[id] = st
	return st
}

func (c *Checkpoint) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(time.Unix(c.UpdatedAt, 0)) > ttl
}

// AnalysisResult is the finalized output for one chapter, produced after the
// last pass and persisted in place of the checkpoint.
type AnalysisResult struct {
	ChapterID   string             `json:"chapter_id"`
	Characters  []*CharacterRecord `json:"characters"`
	Dialogs     []DialogLine       `json:"dialogs"`
	Summary     string             `json:"summary,omitempty"`
	Themes      []string           `json:"themes,omitempty"`
	Degraded    bool               `json:"degraded"`
	CompletedAt time.Time          `json:"completed_at"`
}

// Chapter is the unit of analysis handed to the pipeline: cleaned text only,
// boundary detection happens upstream.
type Chapter struct {
	ChapterID string    `json:"chapter_id"`
	BookID    string    `json:"book_id,omitempty"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
