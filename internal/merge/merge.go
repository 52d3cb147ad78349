package merge

import (
	"strings"

	"bookvoice/internal/models"
)

// Incremental folds one unit's pass output into the chapter accumulator.
// Every method is idempotent: folding the same unit's output twice leaves
// the accumulator unchanged, which is what makes checkpoint replay safe.
type Incremental struct {
	acc *models.Accum
}

func NewIncremental(acc *models.Accum) *Incremental {
	return &Incremental{acc: acc}
}

// Names replaces the name set recorded for the segment and registers any
// character not yet known. Identity is the case-folded canonical name; a
// differently cased or honorific-bearing variant of a known name becomes an
// alias on the existing record.
func (m *Incremental) Names(segIndex int, names []string) {
	kept := make([]string, 0, len(names))
	seen := map[string]struct{}{}
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		canon := models.CanonicalName(name)
		if _, dup := seen[canon]; dup {
			continue
		}
		seen[canon] = struct{}{}
		rec := m.register(name, segIndex)
		kept = append(kept, rec.Name)
	}
	m.acc.SegmentNames[segIndex] = kept
}

// Dialogs replaces the segment's dialog list wholesale. Replacement rather
// than append is what keeps a replayed segment from doubling its lines;
// duplicates within one segment's output are legitimate repeated speech and
// kept as-is. Speakers are canonicalized against the registry, and a
// speaker the character pass missed is registered here.
func (m *Incremental) Dialogs(segIndex int, dialogs []models.DialogLine) {
	kept := make([]models.DialogLine, 0, len(dialogs))
	for _, d := range dialogs {
		d.Speaker = strings.TrimSpace(d.Speaker)
		if d.Text == "" {
			continue
		}
		switch d.Speaker {
		case "", models.SpeakerUnknown:
			d.Speaker = models.SpeakerUnknown
		case models.SpeakerNarrator:
		default:
			d.Speaker = m.register(d.Speaker, segIndex).Name
		}
		kept = append(kept, d)
	}
	m.acc.SegmentDialogs[segIndex] = kept
}

// Traits unions new traits into each character's list, preserving first-seen
// order. Comparison is case-insensitive so "Brave" never joins "brave".
func (m *Incremental) Traits(segIndex int, traits map[string][]string) {
	for name, list := range traits {
		if strings.TrimSpace(name) == "" || name == models.SpeakerUnknown {
			continue
		}
		rec := m.register(name, segIndex)
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" || containsFold(rec.Traits, t) {
				continue
			}
			rec.Traits = append(rec.Traits, t)
		}
	}
}

// Personality replaces the character's descriptors only when the new result
// is non-empty, so a degraded re-run never erases an earlier good one.
func (m *Incremental) Personality(rec *models.CharacterRecord, personality []string) {
	cleaned := make([]string, 0, len(personality))
	for _, p := range personality {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) > 0 {
		rec.Personality = cleaned
	}
}

// Voice merges field-wise: an incoming non-default value wins over a stored
// default, a stored non-default value survives an incoming default. On a
// non-default vs non-default conflict the incoming value wins (most recent
// suggestion saw the most context).
func (m *Incremental) Voice(rec *models.CharacterRecord, incoming *models.VoiceProfile) {
	if incoming == nil {
		return
	}
	in := incoming.Clamped()
	if rec.Voice == nil {
		rec.Voice = &in
		return
	}
	def := models.DefaultVoiceProfile()
	cur := rec.Voice

	if in.Pitch != def.Pitch {
		cur.Pitch = in.Pitch
	}
	if in.Speed != def.Speed {
		cur.Speed = in.Speed
	}
	if in.Energy != def.Energy {
		cur.Energy = in.Energy
	}
	if in.Gender != def.Gender {
		cur.Gender = in.Gender
	}
	if in.Age != def.Age {
		cur.Age = in.Age
	}
	if in.Tone != "" {
		cur.Tone = in.Tone
	}
	if in.Accent != "" && in.Accent != def.Accent {
		cur.Accent = in.Accent
	}
	if len(in.EmotionBias) > 0 {
		cur.EmotionBias = in.EmotionBias
	}
}

// Summary keeps the latest non-empty summary and theme list.
func (m *Incremental) Summary(summary string, themes []string) {
	if s := strings.TrimSpace(summary); s != "" {
		m.acc.Summary = s
	}
	if len(themes) > 0 {
		m.acc.Themes = themes
	}
}

// RecountDialogs recomputes every character's dialog count from the
// accumulated per-segment lists. Run at finalize, after the last merge.
func (m *Incremental) RecountDialogs() {
	for _, rec := range m.acc.Characters {
		rec.DialogCount = 0
	}
	for _, d := range m.acc.Dialogs() {
		if rec, ok := m.acc.Characters[models.CanonicalName(d.Speaker)]; ok {
			rec.DialogCount++
		}
	}
}

// register returns the record for name, creating it on first sight. A new
// surface form of an existing record is remembered as an alias.
func (m *Incremental) register(name string, segIndex int) *models.CharacterRecord {
	canon := models.CanonicalName(name)
	if rec, ok := m.acc.Characters[canon]; ok {
		if rec.Name != name && !containsExact(rec.Aliases, name) {
			rec.Aliases = append(rec.Aliases, name)
		}
		return rec
	}
	rec := &models.CharacterRecord{Name: name, FirstSegment: segIndex}
	m.acc.Characters[canon] = rec
	return rec
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func containsExact(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
