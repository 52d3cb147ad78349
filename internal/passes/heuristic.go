package passes

import (
	"context"
	"regexp"
	"strings"

	"bookvoice/internal/models"
)

// Heuristic twins of the inference-backed passes. They satisfy the same
// interfaces and are selected when the engine is unavailable, so a chapter
// always reaches Done even with no model behind it. Their outputs are
// always marked degraded.

var sentenceStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "he": {}, "she": {}, "it": {}, "they": {},
	"i": {}, "we": {}, "you": {}, "but": {}, "and": {}, "or": {}, "then": {},
	"there": {}, "this": {}, "that": {}, "his": {}, "her": {}, "its": {},
	"when": {}, "while": {}, "after": {}, "before": {}, "as": {}, "at": {},
	"in": {}, "on": {}, "if": {}, "no": {}, "not": {}, "yes": {}, "so": {},
	"what": {}, "who": {}, "how": {}, "why": {}, "where": {}, "now": {},
	"chapter": {}, "suddenly": {}, "meanwhile": {}, "however": {},
	"narrator": {}, "unknown": {}, "everyone": {}, "someone": {},
	"nobody": {}, "everything": {}, "nothing": {},
}

var properNameRe = regexp.MustCompile(`\b((?:Mr\.|Mrs\.|Ms\.|Dr\.|Miss|Sir|Lady|Lord|Professor|Captain)\s+)?([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\b`)

var quoteRe = regexp.MustCompile(`["\x{201c}]([^"\x{201c}\x{201d}]+)["\x{201d}]`)

// HeuristicCharacterExtraction scans narration for capitalized proper-name
// shapes. Quoted spans are masked first so interjections like "Hello" do
// not register as names, and common sentence openers are filtered through
// a stopword list.
type HeuristicCharacterExtraction struct{}

func (HeuristicCharacterExtraction) ID() models.PassID { return models.PassCharacters }

func (HeuristicCharacterExtraction) ExecuteSegment(_ context.Context, seg models.Segment, _ []string, _ Config) (Output, error) {
	narration := quoteRe.ReplaceAllStringFunc(seg.Text, func(q string) string {
		return strings.Repeat(" ", len(q))
	})

	var names []string
	seen := map[string]struct{}{}
	for _, loc := range properNameRe.FindAllStringSubmatchIndex(narration, -1) {
		name := strings.TrimSpace(narration[loc[0]:loc[1]])
		bare := narration[loc[4]:loc[5]]
		if loc[2] < 0 && isStopword(bare) {
			continue
		}
		canon := models.CanonicalName(name)
		if _, dup := seen[canon]; dup {
			continue
		}
		seen[canon] = struct{}{}
		names = append(names, name)
	}
	return Output{Names: names, Degraded: true}, nil
}

func isStopword(word string) bool {
	for _, w := range strings.Fields(strings.ToLower(word)) {
		if _, ok := sentenceStopwords[w]; !ok {
			return false
		}
	}
	return true
}

var saidVerbs = `said|asked|replied|shouted|whispered|answered|cried|muttered|called|exclaimed|murmured|snapped|yelled`

// HeuristicDialogExtraction finds quoted spans and attributes each to the
// nearest named character mentioned around the quote, preferring an
// explicit "<name> said" / "said <name>" tag. Prose between quotes becomes
// Narrator lines so the appearance order of the segment is preserved.
type HeuristicDialogExtraction struct{}

func (HeuristicDialogExtraction) ID() models.PassID { return models.PassDialogs }

func (HeuristicDialogExtraction) ExecuteSegment(_ context.Context, seg models.Segment, known []string, _ Config) (Output, error) {
	matches := quoteRe.FindAllStringSubmatchIndex(seg.Text, -1)
	out := Output{Degraded: true}
	prev := 0
	for _, m := range matches {
		if narration := strings.TrimSpace(seg.Text[prev:m[0]]); narration != "" {
			out.Dialogs = append(out.Dialogs, models.DialogLine{
				Speaker:   models.SpeakerNarrator,
				Text:      narration,
				Emotion:   "neutral",
				Intensity: 0.3,
			})
		}
		quote := strings.TrimSpace(seg.Text[m[2]:m[3]])
		if quote != "" {
			out.Dialogs = append(out.Dialogs, models.DialogLine{
				Speaker:   attributeQuote(seg.Text, m[0], m[1], known),
				Text:      quote,
				Emotion:   "neutral",
				Intensity: 0.5,
			})
		}
		prev = m[1]
	}
	if narration := strings.TrimSpace(seg.Text[prev:]); narration != "" {
		out.Dialogs = append(out.Dialogs, models.DialogLine{
			Speaker:   models.SpeakerNarrator,
			Text:      narration,
			Emotion:   "neutral",
			Intensity: 0.3,
		})
	}
	return out, nil
}

// attributeQuote looks for a speech tag in a window before and after the
// quote, then falls back to the nearest known name, then Unknown.
func attributeQuote(text string, start, end int, known []string) string {
	const window = 120
	lo := start - window
	if lo < 0 {
		lo = 0
	}
	hi := end + window
	if hi > len(text) {
		hi = len(text)
	}
	before, after := text[lo:start], text[end:hi]

	for _, name := range known {
		if name == models.SpeakerNarrator {
			continue
		}
		tagged := regexp.QuoteMeta(name)
		if regexp.MustCompile(tagged+`\s+(?:`+saidVerbs+`)`).MatchString(before) ||
			regexp.MustCompile(`(?:`+saidVerbs+`)\s+`+tagged).MatchString(after) {
			return name
		}
	}

	best, bestDist := "", -1
	for _, name := range known {
		if name == models.SpeakerNarrator {
			continue
		}
		if idx := strings.LastIndex(before, name); idx >= 0 {
			dist := len(before) - idx
			if bestDist < 0 || dist < bestDist {
				best, bestDist = name, dist
			}
		}
		if idx := strings.Index(after, name); idx >= 0 {
			dist := idx + 1
			if bestDist < 0 || dist < bestDist {
				best, bestDist = name, dist
			}
		}
	}
	if best != "" {
		return best
	}
	return models.SpeakerUnknown
}

var copulaTraitWords = `was|is|were|seemed|looked|appeared|felt|sounded|remained`

var traitFillers = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "not": {}, "no": {}, "there": {}, "here": {},
	"in": {}, "at": {}, "on": {}, "to": {}, "his": {}, "her": {}, "their": {},
	"going": {}, "about": {}, "still": {}, "also": {}, "now": {}, "then": {},
	"one": {}, "just": {}, "only": {}, "so": {}, "too": {},
}

// HeuristicTraitExtraction catches "<name> was <adjective>" shapes for the
// segment's known characters. Anything it cannot match cleanly it skips;
// empty results are fine.
type HeuristicTraitExtraction struct{}

func (HeuristicTraitExtraction) ID() models.PassID { return models.PassTraits }

func (HeuristicTraitExtraction) ExecuteSegment(_ context.Context, seg models.Segment, known []string, _ Config) (Output, error) {
	traits := map[string][]string{}
	for _, name := range known {
		if name == models.SpeakerNarrator {
			continue
		}
		re := regexp.MustCompile(regexp.QuoteMeta(name) +
			`\s+(?:` + copulaTraitWords + `)\s+(?:very\s+|quite\s+|rather\s+|so\s+)?([a-z]+)`)
		for _, m := range re.FindAllStringSubmatch(seg.Text, -1) {
			word := strings.ToLower(m[1])
			if _, filler := traitFillers[word]; filler || len(word) < 3 {
				continue
			}
			if !containsFold(traits[name], word) {
				traits[name] = append(traits[name], word)
			}
		}
	}
	if len(traits) == 0 {
		return Output{Degraded: true}, nil
	}
	return Output{Traits: traits, Degraded: true}, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// HeuristicPersonalityInference reuses the accumulated traits directly as
// personality descriptors.
type HeuristicPersonalityInference struct{}

func (HeuristicPersonalityInference) ID() models.PassID { return models.PassPersonality }

func (HeuristicPersonalityInference) ExecuteCharacter(_ context.Context, rec *models.CharacterRecord, _ []models.DialogLine, _ Config) (Output, error) {
	if len(rec.Traits) == 0 {
		return Output{Personality: placeholderPersonality, Degraded: true}, nil
	}
	pts := make([]string, 0, 5)
	for _, t := range rec.Traits {
		pts = append(pts, t)
		if len(pts) == 5 {
			break
		}
	}
	return Output{Personality: pts, Degraded: true}, nil
}

// HeuristicVoiceProfileSuggestion starts from the default profile and
// nudges gender/age from honorifics and age-laden traits.
type HeuristicVoiceProfileSuggestion struct{}

func (HeuristicVoiceProfileSuggestion) ID() models.PassID { return models.PassVoice }

func (HeuristicVoiceProfileSuggestion) ExecuteCharacter(_ context.Context, rec *models.CharacterRecord, _ []models.DialogLine, _ Config) (Output, error) {
	profile := models.DefaultVoiceProfile()

	names := append([]string{rec.Name}, rec.Aliases...)
	for _, n := range names {
		switch {
		case hasHonorific(n, "Mr.", "Sir", "Lord", "Captain"):
			profile.Gender = models.GenderMale
		case hasHonorific(n, "Mrs.", "Ms.", "Miss", "Lady"):
			profile.Gender = models.GenderFemale
		}
	}
	for _, t := range rec.Traits {
		switch strings.ToLower(t) {
		case "old", "elderly", "ancient", "aged":
			profile.Age = models.AgeElderly
		case "young", "youthful", "boyish", "girlish":
			profile.Age = models.AgeYoung
		}
	}
	if rec.Name == models.SpeakerNarrator {
		profile.Speed = 0.95
	}
	return Output{Voice: &profile, Degraded: true}, nil
}

func hasHonorific(name string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p+" ") {
			return true
		}
	}
	return false
}

var sentenceEndRe = regexp.MustCompile(`[.!?][)"\x{201d}]?(\s|$)`)

// HeuristicChapterSummary takes the first few sentences of the chapter.
type HeuristicChapterSummary struct{}

func (HeuristicChapterSummary) ID() models.PassID { return models.PassSummary }

func (HeuristicChapterSummary) ExecuteChapter(_ context.Context, text string, _ []string, _ Config) (Output, error) {
	const maxSentences = 3
	trimmed := strings.TrimSpace(text)
	ends := sentenceEndRe.FindAllStringIndex(trimmed, maxSentences)
	summary := trimmed
	if len(ends) == maxSentences {
		summary = strings.TrimSpace(trimmed[:ends[maxSentences-1][1]])
	}
	const maxChars = 600
	if len(summary) > maxChars {
		summary = summary[:maxChars]
	}
	return Output{Summary: summary, Degraded: true}, nil
}
