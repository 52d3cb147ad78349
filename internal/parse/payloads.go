package parse

import (
	"encoding/json"
	"strconv"
	"strings"

	"bookvoice/internal/models"
)

// Field-name synonyms tolerated across model drift.
var (
	nameKeys        = []string{"characters", "names", "character_names"}
	dialogListKeys  = []string{"dialogs", "dialogues", "dialog", "lines"}
	speakerKeys     = []string{"speaker", "character", "name", "who"}
	textKeys        = []string{"text", "dialog", "line", "quote", "speech"}
	traitKeys       = []string{"traits", "trait"}
	personalityKeys = []string{"personality", "personality_points", "descriptors"}
	voiceKeys       = []string{"voice_profile", "voice", "profile"}
)

// Names decodes a character-extraction payload. Bare arrays of strings are
// accepted alongside the documented {"characters": [...]} shape.
func Names(payload string) []string {
	v := decodeAny(payload)
	switch t := v.(type) {
	case []any:
		return asStringSlice(t)
	case map[string]any:
		if raw, ok := firstField(t, nameKeys...); ok {
			return asStringSlice(raw)
		}
	}
	return nil
}

// Dialogs decodes a dialog-extraction payload, preserving appearance order.
// Accepted shapes: {"dialogs":[{"speaker":..,"text":..},..]}, a bare array
// of those entries, and the compact [{"Name":"quote"},..] form.
func Dialogs(payload string) []models.DialogLine {
	v := decodeAny(payload)
	var entries []any
	switch t := v.(type) {
	case []any:
		entries = t
	case map[string]any:
		if raw, ok := firstField(t, dialogListKeys...); ok {
			entries, _ = raw.([]any)
		}
	}
	out := make([]models.DialogLine, 0, len(entries))
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if line, ok := dialogLine(obj); ok {
			out = append(out, line)
		}
	}
	return out
}

func dialogLine(obj map[string]any) (models.DialogLine, bool) {
	line := models.DialogLine{Intensity: 0.5}
	if raw, ok := firstField(obj, speakerKeys...); ok {
		line.Speaker = strings.TrimSpace(asString(raw))
	}
	if raw, ok := firstField(obj, textKeys...); ok {
		line.Text = asString(raw)
	}
	if raw, ok := firstField(obj, "emotion", "mood"); ok {
		line.Emotion = strings.ToLower(strings.TrimSpace(asString(raw)))
	}
	if raw, ok := firstField(obj, "intensity"); ok {
		line.Intensity = clamp(asFloat(raw, 0.5), 0, 1)
	}
	// Compact form: a single {"Name": "quoted text"} pair.
	if line.Speaker == "" && line.Text == "" && len(obj) == 1 {
		for k, v := range obj {
			line.Speaker = strings.TrimSpace(k)
			line.Text = asString(v)
		}
	}
	if line.Text == "" {
		return models.DialogLine{}, false
	}
	if line.Speaker == "" {
		line.Speaker = models.SpeakerUnknown
	}
	return line, true
}

// Traits decodes a trait-extraction payload into per-character trait lists.
// Both {"character":"Name","traits":[..]} and {"Name":["t1","t2"],..} are
// accepted; an empty list is a valid result.
func Traits(payload string) map[string][]string {
	obj, ok := decodeAny(payload).(map[string]any)
	if !ok {
		return nil
	}
	out := map[string][]string{}
	if rawName, ok := firstField(obj, "character", "name"); ok {
		name := strings.TrimSpace(asString(rawName))
		if name != "" {
			if rawTraits, ok := firstField(obj, traitKeys...); ok {
				out[name] = cleanStrings(asStringSlice(rawTraits))
			} else {
				out[name] = nil
			}
			return out
		}
	}
	for k, v := range obj {
		if isReservedKey(k) {
			continue
		}
		switch t := v.(type) {
		case []any:
			out[k] = cleanStrings(asStringSlice(t))
		case map[string]any:
			if rawTraits, ok := firstField(t, traitKeys...); ok {
				out[k] = cleanStrings(asStringSlice(rawTraits))
			}
		}
	}
	return out
}

// Personality decodes a personality-inference payload into 3-5 short
// descriptors.
func Personality(payload string) []string {
	v := decodeAny(payload)
	switch t := v.(type) {
	case []any:
		return cleanStrings(asStringSlice(t))
	case map[string]any:
		if raw, ok := firstField(t, personalityKeys...); ok {
			return cleanStrings(asStringSlice(raw))
		}
	}
	return nil
}

// VoiceProfile decodes a voice-profile payload and clamps every numeric
// field into its declared range. Out-of-range values are clamped, never
// rejected.
func VoiceProfile(payload string) (models.VoiceProfile, bool) {
	obj, ok := decodeAny(payload).(map[string]any)
	if !ok {
		return models.VoiceProfile{}, false
	}
	if raw, ok := firstField(obj, voiceKeys...); ok {
		if inner, ok := raw.(map[string]any); ok {
			obj = inner
		}
	} else if raw, ok := firstField(obj, "characters"); ok {
		// {"characters":[{"name":..,"voice_profile":{..}}]} wire shape.
		if list, ok := raw.([]any); ok && len(list) > 0 {
			if entry, ok := list[0].(map[string]any); ok {
				if vp, ok := firstField(entry, voiceKeys...); ok {
					if inner, ok := vp.(map[string]any); ok {
						obj = inner
					}
				}
			}
		}
	}
	profile := models.DefaultVoiceProfile()
	found := false
	if raw, ok := firstField(obj, "pitch"); ok {
		profile.Pitch = asFloat(raw, 1.0)
		found = true
	}
	if raw, ok := firstField(obj, "speed", "rate"); ok {
		profile.Speed = asFloat(raw, 1.0)
		found = true
	}
	if raw, ok := firstField(obj, "energy"); ok {
		profile.Energy = asFloat(raw, 1.0)
		found = true
	}
	if raw, ok := firstField(obj, "gender"); ok {
		profile.Gender = models.NormalizeGender(asString(raw))
		found = true
	}
	if raw, ok := firstField(obj, "age", "age_group"); ok {
		profile.Age = models.NormalizeAge(asString(raw))
		found = true
	}
	if raw, ok := firstField(obj, "tone"); ok {
		profile.Tone = strings.TrimSpace(asString(raw))
		found = true
	}
	if raw, ok := firstField(obj, "accent"); ok {
		profile.Accent = strings.TrimSpace(asString(raw))
		found = true
	}
	if raw, ok := firstField(obj, "emotion_bias", "emotions"); ok {
		if m, ok := raw.(map[string]any); ok && len(m) > 0 {
			profile.EmotionBias = make(map[string]float64, len(m))
			for k, v := range m {
				profile.EmotionBias[strings.ToLower(strings.TrimSpace(k))] = asFloat(v, 0)
			}
			found = true
		}
	}
	if !found {
		return models.VoiceProfile{}, false
	}
	return profile.Clamped(), true
}

// Summary decodes a chapter summary payload; plain non-JSON text is accepted
// as the summary itself.
func Summary(payload, raw string) (string, []string) {
	if obj, ok := decodeAny(payload).(map[string]any); ok {
		summary := ""
		var themes []string
		if v, ok := firstField(obj, "summary", "synopsis"); ok {
			summary = strings.TrimSpace(asString(v))
		}
		if v, ok := firstField(obj, "themes", "topics"); ok {
			themes = cleanStrings(asStringSlice(v))
		}
		if summary != "" || len(themes) > 0 {
			return summary, themes
		}
	}
	return strings.TrimSpace(raw), nil
}

func decodeAny(payload string) any {
	if strings.TrimSpace(payload) == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil
	}
	return v
}

// firstField matches keys case-insensitively against the synonym list.
func firstField(m map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		for k, v := range m {
			if strings.EqualFold(strings.TrimSpace(k), key) {
				return v, true
			}
		}
	}
	return nil, false
}

func isReservedKey(k string) bool {
	switch strings.ToLower(strings.TrimSpace(k)) {
	case "character", "name", "traits", "trait", "characters":
		return true
	}
	return false
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func asStringSlice(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := strings.TrimSpace(asString(e)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	}
	return nil
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(strings.Trim(s, "*-\t "))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asFloat(v any, def float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return def
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
