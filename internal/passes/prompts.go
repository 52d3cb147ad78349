package passes

import (
	"encoding/json"
	"fmt"
	"strings"
)

const jsonReminder = "Ensure the JSON is valid and contains no trailing commas."

// maxKnownNamesInPrompt caps the hint list so it never crowds out the
// segment text.
const maxKnownNamesInPrompt = 10

func namesJSON(names []string) string {
	if len(names) > maxKnownNamesInPrompt {
		names = names[:maxKnownNamesInPrompt]
	}
	b, _ := json.Marshal(names)
	return string(b)
}

func characterPrompts(text string, known []string) (string, string) {
	system := "You are a character name extraction engine.\n" +
		"Extract ONLY proper names of characters present in the provided text.\n" +
		"Output valid JSON only."
	var sb strings.Builder
	sb.WriteString("STRICT RULES:\n")
	sb.WriteString("- Extract ONLY proper names explicitly written in the text (e.g., \"Harry Potter\", \"Hermione\", \"Mr. Dursley\")\n")
	sb.WriteString("- Do NOT include pronouns, generic descriptions, group references, or bare titles\n")
	sb.WriteString("- Do NOT split full names: if \"Harry Potter\" appears, do NOT list \"Potter\" separately\n")
	sb.WriteString("- Include a name only if the character speaks, acts, or is directly described in this text\n")
	if len(known) > 0 {
		sb.WriteString("\nALREADY KNOWN (skip unless they reappear here): ")
		sb.WriteString(namesJSON(known))
		sb.WriteString("\n")
	}
	sb.WriteString("\nOUTPUT FORMAT (valid JSON only):\n{\"characters\": [\"Name1\", \"Name2\"]}\n\nTEXT:\n")
	sb.WriteString(text)
	sb.WriteString("\n")
	sb.WriteString(jsonReminder)
	return system, sb.String()
}

func dialogPrompts(text string, known []string) (string, string) {
	system := "You are a dialog extraction engine.\n" +
		"Extract quoted speech and attribute it to the correct speaker.\n" +
		"Output valid JSON only."
	var sb strings.Builder
	sb.WriteString("CHARACTERS IN THIS TEXT: ")
	sb.WriteString(namesJSON(known))
	sb.WriteString("\n\nEXTRACTION RULES:\n")
	sb.WriteString("1. Extract text within quotation marks in order of appearance\n")
	sb.WriteString("2. Attribute each quote to the nearest character name BEFORE or AFTER it (\"said [Name]\", \"[Name] said\")\n")
	sb.WriteString("3. Use \"Narrator\" for non-dialog prose and \"Unknown\" when the speaker cannot be determined\n")
	sb.WriteString("4. Infer emotion (neutral, happy, sad, angry, surprised, fearful, excited, worried, curious, defiant) and intensity 0.0-1.0\n")
	sb.WriteString("\nOUTPUT FORMAT (valid JSON only):\n{\"dialogs\": [{\"speaker\": \"Name\", \"text\": \"dialog\", \"emotion\": \"neutral\", \"intensity\": 0.5}]}\n\nTEXT:\n")
	sb.WriteString(text)
	sb.WriteString("\n")
	sb.WriteString(jsonReminder)
	return system, sb.String()
}

func traitPrompts(text string, known []string) (string, string) {
	system := "You are a trait extraction engine.\n" +
		"Extract ONLY traits explicitly stated or shown in the provided text.\n" +
		"Output valid JSON only."
	var sb strings.Builder
	sb.WriteString("CHARACTERS: ")
	sb.WriteString(namesJSON(known))
	sb.WriteString("\n\nSTRICT RULES:\n")
	sb.WriteString("- Include physical descriptions, demonstrated behavior, and speech patterns that are explicitly in the text\n")
	sb.WriteString("- Do NOT infer personality from actions and do NOT add interpretations\n")
	sb.WriteString("- An empty list is the correct answer when nothing is stated for a character\n")
	sb.WriteString("\nOUTPUT FORMAT (valid JSON only):\n{\"Name1\": [\"trait1\", \"trait2\"], \"Name2\": []}\n\nTEXT:\n")
	sb.WriteString(text)
	sb.WriteString("\n")
	sb.WriteString(jsonReminder)
	return system, sb.String()
}

func personalityPrompts(name string, traits []string) (string, string) {
	system := fmt.Sprintf("You are a personality analysis engine.\n"+
		"Infer the personality of %q based ONLY on the traits provided.\n"+
		"Output valid JSON only.", name)
	traitsJSON, _ := json.Marshal(traits)
	var sb strings.Builder
	sb.WriteString("TRAITS:\n")
	sb.WriteString(string(traitsJSON))
	sb.WriteString("\n\nSTRICT RULES:\n")
	sb.WriteString("- Base the inference ONLY on the provided traits; introduce no new facts\n")
	sb.WriteString("- Provide 3-5 short personality points\n")
	sb.WriteString(fmt.Sprintf("\nOUTPUT FORMAT (valid JSON only):\n{\"character\": %q, \"personality\": [\"point1\", \"point2\", \"point3\"]}\n", name))
	sb.WriteString(jsonReminder)
	return system, sb.String()
}

func voicePrompts(name string, traits, personality []string, sampleDialogs []string) (string, string) {
	system := fmt.Sprintf("You are a voice casting director for audiobook narration.\n"+
		"Suggest a TTS voice profile for %q based on the description below.\n"+
		"Output valid JSON only.", name)
	traitsJSON, _ := json.Marshal(traits)
	personalityJSON, _ := json.Marshal(personality)
	var sb strings.Builder
	sb.WriteString("TRAITS: ")
	sb.WriteString(string(traitsJSON))
	sb.WriteString("\nPERSONALITY: ")
	sb.WriteString(string(personalityJSON))
	if len(sampleDialogs) > 0 {
		sb.WriteString("\nSAMPLE DIALOG:\n")
		for _, d := range sampleDialogs {
			sb.WriteString("- ")
			sb.WriteString(d)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nUse values in ranges: pitch/speed/energy 0.5-1.5; emotion_bias values 0.0-1.0.\n")
	sb.WriteString("\nOUTPUT FORMAT (valid JSON only):\n{\"voice_profile\": {\"pitch\": 1.0, \"speed\": 1.0, \"energy\": 1.0, " +
		"\"gender\": \"male|female|neutral\", \"age\": \"kid|teen|young|adult|middle-aged|elderly\", " +
		"\"tone\": \"description\", \"accent\": \"neutral\", \"emotion_bias\": {\"calm\": 0.5}}}\n")
	sb.WriteString(jsonReminder)
	return system, sb.String()
}

func summaryPrompts(text string, known []string) (string, string) {
	system := "You are a literary analyst.\n" +
		"Summarize the chapter and name its main themes.\n" +
		"Output valid JSON only."
	var sb strings.Builder
	sb.WriteString("KNOWN CHARACTERS: ")
	sb.WriteString(namesJSON(known))
	sb.WriteString("\n\nOUTPUT FORMAT (valid JSON only):\n{\"summary\": \"3-5 sentences\", \"themes\": [\"theme1\", \"theme2\"]}\n\nTEXT:\n")
	sb.WriteString(text)
	sb.WriteString("\n")
	sb.WriteString(jsonReminder)
	return system, sb.String()
}
