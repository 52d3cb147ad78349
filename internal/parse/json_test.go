package parse

import "testing"

func TestExtractJSONRoundTrip(t *testing.T) {
	payload := `{"characters": ["Alice", "Bob"], "note": "said \"hi\" {not a brace}"}`
	raw := "Sure! Here is the result you asked for:\n```json\n" + payload + "\n```\nLet me know if you need anything else."
	if got := ExtractJSON(raw); got != payload {
		t.Fatalf("payload not recovered byte-for-byte:\n got: %s\nwant: %s", got, payload)
	}
}

func TestExtractJSONBareArray(t *testing.T) {
	payload := `[{"Alice": "Hello."}, {"Narrator": "Bob walked away."}]`
	if got := ExtractJSON("prose before " + payload + " prose after"); got != payload {
		t.Fatalf("array payload not recovered: %s", got)
	}
}

func TestExtractJSONKeepsFirstOfConcatenated(t *testing.T) {
	first := `{"characters": ["Alice"]}`
	raw := first + `{"characters": ["Bob"]}`
	if got := ExtractJSON(raw); got != first {
		t.Fatalf("expected first object only, got: %s", got)
	}
}

func TestExtractJSONStripsThinkBlocks(t *testing.T) {
	raw := "<think>{\"characters\": [\"Wrong\"]}</think>\n{\"characters\": [\"Alice\"]}"
	if got := ExtractJSON(raw); got != `{"characters": ["Alice"]}` {
		t.Fatalf("think block leaked into extraction: %s", got)
	}
}

func TestExtractJSONTruncated(t *testing.T) {
	if got := ExtractJSON(`{"characters": ["Alice"`); got != "" {
		t.Fatalf("expected empty result for truncated JSON, got: %s", got)
	}
	if got := ExtractJSON("no json here at all"); got != "" {
		t.Fatalf("expected empty result for prose, got: %s", got)
	}
}
