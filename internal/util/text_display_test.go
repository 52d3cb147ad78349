package util

import (
	"strings"
	"testing"
)

func TestDisplaySnippet(t *testing.T) {
	in := "Hello\x00   world \n\t again"
	out := DisplaySnippet(in, 100)
	if out != "Hello world again" {
		t.Fatalf("unexpected snippet: %q", out)
	}
}

func TestDisplaySnippetTruncates(t *testing.T) {
	in := strings.Repeat("a", 50)
	out := DisplaySnippet(in, 10)
	if out != strings.Repeat("a", 10)+"..." {
		t.Fatalf("unexpected truncation: %q", out)
	}
}
