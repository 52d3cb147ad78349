package segment

import "testing"

func TestRatioEstimator(t *testing.T) {
	est := RatioEstimator{CharsPerToken: 4}
	if got := est.Count("abcdefgh"); got != 2 {
		t.Fatalf("expected 2 tokens, got %d", got)
	}
	if got := est.Count(""); got != 1 {
		t.Fatalf("expected floor of 1 token, got %d", got)
	}
}

func TestBudgetDerivation(t *testing.T) {
	b := Budget{ContextTokens: 4096, PromptTokens: 300, OutputTokens: 1024, CharsPerToken: 4}
	if got := b.InputTokens(); got != 2772 {
		t.Fatalf("input tokens: got %d", got)
	}
	if got := b.InputChars(); got != 2772*4 {
		t.Fatalf("input chars: got %d", got)
	}
}

func TestBuildEstimatorFallsBackToRatio(t *testing.T) {
	est := BuildEstimator("ratio", 4)
	if _, ok := est.(RatioEstimator); !ok {
		t.Fatalf("expected ratio estimator, got %T", est)
	}
}

func TestBudgetMaxInputCharsCap(t *testing.T) {
	b := Budget{ContextTokens: 4096, PromptTokens: 260, OutputTokens: 384, CharsPerToken: 4}
	if got := b.InputChars(); got != 13808 {
		t.Fatalf("uncapped chars: got %d", got)
	}
	b.MaxInputChars = 6000
	if got := b.InputChars(); got != 6000 {
		t.Fatalf("capped chars: got %d", got)
	}
}
