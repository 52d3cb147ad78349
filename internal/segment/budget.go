package segment

// Budget declares the token ceiling for one inference call, split between
// the fixed prompt scaffolding, the embedded input text, and the reserved
// output.
type Budget struct {
	ContextTokens int
	PromptTokens  int
	OutputTokens  int
	CharsPerToken int

	// MaxInputChars, when set, caps the character window below what the
	// token arithmetic allows. Passes with a hard per-call text limit set
	// it so segments never carry more text than a call will send.
	MaxInputChars int
}

// InputTokens is what remains of the context window for segment text.
func (b Budget) InputTokens() int {
	n := b.ContextTokens - b.PromptTokens - b.OutputTokens
	if n < 64 {
		n = 64
	}
	return n
}

// InputChars converts the input token allowance into a character window
// using the conservative chars-per-token estimate.
func (b Budget) InputChars() int {
	cpt := b.CharsPerToken
	if cpt <= 0 {
		cpt = DefaultCharsPerToken
	}
	n := b.InputTokens() * cpt
	if b.MaxInputChars > 0 && b.MaxInputChars < n {
		n = b.MaxInputChars
	}
	return n
}
