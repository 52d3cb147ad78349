package workflows

type ChapterAnalyzeInput struct {
	ChapterID string `json:"chapter_id"`
}

// ChapterStatus is the queryable progress snapshot for one chapter's
// analysis run.
type ChapterStatus struct {
	ChapterID   string            `json:"chapter_id"`
	CurrentPass string            `json:"current_pass"`
	Status      string            `json:"status"`
	Passes      map[string]string `json:"passes"`
	Degraded    bool              `json:"degraded"`
	Characters  int               `json:"characters"`
	Dialogs     int               `json:"dialogs"`
	FailReason  string            `json:"fail_reason,omitempty"`
}
