package activities

import "bookvoice/internal/models"

type CreateChapterInput struct {
	ChapterID string `json:"chapter_id"`
	BookID    string `json:"book_id,omitempty"`
	Title     string `json:"title"`
	Text      string `json:"text"`
}

type RunPassInput struct {
	ChapterID string `json:"chapter_id"`
	Pass      string `json:"pass"`
}

type RunPassOutput struct {
	Status      string `json:"status"`
	TotalUnits  int    `json:"total_units"`
	Degraded    int    `json:"degraded_units"`
	EmptyResult bool   `json:"empty_result"`
}

type FinalizeChapterInput struct {
	ChapterID string `json:"chapter_id"`
}

type FinalizeChapterOutput struct {
	Characters int  `json:"characters"`
	Dialogs    int  `json:"dialogs"`
	Degraded   bool `json:"degraded"`
}

type UpdateChapterStatusInput struct {
	ChapterID string `json:"chapter_id"`
	Status    string `json:"status"`
}

type GetResultOutput struct {
	Result *models.AnalysisResult `json:"result"`
}
