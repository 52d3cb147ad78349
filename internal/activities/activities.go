package activities

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.temporal.io/sdk/activity"

	"bookvoice/internal/config"
	"bookvoice/internal/engine"
	"bookvoice/internal/models"
	"bookvoice/internal/pipeline"
	"bookvoice/internal/storage"
	"bookvoice/internal/util"
)

type Activities struct {
	cfg            config.Config
	chapterRepo    *storage.ChapterRepo
	checkpointRepo *storage.CheckpointRepo
	resultRepo     *storage.ResultRepo
	gate           *engine.Gate
}

// New wires the worker-wide dependencies. The gate is shared by every
// activity on this worker so inference calls serialize across chapters.
func New(cfg config.Config, db *storage.DB) (*Activities, error) {
	eng, err := engine.Build(cfg)
	if err != nil {
		return nil, err
	}
	return &Activities{
		cfg:            cfg,
		chapterRepo:    storage.NewChapterRepo(db),
		checkpointRepo: storage.NewCheckpointRepo(db),
		resultRepo:     storage.NewResultRepo(db),
		gate:           engine.NewGate(eng, time.Duration(cfg.CallTimeoutSecs)*time.Second),
	}, nil
}

// orchestrator builds a per-activity pipeline so progress can heartbeat
// through the activity context. The engine gate underneath stays shared.
func (a *Activities) orchestrator(ctx context.Context) *pipeline.Orchestrator {
	return pipeline.New(a.gate, a.checkpointRepo, a.resultRepo, pipeline.Options{
		ContextTokens:    a.cfg.ContextTokens,
		CharsPerToken:    a.cfg.CharsPerToken,
		Tokenizer:        a.cfg.Tokenizer,
		CheckpointTTL:    time.Duration(a.cfg.CheckpointTTLHours) * time.Hour,
		MaxRetries:       a.cfg.MaxRetries,
		RetryShrinkChars: a.cfg.RetryShrinkChars,
		Progress: func(p pipeline.Progress) {
			activity.RecordHeartbeat(ctx, p)
		},
	})
}

func (a *Activities) loadChapter(ctx context.Context, chapterID string) (*models.Chapter, error) {
	chapter, err := a.chapterRepo.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if chapter == nil {
		return nil, fmt.Errorf("chapter %s not found", chapterID)
	}
	return chapter, nil
}

func (a *Activities) RunAnalysisPassActivity(ctx context.Context, in RunPassInput) (RunPassOutput, error) {
	chapter, err := a.loadChapter(ctx, in.ChapterID)
	if err != nil {
		return RunPassOutput{}, err
	}
	st, err := a.orchestrator(ctx).RunPass(ctx, *chapter, models.PassID(in.Pass))
	if err != nil {
		return RunPassOutput{}, err
	}
	return RunPassOutput{
		Status:      string(st.Status),
		TotalUnits:  st.TotalUnits,
		Degraded:    st.Degraded,
		EmptyResult: st.EmptyResult,
	}, nil
}

func (a *Activities) FinalizeChapterActivity(ctx context.Context, in FinalizeChapterInput) (FinalizeChapterOutput, error) {
	chapter, err := a.loadChapter(ctx, in.ChapterID)
	if err != nil {
		return FinalizeChapterOutput{}, err
	}
	res, err := a.orchestrator(ctx).Finalize(ctx, *chapter)
	if err != nil {
		return FinalizeChapterOutput{}, err
	}
	if err := a.writeArtifacts(res); err != nil {
		return FinalizeChapterOutput{}, err
	}
	return FinalizeChapterOutput{
		Characters: len(res.Characters),
		Dialogs:    len(res.Dialogs),
		Degraded:   res.Degraded,
	}, nil
}

// writeArtifacts mirrors the stored result onto disk for downstream audio
// tooling: the full analysis, dialog lines as JSONL, and the plain summary.
func (a *Activities) writeArtifacts(res *models.AnalysisResult) error {
	dir := util.SafeJoin(a.cfg.DataOutRoot, res.ChapterID)
	if err := util.WriteJSONAtomic(filepath.Join(dir, "analysis.json"), res); err != nil {
		return err
	}
	rows := make([]any, 0, len(res.Dialogs))
	for _, d := range res.Dialogs {
		rows = append(rows, d)
	}
	if err := util.WriteJSONLinesAtomic(filepath.Join(dir, "dialogs.jsonl"), rows); err != nil {
		return err
	}
	return util.WriteTextAtomic(filepath.Join(dir, "summary.txt"), res.Summary+"\n")
}

func (a *Activities) UpdateChapterStatusActivity(ctx context.Context, in UpdateChapterStatusInput) error {
	return a.chapterRepo.UpdateChapterStatus(ctx, in.ChapterID, in.Status)
}
