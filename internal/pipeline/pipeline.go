package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"bookvoice/internal/engine"
	"bookvoice/internal/merge"
	"bookvoice/internal/models"
	"bookvoice/internal/passes"
	"bookvoice/internal/segment"
	"bookvoice/internal/util"
)

// CheckpointStore persists resumable per-chapter state. Load returns
// (nil, nil) when no checkpoint exists; a Load error is treated as a corrupt
// checkpoint and discarded.
type CheckpointStore interface {
	Load(ctx context.Context, chapterID string) (*models.Checkpoint, error)
	Save(ctx context.Context, chapterID string, cp *models.Checkpoint) error
	Delete(ctx context.Context, chapterID string) error
}

// ResultStore receives the finalized chapter analysis.
type ResultStore interface {
	SaveResult(ctx context.Context, res *models.AnalysisResult) error
}

// Progress is reported after every completed unit of work.
type Progress struct {
	ChapterID     string
	Pass          models.PassID
	SegmentIndex  int
	TotalSegments int
}

type ProgressFunc func(Progress)

// Options tune segmentation and checkpoint handling; zero values fall back
// to the defaults below.
type Options struct {
	ContextTokens    int
	CharsPerToken    int
	Tokenizer        string
	CheckpointTTL    time.Duration
	MaxRetries       int
	RetryShrinkChars int
	Progress         ProgressFunc
}

// Orchestrator drives the pass sequence for one chapter at a time. The
// engine handed in is expected to be wrapped in an engine.Gate so that
// concurrent orchestrators serialize their inference calls.
type Orchestrator struct {
	eng         engine.Engine
	checkpoints CheckpointStore
	results     ResultStore
	opts        Options
	est         segment.Estimator

	segPasses  map[models.PassID]passes.SegmentPass
	charPasses map[models.PassID]passes.CharacterPass
	chapPasses map[models.PassID]passes.ChapterPass

	heurSeg  map[models.PassID]passes.SegmentPass
	heurChar map[models.PassID]passes.CharacterPass
	heurChap map[models.PassID]passes.ChapterPass
}

func New(eng engine.Engine, checkpoints CheckpointStore, results ResultStore, opts Options) *Orchestrator {
	if opts.ContextTokens <= 0 {
		opts.ContextTokens = 4096
	}
	if opts.CharsPerToken <= 0 {
		opts.CharsPerToken = segment.DefaultCharsPerToken
	}
	if opts.CheckpointTTL <= 0 {
		opts.CheckpointTTL = 24 * time.Hour
	}
	return &Orchestrator{
		eng:         eng,
		checkpoints: checkpoints,
		results:     results,
		opts:        opts,
		est:         segment.BuildEstimator(opts.Tokenizer, opts.CharsPerToken),
		segPasses: map[models.PassID]passes.SegmentPass{
			models.PassCharacters: passes.NewCharacterExtraction(eng),
			models.PassDialogs:    passes.NewDialogExtraction(eng),
			models.PassTraits:     passes.NewTraitExtraction(eng),
		},
		charPasses: map[models.PassID]passes.CharacterPass{
			models.PassPersonality: passes.NewPersonalityInference(eng),
			models.PassVoice:       passes.NewVoiceProfileSuggestion(eng),
		},
		chapPasses: map[models.PassID]passes.ChapterPass{
			models.PassSummary: passes.NewChapterSummary(eng),
		},
		heurSeg: map[models.PassID]passes.SegmentPass{
			models.PassCharacters: passes.HeuristicCharacterExtraction{},
			models.PassDialogs:    passes.HeuristicDialogExtraction{},
			models.PassTraits:     passes.HeuristicTraitExtraction{},
		},
		heurChar: map[models.PassID]passes.CharacterPass{
			models.PassPersonality: passes.HeuristicPersonalityInference{},
			models.PassVoice:       passes.HeuristicVoiceProfileSuggestion{},
		},
		heurChap: map[models.PassID]passes.ChapterPass{
			models.PassSummary: passes.HeuristicChapterSummary{},
		},
	}
}

// Analyze runs every pass over the chapter, resuming from a valid checkpoint
// when one exists, and finalizes the result. The only error returned is a
// cancellation or a store failure; extraction faults degrade, they do not
// abort.
func (o *Orchestrator) Analyze(ctx context.Context, chapter models.Chapter) (*models.AnalysisResult, error) {
	hash := util.ContentHash(chapter.Text)
	cp := o.loadCheckpoint(ctx, chapter.ChapterID, hash)
	merger := merge.NewIncremental(cp.Accum)

	for _, id := range models.PassOrder {
		if err := o.runPass(ctx, chapter, cp, merger, id); err != nil {
			return nil, err
		}
	}

	return o.finalize(ctx, chapter, cp, merger)
}

// RunPass executes a single pass, loading and persisting the checkpoint
// around it, and reports the pass state it left behind. This is the entry
// point for callers that drive passes one at a time.
func (o *Orchestrator) RunPass(ctx context.Context, chapter models.Chapter, id models.PassID) (models.PassState, error) {
	hash := util.ContentHash(chapter.Text)
	cp := o.loadCheckpoint(ctx, chapter.ChapterID, hash)
	merger := merge.NewIncremental(cp.Accum)
	if err := o.runPass(ctx, chapter, cp, merger, id); err != nil {
		return models.PassState{}, err
	}
	return *cp.State(id), nil
}

// Finalize closes out a chapter whose passes have all completed.
func (o *Orchestrator) Finalize(ctx context.Context, chapter models.Chapter) (*models.AnalysisResult, error) {
	hash := util.ContentHash(chapter.Text)
	cp := o.loadCheckpoint(ctx, chapter.ChapterID, hash)
	return o.finalize(ctx, chapter, cp, merge.NewIncremental(cp.Accum))
}

func (o *Orchestrator) loadCheckpoint(ctx context.Context, chapterID string, hash int64) *models.Checkpoint {
	cp, err := o.checkpoints.Load(ctx, chapterID)
	switch {
	case err != nil:
		log.Warn("discarding unreadable checkpoint", "chapter", chapterID, "error", err)
	case cp == nil:
	case cp.ContentHash != hash:
		log.Info("chapter text changed, restarting analysis", "chapter", chapterID)
		cp = nil
	case cp.Expired(o.opts.CheckpointTTL, time.Now()):
		log.Info("checkpoint expired, restarting analysis", "chapter", chapterID)
		cp = nil
	default:
		log.Info("resuming from checkpoint", "chapter", chapterID)
		return cp
	}
	return models.NewCheckpoint(hash)
}

func (o *Orchestrator) runPass(ctx context.Context, chapter models.Chapter, cp *models.Checkpoint, merger *merge.Incremental, id models.PassID) error {
	st := cp.State(id)
	if st.Status == models.PassDone {
		if !(st.EmptyResult && st.Degraded > 0) {
			return nil
		}
		// A degraded pass that produced nothing is worth one more try.
		log.Info("re-running degraded empty pass", "chapter", chapter.ChapterID, "pass", id)
		*st = models.PassState{Status: models.PassNotStarted, LastCompleted: -1}
	}

	cfg := o.passConfig(id)
	var err error
	switch id {
	case models.PassCharacters, models.PassDialogs, models.PassTraits:
		err = o.runSegmentPass(ctx, chapter, cp, merger, id, cfg)
	case models.PassPersonality, models.PassVoice:
		err = o.runCharacterPass(ctx, chapter, cp, merger, id, cfg)
	case models.PassSummary:
		err = o.runChapterPass(ctx, chapter, cp, merger, id, cfg)
	}
	if err != nil {
		return err
	}

	st.Status = models.PassDone
	st.EmptyResult = passIsEmpty(id, cp.Accum)
	return o.save(ctx, chapter.ChapterID, cp)
}

// passConfig overlays the orchestrator-level retry knobs on the per-pass
// defaults.
func (o *Orchestrator) passConfig(id models.PassID) passes.Config {
	cfg := passes.DefaultConfig(id)
	if o.opts.MaxRetries > 0 {
		cfg.MaxRetries = o.opts.MaxRetries
	}
	if o.opts.RetryShrinkChars > 0 {
		cfg.TokenReductionCharsPerRetry = o.opts.RetryShrinkChars
	}
	return cfg
}

// segmentBudget sizes segments once for all three segment passes so their
// indices address the same text spans; per-segment name hints recorded by
// character extraction only make sense when later passes see the same
// split. The window is the tightest pass's, bounded by both its token
// arithmetic and its hard per-call char cap.
func (o *Orchestrator) segmentBudget() segment.Budget {
	var tight segment.Budget
	for i, id := range []models.PassID{models.PassCharacters, models.PassDialogs, models.PassTraits} {
		cfg := o.passConfig(id)
		b := segment.Budget{
			ContextTokens: o.opts.ContextTokens,
			PromptTokens:  passes.PromptTokens(id),
			OutputTokens:  cfg.MaxOutputTokens,
			CharsPerToken: o.opts.CharsPerToken,
			MaxInputChars: cfg.MaxSegmentChars,
		}
		if i == 0 || b.InputChars() < tight.InputChars() {
			tight = b
		}
	}
	return tight
}

func (o *Orchestrator) runSegmentPass(ctx context.Context, chapter models.Chapter, cp *models.Checkpoint, merger *merge.Incremental, id models.PassID, cfg passes.Config) error {
	segs := segment.Split(chapter.Text, o.segmentBudget(), o.est)

	st := cp.State(id)
	st.Status = models.PassInProgress
	st.TotalUnits = len(segs)

	useHeuristic := !o.eng.Available(ctx)
	for i := st.LastCompleted + 1; i < len(segs); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		seg := segs[i]
		known := o.knownForSegment(cp.Accum, id, seg.Index)

		out, execErr := o.execSegment(ctx, id, seg, known, cfg, useHeuristic)
		if execErr != nil {
			// Engine went away mid-pass; the heuristic twin finishes it.
			log.Warn("engine lost mid-pass, switching to heuristic",
				"pass", id, "segment", i, "error", execErr)
			useHeuristic = true
			out, _ = o.execSegment(ctx, id, seg, known, cfg, true)
		}

		switch id {
		case models.PassCharacters:
			merger.Names(seg.Index, out.Names)
		case models.PassDialogs:
			merger.Dialogs(seg.Index, out.Dialogs)
		case models.PassTraits:
			merger.Traits(seg.Index, out.Traits)
		}
		if out.Degraded {
			st.Degraded++
		}

		st.LastCompleted = i
		if err := o.save(ctx, chapter.ChapterID, cp); err != nil {
			return err
		}
		o.report(chapter.ChapterID, id, i, len(segs))
	}
	return nil
}

func (o *Orchestrator) runCharacterPass(ctx context.Context, chapter models.Chapter, cp *models.Checkpoint, merger *merge.Incremental, id models.PassID, cfg passes.Config) error {
	records := cp.Accum.SortedCharacters()
	dialogs := cp.Accum.Dialogs()

	st := cp.State(id)
	st.Status = models.PassInProgress
	st.TotalUnits = len(records)

	useHeuristic := !o.eng.Available(ctx)
	for i := st.LastCompleted + 1; i < len(records); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := records[i]

		out, execErr := o.execCharacter(ctx, id, rec, dialogs, cfg, useHeuristic)
		if execErr != nil {
			log.Warn("engine lost mid-pass, switching to heuristic",
				"pass", id, "character", rec.Name, "error", execErr)
			useHeuristic = true
			out, _ = o.execCharacter(ctx, id, rec, dialogs, cfg, true)
		}

		switch id {
		case models.PassPersonality:
			merger.Personality(rec, out.Personality)
		case models.PassVoice:
			merger.Voice(rec, out.Voice)
		}
		if out.Degraded {
			st.Degraded++
		}

		st.LastCompleted = i
		if err := o.save(ctx, chapter.ChapterID, cp); err != nil {
			return err
		}
		o.report(chapter.ChapterID, id, i, len(records))
	}
	return nil
}

func (o *Orchestrator) runChapterPass(ctx context.Context, chapter models.Chapter, cp *models.Checkpoint, merger *merge.Incremental, id models.PassID, cfg passes.Config) error {
	st := cp.State(id)
	st.Status = models.PassInProgress
	st.TotalUnits = 1
	if st.LastCompleted >= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	known := cp.Accum.KnownNames()
	pass := o.chapPasses[id]
	if !o.eng.Available(ctx) {
		pass = o.heurChap[id]
	}
	out, err := pass.ExecuteChapter(ctx, chapter.Text, known, cfg)
	if err != nil {
		log.Warn("engine lost on chapter pass, switching to heuristic", "pass", id, "error", err)
		out, _ = o.heurChap[id].ExecuteChapter(ctx, chapter.Text, known, cfg)
	}

	merger.Summary(out.Summary, out.Themes)
	if out.Degraded {
		st.Degraded++
	}
	st.LastCompleted = 0
	if err := o.save(ctx, chapter.ChapterID, cp); err != nil {
		return err
	}
	o.report(chapter.ChapterID, id, 0, 1)
	return nil
}

func (o *Orchestrator) execSegment(ctx context.Context, id models.PassID, seg models.Segment, known []string, cfg passes.Config, heuristic bool) (passes.Output, error) {
	if heuristic {
		return o.heurSeg[id].ExecuteSegment(ctx, seg, known, cfg)
	}
	return o.segPasses[id].ExecuteSegment(ctx, seg, known, cfg)
}

func (o *Orchestrator) execCharacter(ctx context.Context, id models.PassID, rec *models.CharacterRecord, dialogs []models.DialogLine, cfg passes.Config, heuristic bool) (passes.Output, error) {
	if heuristic {
		return o.heurChar[id].ExecuteCharacter(ctx, rec, dialogs, cfg)
	}
	return o.charPasses[id].ExecuteCharacter(ctx, rec, dialogs, cfg)
}

// knownForSegment picks the name hint for a segment pass. Character
// extraction sees everything accumulated so far; dialog and trait extraction
// see the names character extraction recorded on the same segment, which
// the shared split guarantees covers the same text span.
func (o *Orchestrator) knownForSegment(acc *models.Accum, id models.PassID, segIndex int) []string {
	if id == models.PassCharacters {
		return acc.KnownNames()
	}
	names := make([]string, 0, len(acc.SegmentNames[segIndex])+1)
	names = append(names, acc.SegmentNames[segIndex]...)
	return names
}

func (o *Orchestrator) finalize(ctx context.Context, chapter models.Chapter, cp *models.Checkpoint, merger *merge.Incremental) (*models.AnalysisResult, error) {
	// The narrator always exists, even in a chapter with no prose lines.
	if _, ok := cp.Accum.Characters[models.CanonicalName(models.SpeakerNarrator)]; !ok {
		narrator := models.DefaultVoiceProfile()
		cp.Accum.Characters[models.CanonicalName(models.SpeakerNarrator)] = &models.CharacterRecord{
			Name:  models.SpeakerNarrator,
			Voice: &narrator,
		}
	}
	for _, rec := range cp.Accum.Characters {
		if rec.Voice == nil {
			v := models.DefaultVoiceProfile()
			rec.Voice = &v
		}
	}
	merger.RecountDialogs()

	degraded := false
	for _, st := range cp.Passes {
		if st.Degraded > 0 {
			degraded = true
		}
	}
	res := &models.AnalysisResult{
		ChapterID:   chapter.ChapterID,
		Characters:  cp.Accum.SortedCharacters(),
		Dialogs:     cp.Accum.Dialogs(),
		Summary:     cp.Accum.Summary,
		Themes:      cp.Accum.Themes,
		Degraded:    degraded,
		CompletedAt: time.Now().UTC(),
	}
	if err := o.results.SaveResult(ctx, res); err != nil {
		return nil, err
	}
	if err := o.checkpoints.Delete(ctx, chapter.ChapterID); err != nil {
		log.Warn("failed to delete checkpoint after finalize", "chapter", chapter.ChapterID, "error", err)
	}
	log.Info("chapter analysis complete", "chapter", chapter.ChapterID,
		"characters", len(res.Characters), "dialogs", len(res.Dialogs), "degraded", degraded)
	return res, nil
}

func (o *Orchestrator) save(ctx context.Context, chapterID string, cp *models.Checkpoint) error {
	cp.UpdatedAt = time.Now().Unix()
	return o.checkpoints.Save(ctx, chapterID, cp)
}

func (o *Orchestrator) report(chapterID string, id models.PassID, idx, total int) {
	if o.opts.Progress == nil {
		return
	}
	o.opts.Progress(Progress{ChapterID: chapterID, Pass: id, SegmentIndex: idx, TotalSegments: total})
}

// passIsEmpty decides whether a completed pass contributed anything, which
// feeds the re-run-on-resume policy for degraded passes.
func passIsEmpty(id models.PassID, acc *models.Accum) bool {
	switch id {
	case models.PassCharacters:
		return len(acc.Characters) == 0
	case models.PassDialogs:
		return len(acc.Dialogs()) == 0
	case models.PassTraits:
		for _, rec := range acc.Characters {
			if len(rec.Traits) > 0 {
				return false
			}
		}
		return true
	case models.PassPersonality:
		for _, rec := range acc.Characters {
			if len(rec.Personality) > 0 {
				return false
			}
		}
		return true
	case models.PassVoice:
		for _, rec := range acc.Characters {
			if rec.Voice != nil {
				return false
			}
		}
		return true
	case models.PassSummary:
		return acc.Summary == ""
	}
	return false
}
