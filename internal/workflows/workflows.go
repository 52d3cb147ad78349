package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"bookvoice/internal/activities"
	"bookvoice/internal/models"
)

const QueryGetChapterStatus = "GetChapterStatus"

const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// ChapterAnalyzeWorkflow drives the pass sequence for one chapter. Each
// pass runs as one activity; the activity resumes mid-pass from the
// checkpoint on retry, so a generous timeout with heartbeats is enough.
func ChapterAnalyzeWorkflow(ctx workflow.Context, input ChapterAnalyzeInput) (string, error) {
	status := ChapterStatus{
		ChapterID:   input.ChapterID,
		CurrentPass: "init",
		Status:      StatusProcessing,
		Passes:      map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetChapterStatus, func() (ChapterStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    15 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	_ = workflow.ExecuteActivity(ctx, "UpdateChapterStatusActivity", activities.UpdateChapterStatusInput{
		ChapterID: input.ChapterID, Status: StatusProcessing,
	}).Get(ctx, nil)

	for _, id := range models.PassOrder {
		status.CurrentPass = string(id)
		status.Passes[string(id)] = StatusProcessing

		var out activities.RunPassOutput
		err := workflow.ExecuteActivity(ctx, "RunAnalysisPassActivity", activities.RunPassInput{
			ChapterID: input.ChapterID,
			Pass:      string(id),
		}).Get(ctx, &out)
		if err != nil {
			status.Status = StatusFailed
			status.FailReason = err.Error()
			status.Passes[string(id)] = StatusFailed
			_ = workflow.ExecuteActivity(ctx, "UpdateChapterStatusActivity", activities.UpdateChapterStatusInput{
				ChapterID: input.ChapterID, Status: StatusFailed,
			}).Get(ctx, nil)
			return "", err
		}
		status.Passes[string(id)] = out.Status
		if out.Degraded > 0 {
			status.Degraded = true
		}
	}

	status.CurrentPass = "finalize"
	var fin activities.FinalizeChapterOutput
	if err := workflow.ExecuteActivity(ctx, "FinalizeChapterActivity", activities.FinalizeChapterInput{
		ChapterID: input.ChapterID,
	}).Get(ctx, &fin); err != nil {
		status.Status = StatusFailed
		status.FailReason = err.Error()
		return "", err
	}
	status.Characters = fin.Characters
	status.Dialogs = fin.Dialogs
	status.Degraded = status.Degraded || fin.Degraded

	status.Status = StatusDone
	_ = workflow.ExecuteActivity(ctx, "UpdateChapterStatusActivity", activities.UpdateChapterStatusInput{
		ChapterID: input.ChapterID, Status: StatusDone,
	}).Get(ctx, nil)

	return "completed", nil
}
