package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"bookvoice/internal/activities"
	"bookvoice/internal/models"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func newChapterEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ChapterAnalyzeWorkflow)
	registerActivityName(env, "UpdateChapterStatusActivity", func(context.Context, activities.UpdateChapterStatusInput) error { return nil })
	registerActivityName(env, "RunAnalysisPassActivity", func(context.Context, activities.RunPassInput) (activities.RunPassOutput, error) {
		return activities.RunPassOutput{}, nil
	})
	registerActivityName(env, "FinalizeChapterActivity", func(context.Context, activities.FinalizeChapterInput) (activities.FinalizeChapterOutput, error) {
		return activities.FinalizeChapterOutput{}, nil
	})
	return env
}

func TestChapterAnalyzeWorkflowSuccess(t *testing.T) {
	env := newChapterEnv(t)

	var passesRun []string
	env.OnActivity("UpdateChapterStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("RunAnalysisPassActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.RunPassInput) (activities.RunPassOutput, error) {
			passesRun = append(passesRun, in.Pass)
			return activities.RunPassOutput{Status: "done", TotalUnits: 1}, nil
		})
	env.OnActivity("FinalizeChapterActivity", mock.Anything, activities.FinalizeChapterInput{ChapterID: "ch-1"}).
		Return(activities.FinalizeChapterOutput{Characters: 3, Dialogs: 7}, nil)

	env.ExecuteWorkflow(ChapterAnalyzeWorkflow, ChapterAnalyzeInput{ChapterID: "ch-1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out)

	want := make([]string, 0, len(models.PassOrder))
	for _, id := range models.PassOrder {
		want = append(want, string(id))
	}
	require.Equal(t, want, passesRun)

	v, err := env.QueryWorkflow(QueryGetChapterStatus)
	require.NoError(t, err)
	var status ChapterStatus
	require.NoError(t, v.Get(&status))
	require.Equal(t, StatusDone, status.Status)
	require.Equal(t, 3, status.Characters)
	require.Equal(t, 7, status.Dialogs)
	require.False(t, status.Degraded)
}

func TestChapterAnalyzeWorkflowDegradedPassesMarkStatus(t *testing.T) {
	env := newChapterEnv(t)

	env.OnActivity("UpdateChapterStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("RunAnalysisPassActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.RunPassInput) (activities.RunPassOutput, error) {
			out := activities.RunPassOutput{Status: "done", TotalUnits: 2}
			if in.Pass == string(models.PassDialogs) {
				out.Degraded = 2
			}
			return out, nil
		})
	env.OnActivity("FinalizeChapterActivity", mock.Anything, mock.Anything).
		Return(activities.FinalizeChapterOutput{Characters: 2, Dialogs: 0, Degraded: true}, nil)

	env.ExecuteWorkflow(ChapterAnalyzeWorkflow, ChapterAnalyzeInput{ChapterID: "ch-1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	v, err := env.QueryWorkflow(QueryGetChapterStatus)
	require.NoError(t, err)
	var status ChapterStatus
	require.NoError(t, v.Get(&status))
	require.True(t, status.Degraded)
	require.Equal(t, StatusDone, status.Status)
}

func TestChapterAnalyzeWorkflowPassFailureFailsChapter(t *testing.T) {
	env := newChapterEnv(t)

	env.OnActivity("UpdateChapterStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("RunAnalysisPassActivity", mock.Anything, mock.Anything).
		Return(activities.RunPassOutput{}, errors.New("chapter ch-1 not found"))

	env.ExecuteWorkflow(ChapterAnalyzeWorkflow, ChapterAnalyzeInput{ChapterID: "ch-1"})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}
