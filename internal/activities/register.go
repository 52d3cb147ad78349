package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.RunAnalysisPassActivity)
	w.RegisterActivity(a.FinalizeChapterActivity)
	w.RegisterActivity(a.UpdateChapterStatusActivity)
}
