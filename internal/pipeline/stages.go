// Package pipeline implements the documentation generation pipeline: a fixed
// sequence of content-generation stages driven by a single background worker,
// with durable per-stage progress, token-bounded prompt assembly, plan-driven
// chapter fan-out and graceful degradation under partial failure.
package pipeline

import "time"

// Fixed stage names, executed in this order.
const (
	StageCodeAnalysis      = "code_analysis"
	StagePlanning          = "planning"
	StageContentGeneration = "content_generation"
	StageOptimization      = "optimization"
	StageQualityCheck      = "quality_check"
)

// StageInfo pairs a stage name with its user-facing description.
type StageInfo struct {
	Name        string
	Description string
}

// FixedStages is the canonical stage sequence seeded for every job.
func FixedStages() []StageInfo {
	return []StageInfo{
		{StageCodeAnalysis, "Analyzing repository structure and code"},
		{StagePlanning, "Planning documentation structure"},
		{StageContentGeneration, "Generating documentation content"},
		{StageOptimization, "Optimizing and refining content"},
		{StageQualityCheck, "Performing quality checks"},
	}
}

// ChapterStageName returns the sub-stage name for one chapter of the plan.
func ChapterStageName(chapterID string) string {
	return StageContentGeneration + "_" + chapterID
}

// StageResult is the raw text a stage produced. Results live only for the
// duration of one run: they feed later stages and the final compiler, while
// the durable record keeps only completion state per stage.
type StageResult struct {
	Stage       string
	Content     string
	CompletedAt time.Time
}

// Progress checkpoints. Fetch completes at 10, the fixed stages advance from
// 20 toward 100, and any terminal state pins progress at 100. The curve is
// non-decreasing for the whole run.
const (
	progressFetching   = 10
	progressFirstStage = 20
	progressDone       = 100
)

// stageProgress returns the progress value reported when fixed stage i (of n)
// begins.
func stageProgress(i, n int) int {
	return progressFirstStage + (i*(progressDone-progressFirstStage))/n
}
