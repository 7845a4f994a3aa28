package pipeline

import (
	"fmt"
	"strings"

	"github.com/jackzampolin/docsmith/internal/fetcher"
)

// Token budgets for prompt sections. Costs are approximated at 4 characters
// per token; no tokenizer is involved, only consistency matters. Truncation
// is a hard character slice with a marker suffix so downstream consumers can
// detect it. This is intentionally not word- or sentence-aware: the simple
// slice keeps runs reproducible.
const (
	charsPerToken = 4

	maxFileTreeTokens   = 10000 // about 40K characters
	maxReadmeTokens     = 5000  // about 20K characters
	maxPrevResultTokens = 20000 // about 80K characters per previous stage
)

// Truncation markers appended whenever a section is cut.
const (
	markerFileTree   = "...(more files omitted to fit token limit)"
	markerReadme     = "...(README truncated to fit token limit)"
	markerPrevResult = "...(content truncated to fit token limit)"
	markerSplit      = "...(truncated)"
)

// PromptAssembler builds token-bounded prompts for each stage from the
// repository context and prior stage results.
type PromptAssembler struct{}

// NewPromptAssembler creates a prompt assembler.
func NewPromptAssembler() *PromptAssembler {
	return &PromptAssembler{}
}

// SystemPrompt returns the stage-specific system prompt.
func (a *PromptAssembler) SystemPrompt(stage string) string {
	return systemPromptBase + systemPrompts[stage]
}

// UserPrompt builds the user prompt for a fixed stage. Each stage sees only
// the prior results it is allowed to: planning sees code_analysis;
// content_generation sees code_analysis and planning (sharing a doubled
// budget split proportionally); optimization sees content_generation;
// quality_check sees optimization.
func (a *PromptAssembler) UserPrompt(repo fetcher.RepoIdentity, repoURL, stage string, prev map[string]StageResult, rc *fetcher.RepoContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository URL: %s\nRepository: %s\n\n", repoURL, repo.String())

	if stage == StageCodeAnalysis && rc != nil && rc.FileTree != "" {
		b.WriteString("## Repository File Structure\n```\n")
		b.WriteString(truncateFileTree(rc.FileTree, maxFileTreeTokens))
		b.WriteString("```\n\n")
	}

	if rc != nil && rc.Readme != "" {
		b.WriteString("## Repository README\n")
		b.WriteString(truncateText(rc.Readme, maxReadmeTokens, markerReadme))
		b.WriteString("\n\n")
	}

	switch stage {
	case StagePlanning:
		if r, ok := prev[StageCodeAnalysis]; ok {
			b.WriteString("## CODE ANALYSIS RESULTS\n")
			b.WriteString(truncateText(r.Content, maxPrevResultTokens, markerPrevResult))
			b.WriteString("\n\n")
		}

	case StageContentGeneration:
		ca, haveCA := prev[StageCodeAnalysis]
		pl, havePL := prev[StagePlanning]
		switch {
		case haveCA && havePL:
			caOut, plOut := splitBudget(ca.Content, pl.Content, 2*maxPrevResultTokens)
			b.WriteString("## CODE ANALYSIS RESULTS\n")
			b.WriteString(caOut)
			b.WriteString("\n\n")
			b.WriteString("## PLANNING RESULTS\n")
			b.WriteString(plOut)
			b.WriteString("\n\n")
		case haveCA:
			b.WriteString("## CODE ANALYSIS RESULTS\n")
			b.WriteString(truncateText(ca.Content, maxPrevResultTokens, markerPrevResult))
			b.WriteString("\n\n")
		case havePL:
			b.WriteString("## PLANNING RESULTS\n")
			b.WriteString(truncateText(pl.Content, maxPrevResultTokens, markerPrevResult))
			b.WriteString("\n\n")
		}

	case StageOptimization:
		if r, ok := prev[StageContentGeneration]; ok {
			b.WriteString("## CONTENT GENERATION RESULTS\n")
			b.WriteString(truncateText(r.Content, maxPrevResultTokens, markerPrevResult))
			b.WriteString("\n\n")
		}

	case StageQualityCheck:
		if r, ok := prev[StageOptimization]; ok {
			b.WriteString("## OPTIMIZED CONTENT\n")
			b.WriteString(truncateText(r.Content, maxPrevResultTokens, markerPrevResult))
			b.WriteString("\n\n")
		}
	}

	b.WriteString(stageInstructions[stage])
	return b.String()
}

// ChapterPrompt builds the user prompt for one chapter sub-stage. Only that
// chapter's plan fragment is included, not the whole plan, to respect the
// token budget.
func (a *PromptAssembler) ChapterPrompt(repo fetcher.RepoIdentity, repoURL string, ch Chapter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository URL: %s\nRepository: %s\n\n", repoURL, repo.String())

	fmt.Fprintf(&b, "## CHAPTER PLAN\n\n### %s\n\n%s\n\n", ch.Title, ch.Description)
	for _, sec := range ch.Sections {
		fmt.Fprintf(&b, "#### %s\n\n%s\n", sec.Title, sec.Description)
		if len(sec.SourceFiles) > 0 {
			b.WriteString("\nRelevant source files:\n")
			for _, f := range sec.SourceFiles {
				fmt.Fprintf(&b, "- %s\n", f)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(chapterInstructions)
	return b.String()
}

func approxTokens(s string) int {
	return len(s) / charsPerToken
}

// truncateText hard-slices s to maxTokens worth of characters and appends the
// marker. Text within budget passes through untouched.
func truncateText(s string, maxTokens int, marker string) string {
	if approxTokens(s) <= maxTokens {
		return s
	}
	return s[:maxTokens*charsPerToken] + marker
}

// truncateFileTree keeps whole lines until the budget is exhausted, then
// appends the omission marker.
func truncateFileTree(tree string, maxTokens int) string {
	if approxTokens(tree) <= maxTokens {
		if !strings.HasSuffix(tree, "\n") {
			tree += "\n"
		}
		return tree
	}

	var b strings.Builder
	budget := maxTokens * charsPerToken
	for _, line := range strings.Split(tree, "\n") {
		if b.Len()+len(line)+1 > budget {
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(markerFileTree)
	b.WriteString("\n")
	return b.String()
}

// splitBudget shares a combined token budget between two inputs
// proportionally to their natural sizes. Inputs that fit jointly are returned
// untouched; otherwise each is sliced to its share and marked.
func splitBudget(first, second string, totalTokens int) (string, string) {
	firstTokens := approxTokens(first)
	secondTokens := approxTokens(second)
	total := firstTokens + secondTokens
	if total <= totalTokens {
		return first, second
	}

	firstLimit := totalTokens * firstTokens / total
	secondLimit := totalTokens * secondTokens / total

	return first[:firstLimit*charsPerToken] + markerSplit,
		second[:secondLimit*charsPerToken] + markerSplit
}
