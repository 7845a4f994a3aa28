package pipeline

import (
	"strings"
	"testing"

	"github.com/jackzampolin/docsmith/internal/fetcher"
)

var testRepo = fetcher.RepoIdentity{Owner: "acme", Repo: "foo"}

const testRepoURL = "https://github.com/acme/foo"

func repeatedLines(line string, n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func TestUserPromptTruncation(t *testing.T) {
	a := NewPromptAssembler()

	t.Run("oversized file tree is bounded with marker", func(t *testing.T) {
		// 1500 lines of 40 characters each (including newline) is 60,000
		// characters, well past the 40,000-character file tree budget.
		tree := repeatedLines(strings.Repeat("x", 39), 1500)
		rc := &fetcher.RepoContext{FileTree: tree}

		prompt := a.UserPrompt(testRepo, testRepoURL, StageCodeAnalysis, nil, rc)

		if !strings.Contains(prompt, markerFileTree) {
			t.Fatal("prompt missing file tree truncation marker")
		}
		start := strings.Index(prompt, "```\n")
		end := strings.Index(prompt, markerFileTree)
		if start < 0 || end < 0 {
			t.Fatal("prompt missing file tree section")
		}
		section := prompt[start:end]
		if len(section) > maxFileTreeTokens*charsPerToken+len("```\n") {
			t.Errorf("file tree section is %d chars, want <= %d", len(section), maxFileTreeTokens*charsPerToken)
		}
	})

	t.Run("file tree within budget passes through", func(t *testing.T) {
		rc := &fetcher.RepoContext{FileTree: "main.go\ngo.mod"}
		prompt := a.UserPrompt(testRepo, testRepoURL, StageCodeAnalysis, nil, rc)
		if strings.Contains(prompt, markerFileTree) {
			t.Error("small file tree should not carry a truncation marker")
		}
		if !strings.Contains(prompt, "main.go\ngo.mod") {
			t.Error("file tree content missing from prompt")
		}
	})

	t.Run("oversized readme is bounded with marker", func(t *testing.T) {
		rc := &fetcher.RepoContext{Readme: strings.Repeat("r", 30000)}
		prompt := a.UserPrompt(testRepo, testRepoURL, StagePlanning, nil, rc)
		if !strings.Contains(prompt, markerReadme) {
			t.Fatal("prompt missing readme truncation marker")
		}
		idx := strings.Index(prompt, markerReadme)
		readmeStart := strings.Index(prompt, "## Repository README\n")
		if idx-readmeStart > maxReadmeTokens*charsPerToken+len("## Repository README\n") {
			t.Errorf("readme section too large: %d chars", idx-readmeStart)
		}
	})

	t.Run("oversized prior result is bounded with marker", func(t *testing.T) {
		prev := map[string]StageResult{
			StageCodeAnalysis: {Stage: StageCodeAnalysis, Content: strings.Repeat("a", 100000)},
		}
		prompt := a.UserPrompt(testRepo, testRepoURL, StagePlanning, prev, nil)
		if !strings.Contains(prompt, markerPrevResult) {
			t.Error("prompt missing prior result truncation marker")
		}
	})
}

func TestUserPromptVisibility(t *testing.T) {
	a := NewPromptAssembler()
	prev := map[string]StageResult{
		StageCodeAnalysis:      {Stage: StageCodeAnalysis, Content: "ANALYSIS-CONTENT"},
		StagePlanning:          {Stage: StagePlanning, Content: "PLANNING-CONTENT"},
		StageContentGeneration: {Stage: StageContentGeneration, Content: "GENERATED-CONTENT"},
		StageOptimization:      {Stage: StageOptimization, Content: "OPTIMIZED-CONTENT"},
	}

	tests := []struct {
		stage   string
		wants   []string
		rejects []string
	}{
		{StageCodeAnalysis, nil, []string{"ANALYSIS-CONTENT", "PLANNING-CONTENT"}},
		{StagePlanning, []string{"ANALYSIS-CONTENT"}, []string{"PLANNING-CONTENT", "GENERATED-CONTENT"}},
		{StageContentGeneration, []string{"ANALYSIS-CONTENT", "PLANNING-CONTENT"}, []string{"GENERATED-CONTENT", "OPTIMIZED-CONTENT"}},
		{StageOptimization, []string{"GENERATED-CONTENT"}, []string{"ANALYSIS-CONTENT", "OPTIMIZED-CONTENT"}},
		{StageQualityCheck, []string{"OPTIMIZED-CONTENT"}, []string{"GENERATED-CONTENT", "ANALYSIS-CONTENT"}},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			prompt := a.UserPrompt(testRepo, testRepoURL, tt.stage, prev, nil)
			for _, w := range tt.wants {
				if !strings.Contains(prompt, w) {
					t.Errorf("%s prompt missing %q", tt.stage, w)
				}
			}
			for _, rej := range tt.rejects {
				if strings.Contains(prompt, rej) {
					t.Errorf("%s prompt should not contain %q", tt.stage, rej)
				}
			}
		})
	}
}

func TestSplitBudget(t *testing.T) {
	t.Run("within budget untouched", func(t *testing.T) {
		a, b := splitBudget("short", "also short", 100)
		if a != "short" || b != "also short" {
			t.Errorf("got %q, %q", a, b)
		}
	})

	t.Run("over budget split proportionally", func(t *testing.T) {
		// first is three times the size of second; the shares should
		// reflect that ratio.
		first := strings.Repeat("a", 240000)
		second := strings.Repeat("b", 80000)
		outFirst, outSecond := splitBudget(first, second, 2*maxPrevResultTokens)

		if !strings.HasSuffix(outFirst, markerSplit) || !strings.HasSuffix(outSecond, markerSplit) {
			t.Fatal("split outputs missing truncation markers")
		}
		firstLen := len(outFirst) - len(markerSplit)
		secondLen := len(outSecond) - len(markerSplit)
		if firstLen != 3*secondLen {
			t.Errorf("split not proportional: first=%d second=%d", firstLen, secondLen)
		}
		total := (firstLen + secondLen) / charsPerToken
		if total > 2*maxPrevResultTokens {
			t.Errorf("combined output %d tokens exceeds budget %d", total, 2*maxPrevResultTokens)
		}
	})
}

func TestChapterPrompt(t *testing.T) {
	a := NewPromptAssembler()
	ch := Chapter{
		ID:          "overview",
		Title:       "Overview",
		Description: "What the system does",
		Sections: []Section{
			{Title: "Intro", Description: "High level", SourceFiles: []string{"cmd/foo/main.go"}},
		},
	}

	prompt := a.ChapterPrompt(testRepo, testRepoURL, ch)
	for _, want := range []string{"Overview", "What the system does", "Intro", "cmd/foo/main.go"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("chapter prompt missing %q", want)
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	a := NewPromptAssembler()
	for _, info := range FixedStages() {
		if a.SystemPrompt(info.Name) == "" {
			t.Errorf("no system prompt for stage %s", info.Name)
		}
	}
	ca := a.SystemPrompt(StageCodeAnalysis)
	pl := a.SystemPrompt(StagePlanning)
	if ca == pl {
		t.Error("stage system prompts should differ")
	}
}
