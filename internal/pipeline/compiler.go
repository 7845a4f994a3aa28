package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// fileURLPrefix is the route the HTTP layer serves artifacts under.
const fileURLPrefix = "/api/docs/file/"

// Compiler assembles the final documentation artifact from whatever stage
// results exist. It has two modes: plan-driven, which writes a table of
// contents plus one file per chapter, and a flat fallback used when no plan
// could be parsed. A separate basic-document path handles aborted runs.
type Compiler struct {
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

// CompilerConfig configures a Compiler.
type CompilerConfig struct {
	OutputDir string
	Logger    *slog.Logger
}

func NewCompiler(cfg CompilerConfig) *Compiler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{
		outputDir: cfg.OutputDir,
		logger:    logger.With("component", "compiler"),
		now:       time.Now,
	}
}

// Compile writes the final document for a run and returns the URL it is
// served under. When plan is non-nil the document is a table of contents
// with one file per chapter; otherwise the available stage results are
// concatenated in fixed order with a generation-status table.
func (c *Compiler) Compile(jobID, title, repoURL string, plan *Plan, results map[string]StageResult) (string, error) {
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	name := safeFileTitle(title) + "_" + jobID + ".md"

	var content string
	if plan != nil {
		toc, err := c.writeChapters(jobID, title, plan, results)
		if err != nil {
			return "", err
		}
		content = toc
	} else {
		content = c.flatDocument(title, repoURL, results)
	}

	path := filepath.Join(c.outputDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing document: %w", err)
	}

	c.logger.Info("compiled documentation", "job_id", jobID, "path", path, "plan_driven", plan != nil)
	return fileURLPrefix + name, nil
}

// BasicDocument writes a minimal artifact for a run that was interrupted by
// a top-level error, embedding the error text and any stage content that was
// produced before the failure. It assembles only in-memory strings, so the
// only way it can fail is the file write itself.
func (c *Compiler) BasicDocument(jobID, title, repoURL string, runErr error, results map[string]StageResult) (string, error) {
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "*Generated on: %s*\n\n", c.now().Format("2006-01-02 15:04:05"))
	b.WriteString("## Error During Generation\n\n")
	b.WriteString("An error occurred during the documentation generation process:\n\n")
	fmt.Fprintf(&b, "```\n%v\n```\n\n", runErr)
	b.WriteString("## Repository Information\n\n")
	fmt.Fprintf(&b, "- Repository URL: %s\n", repoURL)
	fmt.Fprintf(&b, "- Job ID: %s\n", jobID)

	if len(results) > 0 {
		b.WriteString("\n## Available Content\n\n")
		for _, name := range orderedResultNames(results) {
			fmt.Fprintf(&b, "\n### %s\n\n%s\n\n", stageHeading(name), results[name].Content)
		}
	}

	name := safeFileTitle(title) + "_" + jobID + ".md"
	path := filepath.Join(c.outputDir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing basic document: %w", err)
	}

	c.logger.Info("compiled basic document for interrupted run", "job_id", jobID, "path", path)
	return fileURLPrefix + name, nil
}

// writeChapters writes one markdown file per chapter and returns the table
// of contents document linking them.
func (c *Compiler) writeChapters(jobID, title string, plan *Plan, results map[string]StageResult) (string, error) {
	var toc strings.Builder
	heading := plan.Title
	if heading == "" {
		heading = title
	}
	fmt.Fprintf(&toc, "# %s\n\n", heading)
	fmt.Fprintf(&toc, "*Generated on: %s*\n\n", c.now().Format("2006-01-02 15:04:05"))
	if plan.Description != "" {
		toc.WriteString(plan.Description + "\n\n")
	}
	toc.WriteString("## Table of Contents\n\n")

	prefix := safeFileTitle(title) + "_" + jobID + "_"
	for i, ch := range plan.Chapters {
		fileName := prefix + ch.ID + ".md"
		fmt.Fprintf(&toc, "%d. [%s](%s)", i+1, ch.Title, fileName)
		if ch.Description != "" {
			fmt.Fprintf(&toc, " - %s", ch.Description)
		}
		toc.WriteString("\n")

		if err := c.writeChapterFile(fileName, ch, results); err != nil {
			return "", err
		}
	}

	if qc, ok := results[StageQualityCheck]; ok && qc.Content != "" {
		fmt.Fprintf(&toc, "\n## Quality Check Notes\n\n%s\n", qc.Content)
	}

	return toc.String(), nil
}

func (c *Compiler) writeChapterFile(fileName string, ch Chapter, results map[string]StageResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", ch.Title)
	if ch.Description != "" {
		b.WriteString(ch.Description + "\n\n")
	}

	for _, sec := range ch.Sections {
		fmt.Fprintf(&b, "## %s\n\n", sec.Title)
		if sec.Description != "" {
			b.WriteString(sec.Description + "\n\n")
		}
		if len(sec.SourceFiles) > 0 {
			b.WriteString("Source files:\n\n")
			for _, f := range sec.SourceFiles {
				fmt.Fprintf(&b, "- `%s`\n", f)
			}
			b.WriteString("\n")
		}
	}

	if res, ok := results[ChapterStageName(ch.ID)]; ok && res.Content != "" {
		b.WriteString("---\n\n")
		b.WriteString(res.Content + "\n")
	} else {
		b.WriteString("---\n\n")
		b.WriteString("*Content for this chapter could not be generated.*\n")
	}

	path := filepath.Join(c.outputDir, fileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing chapter %s: %w", ch.ID, err)
	}
	return nil
}

// flatDocument concatenates stage results in fixed order. Used when no plan
// was parsed, so the content-generation output stands in for the chapters.
func (c *Compiler) flatDocument(title, repoURL string, results map[string]StageResult) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	fmt.Fprintf(&b, "*Generated on: %s*\n\n", c.now().Format("2006-01-02 15:04:05"))
	if repoURL != "" {
		fmt.Fprintf(&b, "Repository: %s\n\n", repoURL)
	}

	if len(results) == 0 {
		b.WriteString("## Error\n\nNo documentation content was generated. Please try again.\n\n")
		return b.String()
	}

	if res, ok := results[StageCodeAnalysis]; ok {
		fmt.Fprintf(&b, "## Code Analysis\n\n%s\n\n", res.Content)
	}
	if res, ok := results[StagePlanning]; ok {
		fmt.Fprintf(&b, "## Documentation Plan\n\n%s\n\n", res.Content)
	}

	// Prefer the optimized content over the raw generation pass.
	optimized := results[StageOptimization].Content
	generated := results[StageContentGeneration].Content
	switch {
	case optimized != "":
		b.WriteString(optimized)
	case generated != "":
		b.WriteString(generated)
	default:
		b.WriteString("## Documentation Content\n\n")
		b.WriteString("No content was generated during the content generation phase.\n\n")
	}

	if qc := results[StageQualityCheck].Content; qc != "" {
		fmt.Fprintf(&b, "\n\n## Quality Check Notes\n\n%s", qc)
	}

	b.WriteString("\n\n## Generation Status\n\n")
	for _, info := range FixedStages() {
		status := "❌ Failed or Skipped"
		if _, ok := results[info.Name]; ok {
			status = "✅ Completed"
		}
		fmt.Fprintf(&b, "- %s: %s\n", stageHeading(info.Name), status)
	}

	return b.String()
}

// safeFileTitle keeps alphanumerics and replaces everything else with an
// underscore, matching how output files have historically been named.
func safeFileTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// stageHeading renders a stage name as a human heading: "code_analysis"
// becomes "Code Analysis".
func stageHeading(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// orderedResultNames returns result keys in pipeline order so documents are
// assembled deterministically. Chapter results sort after content_generation
// in their original map-insertion-independent name order.
func orderedResultNames(results map[string]StageResult) []string {
	var names []string
	seen := map[string]bool{}
	add := func(n string) {
		if _, ok := results[n]; ok && !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}
	add(StageCodeAnalysis)
	add(StagePlanning)
	add(StageContentGeneration)
	var chapters []string
	for n := range results {
		if strings.HasPrefix(n, StageContentGeneration+"_") && !seen[n] {
			chapters = append(chapters, n)
		}
	}
	sort.Strings(chapters)
	for _, n := range chapters {
		add(n)
	}
	add(StageOptimization)
	add(StageQualityCheck)
	return names
}
