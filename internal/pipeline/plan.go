package pipeline

import (
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoPlan signals that no usable documentation plan could be extracted from
// the planning stage output. Callers fall back to flat compilation; plan
// parsing never fails a run.
var ErrNoPlan = errors.New("pipeline: no documentation plan found")

// Plan is the chapter/section structure extracted from the planning stage.
type Plan struct {
	XMLName     xml.Name  `xml:"documentation_plan"`
	Title       string    `xml:"title"`
	Description string    `xml:"description"`
	Chapters    []Chapter `xml:"chapters>chapter"`
}

// Chapter is one top-level unit of the plan. Its ID names the chapter's
// output file.
type Chapter struct {
	ID          string    `xml:"id,attr"`
	Importance  string    `xml:"importance,attr"`
	Title       string    `xml:"title"`
	Description string    `xml:"description"`
	Sections    []Section `xml:"sections>section"`
}

// Section is one subdivision of a chapter.
type Section struct {
	ID          string   `xml:"id,attr"`
	Title       string   `xml:"title"`
	Description string   `xml:"description"`
	SourceFiles []string `xml:"source_files>file"`
}

const (
	planStartMarker = "<documentation_plan"
	planEndMarker   = "</documentation_plan>"
)

// ParsePlan extracts the plan block from raw planning output and parses it.
// A strict parse is attempted first; on failure a single bounded repair pass
// (close unclosed tags, quote bare attribute values) is applied and the parse
// retried once. The result is either a valid plan or ErrNoPlan; parse
// failures never propagate.
func ParsePlan(raw string) (*Plan, error) {
	block, ok := extractPlanBlock(raw)
	if !ok {
		return nil, ErrNoPlan
	}

	block = cleanPlanBlock(block)

	if plan, err := decodePlan(block); err == nil {
		return plan, nil
	}

	repaired := repairPlanBlock(block)
	if plan, err := decodePlan(repaired); err == nil {
		return plan, nil
	}

	return nil, ErrNoPlan
}

// extractPlanBlock finds the delimited plan markup. A missing end marker is
// tolerated (the repair pass closes the element).
func extractPlanBlock(raw string) (string, bool) {
	start := strings.Index(raw, planStartMarker)
	if start < 0 {
		return "", false
	}
	rest := raw[start:]
	if end := strings.Index(rest, planEndMarker); end >= 0 {
		return rest[:end+len(planEndMarker)], true
	}
	return rest, true
}

func decodePlan(block string) (*Plan, error) {
	var plan Plan
	if err := xml.Unmarshal([]byte(block), &plan); err != nil {
		return nil, err
	}
	if len(plan.Chapters) == 0 {
		return nil, fmt.Errorf("plan has no chapters")
	}
	for i := range plan.Chapters {
		if plan.Chapters[i].ID == "" {
			plan.Chapters[i].ID = fmt.Sprintf("chapter-%d", i+1)
		}
		plan.Chapters[i].ID = sanitizeID(plan.Chapters[i].ID)
	}
	return &plan, nil
}

var idUnsafe = regexp.MustCompile(`[^a-z0-9-]+`)

// sanitizeID makes a chapter id safe for use in a filename.
func sanitizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	id = idUnsafe.ReplaceAllString(id, "-")
	return strings.Trim(id, "-")
}

// Known element names of the plan markup. Anything else appearing after "<"
// is generator prose, not structure, and gets neutralized before parsing.
var planTags = map[string]bool{
	"documentation_plan": true,
	"title":              true,
	"description":        true,
	"chapters":           true,
	"chapter":            true,
	"sections":           true,
	"section":            true,
	"source_files":       true,
	"file":               true,
}

// cleanPlanBlock prepares generator markup for parsing: bare ampersands are
// escaped (already-escaped entities are collapsed back rather than doubled),
// and raw angle brackets inside literal text are neutralized.
func cleanPlanBlock(block string) string {
	// Escape every & then undo the doubling for entities that were already
	// escaped. Order matters and is kept as-is deliberately.
	block = strings.ReplaceAll(block, "&", "&amp;")
	for _, entity := range []string{"amp", "lt", "gt", "quot", "apos"} {
		block = strings.ReplaceAll(block, "&amp;"+entity+";", "&"+entity+";")
	}
	block = strings.ReplaceAll(block, "&amp;#", "&#")

	return neutralizeUnknownTags(block)
}

// neutralizeUnknownTags replaces "<" with "&lt;" wherever it does not open or
// close a known plan element. This keeps code fragments like "<-chan" in
// descriptions from breaking the parse.
func neutralizeUnknownTags(block string) string {
	var b strings.Builder
	b.Grow(len(block))

	for i := 0; i < len(block); i++ {
		c := block[i]
		if c != '<' {
			b.WriteByte(c)
			continue
		}

		rest := block[i+1:]
		name := tagName(rest)
		if planTags[name] {
			b.WriteByte(c)
			continue
		}
		b.WriteString("&lt;")
	}
	return b.String()
}

// tagName reads the element name at the start of rest, skipping a leading
// slash for closing tags. Returns "" when rest does not look like a tag.
func tagName(rest string) string {
	rest = strings.TrimPrefix(rest, "/")
	end := 0
	for end < len(rest) {
		c := rest[end]
		if c == ' ' || c == '>' || c == '/' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		end++
	}
	return rest[:end]
}

var bareAttr = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_-]*)=([^"'\s>][^\s>]*)`)

var tagToken = regexp.MustCompile(`<(/?)([a-zA-Z_][a-zA-Z0-9_-]*)[^>]*?(/?)>`)

// repairPlanBlock applies the bounded best-effort fixes: quote unquoted
// attribute values, auto-close tags left open before a mismatched closer,
// drop stray closers, and close anything still open at the end. The document
// is rebuilt token by token so closers land where the nesting requires them.
func repairPlanBlock(block string) string {
	block = quoteBareAttributes(block)

	var b strings.Builder
	b.Grow(len(block))

	var open []string
	idx := 0
	for _, loc := range tagToken.FindAllStringSubmatchIndex(block, -1) {
		start, end := loc[0], loc[1]
		b.WriteString(block[idx:start])
		idx = end

		tag := block[start:end]
		closing := block[loc[2]:loc[3]] == "/"
		name := block[loc[4]:loc[5]]
		selfClosing := block[loc[6]:loc[7]] == "/"

		if !planTags[name] || selfClosing {
			b.WriteString(tag)
			continue
		}
		if !closing {
			open = append(open, name)
			b.WriteString(tag)
			continue
		}

		matched := -1
		for j := len(open) - 1; j >= 0; j-- {
			if open[j] == name {
				matched = j
				break
			}
		}
		if matched < 0 {
			// Stray closer with no matching open tag: drop it.
			continue
		}
		for j := len(open) - 1; j > matched; j-- {
			b.WriteString("</" + open[j] + ">")
		}
		open = open[:matched]
		b.WriteString(tag)
	}
	b.WriteString(block[idx:])

	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i] + ">")
	}
	return b.String()
}

// quoteBareAttributes wraps unquoted attribute values in double quotes,
// touching only text inside known plan tags.
func quoteBareAttributes(block string) string {
	return tagToken.ReplaceAllStringFunc(block, func(tag string) string {
		return bareAttr.ReplaceAllString(tag, `$1="$2"`)
	})
}
