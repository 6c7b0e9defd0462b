package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/finforge/pdf2sheet/internal/common"
	"github.com/finforge/pdf2sheet/internal/table"
)

// Issue is one named extraction-quality problem. Major issues indicate a
// structurally broken parse; minor ones are cosmetic artifacts a lenient
// gate may tolerate.
type Issue struct {
	Name   string
	Detail string
	Minor  bool
}

// QualityScore is the result of inspecting a text-extraction result.
type QualityScore struct {
	Issues []Issue
}

func (s QualityScore) String() string {
	names := make([]string, len(s.Issues))
	for i, is := range s.Issues {
		names[i] = is.Name
	}
	return strings.Join(names, ",")
}

var sourceNumber = regexp.MustCompile(`\d`)

// malformedParen matches parenthesis artifacts around digits that no
// parser resolved into a negative number: "( 297", "4410)(", "((123)".
var malformedParen = regexp.MustCompile(`\(\s+\d|[\d,.]\)\(|\(\(|\d\)$|\(\s*[\d,.]+$`)

// ScoreQuality inspects a text-extraction result for signs of a bad parse:
// empty output on a page with visible content, single-column traps,
// ragged rows, missing numeric density, unresolved parenthesized
// negatives, mostly-empty tables, and duplicated rows.
func ScoreQuality(tbl *table.Table, stats Stats, pageText string, cfg common.QualityConfig) QualityScore {
	var score QualityScore
	add := func(name, detail string, minor bool) {
		score.Issues = append(score.Issues, Issue{Name: name, Detail: detail, Minor: minor})
	}

	pageHasContent := len(strings.TrimSpace(pageText)) > 50

	if tbl.Empty() {
		if pageHasContent {
			add("empty_table", "page has content but no table rows parsed", false)
		}
		return score
	}

	if len(tbl.Columns) == 1 && len(tbl.Rows) > 3 {
		add("single_column", fmt.Sprintf("single column with %d rows", len(tbl.Rows)), false)
	}

	if stats.DataLines > 0 {
		ratio := float64(stats.RaggedLines) / float64(stats.DataLines)
		if ratio > cfg.RaggedRowRatio {
			add("ragged_rows", fmt.Sprintf("%.0f%% of lines had inconsistent cell counts", ratio*100), false)
		}
	}

	if sourceNumber.MatchString(pageText) && tbl.NumericCells() < cfg.MinNumericCells {
		add("low_numeric_density", "page shows numbers but table has none", false)
	}

	totalCells := len(tbl.Rows) * len(tbl.Columns)
	emptyCells := 0
	parenArtifacts := 0
	for _, r := range tbl.Rows {
		for _, c := range r.Cells {
			if strings.TrimSpace(c.Value) == "" {
				emptyCells++
			} else if !table.IsNumeric(c.Value) && malformedParen.MatchString(c.Value) {
				parenArtifacts++
			}
		}
	}
	if totalCells > 0 {
		threshold := cfg.EmptyCellRatio
		if len(tbl.Rows) < 20 {
			// small tables legitimately carry more blanks
			threshold += 0.1
		}
		if ratio := float64(emptyCells) / float64(totalCells); ratio > threshold {
			add("high_empty_ratio", fmt.Sprintf("%.0f%% of cells empty", ratio*100), true)
		}
	}
	if parenArtifacts > 0 {
		add("unparsed_parens", fmt.Sprintf("%d cells with parenthesis artifacts", parenArtifacts), true)
	}

	if len(tbl.Rows) > 5 {
		seen := map[string]int{}
		dups := 0
		for _, r := range tbl.Rows {
			key := rowKey(r)
			if seen[key] > 0 {
				dups++
			}
			seen[key]++
		}
		if ratio := float64(dups) / float64(len(tbl.Rows)); ratio > cfg.DuplicateRatio {
			add("duplicate_rows", fmt.Sprintf("%d duplicate rows", dups), true)
		}
	}

	return score
}

func rowKey(r table.Row) string {
	var b strings.Builder
	for _, c := range r.Cells {
		b.WriteString(c.Value)
		b.WriteByte('\x1f')
	}
	return b.String()
}

// Gate is the accept/reject decision on a text-extraction result. A
// rejection is a routing signal: the orchestrator re-runs that page
// through vision extraction.
type Gate struct {
	cfg common.QualityConfig
}

func NewGate(cfg common.QualityConfig) *Gate {
	return &Gate{cfg: cfg}
}

// Accepts returns false when any major issue is present, or when minor
// issues exceed the configured tolerance.
func (g *Gate) Accepts(score QualityScore) bool {
	minor := 0
	for _, is := range score.Issues {
		if !is.Minor {
			return false
		}
		minor++
	}
	return minor <= g.cfg.MaxMinorIssues
}
