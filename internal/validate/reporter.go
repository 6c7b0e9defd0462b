// Package validate reconciles the numbers in a document's text layer
// against the numbers that made it into the extracted tables. It is a
// sanity check on text-path extraction, not a proof of correctness:
// matching is by value occurrence, not by position.
package validate

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/finforge/pdf2sheet/internal/table"
)

// numericToken matches currency-and-accounting styled numbers in free
// text: optional dollar sign, parenthesized negatives, thousands
// separators, decimals, trailing percent.
// Leftmost-longest matching keeps "4410" from splitting into "441"+"0"
// under the comma-grouped alternative.
var numericToken = func() *regexp.Regexp {
	re := regexp.MustCompile(`\$?\(?\d{1,3}(?:,\d{3})*(?:\.\d+)?\)?%?|\$?\(?\d+(?:\.\d+)?\)?%?`)
	re.Longest()
	return re
}()

// Discrepancy is one value whose occurrence count differs between the
// source text and the extracted tables.
type Discrepancy struct {
	Value          float64 `json:"value"`
	SourceCount    int     `json:"source_count"`
	ExtractedCount int     `json:"extracted_count"`
	Difference     int     `json:"difference"`
}

// Report summarizes the reconciliation for one document.
type Report struct {
	DocumentPath   string        `json:"document_path"`
	SourceTotal    int           `json:"source_total"`
	ExtractedTotal int           `json:"extracted_total"`
	Matched        int           `json:"matched"`
	Accuracy       float64       `json:"accuracy"`
	Discrepancies  []Discrepancy `json:"discrepancies"`
}

// Reporter builds reconciliation reports.
type Reporter struct {
	logger *slog.Logger
}

func NewReporter(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{logger: logger}
}

// Reconcile compares the multiset of numeric values found in the page
// texts against the multiset found in the table cells. Matched counts
// each occurrence only as often as it appears on both sides, and
// accuracy divides by the source total (floored at one so an empty
// source reports zero discrepancies at full accuracy).
func (r *Reporter) Reconcile(path string, pageTexts []string, tables []*table.Table) *Report {
	source := map[float64]int{}
	sourceTotal := 0
	for _, text := range pageTexts {
		for _, tok := range numericToken.FindAllString(text, -1) {
			if v, ok := parseToken(tok); ok {
				source[v]++
				sourceTotal++
			}
		}
	}

	extracted := map[float64]int{}
	extractedTotal := 0
	for _, tbl := range tables {
		for _, row := range tbl.Rows {
			for _, cell := range row.Cells {
				if !table.IsNumeric(cell.Value) {
					continue
				}
				if v, ok := parseToken(cell.Value); ok {
					extracted[v]++
					extractedTotal++
				}
			}
		}
	}

	matched := 0
	var discrepancies []Discrepancy
	for v, sc := range source {
		ec := extracted[v]
		if ec < sc {
			matched += ec
			discrepancies = append(discrepancies, Discrepancy{
				Value: v, SourceCount: sc, ExtractedCount: ec, Difference: sc - ec,
			})
		} else {
			matched += sc
		}
	}
	for v, ec := range extracted {
		if sc := source[v]; ec > sc {
			discrepancies = append(discrepancies, Discrepancy{
				Value: v, SourceCount: sc, ExtractedCount: ec, Difference: ec - sc,
			})
		}
	}

	sort.Slice(discrepancies, func(i, j int) bool {
		if discrepancies[i].Difference != discrepancies[j].Difference {
			return discrepancies[i].Difference > discrepancies[j].Difference
		}
		return discrepancies[i].Value < discrepancies[j].Value
	})

	denom := sourceTotal
	if denom < 1 {
		denom = 1
	}
	report := &Report{
		DocumentPath:   path,
		SourceTotal:    sourceTotal,
		ExtractedTotal: extractedTotal,
		Matched:        matched,
		Accuracy:       float64(matched) / float64(denom),
		Discrepancies:  discrepancies,
	}
	if sourceTotal == 0 {
		report.Accuracy = 1.0
	}

	r.logger.Info("validate.reconciled",
		"path", path,
		"source_total", sourceTotal,
		"extracted_total", extractedTotal,
		"matched", matched,
		"accuracy", fmt.Sprintf("%.4f", report.Accuracy),
		"discrepancies", len(discrepancies),
	)
	return report
}

// parseToken turns a matched token into its numeric value. Parenthesized
// values are negative; currency, percent, and separator characters are
// stripped.
func parseToken(tok string) (float64, bool) {
	s := strings.TrimSpace(tok)
	neg := false
	if strings.HasPrefix(s, "(") || strings.Contains(s, "(") {
		neg = true
	}
	s = strings.NewReplacer("$", "", "(", "", ")", "", "%", "", ",", "").Replace(s)
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	// collapse -0 so multiset keys compare cleanly
	if v == 0 {
		v = 0
	}
	return v, true
}

// WriteMarkdown renders the report as a small markdown document.
func (r *Reporter) WriteMarkdown(report *Report, path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Extraction Validation Report\n\n")
	fmt.Fprintf(&b, "Document: `%s`\n\n", report.DocumentPath)
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Numbers in source | %d |\n", report.SourceTotal)
	fmt.Fprintf(&b, "| Numbers extracted | %d |\n", report.ExtractedTotal)
	fmt.Fprintf(&b, "| Matched | %d |\n", report.Matched)
	fmt.Fprintf(&b, "| Accuracy | %.2f%% |\n", report.Accuracy*100)

	if len(report.Discrepancies) > 0 {
		fmt.Fprintf(&b, "\n## Discrepancies\n\n")
		fmt.Fprintf(&b, "| Value | In source | In tables | Difference |\n|---|---|---|---|\n")
		for _, d := range report.Discrepancies {
			fmt.Fprintf(&b, "| %s | %d | %d | %d |\n",
				formatValue(d.Value), d.SourceCount, d.ExtractedCount, d.Difference)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write validation report: %w", err)
	}
	return nil
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
