package extract

import (
	"regexp"
	"strings"
)

// Typewriter-era statements shift parentheses across cell boundaries and
// OCR adds its own damage. These repairs run before numeric
// normalization so "(1,234)" style negatives survive parsing.

var (
	spaceAfterOpen   = regexp.MustCompile(`\(\s+`)
	spaceBeforeClose = regexp.MustCompile(`\s+\)`)
	doubleOpen       = regexp.MustCompile(`\(+`)
	trailingDigits   = regexp.MustCompile(`[\d,.-]+$`)
	orphanClose      = regexp.MustCompile(`^[\d,.-]+\)$`)
	closeThenOpen    = regexp.MustCompile(`^([\d,.-]+)\)\($`)
	percentOpen      = regexp.MustCompile(`(%)\s*\($`)
)

// repairCellParens fixes parenthesis damage confined to one cell:
// "( 297)" -> "(297)", "((123)" -> "(123)", "( 4410" -> "(4410)",
// "123)" -> "(123)".
func repairCellParens(v string) string {
	val := strings.TrimSpace(v)
	if val == "" {
		return val
	}
	val = spaceAfterOpen.ReplaceAllString(val, "(")
	val = spaceBeforeClose.ReplaceAllString(val, ")")
	val = doubleOpen.ReplaceAllString(val, "(")
	if strings.HasPrefix(val, "(") && !strings.HasSuffix(val, ")") && trailingDigits.MatchString(val[1:]) {
		val += ")"
	}
	if strings.HasSuffix(val, ")") && !strings.HasPrefix(val, "(") && orphanClose.MatchString(val) {
		val = "(" + val
	}
	val = percentOpen.ReplaceAllString(val, "$1")
	return val
}

// repairRowParens fixes cascading artifacts where an opening paren landed
// at the end of the previous cell: ["10,947 (", "3,094)(", "578)"]
// becomes ["10,947", "(3,094)", "(578)"]. The cascade can run across
// several cells, so the pass repeats until the row settles.
func repairRowParens(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}

	for changed, guard := true, 0; changed && guard < len(out)+4; guard++ {
		changed = false
		for i := 0; i < len(out)-1; i++ {
			curr, next := out[i], out[i+1]

			if strings.HasSuffix(curr, "(") {
				out[i] = strings.TrimSpace(strings.TrimSuffix(curr, "("))
				if m := closeThenOpen.FindStringSubmatch(next); m != nil {
					out[i+1] = "(" + m[1] + ")("
				} else if strings.HasSuffix(next, ")") && !strings.HasPrefix(next, "(") {
					out[i+1] = "(" + next
				} else {
					out[i+1] = "(" + next
				}
				changed = true
				continue
			}

			if m := closeThenOpen.FindStringSubmatch(next); m != nil {
				// ")(" with no incoming paren: the ")" belongs left.
				out[i] = curr + ")"
				out[i+1] = "(" + m[1] + ")("
				changed = true
			}
		}
	}

	for i := range out {
		out[i] = percentOpen.ReplaceAllString(out[i], "$1")
	}
	return out
}
