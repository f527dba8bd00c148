// Package postprocess applies ten deterministic cleanup rules to VLM output.
// Even a well-prompted VLM occasionally wraps its answer in a code fence,
// invents a placeholder image link, or emits CRLF line endings; these rules
// fix exactly those structural quirks without touching content. Order
// matters — each rule's doc comment on Clean explains why.
package postprocess

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reOuterFences = regexp.MustCompile(`(?s)^` + "```" + `(?:markdown)?\n(.*)\n` + "```" + `\s*$`)
	reBlankLines  = regexp.MustCompile(`\n{4,}`)
	reImage       = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]*)\)`)
)

var placeholderDomains = []string{
	"example.com",
	"placeholder.com",
	"via.placeholder.com",
	"dummyimage.com",
	"lorempixel.com",
	"picsum.photos",
	"placehold.it",
}

var invisibleChars = []string{
	"\u200B", "\uFEFF", "\u00AD", "\u200C", "\u200D", "\u2060",
}

// Clean runs all ten passes, in order, over one page's raw VLM output. It is
// idempotent: Clean(Clean(x)) == Clean(x) for every x.
func Clean(input string) string {
	s := stripMarkdownFences(input)
	s = normalizeLineEndings(s)
	s = trimTrailingWhitespace(s)
	s = collapseBlankLines(s)
	s = normalizeHeadingSpacing(s)
	s = fixBrokenTables(s)
	s = removeMidTableSeparators(s)
	s = removeHallucinatedImages(s)
	s = removeInvisibleChars(s)
	return ensureFinalNewline(s)
}

// 1. Strip an outer ```markdown fence models sometimes wrap the whole
// answer in despite being told not to.
func stripMarkdownFences(input string) string {
	trimmed := strings.TrimSpace(input)
	if m := reOuterFences.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return input
}

// 2. CRLF and lone CR both become LF before any line-oriented rule runs.
func normalizeLineEndings(input string) string {
	s := strings.ReplaceAll(input, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// 3. Trailing whitespace per line, before blank-line collapsing so a
// whitespace-only line counts as blank.
func trimTrailingWhitespace(input string) string {
	lines := strings.Split(input, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.Join(lines, "\n")
}

// 4. Four or more consecutive newlines collapse to three (at most two
// blank lines between content).
func collapseBlankLines(input string) string {
	return reBlankLines.ReplaceAllString(input, "\n\n\n")
}

// 5. A heading line not at the very start of the document is preceded by a
// blank line, run after fence-stripping so headings are detected on clean
// input.
func normalizeHeadingSpacing(input string) string {
	lines := strings.Split(input, "\n")
	var b strings.Builder
	b.Grow(len(input) + 64)

	for i, line := range lines {
		if isHeadingLine(line) && i > 0 {
			s := b.String()
			s = strings.TrimRight(s, "\n")
			b.Reset()
			b.WriteString(s)
			b.WriteString("\n\n")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func isHeadingLine(line string) bool {
	if !strings.HasPrefix(line, "#") {
		return false
	}
	idx := strings.Index(line, " ")
	if idx < 0 {
		return false
	}
	return idx+1 < len(line)
}

// 6. Insert a missing GFM separator row directly after a header-shaped
// table row that is immediately followed by another data row.
func fixBrokenTables(input string) string {
	lines := strings.Split(input, "\n")
	result := make([]string, 0, len(lines)+4)

	i := 0
	for i < len(lines) {
		line := lines[i]

		if isTableRow(line) && !isSeparatorRow(line) {
			result = append(result, line)

			next := ""
			if i+1 < len(lines) {
				next = lines[i+1]
			}
			if isTableRow(next) && !isSeparatorRow(next) {
				colCount := strings.Count(line, "|") - 1
				if colCount < 1 {
					colCount = 1
				}
				var sep strings.Builder
				sep.WriteString("|")
				for c := 0; c < colCount; c++ {
					sep.WriteString(" --- |")
				}
				result = append(result, sep.String())
			}
			i++
			continue
		}

		result = append(result, line)
		i++
	}

	return strings.Join(result, "\n")
}

func isTableRow(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "|") && strings.HasSuffix(t, "|") && len(t) > 2
}

func isSeparatorRow(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "|") {
		return false
	}
	for _, c := range t {
		if c != '|' && c != '-' && c != ':' && c != ' ' {
			return false
		}
	}
	return true
}

// 7. Within a contiguous block of table rows, only the separator at
// block-relative position 2 (directly after the header) survives; any
// other separator row the model hallucinated into the table body is
// dropped.
func removeMidTableSeparators(input string) string {
	lines := strings.Split(input, "\n")
	result := make([]string, 0, len(lines))

	inTable := false
	tableLineCount := 0

	for _, line := range lines {
		if isTableRow(line) {
			if !inTable {
				inTable = true
				tableLineCount = 0
			}
			tableLineCount++

			if isSeparatorRow(line) && tableLineCount != 2 {
				continue
			}
			result = append(result, line)
		} else {
			inTable = false
			tableLineCount = 0
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// 8. `![alt](url)` survives only when url is a real absolute http(s) link
// to a non-placeholder host; otherwise it becomes `*alt*` so the
// description is not lost.
func removeHallucinatedImages(input string) string {
	return reImage.ReplaceAllStringFunc(input, func(match string) string {
		groups := reImage.FindStringSubmatch(match)
		alt := strings.TrimSpace(groups[1])
		url := groups[2]
		if isPlaceholderURL(url) {
			if alt == "" {
				return ""
			}
			return "*" + alt + "*"
		}
		return match
	})
}

func isPlaceholderURL(url string) bool {
	u := strings.TrimSpace(url)
	if u == "" {
		return true
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return true
	}
	for _, d := range placeholderDomains {
		if strings.Contains(u, d) {
			return true
		}
	}
	return false
}

// 9. Zero-width spaces, BOM, soft hyphens and friends are stripped outright
// — they are invisible artefacts, never content.
func removeInvisibleChars(input string) string {
	s := input
	for _, c := range invisibleChars {
		s = strings.ReplaceAll(s, c, "")
	}
	return s
}

// 10. Exactly one trailing newline, always — an empty document becomes a
// single newline rather than an empty string.
func ensureFinalNewline(input string) string {
	trimmed := strings.TrimRightFunc(input, unicode.IsSpace)
	if trimmed == "" {
		return "\n"
	}
	return trimmed + "\n"
}
