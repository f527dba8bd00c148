// Package assemble turns a set of per-page results into the final document:
// sort by page number, interpose separators, optionally prepend YAML
// front-matter.
package assemble

import (
	"fmt"
	"sort"
	"strings"

	"github.com/local/pdf2md/internal/model"
)

// Document sorts results by page number and concatenates the successful
// pages' Markdown, separated per cfg.PageSeparator, with an optional YAML
// front-matter block prepended.
func Document(results []model.PageResult, separator model.PageSeparator, includeMetadata bool, meta model.DocumentMetadata) string {
	sorted := make([]model.PageResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PageNum < sorted[j].PageNum })

	var parts []string

	if includeMetadata {
		parts = append(parts, yamlFrontMatter(meta))
	}

	successCount := 0
	for _, page := range sorted {
		if page.Err != nil {
			continue
		}
		if successCount > 0 {
			parts = append(parts, separator.Render(page.PageNum))
		}
		parts = append(parts, page.Markdown)
		successCount++
	}

	return strings.Join(parts, "")
}

func yamlFrontMatter(meta model.DocumentMetadata) string {
	var b strings.Builder
	b.WriteString("---\n")

	if meta.Title != "" {
		fmt.Fprintf(&b, "title: %q\n", meta.Title)
	}
	if meta.Author != "" {
		fmt.Fprintf(&b, "author: %q\n", meta.Author)
	}
	if meta.Subject != "" {
		fmt.Fprintf(&b, "subject: %q\n", meta.Subject)
	}
	if meta.Creator != "" {
		fmt.Fprintf(&b, "creator: %q\n", meta.Creator)
	}
	if meta.Producer != "" {
		fmt.Fprintf(&b, "producer: %q\n", meta.Producer)
	}
	fmt.Fprintf(&b, "pages: %d\n", meta.PageCount)
	if meta.PDFVersion != "" {
		fmt.Fprintf(&b, "pdf_version: %q\n", meta.PDFVersion)
	}

	b.WriteString("---\n\n")
	return b.String()
}
