// Package prompts centralises the default system prompts used when a
// caller does not supply ConversionConfig.SystemPrompt. Only the message
// shape the pipeline builds around these strings is specified; the exact
// wording is free to evolve independently of retry/error-handling logic.
package prompts

import (
	"fmt"

	"github.com/local/pdf2md/internal/model"
)

const baseRules = `Convert this PDF page image into clean Markdown.

- Preserve all text content and reading order exactly as a human would read the page.
- Use # for a single page title, ## / ### / #### for section levels.
- Use - and 1. for lists, preserving nesting.
- Ignore running headers, footers, and page numbers.
- Output only the Markdown body: no commentary, no surrounding code fence.`

const tablesAddendum = `
- Render tables as GFM pipe tables with an alignment row.`

const richAddendum = `
- Render math as LaTeX ($inline$ / $$display$$).
- Fall back to an HTML <table> when a table cannot be expressed in GFM pipe syntax.
- Add a short italic caption under figures and images you describe.`

// DefaultSystemPrompt returns the default instruction set for tier.
func DefaultSystemPrompt(tier model.FidelityTier) string {
	switch tier {
	case model.FidelityT3:
		return baseRules + tablesAddendum + richAddendum
	case model.FidelityT1:
		return baseRules
	default:
		return baseRules + tablesAddendum
	}
}

// MaintainFormatContext builds the extra system turn sent in sequential
// mode, carrying the previous page's cleaned Markdown so the VLM keeps
// numbering and style consistent across the page boundary.
func MaintainFormatContext(priorPageMarkdown string) string {
	return fmt.Sprintf("Keep formatting consistent with the previous page, reproduced below:\n\n\"\"\"\n%s\n\"\"\"", priorPageMarkdown)
}
