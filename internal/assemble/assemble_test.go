package assemble

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/local/pdf2md/internal/model"
)

func TestDocumentSortsOutOfOrderResults(t *testing.T) {
	results := []model.PageResult{
		{PageNum: 2, Markdown: "second"},
		{PageNum: 1, Markdown: "first"},
	}
	out := Document(results, model.PageSeparator{Kind: model.SeparatorNone}, false, model.DocumentMetadata{})
	require.Equal(t, "first\n\nsecond", out)
}

func TestDocumentSkipsFailedPages(t *testing.T) {
	results := []model.PageResult{
		{PageNum: 1, Markdown: "ok one"},
		{PageNum: 2, Err: &model.LlmFailedError{Page: 2, Retries: 3, Detail: "boom"}},
		{PageNum: 3, Markdown: "ok three"},
	}
	out := Document(results, model.PageSeparator{Kind: model.SeparatorNone}, false, model.DocumentMetadata{})
	require.Equal(t, "ok one\n\nok three", out)
}

func TestDocumentHorizontalRuleSeparator(t *testing.T) {
	results := []model.PageResult{
		{PageNum: 1, Markdown: "a"},
		{PageNum: 2, Markdown: "b"},
	}
	out := Document(results, model.PageSeparator{Kind: model.SeparatorHorizontalRule}, false, model.DocumentMetadata{})
	require.Equal(t, "a\n\n---\n\nb", out)
}

func TestDocumentCustomSeparator(t *testing.T) {
	results := []model.PageResult{
		{PageNum: 1, Markdown: "a"},
		{PageNum: 2, Markdown: "b"},
	}
	sep := model.PageSeparator{Kind: model.SeparatorCustom, Custom: "***"}
	out := Document(results, sep, false, model.DocumentMetadata{})
	require.Equal(t, "a\n\n***\n\nb", out)
}

func TestDocumentPrependsFrontMatterWhenRequested(t *testing.T) {
	meta := model.DocumentMetadata{Title: "Report", PageCount: 2, PDFVersion: "1.7"}
	results := []model.PageResult{{PageNum: 1, Markdown: "body"}}
	out := Document(results, model.PageSeparator{Kind: model.SeparatorNone}, true, meta)

	require.Contains(t, out, "---\ntitle: \"Report\"\n")
	require.Contains(t, out, "pages: 2\n")
	require.Contains(t, out, "pdf_version: \"1.7\"\n")
	require.Contains(t, out, "body")
}

func TestDocumentOmitsBlankMetadataFields(t *testing.T) {
	meta := model.DocumentMetadata{PageCount: 1}
	out := Document(nil, model.PageSeparator{Kind: model.SeparatorNone}, true, meta)
	require.NotContains(t, out, "title:")
	require.NotContains(t, out, "author:")
	require.Contains(t, out, "pages: 1\n")
}

func TestDocumentAllPagesFailedYieldsEmptyString(t *testing.T) {
	results := []model.PageResult{
		{PageNum: 1, Err: &model.TimeoutError{Page: 1, Secs: 30}},
	}
	out := Document(results, model.PageSeparator{Kind: model.SeparatorNone}, false, model.DocumentMetadata{})
	require.Equal(t, "", out)
}
