// Package documents implements C4: extraction, preprocessing, and recursive
// splitting of uploaded files into TextChunk records ready for embedding
// (§4.4). Grounded on the donor's internal/documents package (reader.go,
// pipeline.go, splitter.go) for shape and on
// original_source/rag_system/document_processing/{extractors,splitters}.py
// for exact extraction/splitting semantics.
package documents

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"ragcore/internal/ragerrors"
)

// decodeWithFallback tries the prioritized encoding list from extractors.py's
// TxtExtractor/MarkdownExtractor: utf-8 is tried as-is (no transcoding
// needed when valid), then gbk, gb2312, latin-1. x/text has no plain-GB2312
// codec; GB18030 is used for that slot since it is a strict superset and
// byte-compatible with GB2312 for the characters GB2312 defines.
func decodeWithFallback(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	for _, dec := range []struct {
		name string
		fn   func([]byte) (string, error)
	}{
		{"gbk", func(b []byte) (string, error) { return simplifiedchinese.GBK.NewDecoder().String(string(b)) }},
		{"gb2312", func(b []byte) (string, error) { return simplifiedchinese.GB18030.NewDecoder().String(string(b)) }},
		{"latin-1", func(b []byte) (string, error) { return charmap.ISO8859_1.NewDecoder().String(string(b)) }},
	} {
		if text, err := dec.fn(data); err == nil {
			return text, nil
		}
	}
	return "", ragerrors.Document(fmt.Sprintf("unable to decode %d bytes with any known encoding (utf-8, gbk, gb2312, latin-1)", len(data)), nil)
}

// Extractor pulls plain text out of one file format (§4.4 "Extraction").
type Extractor interface {
	// Extract returns the plain-text content of data, a file named name
	// (used only for its extension/logging).
	Extract(name string, data []byte) (string, error)
	// Extensions lists the lowercase, dot-prefixed extensions this
	// extractor handles.
	Extensions() []string
}

// Factory selects an Extractor by file extension (extractors.py's
// TextExtractorFactory). An unknown extension falls back to TxtExtractor;
// the file's content is not sniffed.
type Factory struct {
	byExt map[string]Extractor
}

// NewFactory registers the base spec's minimum extractor set (.txt, .md,
// .pdf, .docx) plus the domain-stack-added .html/.htm extractor.
func NewFactory() *Factory {
	f := &Factory{byExt: map[string]Extractor{}}
	f.Register(TxtExtractor{})
	f.Register(MarkdownExtractor{})
	f.Register(PDFExtractor{})
	f.Register(DocxExtractor{})
	f.Register(HTMLExtractor{})
	return f
}

// Register adds or replaces the extractor for every extension it declares.
func (f *Factory) Register(e Extractor) {
	for _, ext := range e.Extensions() {
		f.byExt[ext] = e
	}
}

// For resolves the extractor for filename by extension alone, falling back
// to TxtExtractor for unknown extensions (no MIME sniffing).
func (f *Factory) For(filename string) Extractor {
	ext := strings.ToLower(filepath.Ext(filename))
	if e, ok := f.byExt[ext]; ok {
		return e
	}
	return TxtExtractor{}
}

// SupportedExtensions returns every registered extension, sorted for
// deterministic display in e.g. an API's capabilities response.
func (f *Factory) SupportedExtensions() []string {
	out := make([]string, 0, len(f.byExt))
	for ext := range f.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Extract selects an extractor by filename and runs it.
func (f *Factory) Extract(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ragerrors.Document(fmt.Sprintf("%s: file is empty", filename), nil)
	}
	return f.For(filename).Extract(filename, data)
}

// TxtExtractor handles plain text with encoding fallback.
type TxtExtractor struct{}

func (TxtExtractor) Extensions() []string { return []string{".txt", ".text"} }

func (TxtExtractor) Extract(name string, data []byte) (string, error) {
	text, err := decodeWithFallback(data)
	if err != nil {
		return "", ragerrors.Document(fmt.Sprintf("%s: %s", name, err.Error()), err)
	}
	return text, nil
}

// MarkdownExtractor decodes then strips Markdown syntax down to plain
// prose, matching extractors.py's _clean_markdown regex sequence exactly.
type MarkdownExtractor struct{}

func (MarkdownExtractor) Extensions() []string { return []string{".md", ".markdown"} }

func (MarkdownExtractor) Extract(name string, data []byte) (string, error) {
	text, err := decodeWithFallback(data)
	if err != nil {
		return "", ragerrors.Document(fmt.Sprintf("%s: %s", name, err.Error()), err)
	}
	return CleanMarkdown(text), nil
}

var (
	mdHeaderRe     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBoldItalicRe = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`)
	mdBoldItalic2  = regexp.MustCompile("_{1,3}([^_]+)_{1,3}")
	mdLinkRe       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdImageRe      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdCodeFenceRe  = regexp.MustCompile("(?s)```.*?```")
	mdInlineCodeRe = regexp.MustCompile("`([^`]*)`")
	mdBlockquoteRe = regexp.MustCompile(`(?m)^>\s?`)
	mdListRe       = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumListRe    = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
	mdBlankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// CleanMarkdown strips Markdown syntax in this order: images before links
// (so an image's alt text isn't first mistaken for a link), fenced code
// blocks, inline code, headers, emphasis, blockquotes, then list markers,
// finally collapsing blank lines.
func CleanMarkdown(text string) string {
	text = mdImageRe.ReplaceAllString(text, "")
	text = mdLinkRe.ReplaceAllString(text, "$1")
	text = mdCodeFenceRe.ReplaceAllString(text, "")
	text = mdInlineCodeRe.ReplaceAllString(text, "$1")
	text = mdHeaderRe.ReplaceAllString(text, "")
	text = mdBoldItalicRe.ReplaceAllString(text, "$1")
	text = mdBoldItalic2.ReplaceAllString(text, "$1")
	text = mdBlockquoteRe.ReplaceAllString(text, "")
	text = mdListRe.ReplaceAllString(text, "")
	text = mdNumListRe.ReplaceAllString(text, "")
	text = mdBlankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// PDFExtractor concatenates per-page text, tolerating individual page
// failures (extractors.py's PDFExtractor), grounded on the real
// ledongthuc/pdf API surface observed in
// icyfire-langgraphgo/showcases/health_insights_agent/tools/report_processor.go.
type PDFExtractor struct{}

func (PDFExtractor) Extensions() []string { return []string{".pdf"} }

func (PDFExtractor) Extract(name string, data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", ragerrors.Document(fmt.Sprintf("%s: open pdf failed", name), err)
	}

	var buf bytes.Buffer
	total := r.NumPage()
	failedPages := 0
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			failedPages++
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	extracted := strings.TrimSpace(buf.String())
	if extracted == "" {
		return "", ragerrors.Document(fmt.Sprintf("%s: no extractable text in %d pages (possibly a scanned PDF)", name, total), nil)
	}
	return extracted, nil
}

// DocxExtractor concatenates paragraph text plus table cells joined by
// " | " per row (extractors.py's DocxExtractor), reading the container via
// nguyenthenguyen/docx and walking its document.xml body ourselves since
// that library's own surface targets template find/replace, not paragraph
// enumeration (DESIGN.md records this as a bounded, justified stdlib
// xml-parsing layer on top of a real dependency).
type DocxExtractor struct{}

func (DocxExtractor) Extensions() []string { return []string{".docx"} }

func (DocxExtractor) Extract(name string, data []byte) (string, error) {
	// nguyenthenguyen/docx only opens from a path; stage the upload to a
	// temp file the same way the donor pack's report_processor.go does for
	// ledongthuc/pdf's byte-slice inputs.
	tmp, err := os.CreateTemp("", "docx-*.docx")
	if err != nil {
		return "", ragerrors.Document(fmt.Sprintf("%s: create temp file failed", name), err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if _, err := tmp.Write(data); err != nil {
		return "", ragerrors.Document(fmt.Sprintf("%s: write temp file failed", name), err)
	}
	if err := tmp.Close(); err != nil {
		return "", ragerrors.Document(fmt.Sprintf("%s: close temp file failed", name), err)
	}

	r, err := docx.ReadDocxFile(tmp.Name())
	if err != nil {
		return "", ragerrors.Document(fmt.Sprintf("%s: open docx failed", name), err)
	}
	defer r.Close()

	text, err := extractDocxBody(r.Editable().GetContent())
	if err != nil {
		return "", ragerrors.Document(fmt.Sprintf("%s: parse docx body failed", name), err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ragerrors.Document(fmt.Sprintf("%s: docx contained no extractable text", name), nil)
	}
	return text, nil
}

// HTMLExtractor runs readability-based content extraction then converts the
// result to Markdown, so downstream cleaning treats it identically to a .md
// upload (SPEC_FULL.md's Supplemented Features: HTML extraction).
type HTMLExtractor struct{}

func (HTMLExtractor) Extensions() []string { return []string{".html", ".htm"} }

func (HTMLExtractor) Extract(name string, data []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(data), nil)
	if err != nil {
		return "", ragerrors.Document(fmt.Sprintf("%s: readability extraction failed", name), err)
	}
	converted, err := md.ConvertString(article.Content)
	if err != nil {
		return "", ragerrors.Document(fmt.Sprintf("%s: html-to-markdown conversion failed", name), err)
	}
	return CleanMarkdown(converted), nil
}
