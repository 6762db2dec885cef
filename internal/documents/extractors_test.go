package documents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestDecodeWithFallbackUTF8PassesThrough(t *testing.T) {
	text, err := decodeWithFallback([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestDecodeWithFallbackGBK(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("你好世界")
	require.NoError(t, err)

	text, err := decodeWithFallback([]byte(encoded))
	require.NoError(t, err)
	assert.Equal(t, "你好世界", text)
}

func TestCleanMarkdownStripsSyntax(t *testing.T) {
	input := "# Title\n\nSome **bold** and _italic_ text with a [link](https://example.com).\n\n" +
		"> a quote\n\n- item one\n- item two\n\n1. first\n2. second\n\n```go\nfmt.Println(1)\n```\n\ninline `code` too."
	got := CleanMarkdown(input)

	assert.NotContains(t, got, "#")
	assert.NotContains(t, got, "**")
	assert.NotContains(t, got, "```")
	assert.NotContains(t, got, "fmt.Println")
	assert.Contains(t, got, "bold")
	assert.Contains(t, got, "italic")
	assert.Contains(t, got, "link")
	assert.NotContains(t, got, "(https://example.com)")
}

func TestFactoryForFallsBackToTxtForUnknownExtension(t *testing.T) {
	f := NewFactory()
	e := f.For("notes.xyz")
	assert.IsType(t, TxtExtractor{}, e)
}

func TestFactoryExtractEmptyFileErrors(t *testing.T) {
	f := NewFactory()
	_, err := f.Extract("empty.txt", nil)
	require.Error(t, err)
}

func TestFactoryExtractRoutesByExtension(t *testing.T) {
	f := NewFactory()
	text, err := f.Extract("notes.md", []byte("# Heading\n\nBody text."))
	require.NoError(t, err)
	assert.NotContains(t, text, "#")
	assert.Contains(t, text, "Body text.")
}

func TestExtractDocxBodyConcatenatesParagraphsAndTables(t *testing.T) {
	xml := `<w:document>
<w:body>
<w:p><w:r><w:t>Hello</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>A1</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>B1</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
</w:body>
</w:document>`
	text, err := extractDocxBody(xml)
	require.NoError(t, err)
	assert.Equal(t, "Hello\nA1 | B1", text)
}
