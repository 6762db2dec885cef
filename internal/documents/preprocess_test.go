package documents

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPreprocessorNormalizesWhitespaceByDefault(t *testing.T) {
	p := NewPreprocessor(PreprocessConfig{}, zerolog.Nop())
	got := p.Process("line one   with   spaces\n\n\n\nline two\n\n\n")
	assert.Equal(t, "line one with spaces\n\nline two", got)
}

func TestPreprocessorStripsZeroWidthAndControlChars(t *testing.T) {
	p := NewPreprocessor(PreprocessConfig{}, zerolog.Nop())
	got := p.Process("hello​world\x00!")
	assert.Equal(t, "helloworld!", got)
}

func TestPreprocessorFullwidthFolding(t *testing.T) {
	p := NewPreprocessor(PreprocessConfig{}, zerolog.Nop())
	got := p.Process("ＡＢＣ１２３")
	assert.Equal(t, "ABC123", got)
}

func TestPreprocessorRemovesURLsEmailsPhones(t *testing.T) {
	cfg := PreprocessConfig{RemoveURLs: true, RemoveEmails: true, RemovePhones: true}
	p := NewPreprocessor(cfg, zerolog.Nop())
	got := p.Process("contact us at hi@example.com or https://example.com or +1 555-123-4567")
	assert.NotContains(t, got, "@example.com")
	assert.NotContains(t, got, "https://")
	assert.NotContains(t, got, "555-123-4567")
}

func TestPreprocessorCustomPatternsSkipInvalid(t *testing.T) {
	cfg := PreprocessConfig{CustomPatterns: []string{"secret-\\d+", "("}}
	p := NewPreprocessor(cfg, zerolog.Nop())
	got := p.Process("token secret-42 stays removed")
	assert.NotContains(t, got, "secret-42")
}

func TestPreprocessorFilterSpecialCharsKeepsCJKAndLetters(t *testing.T) {
	cfg := PreprocessConfig{FilterSpecialChars: true}
	p := NewPreprocessor(cfg, zerolog.Nop())
	got := p.Process("héllo 你好 @@@ ### 123")
	assert.Contains(t, got, "你好")
	assert.Contains(t, got, "123")
	assert.NotContains(t, got, "@")
	assert.NotContains(t, got, "#")
}

func TestPreprocessorRemoveStopwordsAndLowercase(t *testing.T) {
	cfg := PreprocessConfig{RemoveStopwords: true, Lowercase: true}
	p := NewPreprocessor(cfg, zerolog.Nop())
	got := p.Process("The Quick Brown Fox")
	assert.NotContains(t, got, "the")
	assert.Contains(t, got, "quick")
}

func TestPreprocessorSafelyRecoversFromPanic(t *testing.T) {
	p := NewPreprocessor(PreprocessConfig{}, zerolog.Nop())
	out := p.safely("boom", "original", func(string) string { panic("boom") })
	assert.Equal(t, "original", out)
}
