package documents

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// PreprocessConfig configures the optional stages of §4.4's preprocessing
// pipeline. Every stage defaults to off except normalization and whitespace
// collapsing, which always run.
type PreprocessConfig struct {
	FilterSpecialChars bool
	RemoveURLs         bool
	RemoveEmails       bool
	RemovePhones       bool
	CustomPatterns     []string
	RemoveStopwords    bool
	Lowercase          bool
}

// Preprocessor runs the configured stage pipeline over extracted text. Each
// stage is safe to fail individually: a stage error is logged and the text
// from before that stage proceeds unchanged (§4.4).
type Preprocessor struct {
	cfg       PreprocessConfig
	log       zerolog.Logger
	stopwords map[string]struct{}
	patterns  []*regexp.Regexp
}

func NewPreprocessor(cfg PreprocessConfig, log zerolog.Logger) *Preprocessor {
	p := &Preprocessor{cfg: cfg, log: log, stopwords: defaultStopwords()}
	for _, pattern := range cfg.CustomPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("skipping invalid custom preprocessing pattern")
			continue
		}
		p.patterns = append(p.patterns, re)
	}
	return p
}

// Process runs the full pipeline and returns the cleaned text. It never
// errors: unrecoverable stage failures are logged and the stage is skipped.
func (p *Preprocessor) Process(text string) string {
	text = p.safely("normalize_unicode", text, normalizeUnicode)
	text = p.safely("strip_control_chars", text, stripControlAndZeroWidth)
	if p.cfg.FilterSpecialChars {
		text = p.safely("filter_special_chars", text, filterSpecialChars)
	}
	if p.cfg.RemoveURLs {
		text = p.safely("remove_urls", text, func(s string) string { return urlRe.ReplaceAllString(s, "") })
	}
	if p.cfg.RemoveEmails {
		text = p.safely("remove_emails", text, func(s string) string { return emailRe.ReplaceAllString(s, "") })
	}
	if p.cfg.RemovePhones {
		text = p.safely("remove_phones", text, func(s string) string { return phoneRe.ReplaceAllString(s, "") })
	}
	if len(p.patterns) > 0 {
		text = p.safely("custom_patterns", text, p.applyCustomPatterns)
	}
	if p.cfg.RemoveStopwords {
		text = p.safely("remove_stopwords", text, p.removeStopwords)
	}
	if p.cfg.Lowercase {
		text = p.safely("lowercase", text, strings.ToLower)
	}
	text = p.safely("normalize_whitespace", text, normalizeWhitespace)
	return text
}

// safely runs fn over text, recovering a panic and logging it as a warning
// with the stage name, and returns the stage's input unchanged, so one
// misbehaving stage never aborts the pipeline.
func (p *Preprocessor) safely(stage, text string, fn func(string) string) (out string) {
	out = text
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn().Interface("panic", r).Str("stage", stage).Msg("preprocessing stage failed, skipping")
			out = text
		}
	}()
	return fn(text)
}

// normalizeUnicode applies NFC composition then folds fullwidth
// digits/letters/punctuation and the fullwidth space to their halfwidth/ASCII
// equivalents (§4.4).
func normalizeUnicode(text string) string {
	text = norm.NFC.String(text)
	text = width.Fold.String(text)
	return text
}

var zeroWidthRunes = map[rune]bool{
	'​': true, // zero width space
	'‌': true, // zero width non-joiner
	'‍': true, // zero width joiner
	'﻿': true, // BOM / zero width no-break space
}

func stripControlAndZeroWidth(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if zeroWidthRunes[r] {
			continue
		}
		if r == '\n' || r == '\t' || r == '\r' {
			sb.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// filterSpecialChars keeps letters, digits, CJK ideographs, whitespace, and
// basic punctuation; everything else is dropped.
func filterSpecialChars(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			sb.WriteRune(r)
		case unicode.Is(unicode.Han, r):
			sb.WriteRune(r)
		case strings.ContainsRune(".,!?;:()\"'、。！？；：（）“”‘’—-", r):
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

var (
	urlRe   = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailRe = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	phoneRe = regexp.MustCompile(`\+?\d[\d -]{7,}\d`)

	whitespaceRunRe = regexp.MustCompile(`[ \t]+`)
	blankLinesRe    = regexp.MustCompile(`\n{3,}`)
)

func (p *Preprocessor) applyCustomPatterns(text string) string {
	for _, re := range p.patterns {
		text = re.ReplaceAllString(text, "")
	}
	return text
}

func (p *Preprocessor) removeStopwords(text string) string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := p.stopwords[strings.ToLower(f)]; stop {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// normalizeWhitespace collapses intra-line whitespace runs, trims each line,
// collapses 3+ consecutive blank lines to exactly 2, and trims the ends
// (§4.4).
func normalizeWhitespace(text string) string {
	text = whitespaceRunRe.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// bundledEnglishStopwords and bundledCJKStopwords are small, fixed lists
// (the spec calls for "bundled CJK and English lists", not a configurable
// dictionary source).
var bundledEnglishStopwords = []string{
	"a", "an", "the", "and", "or", "but", "of", "in", "on", "at", "to", "for",
	"with", "is", "are", "was", "were", "be", "been", "being", "this", "that",
	"it", "as", "by", "from",
}

var bundledCJKStopwords = []string{
	"的", "了", "是", "在", "和", "就", "都", "而", "及", "与", "这", "那", "也",
	"并", "或", "一个", "一种", "我们", "他们",
}

func defaultStopwords() map[string]struct{} {
	out := make(map[string]struct{}, len(bundledEnglishStopwords)+len(bundledCJKStopwords))
	for _, w := range bundledEnglishStopwords {
		out[w] = struct{}{}
	}
	for _, w := range bundledCJKStopwords {
		out[w] = struct{}{}
	}
	return out
}
