package documents

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

// SplitConfig configures every strategy below (§4.4), grounded on
// splitters.py's SplitConfig dataclass.
type SplitConfig struct {
	ChunkSize         int
	ChunkOverlap      int
	MinChunkSize      int
	MaxChunkSize      int
	PreserveStructure bool
	GenerateSummary   bool
	GenerateQuestions bool
	SemanticSplit     bool
}

// Splitter turns one document's extracted, preprocessed text into ordered
// TextChunks.
type Splitter interface {
	Split(text, documentID string) ([]domain.TextChunk, error)
}

var (
	cleanMultiNewlineRe = regexp.MustCompile(`\n\s*\n\s*\n+`)
	cleanSpacesRe       = regexp.MustCompile(`[ \t]+`)
)

// cleanSplitText is splitters.py's BaseSplitter._clean_text: collapse 3+
// newlines to exactly 2, collapse horizontal whitespace runs to a single
// space, and trim each line.
func cleanSplitText(text string) string {
	if text == "" {
		return ""
	}
	text = cleanMultiNewlineRe.ReplaceAllString(text, "\n\n")
	text = cleanSpacesRe.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

// newChunk trims content, rejects an empty result, and stamps the fields
// every BaseSplitter._create_chunk sets before optionally attaching the
// summary/question enrichers (§4.4 "Invariants on chunks").
func newChunk(content, documentID string, chunkIndex int, meta domain.ChunkMetadata, cfg SplitConfig, splitterType string) (domain.TextChunk, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return domain.TextChunk{}, ragerrors.Processing("split produced an empty chunk", nil)
	}
	meta.Length = utf8.RuneCountInString(trimmed)
	meta.CreatedAt = time.Now().UTC()
	meta.SplitterType = splitterType

	chunk := domain.TextChunk{
		ID:         domain.NewID(),
		DocumentID: documentID,
		ChunkIndex: chunkIndex,
		Content:    trimmed,
		Metadata:   meta,
	}
	if cfg.GenerateSummary {
		chunk.Summary = generateSummary(trimmed)
	}
	if cfg.GenerateQuestions {
		chunk.Questions = generateQuestions(trimmed)
	}
	return chunk, nil
}

var sentenceTerminators = ".!?。！？"

// generateSummary takes the first two sentences of content (splitters.py's
// _generate_summary: a deliberately simple heuristic, not a model call).
func generateSummary(content string) string {
	if utf8.RuneCountInString(content) <= 100 {
		return content
	}
	sentences := splitOnAny(content, sentenceTerminators)
	var parts []string
	for i, s := range sentences {
		if i >= 2 {
			break
		}
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	summary := strings.Join(parts, ". ")
	if summary != "" {
		if last := []rune(summary); !strings.ContainsRune(sentenceTerminators, last[len(last)-1]) {
			summary += "..."
		}
		return summary
	}
	runes := []rune(content)
	if len(runes) > 100 {
		return string(runes[:100]) + "..."
	}
	return content
}

// generateQuestions produces up to 3 keyword-triggered template questions
// (splitters.py's _generate_questions).
func generateQuestions(content string) []string {
	var qs []string
	if strings.Contains(content, "什么") {
		qs = append(qs, "这段内容主要讲述了什么？")
	}
	if strings.Contains(content, "如何") || strings.Contains(content, "怎么") {
		qs = append(qs, "如何理解这段内容的要点？")
	}
	if strings.Contains(content, "为什么") || strings.Contains(content, "原因") {
		qs = append(qs, "这段内容提到的原因是什么？")
	}
	if len(qs) == 0 {
		qs = append(qs, "这段内容的主要信息是什么？")
	}
	if len(qs) > 3 {
		qs = qs[:3]
	}
	return qs
}

// splitOnAny splits s on any rune in cutset, like Python's re.split over a
// character class of terminators.
func splitOnAny(s, cutset string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(cutset, r) })
}

// ---- Fixed-size splitter ----

type fixedSizeSplitter struct{ cfg SplitConfig }

var fixedBreakPoints = map[rune]bool{'.': true, '。': true, '\n': true, ' ': true}

func (s fixedSizeSplitter) Split(text, documentID string) ([]domain.TextChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ragerrors.Processing("text content is empty", nil)
	}
	text = cleanSplitText(text)
	runes := []rune(text)

	var chunks []domain.TextChunk
	chunkIndex := 0
	start := 0
	for start < len(runes) {
		end := start + s.cfg.ChunkSize
		if end < len(runes) {
			lookahead := 50
			if remaining := len(runes) - end; remaining < lookahead {
				lookahead = remaining
			}
			best := end
			for i := 0; i < lookahead; i++ {
				if fixedBreakPoints[runes[end+i]] {
					best = end + i + 1
					break
				}
			}
			end = best
		}

		sliceEnd := end
		if sliceEnd > len(runes) {
			sliceEnd = len(runes)
		}
		content := string(runes[start:sliceEnd])
		if strings.TrimSpace(content) != "" {
			meta := domain.ChunkMetadata{SplitMethod: "fixed_size", StartPos: start, EndPos: end}
			chunk, err := newChunk(content, documentID, chunkIndex, meta, s.cfg, "FixedSizeSplitter")
			if err == nil {
				chunks = append(chunks, chunk)
				chunkIndex++
			}
		}

		next := end - s.cfg.ChunkOverlap
		if next < start+1 {
			next = start + 1
		}
		start = next
	}
	return chunks, nil
}

// ---- Structure splitter ----

type structureSplitter struct{ cfg SplitConfig }

var (
	structureParagraphRe = regexp.MustCompile(`\n\s*\n`)
	mdHeaderLevelRe       = regexp.MustCompile(`^(#{1,6})\s+`)
	numberedParagraphRe   = regexp.MustCompile(`^[0-9一二三四五六七八九十]+[.、]\s*`)
	cjkChapterAnywhereRe  = regexp.MustCompile(`第[0-9一二三四五六七八九十]+[章节部分]`)
)

func isHeaderParagraph(paragraph string) bool {
	paragraph = strings.TrimSpace(paragraph)
	if mdHeaderLevelRe.MatchString(paragraph) {
		return true
	}
	if utf8.RuneCountInString(paragraph) < 100 && numberedParagraphRe.MatchString(paragraph) {
		return true
	}
	return cjkChapterAnywhereRe.MatchString(paragraph)
}

func headerLevel(paragraph string) int {
	if m := mdHeaderLevelRe.FindStringSubmatch(strings.TrimSpace(paragraph)); m != nil {
		return len(m[1])
	}
	return 1
}

func splitStructureParagraphs(text string) []string {
	parts := structureParagraphRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s structureSplitter) Split(text, documentID string) ([]domain.TextChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ragerrors.Processing("text content is empty", nil)
	}
	text = cleanSplitText(text)
	paragraphs := splitStructureParagraphs(text)

	var chunks []domain.TextChunk
	chunkIndex := 0
	currentChunk := ""
	currentMeta := domain.ChunkMetadata{SplitMethod: "structure"}
	paragraphCount := 0

	flush := func() error {
		if strings.TrimSpace(currentChunk) == "" {
			return nil
		}
		currentMeta.Paragraphs = paragraphCount
		chunk, err := newChunk(currentChunk, documentID, chunkIndex, currentMeta, s.cfg, "StructureSplitter")
		if err != nil {
			return nil // empty after trim; skip rather than fail the whole document
		}
		chunks = append(chunks, chunk)
		chunkIndex++
		return nil
	}

	for _, paragraph := range paragraphs {
		isHeader := isHeaderParagraph(paragraph)

		if isHeader && strings.TrimSpace(currentChunk) != "" {
			_ = flush()
			currentChunk = ""
			currentMeta = domain.ChunkMetadata{SplitMethod: "structure"}
			paragraphCount = 0
		}

		if currentChunk != "" && utf8.RuneCountInString(currentChunk)+utf8.RuneCountInString(paragraph) > s.cfg.ChunkSize {
			_ = flush()
			if s.cfg.ChunkOverlap > 0 {
				runes := []rune(currentChunk)
				overlapStart := len(runes) - s.cfg.ChunkOverlap
				if overlapStart < 0 {
					overlapStart = 0
				}
				currentChunk = string(runes[overlapStart:]) + "\n\n" + paragraph
			} else {
				currentChunk = paragraph
			}
			currentMeta = domain.ChunkMetadata{SplitMethod: "structure"}
			paragraphCount = 1
		} else if currentChunk != "" {
			currentChunk += "\n\n" + paragraph
			paragraphCount++
		} else {
			currentChunk = paragraph
			paragraphCount = 1
		}

		if isHeader {
			currentMeta.HasHeader = true
			currentMeta.HeaderLevel = headerLevel(paragraph)
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// ---- Hierarchical splitter ----

type hierarchicalSplitter struct{ cfg SplitConfig }

type hierarchyNode struct {
	Title    string
	Content  string
	Children []*hierarchyNode
	Level    int
}

var (
	hierarchyParagraphRe = regexp.MustCompile(`\n\s*\n+`)
	numberedSectionRe    = regexp.MustCompile(`^[0-9]+\.\s+`)
	cjkChapterLeadingRe  = regexp.MustCompile(`^第[0-9一二三四五六七八九十]+[章节]`)
	subNumberedSectionRe = regexp.MustCompile(`^[0-9]+\.[0-9]+\s+`)
)

func detectHeaderLevel(paragraph string) int {
	firstLine := paragraph
	if idx := strings.IndexByte(paragraph, '\n'); idx >= 0 {
		firstLine = paragraph[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)

	if m := mdHeaderLevelRe.FindStringSubmatch(firstLine); m != nil {
		return len(m[1])
	}
	if numberedSectionRe.MatchString(firstLine) && utf8.RuneCountInString(firstLine) < 100 {
		return 1
	}
	if cjkChapterLeadingRe.MatchString(firstLine) {
		return 1
	}
	if subNumberedSectionRe.MatchString(firstLine) && utf8.RuneCountInString(firstLine) < 100 {
		return 2
	}
	return 0
}

func buildHierarchy(text string) *hierarchyNode {
	root := &hierarchyNode{Level: 0}
	stack := []*hierarchyNode{root}
	current := root

	for _, raw := range hierarchyParagraphRe.Split(text, -1) {
		paragraph := strings.TrimSpace(raw)
		if paragraph == "" {
			continue
		}
		level := detectHeaderLevel(paragraph)
		if level > 0 {
			lines := strings.Split(paragraph, "\n")
			title := strings.TrimSpace(lines[0])
			content := ""
			if len(lines) > 1 {
				content = strings.TrimSpace(strings.Join(lines[1:], "\n"))
			}
			section := &hierarchyNode{Title: title, Content: content, Level: level}
			for len(stack) > 1 && stack[len(stack)-1].Level >= level {
				stack = stack[:len(stack)-1]
			}
			top := stack[len(stack)-1]
			top.Children = append(top.Children, section)
			stack = append(stack, section)
			current = section
		} else if current.Content != "" {
			current.Content += "\n\n" + paragraph
		} else {
			current.Content = paragraph
		}
	}
	return root
}

var longContentBreakPoints = map[rune]bool{'.': true, '。': true, '\n': true}

// splitLongContent is splitters.py's HierarchicalSplitter._split_long_content:
// a fixed-size re-split with a 100-character look-ahead over a narrower
// break-point set than the top-level fixed splitter's.
func splitLongContent(content string, cfg SplitConfig) []string {
	runes := []rune(content)
	if len(runes) <= cfg.ChunkSize {
		return []string{content}
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + cfg.ChunkSize
		if end < len(runes) {
			lookahead := 100
			if remaining := len(runes) - end; remaining < lookahead {
				lookahead = remaining
			}
			for i := 0; i < lookahead; i++ {
				if longContentBreakPoints[runes[end+i]] {
					end = end + i + 1
					break
				}
			}
		}
		sliceEnd := end
		if sliceEnd > len(runes) {
			sliceEnd = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:sliceEnd])); chunk != "" {
			out = append(out, chunk)
		}
		next := end - cfg.ChunkOverlap
		if next < start+1 {
			next = start + 1
		}
		start = next
	}
	return out
}

func (s hierarchicalSplitter) Split(text, documentID string) ([]domain.TextChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ragerrors.Processing("text content is empty", nil)
	}
	text = cleanSplitText(text)
	root := buildHierarchy(text)

	var chunks []domain.TextChunk
	chunkIndex := 0

	var walk func(node *hierarchyNode, path []string)
	walk = func(node *hierarchyNode, path []string) {
		content := strings.TrimSpace(node.Content)
		if content != "" && utf8.RuneCountInString(content) >= s.cfg.MinChunkSize {
			hierarchyPath := strings.Join(path, "/")
			if utf8.RuneCountInString(content) > s.cfg.ChunkSize {
				subContents := splitLongContent(content, s.cfg)
				for i, sub := range subContents {
					if utf8.RuneCountInString(strings.TrimSpace(sub)) < s.cfg.MinChunkSize {
						continue
					}
					meta := domain.ChunkMetadata{
						SplitMethod:   "hierarchical",
						HierarchyPath: hierarchyPath,
						Level:         node.Level,
						SectionTitle:  node.Title,
						Extra: map[string]any{
							"sub_chunk_index":  i,
							"total_sub_chunks": len(subContents),
						},
					}
					if chunk, err := newChunk(sub, documentID, chunkIndex, meta, s.cfg, "HierarchicalSplitter"); err == nil {
						chunks = append(chunks, chunk)
						chunkIndex++
					}
				}
			} else {
				meta := domain.ChunkMetadata{
					SplitMethod:   "hierarchical",
					HierarchyPath: hierarchyPath,
					Level:         node.Level,
					SectionTitle:  node.Title,
				}
				if chunk, err := newChunk(content, documentID, chunkIndex, meta, s.cfg, "HierarchicalSplitter"); err == nil {
					chunks = append(chunks, chunk)
					chunkIndex++
				}
			}
		}
		for _, child := range node.Children {
			title := child.Title
			if title == "" {
				title = "Section"
			}
			walk(child, append(append([]string{}, path...), title))
		}
	}
	walk(root, nil)
	return chunks, nil
}

// ---- Semantic splitter ----

type semanticSplitter struct{ cfg SplitConfig }

var sentenceTerminatorRunRe = regexp.MustCompile(`[.!?。！？]+`)

func splitSentencesForSemantic(text string) []string {
	var out []string
	for _, s := range sentenceTerminatorRunRe.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" && utf8.RuneCountInString(s) > 10 {
			out = append(out, s)
		}
	}
	return out
}

var topicChangeIndicators = []string{
	"然而", "但是", "不过", "另外", "此外", "另一方面", "相反", "与此同时",
	"接下来", "首先", "其次", "最后",
	"however", "but", "on the other hand", "meanwhile", "next",
}

var timeTransitionIndicators = []string{
	"后来", "然后", "接着", "随后", "later", "then", "afterwards",
}

func shouldBreakSemanticGroup(group []string, newSentence string) bool {
	if len(group) == 0 {
		return false
	}
	lower := strings.ToLower(newSentence)
	for _, indicator := range topicChangeIndicators {
		if strings.HasPrefix(lower, indicator) {
			return true
		}
	}
	for _, indicator := range timeTransitionIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

func (s semanticSplitter) Split(text, documentID string) ([]domain.TextChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ragerrors.Processing("text content is empty", nil)
	}
	text = cleanSplitText(text)
	sentences := splitSentencesForSemantic(text)

	if len(sentences) <= 1 {
		meta := domain.ChunkMetadata{SplitMethod: "semantic", SentenceCount: len(sentences)}
		chunk, err := newChunk(text, documentID, 0, meta, s.cfg, "SemanticSplitter")
		if err != nil {
			return nil, err
		}
		return []domain.TextChunk{chunk}, nil
	}
	return s.groupSentences(sentences, documentID)
}

func (s semanticSplitter) groupSentences(sentences []string, documentID string) ([]domain.TextChunk, error) {
	var chunks []domain.TextChunk
	chunkIndex := 0
	var currentGroup []string
	currentLength := 0

	flush := func(group []string) error {
		content := strings.Join(group, ". ") + "."
		meta := domain.ChunkMetadata{SplitMethod: "semantic", SentenceCount: len(group), SemanticGroup: chunkIndex}
		chunk, err := newChunk(content, documentID, chunkIndex, meta, s.cfg, "SemanticSplitter")
		if err != nil {
			return nil
		}
		chunks = append(chunks, chunk)
		chunkIndex++
		return nil
	}

	for _, sentence := range sentences {
		breakGroup := currentLength+utf8.RuneCountInString(sentence) > s.cfg.ChunkSize || shouldBreakSemanticGroup(currentGroup, sentence)

		if breakGroup && len(currentGroup) > 0 {
			_ = flush(currentGroup)
			if s.cfg.ChunkOverlap > 0 {
				overlap := currentGroup[len(currentGroup)-1]
				currentGroup = []string{overlap, sentence}
			} else {
				currentGroup = []string{sentence}
			}
			currentLength = 0
			for _, g := range currentGroup {
				currentLength += utf8.RuneCountInString(g)
			}
		} else {
			currentGroup = append(currentGroup, sentence)
			currentLength += utf8.RuneCountInString(sentence)
		}
	}
	if len(currentGroup) > 0 {
		_ = flush(currentGroup)
	}
	return chunks, nil
}

// ---- Recursive splitter (auto strategy selection + post-processing) ----

var (
	headerOrNumberedLineRe = regexp.MustCompile(`(?m)^(#{1,6}\s+|[0-9]+\.\s+)`)
	hierarchyMarkerRe      = regexp.MustCompile(`第[0-9一二三四五六七八九十]+[章节]`)
)

func selectBestStrategy(text string, cfg SplitConfig) string {
	textLen := utf8.RuneCountInString(text)
	hasHeaders := headerOrNumberedLineRe.MatchString(text)
	hasHierarchy := hierarchyMarkerRe.MatchString(text)
	paragraphCount := len(splitStructureParagraphs(text))

	switch {
	case hasHierarchy && textLen > 2000:
		return "hierarchical"
	case hasHeaders && paragraphCount >= 5:
		return "structure"
	case cfg.SemanticSplit && textLen > 1000:
		return "semantic"
	default:
		return "fixed"
	}
}

// RecursiveSplitter selects a strategy per document then post-processes the
// result (§4.4 "Splitting" + "Post-processing").
type RecursiveSplitter struct {
	cfg       SplitConfig
	splitters map[string]Splitter
}

func NewRecursiveSplitter(cfg SplitConfig) *RecursiveSplitter {
	return &RecursiveSplitter{
		cfg: cfg,
		splitters: map[string]Splitter{
			"structure":    structureSplitter{cfg: cfg},
			"hierarchical": hierarchicalSplitter{cfg: cfg},
			"semantic":     semanticSplitter{cfg: cfg},
			"fixed":        fixedSizeSplitter{cfg: cfg},
		},
	}
}

func (r *RecursiveSplitter) Split(text, documentID string) ([]domain.TextChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ragerrors.Processing("text content is empty", nil)
	}
	strategy := selectBestStrategy(text, r.cfg)
	chunks, err := r.splitters[strategy].Split(text, documentID)
	if err != nil {
		return nil, err
	}
	return r.postProcess(chunks, documentID), nil
}

// postProcess re-splits oversized chunks with the fixed-size strategy,
// merges undersized chunks into their predecessor when the combination
// still fits, drops undersized chunks with nowhere to merge, and
// re-densifies chunk_index (§4.4 "Post-processing").
func (r *RecursiveSplitter) postProcess(chunks []domain.TextChunk, documentID string) []domain.TextChunk {
	final := make([]domain.TextChunk, 0, len(chunks))
	chunkIndex := 0
	fixed := fixedSizeSplitter{cfg: r.cfg}

	for _, chunk := range chunks {
		size := utf8.RuneCountInString(chunk.Content)
		switch {
		case size > r.cfg.MaxChunkSize:
			subChunks, err := fixed.Split(chunk.Content, documentID)
			if err != nil {
				continue
			}
			for i := range subChunks {
				subChunks[i].ChunkIndex = chunkIndex + i
				subChunks[i].Metadata.ParentChunkID = chunk.ID
				subChunks[i].Metadata.IsSubChunk = true
				if subChunks[i].Metadata.Extra == nil {
					subChunks[i].Metadata.Extra = map[string]any{}
				}
				subChunks[i].Metadata.Extra["original_split_method"] = chunk.Metadata.SplitMethod
			}
			final = append(final, subChunks...)
			chunkIndex += len(subChunks)
		case size >= r.cfg.MinChunkSize:
			chunk.ChunkIndex = chunkIndex
			final = append(final, chunk)
			chunkIndex++
		case len(final) > 0 && utf8.RuneCountInString(final[len(final)-1].Content)+size <= r.cfg.MaxChunkSize:
			last := &final[len(final)-1]
			last.Content = last.Content + "\n\n" + chunk.Content
			last.Metadata.MergedChunks++
		}
	}

	if len(final) == 0 && len(chunks) > 0 {
		return []domain.TextChunk{wholeContentChunk(chunks, documentID)}
	}
	return final
}

// wholeContentChunk folds every sub-min chunk the loop above dropped back
// into a single chunk carrying the whole content, so a document shorter than
// min_chunk_size still produces exactly one chunk instead of zero (§4.4
// "Post-processing").
func wholeContentChunk(chunks []domain.TextChunk, documentID string) domain.TextChunk {
	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}
	whole := chunks[0]
	whole.Content = strings.Join(contents, "\n\n")
	whole.DocumentID = documentID
	whole.ChunkIndex = 0
	whole.Metadata.MergedChunks = len(chunks) - 1
	return whole
}
