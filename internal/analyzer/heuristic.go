package analyzer

import (
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/siteatlas/internal/domain"
)

const (
	maxParagraphs = 50
	maxKeywords   = 10
	maxTopics     = 3
	minWordLength = 3
)

// stopwords are excluded from keyword extraction.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "have": {}, "this": {},
	"that": {}, "with": {}, "from": {}, "they": {}, "will": {}, "what": {},
	"when": {}, "your": {}, "which": {}, "their": {}, "about": {}, "would": {},
	"there": {}, "more": {}, "other": {}, "into": {}, "than": {}, "them": {},
	"these": {}, "some": {}, "been": {}, "were": {}, "also": {},
}

var wordPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9'-]*`)

// entityPattern matches capitalized word runs, a rough proper-noun heuristic.
var entityPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+)*\b`)

// Heuristic is the default analyzer: goquery-based extraction, frequency
// keywords, and a hashed bag-of-words embedding. Fully deterministic, so
// re-analyzing the same content always yields the same result.
type Heuristic struct{}

// NewHeuristic creates the default analyzer.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// ExtractContent parses raw HTML into a content summary: title, headings,
// paragraphs, and flattened text.
func (h *Heuristic) ExtractContent(raw string) (domain.ContentSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return domain.ContentSummary{}, fmt.Errorf("analyzer: parse html: %w", err)
	}

	summary := domain.ContentSummary{}

	summary.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if summary.Title == "" {
		if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
			summary.Title = strings.TrimSpace(ogTitle)
		}
	}

	doc.Find("h1, h2, h3").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			summary.Headings = append(summary.Headings, text)
		}
	})

	doc.Find("p").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if text := collapseWhitespace(sel.Text()); text != "" {
			summary.Paragraphs = append(summary.Paragraphs, text)
		}
		return len(summary.Paragraphs) < maxParagraphs
	})

	// script and style text would pollute the flattened body
	doc.Find("script, style, noscript").Remove()
	summary.Text = collapseWhitespace(doc.Find("body").Text())
	if summary.Text == "" {
		summary.Text = collapseWhitespace(doc.Text())
	}

	return summary, nil
}

// IdentifyEntities returns capitalized word runs as candidate entities,
// deduplicated, in order of first appearance.
func (h *Heuristic) IdentifyEntities(text string) []string {
	matches := entityPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var entities []string
	for _, m := range matches {
		if len(m) < minWordLength {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		entities = append(entities, m)
	}
	return entities
}

// ExtractTopics derives keywords by term frequency, main topics from the
// top keywords, and a primary category from the dominant keyword.
func (h *Heuristic) ExtractTopics(summary domain.ContentSummary) domain.Topics {
	freq := make(map[string]int)
	order := make(map[string]int)

	corpus := summary.Title + " " + strings.Join(summary.Headings, " ") + " " + summary.Text
	for i, word := range wordPattern.FindAllString(strings.ToLower(corpus), -1) {
		if len(word) < minWordLength {
			continue
		}
		if _, stop := stopwords[word]; stop {
			continue
		}
		if _, ok := order[word]; !ok {
			order[word] = i
		}
		freq[word]++
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	// ties broken by first appearance so output is deterministic
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return order[words[i]] < order[words[j]]
	})

	topics := domain.Topics{}
	for i, w := range words {
		if i >= maxKeywords {
			break
		}
		topics.Keywords = append(topics.Keywords, w)
	}
	for i, w := range topics.Keywords {
		if i >= maxTopics {
			break
		}
		topics.MainTopics = append(topics.MainTopics, w)
	}
	if len(topics.Keywords) > 0 {
		topics.Categories = []string{titleCase(topics.Keywords[0])}
	}

	return topics
}

// GenerateEmbedding maps text to a fixed-dimension vector using hashed
// bag-of-words, L2-normalized so cosine similarity reduces to a dot product.
func (h *Heuristic) GenerateEmbedding(text string) []float32 {
	vec := make([]float32, EmbeddingDim)
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(word) < minWordLength {
			continue
		}
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(word))
		vec[hasher.Sum32()%EmbeddingDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

// collapseWhitespace trims and collapses runs of whitespace to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// titleCase uppercases the first rune of a word.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
