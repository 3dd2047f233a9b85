package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/lamina-mem/lamina/pkg/log"
)

const (
	// maxKeywords is the maximum number of keywords returned per extraction.
	maxKeywords = 5

	// fallbackImportance is returned when extraction fails internally.
	fallbackImportance = 0.5

	// triggerBoost is added when the text contains a retention trigger word.
	triggerBoost = 0.2

	// punctuationBoost is added when the text contains '?' or '!'.
	punctuationBoost = 0.1
)

// triggerWords mark text the author explicitly wants retained. Matched as
// case-insensitive substrings of the raw text.
var triggerWords = []string{"important", "remember", "note", "key"}

var wordPattern = regexp.MustCompile(`\w+`)

// Extractor derives retained keywords and a scalar importance score from raw
// text. It is stateless and safe for concurrent use.
type Extractor struct{}

// NewExtractor creates a new keyword/importance extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract tokenizes the text, discards stop words and short tokens, and
// returns up to five of the most frequent surviving tokens together with an
// importance score in [0.0, 1.0].
//
// Extraction never fails: if anything inside panics, the degenerate result
// (nil keywords, importance 0.5) is returned so that memory creation can
// proceed without tags.
func (e *Extractor) Extract(text string) (keywords []string, importance float64) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("Keyword extraction failed, using fallback", "panic", r)
			keywords = nil
			importance = fallbackImportance
		}
	}()

	keywords = e.topKeywords(text)

	// Base score from keyword density, then fixed boosts for salience cues.
	importance = float64(len(keywords)) / 10.0
	if importance > 1.0 {
		importance = 1.0
	}

	lower := strings.ToLower(text)
	for _, trigger := range triggerWords {
		if strings.Contains(lower, trigger) {
			importance += triggerBoost
			break
		}
	}

	if strings.ContainsAny(text, "?!") {
		importance += punctuationBoost
	}

	importance = Clamp(importance)
	return keywords, importance
}

// topKeywords returns the most frequent non-stop-word tokens of length > 2,
// ties broken by first occurrence.
func (e *Extractor) topKeywords(text string) []string {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)

	type tokenStat struct {
		token string
		count int
		first int
	}

	stats := make(map[string]*tokenStat)
	order := make([]*tokenStat, 0)

	for i, token := range tokens {
		if len(token) <= 2 || IsStopWord(token) {
			continue
		}
		if s, ok := stats[token]; ok {
			s.count++
			continue
		}
		s := &tokenStat{token: token, count: 1, first: i}
		stats[token] = s
		order = append(order, s)
	}

	sort.SliceStable(order, func(a, b int) bool {
		if order[a].count != order[b].count {
			return order[a].count > order[b].count
		}
		return order[a].first < order[b].first
	})

	limit := maxKeywords
	if len(order) < limit {
		limit = len(order)
	}

	keywords := make([]string, 0, limit)
	for _, s := range order[:limit] {
		keywords = append(keywords, s.token)
	}
	return keywords
}

// Clamp restricts an importance score to the [0.0, 1.0] range.
func Clamp(score float64) float64 {
	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}
