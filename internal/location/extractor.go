package location

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"globe-desktop/internal/logger"
)

// Unknown is the single-element result returned when nothing can be extracted
const Unknown = "Unknown Location"

// Extractor turns free text into a list of place names
type Extractor interface {
	Extract(ctx context.Context, content string) []string
}

// IsUnknown reports whether locations is the fallback result
func IsUnknown(locations []string) bool {
	return len(locations) == 0 || (len(locations) == 1 && locations[0] == Unknown)
}

// KeywordExtractor matches a fixed set of place names as whole words
type KeywordExtractor struct {
	keywords []string
	pattern  *regexp.Regexp
	byLower  map[string]string
}

// NewKeywordExtractor builds a case-insensitive matcher over keywords.
// Longer keywords win when one is a prefix of another ("New York" over "New").
func NewKeywordExtractor(keywords []string) *KeywordExtractor {
	keywords = lo.Uniq(lo.Filter(lo.Map(keywords, func(k string, _ int) string {
		return strings.TrimSpace(k)
	}), func(k string, _ int) bool {
		return k != ""
	}))

	k := &KeywordExtractor{
		keywords: keywords,
		byLower:  make(map[string]string, len(keywords)),
	}
	if len(keywords) == 0 {
		return k
	}

	sorted := append([]string(nil), keywords...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})
	quoted := lo.Map(sorted, func(s string, _ int) string {
		return regexp.QuoteMeta(s)
	})
	k.pattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	for _, kw := range keywords {
		k.byLower[strings.ToLower(kw)] = kw
	}
	return k
}

// Keywords returns the configured keyword set
func (k *KeywordExtractor) Keywords() []string {
	return append([]string(nil), k.keywords...)
}

// Extract returns matched keywords in first-occurrence order, each once,
// in their configured spelling. No match yields [Unknown].
func (k *KeywordExtractor) Extract(_ context.Context, content string) []string {
	if k.pattern == nil {
		return []string{Unknown}
	}
	matches := k.pattern.FindAllString(content, -1)
	found := lo.Uniq(lo.FilterMap(matches, func(m string, _ int) (string, bool) {
		kw, ok := k.byLower[strings.ToLower(m)]
		return kw, ok
	}))
	if len(found) == 0 {
		return []string{Unknown}
	}
	return found
}

// Chain tries each extractor in turn and returns the first known result
type Chain struct {
	extractors []Extractor
	log        *zap.Logger
}

// NewChain creates a fallback chain. Nil extractors are skipped.
func NewChain(log *zap.Logger, extractors ...Extractor) *Chain {
	return &Chain{
		extractors: lo.Filter(extractors, func(e Extractor, _ int) bool { return e != nil }),
		log:        logger.OrNop(log),
	}
}

// Extract implements Extractor
func (c *Chain) Extract(ctx context.Context, content string) []string {
	for i, e := range c.extractors {
		locations := e.Extract(ctx, content)
		if !IsUnknown(locations) {
			return locations
		}
		c.log.Debug("[Location] extractor found nothing", zap.Int("stage", i))
	}
	return []string{Unknown}
}
