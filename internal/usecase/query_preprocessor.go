package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/mercai/backend/internal/domain"
	"github.com/mercai/backend/internal/logging"
)

const (
	minQueryLength = 3
	maxQueryLength = 100
)

// QueryPreprocessor turns a free-text product search into folded match terms
type QueryPreprocessor struct {
	enableDebugLogging bool
	logger             *log.Logger
}

// Patterns run on folded (lowercase, accent-free) text
var (
	// Matches sizes like "5kg", "900 ml", "1,5 litros", "500g"
	sizeQuantityPattern = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\s*(?:kg|g|mg|ml|l|lt|litros?|gramas?|quilos?)\b`)

	// Matches counts like "12 unidades", "6 un", "c/ 12", "pack 6", "3x"
	packCountPattern = regexp.MustCompile(`\b\d+\s*(?:un|und|unid|unidades?|pcs?|pacotes?|latas?|garrafas?|rolos?|x)\b|\bc/\s*\d+\b|\b(?:pack|kit)\s*(?:com\s*)?\d+\b`)

	// Matches numbers left without a unit, e.g. the "1" of "tipo 1"
	standaloneNumberPattern = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\b`)

	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// searchNoiseWords are dropped from queries: connectives, packaging and
// marketing terms that product names rarely share with what people type
var searchNoiseWords = map[string]bool{
	// Connectives
	"a": true, "o": true, "e": true, "de": true, "da": true, "do": true,
	"das": true, "dos": true, "com": true, "em": true, "para": true, "sem": true,

	// Packaging
	"pacote":    true,
	"caixa":     true,
	"lata":      true,
	"garrafa":   true,
	"pote":      true,
	"saco":      true,
	"frasco":    true,
	"embalagem": true,
	"unidade":   true,
	"unidades":  true,
	"tipo":      true,

	// Marketing
	"promocao":    true,
	"oferta":      true,
	"novo":        true,
	"nova":        true,
	"tradicional": true,
	"premium":     true,
	"especial":    true,
	"economico":   true,
	"economica":   true,
}

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor(enableDebugLogging bool) *QueryPreprocessor {
	return &QueryPreprocessor{
		enableDebugLogging: enableDebugLogging,
		logger:             logging.WithPrefix("search"),
	}
}

// PreprocessQuery folds a search query and strips sizes, counts, noise
// words and punctuation. The result may be empty.
func (p *QueryPreprocessor) PreprocessQuery(query string) string {
	if query == "" {
		return ""
	}

	cleaned := domain.FoldText(query)

	cleaned = sizeQuantityPattern.ReplaceAllString(cleaned, " ")
	cleaned = packCountPattern.ReplaceAllString(cleaned, " ")
	cleaned = standaloneNumberPattern.ReplaceAllString(cleaned, " ")
	cleaned = punctuationPattern.ReplaceAllString(cleaned, " ")
	cleaned = removeNoiseWords(cleaned)

	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned) > maxQueryLength {
		cleaned = cleaned[:maxQueryLength]
		// Try to cut at word boundary
		if lastSpace := strings.LastIndex(cleaned, " "); lastSpace > maxQueryLength/2 {
			cleaned = cleaned[:lastSpace]
		}
	}

	if p.enableDebugLogging {
		p.logger.Debug("preprocessed query", "input", query, "output", cleaned)
	}

	return cleaned
}

// Terms returns the distinct words of the preprocessed query. When cleaning
// leaves fewer than minQueryLength characters, the folded query is used whole.
func (p *QueryPreprocessor) Terms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, word := range strings.Fields(p.PreprocessQuery(query)) {
		if !seen[word] {
			seen[word] = true
			terms = append(terms, word)
		}
	}

	if utf8.RuneCountInString(strings.Join(terms, " ")) >= minQueryLength {
		return terms
	}

	whole := strings.TrimSpace(multiSpacePattern.ReplaceAllString(domain.FoldText(query), " "))
	if whole == "" {
		return nil
	}
	return []string{whole}
}

// removeNoiseWords drops noise words and single letters
func removeNoiseWords(s string) string {
	words := strings.Fields(s)
	kept := words[:0]
	for _, word := range words {
		if utf8.RuneCountInString(word) > 1 && !searchNoiseWords[word] {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}
