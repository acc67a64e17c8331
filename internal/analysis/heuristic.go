package analysis

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

// HeuristicProvider is the local keyword-based analyzer used when no remote
// provider is configured or all of them failed. It never returns an error.
type HeuristicProvider struct{}

// NewHeuristicProvider returns the local analyzer.
func NewHeuristicProvider() *HeuristicProvider { return &HeuristicProvider{} }

func (h *HeuristicProvider) Name() string { return "mock" }

func (h *HeuristicProvider) Analyze(_ context.Context, text string) (Result, error) {
	clean := strings.ToLower(stripLinks(text))
	return Result{
		Category:  inferCategory(clean),
		Sentiment: inferSentiment(clean),
		Toxicity:  math.Round(inferToxicity(clean)*100) / 100,
		Keywords:  ExtractKeywords(text, MaxKeywords),
		Entities:  []Entity{},
	}, nil
}

var stopwords = toSet(
	"ve", "veya", "ile", "de", "da", "bu", "şu", "o", "bir", "iki", "üç", "dört", "beş", "çok", "az",
	"için", "gibi", "olarak", "ancak", "fakat", "ama", "en", "mi", "mu", "mü", "mı", "diye",
	"ise", "yine", "daha", "her", "hem", "ne", "nasıl", "niçin", "neden", "ki", "ya", "ya da", "içinde",
	"üzerine", "sonra", "önce", "artık", "yerine", "var", "yok", "şimdi", "bugün", "dün", "yarın", "biz",
	"siz", "onlar", "ben", "sen", "birçok", "hangi", "bazı", "bile", "kadar", "üzere", "karşı",
)

// junkTokens sneak in from feed markup and carry no meaning.
var junkTokens = toSet("https", "http", "trthaberstatic", "resimler", "haber", "son", "dakika", "video", "foto")

type categoryHint struct {
	category Category
	words    []string
}

// Evaluated in order; the first category with the highest hit count wins.
var categoryHints = []categoryHint{
	{CategoryDisaster, []string{"deprem", "yangın", "sel", "kasırga", "fırtına", "çığ", "tsunami", "enkaz", "patlama", "uçak", "kaza"}},
	{CategoryCrime, []string{"cinayet", "tutuklama", "soygun", "yolsuzluk", "uyuşturucu", "gözaltı", "rehine", "bomba", "saldırı"}},
	{CategoryPolitics, []string{"bakan", "meclis", "kabine", "cumhurbaşkanı", "milletvekili", "seçim", "kongre", "chp", "akp", "mhp", "mevzuat", "kanun"}},
	{CategoryEconomy, []string{"enflasyon", "faiz", "döviz", "kur", "banka", "bütçe", "ekonomi", "ihracat", "ithalat", "piyasa"}},
	{CategorySports, []string{"futbol", "basketbol", "voleybol", "maç", "gol", "lig", "transfer"}},
	{CategoryHealth, []string{"sağlık", "hastane", "doktor", "aşı", "enfeksiyon", "koronavirüs"}},
	{CategoryWorld, []string{"abd", "rusya", "gazze", "israil", "avrupa", "almanya", "fransa", "ukrayna", "iran", "suriye"}},
}

var (
	negativeWords = []string{"ölü", "yaralı", "saldırı", "terör", "patlama", "kriz", "skandal", "yolsuzluk", "cinayet", "düştü", "açlık"}
	positiveWords = []string{"rekor", "başarı", "artış", "iyileşme", "destek", "barış", "kurtarıldı", "kazan"}
	toxicWords    = []string{"terör", "saldırı", "bomba", "nefret", "hakaret", "ölü", "cinayet", "soykırım", "şiddet"}
)

var (
	urlPattern    = regexp.MustCompile(`(?i)https?://\S+|www\.\S+`)
	domainPattern = regexp.MustCompile(`(?i)\b[a-z0-9.-]+\.(com|net|org|tr|gov|edu)(/\S*)?`)
	tokenPattern  = regexp.MustCompile(`[A-Za-zÇĞİÖŞÜçğıöşü]{3,}`)
)

func stripLinks(text string) string {
	text = urlPattern.ReplaceAllString(text, " ")
	return domainPattern.ReplaceAllString(text, " ")
}

func inferCategory(low string) Category {
	best, bestHits := CategoryOther, 0
	for _, hint := range categoryHints {
		hits := countContained(low, hint.words)
		if hits > bestHits {
			best, bestHits = hint.category, hits
		}
	}
	return best
}

func inferSentiment(low string) Sentiment {
	neg := countContained(low, negativeWords) > 0
	pos := countContained(low, positiveWords) > 0
	switch {
	case neg && !pos:
		return SentimentNegative
	case pos && !neg:
		return SentimentPositive
	default:
		return SentimentNeutral
	}
}

func inferToxicity(low string) float64 {
	return ClampToxicity(0.05 + 0.15*float64(countContained(low, toxicWords)))
}

// ExtractKeywords returns up to limit tokens ordered by frequency, then by length,
// then by first appearance.
func ExtractKeywords(text string, limit int) []string {
	type entry struct {
		word  string
		count int
	}
	var order []*entry
	index := map[string]*entry{}

	for _, w := range tokenPattern.FindAllString(strings.ToLower(stripLinks(text)), -1) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, junk := junkTokens[w]; junk {
			continue
		}
		if e, ok := index[w]; ok {
			e.count++
			continue
		}
		e := &entry{word: w, count: 1}
		index[w] = e
		order = append(order, e)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return len([]rune(order[i].word)) > len([]rune(order[j].word))
	})

	out := make([]string, 0, limit)
	for _, e := range order {
		if len(out) == limit {
			break
		}
		out = append(out, e.word)
	}
	return out
}

func countContained(low string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(low, w) {
			n++
		}
	}
	return n
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
