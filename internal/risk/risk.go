// Package risk turns article text plus its analysis into a bounded, explainable risk score.
package risk

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/deusflow/newsrisk/internal/analysis"
)

// MaxPoint is the upper bound of the user-facing score.
const MaxPoint = 10

// Term is a critical substring and the weight it adds when found.
type Term struct {
	Text   string
	Weight int
}

// criticalTerms is matched by substring containment on the lower-cased text,
// so "seller" also hits "sel". Order only affects the order of emitted hits.
var criticalTerms = []Term{
	{"deprem", 50},
	{"terör", 50},
	{"patlama", 35},
	{"saldırı", 35},
	{"intihar", 30},
	{"cinayet", 30},
	{"şiddet", 20},
	{"yolsuzluk", 20},
	{"tsunami", 40},
	{"sel", 25},
	{"yangın", 25},
	{"bomba", 40},
	{"rehine", 40},
}

var categoryWeights = map[analysis.Category]int{
	analysis.CategoryDisaster: 20,
	analysis.CategoryCrime:    15,
	analysis.CategoryPolitics: 5,
}

var sentimentWeights = map[analysis.Sentiment]int{
	analysis.SentimentNegative: 5,
	analysis.SentimentNeutral:  0,
	analysis.SentimentPositive: -3,
}

// Assessment is the Rule Engine output.
type Assessment struct {
	Point int      `json:"risk_point"`
	Hits  []string `json:"rule_hits"`
}

// CriticalTerms returns a copy of the term table in evaluation order.
func CriticalTerms() []Term {
	out := make([]Term, len(criticalTerms))
	copy(out, criticalTerms)
	return out
}

// Compute scores text against the critical term table and folds in the analysis
// category, toxicity and sentiment. It is pure and total: any input yields a
// Point in [0, MaxPoint] and a non-nil Hits slice.
func Compute(text string, a analysis.Result) Assessment {
	score := 0
	hits := []string{}

	low := strings.ToLower(text)
	for _, t := range criticalTerms {
		if strings.Contains(low, t.Text) {
			score += t.Weight
			hits = append(hits, fmt.Sprintf("term:%s+%d", t.Text, t.Weight))
		}
	}

	if w := categoryWeights[a.Category]; w != 0 {
		score += w
		hits = append(hits, fmt.Sprintf("category:%s+%d", a.Category, w))
	}

	if pts := ToxicityPoints(a.Toxicity); pts != 0 {
		score += pts
		hits = append(hits, fmt.Sprintf("toxicity:%s->%d", strconv.FormatFloat(a.Toxicity, 'f', -1, 64), pts))
	}

	if w := sentimentWeights[a.Sentiment]; w != 0 {
		score += w
		hits = append(hits, fmt.Sprintf("sentiment:%s:%+d", a.Sentiment, w))
	}

	return Assessment{Point: Scale(score), Hits: hits}
}

// ToxicityPoints maps a toxicity value to 0..10 points. Halves round to even,
// so 0.25 gives 2 and 0.75 gives 8.
func ToxicityPoints(toxicity float64) int {
	return int(math.RoundToEven(analysis.ClampToxicity(toxicity) * 10))
}

// Scale floor-divides the raw accumulator by ten and clamps it to [0, MaxPoint].
// Floor, not truncation: -5 becomes -1 before the clamp.
func Scale(raw int) int {
	p := floorDiv(raw, 10)
	if p < 0 {
		return 0
	}
	if p > MaxPoint {
		return MaxPoint
	}
	return p
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
