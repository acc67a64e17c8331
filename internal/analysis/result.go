package analysis

import (
	"encoding/json"
	"strings"
)

// Category is the topical class a provider assigns to a text.
// Providers may emit values outside the known set; consumers must tolerate them.
type Category string

const (
	CategoryPolitics   Category = "Politics"
	CategoryEconomy    Category = "Economy"
	CategoryTechnology Category = "Technology"
	CategorySports     Category = "Sports"
	CategoryHealth     Category = "Health"
	CategoryWorld      Category = "World"
	CategoryLocal      Category = "Local"
	CategoryCulture    Category = "Culture"
	CategoryCrime      Category = "Crime"
	CategoryDisaster   Category = "Disaster"
	CategoryOther      Category = "Other"
)

// Sentiment is the overall tone of a text.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// MaxKeywords caps the keyword list a provider returns.
const MaxKeywords = 8

// Entity is a named thing mentioned in the text. Type is one of PERSON, ORG, LOC, EVENT
// but is passed through untouched.
type Entity struct {
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

// UnmarshalJSON accepts both {"text": "...", "type": "..."} and a bare string,
// since LLM providers return either shape.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = Entity{Text: s}
		return nil
	}
	type plain Entity
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Entity(p)
	return nil
}

// Result is the fixed-shape analysis record every provider returns.
type Result struct {
	Category  Category  `json:"category"`
	Sentiment Sentiment `json:"sentiment"`
	Toxicity  float64   `json:"toxicity"`
	Keywords  []string  `json:"keywords"`
	Entities  []Entity  `json:"entities"`
}

// Neutral is the analysis used when no provider could produce one.
func Neutral() Result {
	return Result{
		Category:  CategoryOther,
		Sentiment: SentimentNeutral,
		Toxicity:  0,
		Keywords:  []string{},
		Entities:  []Entity{},
	}
}

// normalize fills missing fields and enforces the provider boundary contract:
// toxicity in [0,1], lowercase trimmed keywords capped at MaxKeywords, non-nil slices.
func normalize(r Result) Result {
	if r.Category == "" {
		r.Category = CategoryOther
	}
	if r.Sentiment == "" {
		r.Sentiment = SentimentNeutral
	}
	r.Toxicity = ClampToxicity(r.Toxicity)

	keywords := make([]string, 0, len(r.Keywords))
	for _, k := range r.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		keywords = append(keywords, k)
		if len(keywords) == MaxKeywords {
			break
		}
	}
	r.Keywords = keywords

	if r.Entities == nil {
		r.Entities = []Entity{}
	}
	return r
}

// ClampToxicity forces a toxicity value into [0,1]. NaN becomes 0.
func ClampToxicity(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
