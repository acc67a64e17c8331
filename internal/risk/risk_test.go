package risk

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/deusflow/newsrisk/internal/analysis"
)

func neutral() analysis.Result {
	return analysis.Result{Category: analysis.CategoryOther, Sentiment: analysis.SentimentNeutral}
}

func TestComputeCaseInsensitiveSubstring(t *testing.T) {
	t.Parallel()

	got := Compute("DEPREM oldu", neutral())
	if got.Point != 5 {
		t.Fatalf("expected risk point 5, got %d", got.Point)
	}
	want := []string{"term:deprem+50"}
	if !reflect.DeepEqual(got.Hits, want) {
		t.Fatalf("unexpected hits: %v", got.Hits)
	}
}

func TestComputeTermInsideLongerWord(t *testing.T) {
	t.Parallel()

	got := Compute("Selanik limanı", neutral())
	if len(got.Hits) != 1 || got.Hits[0] != "term:sel+25" {
		t.Fatalf("expected embedded term to match, got %v", got.Hits)
	}
}

func TestComputeTermCountsOnce(t *testing.T) {
	t.Parallel()

	got := Compute("bomba bomba bomba", neutral())
	if got.Point != 4 {
		t.Fatalf("expected 4 for a single bomba hit, got %d", got.Point)
	}
	if len(got.Hits) != 1 {
		t.Fatalf("expected one hit, got %v", got.Hits)
	}
}

func TestComputeCategoryOnly(t *testing.T) {
	t.Parallel()

	a := neutral()
	a.Category = analysis.CategoryDisaster
	got := Compute("", a)
	if got.Point != 2 {
		t.Fatalf("expected 2, got %d", got.Point)
	}
	if !reflect.DeepEqual(got.Hits, []string{"category:Disaster+20"}) {
		t.Fatalf("unexpected hits: %v", got.Hits)
	}
}

func TestComputeUnknownCategory(t *testing.T) {
	t.Parallel()

	a := neutral()
	a.Category = "Foo"
	got := Compute("", a)
	if got.Point != 0 {
		t.Fatalf("expected 0, got %d", got.Point)
	}
	if got.Hits == nil || len(got.Hits) != 0 {
		t.Fatalf("expected empty non-nil hits, got %#v", got.Hits)
	}
}

func TestComputeToxicityOnly(t *testing.T) {
	t.Parallel()

	a := neutral()
	a.Toxicity = 0.73
	got := Compute("", a)
	if got.Point != 0 {
		t.Fatalf("expected 0 for accumulator 7, got %d", got.Point)
	}
	if len(got.Hits) != 1 || !strings.Contains(got.Hits[0], "toxicity:0.73->7") {
		t.Fatalf("unexpected hits: %v", got.Hits)
	}
}

func TestComputeCombinedAndClamp(t *testing.T) {
	t.Parallel()

	a := analysis.Result{Category: analysis.CategoryCrime, Sentiment: analysis.SentimentNegative}
	got := Compute("Terör saldırısında bomba", a)
	// terör 50 + saldırı 35 + bomba 40 + crime 15 + negative 5 = 145
	if got.Point != MaxPoint {
		t.Fatalf("expected clamp at %d, got %d", MaxPoint, got.Point)
	}
	want := []string{
		"term:terör+50",
		"term:saldırı+35",
		"term:bomba+40",
		"category:Crime+15",
		"sentiment:Negative:+5",
	}
	if !reflect.DeepEqual(got.Hits, want) {
		t.Fatalf("unexpected hits:\n got %v\nwant %v", got.Hits, want)
	}

	got = Compute("terör ve bomba", a)
	if got.Point != 10 {
		t.Fatalf("expected 10 for accumulator 110, got %d", got.Point)
	}
}

func TestComputeHitOrder(t *testing.T) {
	t.Parallel()

	a := analysis.Result{Category: analysis.CategoryPolitics, Sentiment: analysis.SentimentPositive, Toxicity: 0.4}
	got := Compute("rehine ve yangın", a)
	want := []string{
		"term:yangın+25",
		"term:rehine+40",
		"category:Politics+5",
		"toxicity:0.4->4",
		"sentiment:Positive:-3",
	}
	if !reflect.DeepEqual(got.Hits, want) {
		t.Fatalf("unexpected hits:\n got %v\nwant %v", got.Hits, want)
	}
	if got.Point != 7 {
		t.Fatalf("expected 7 for accumulator 71, got %d", got.Point)
	}
}

func TestComputeNegativeAccumulatorFloors(t *testing.T) {
	t.Parallel()

	a := analysis.Result{Sentiment: analysis.SentimentPositive}
	got := Compute("", a)
	if got.Point != 0 {
		t.Fatalf("expected 0, got %d", got.Point)
	}
	if !reflect.DeepEqual(got.Hits, []string{"sentiment:Positive:-3"}) {
		t.Fatalf("unexpected hits: %v", got.Hits)
	}
}

func TestComputeClampsOutOfRangeToxicity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		tox  float64
		pts  int
		hits int
	}{
		{-0.5, 0, 0},
		{1.7, 10, 1},
		{math.NaN(), 0, 0},
		{math.Inf(1), 10, 1},
	}
	for _, tc := range cases {
		a := neutral()
		a.Toxicity = tc.tox
		got := Compute("", a)
		if got.Point != tc.pts/10 {
			t.Errorf("toxicity %v: expected point %d, got %d", tc.tox, tc.pts/10, got.Point)
		}
		if len(got.Hits) != tc.hits {
			t.Errorf("toxicity %v: expected %d hits, got %v", tc.tox, tc.hits, got.Hits)
		}
	}
}

func TestToxicityPointsRoundsHalfToEven(t *testing.T) {
	t.Parallel()

	cases := map[float64]int{
		0:    0,
		0.04: 0,
		0.25: 2,
		0.26: 3,
		0.5:  5,
		0.73: 7,
		0.75: 8,
		1:    10,
	}
	for in, want := range cases {
		if got := ToxicityPoints(in); got != want {
			t.Errorf("ToxicityPoints(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestScale(t *testing.T) {
	t.Parallel()

	cases := map[int]int{
		-5:  0,
		-30: 0,
		0:   0,
		9:   0,
		10:  1,
		79:  7,
		100: 10,
		250: 10,
	}
	for in, want := range cases {
		if got := Scale(in); got != want {
			t.Errorf("Scale(%d) = %d, want %d", in, got, want)
		}
	}
	if floorDiv(-5, 10) != -1 {
		t.Fatalf("floorDiv(-5, 10) should be -1")
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	t.Parallel()

	a := analysis.Result{Category: analysis.CategoryDisaster, Sentiment: analysis.SentimentNegative, Toxicity: 0.35}
	text := "Tsunami ve sel uyarısı"
	first := Compute(text, a)
	for i := 0; i < 5; i++ {
		if got := Compute(text, a); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got, first)
		}
	}
}

func TestComputeBounds(t *testing.T) {
	t.Parallel()

	texts := []string{"", "sakin bir gün", "deprem terör patlama saldırı intihar cinayet şiddet yolsuzluk tsunami sel yangın bomba rehine"}
	cats := []analysis.Category{"", analysis.CategoryDisaster, analysis.CategoryCrime, analysis.CategorySports, "???"}
	sents := []analysis.Sentiment{"", analysis.SentimentNegative, analysis.SentimentPositive, "angry"}
	toxs := []float64{-1, 0, 0.5, 1, 3}

	for _, text := range texts {
		for _, c := range cats {
			for _, s := range sents {
				for _, tox := range toxs {
					got := Compute(text, analysis.Result{Category: c, Sentiment: s, Toxicity: tox})
					if got.Point < 0 || got.Point > MaxPoint {
						t.Fatalf("point %d out of range for %q/%s/%s/%v", got.Point, text, c, s, tox)
					}
					if got.Hits == nil {
						t.Fatalf("nil hits for %q/%s/%s/%v", text, c, s, tox)
					}
				}
			}
		}
	}
}
