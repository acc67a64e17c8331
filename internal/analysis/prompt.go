package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxPromptRunes caps the text sent to remote providers.
const MaxPromptRunes = 6000

const systemPrompt = `You are a Turkish news analysis API. Return ONLY valid JSON with keys:
category (one of: Politics, Economy, Technology, Sports, Health, World, Local, Culture, Crime, Disaster, Other),
sentiment (Positive|Neutral|Negative),
toxicity (float 0-1),
keywords (array of up to 8 lowercase Turkish keywords),
entities (array of objects: {text, type}), where type in [PERSON, ORG, LOC, EVENT].
Text is in Turkish.`

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-()]{7,}\d`)
	fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// MaskPII replaces e-mail addresses and phone numbers before text leaves the process.
func MaskPII(text string) string {
	text = emailPattern.ReplaceAllString(text, "[EMAIL]")
	return phonePattern.ReplaceAllString(text, "[PHONE]")
}

// preparePrompt masks PII and truncates to MaxPromptRunes on a rune boundary.
func preparePrompt(text string) string {
	text = MaskPII(strings.TrimSpace(text))
	if utf8.RuneCountInString(text) > MaxPromptRunes {
		text = string([]rune(text)[:MaxPromptRunes])
	}
	return text
}

// parseResult decodes a provider's JSON answer, tolerating a markdown code fence.
func parseResult(content string) (Result, error) {
	content = strings.TrimSpace(content)
	if m := fencePattern.FindStringSubmatch(content); m != nil {
		content = m[1]
	}
	var r Result
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return Result{}, fmt.Errorf("decode analysis json: %w", err)
	}
	return normalize(r), nil
}
