package analyzer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"voice-aftercare/model"
)

const (
	highPatternBonus   = 8
	mediumPatternBonus = 5
	calmingPenalty     = 3
	shortInputPenalty  = 2
	questionPenalty    = 1
	recencyBonus       = 2
	shortInputRunes    = 5
)

// high-urgency patterns, first match only
var highUrgencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`사기.{0,4}당`),
	regexp.MustCompile(`계좌.{0,4}이체`),
	regexp.MustCompile(`(송금|보냈|이체).{0,10}\d+\s*분\s*전`),
	regexp.MustCompile(`\d+\s*분\s*전.{0,10}(송금|보냈|이체)`),
	regexp.MustCompile(`\d[\d,]*\s*(억|천만|백만|만)?\s*원?.{0,6}(송금|보냈|이체)`),
}

// medium-urgency patterns, first match only
var mediumUrgencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`의심(스러운|스런)\s*(전화|문자)`),
	regexp.MustCompile(`링크.{0,4}(클릭|눌)`),
	regexp.MustCompile(`앱.{0,4}설치`),
	regexp.MustCompile(`사칭`),
}

type weightedKeyword struct {
	word   string
	weight int
}

// summed without early exit
var urgencyKeywords = []weightedKeyword{
	{"급해", 4},
	{"빨리", 3},
	{"송금", 2},
	{"이체", 2},
	{"보냈", 2},
	{"사기", 2},
	{"도와", 2},
	{"돈", 1},
	{"의심", 1},
	{"계좌", 1},
}

var calmingWords = []string{"모르겠", "궁금", "그냥", "혹시"}

var recencyPattern = regexp.MustCompile(`방금|\d+\s*분\s*전|오늘`)

// AssessUrgency scores free text on a 1..10 scale. Empty input yields the midpoint.
func AssessUrgency(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.DefaultUrgency
	}

	score := 0
	for _, re := range highUrgencyPatterns {
		if re.MatchString(text) {
			score += highPatternBonus
			break
		}
	}
	for _, re := range mediumUrgencyPatterns {
		if re.MatchString(text) {
			score += mediumPatternBonus
			break
		}
	}
	for _, kw := range urgencyKeywords {
		if strings.Contains(text, kw.word) {
			score += kw.weight
		}
	}

	for _, w := range calmingWords {
		if strings.Contains(text, w) {
			score -= calmingPenalty
			if score < 0 {
				score = 0
			}
		}
	}
	if utf8.RuneCountInString(text) <= shortInputRunes {
		score -= shortInputPenalty
	}
	if strings.Contains(text, "?") || strings.Contains(text, "궁금") {
		score -= questionPenalty
	}
	if recencyPattern.MatchString(text) {
		score += recencyBonus
	}

	return model.ClampUrgency(score)
}
