package analyzer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"voice-aftercare/model"
	"voice-aftercare/utils"
)

// closed, hand-curated answer vocabularies
var (
	negativeWords = []string{
		"아니", "아뇨", "안했", "안 했", "못했", "못 했", "안함", "안해", "아직",
		"no", "땡", "아닌", "아님", "노노",
	}
	affirmativeWords = []string{
		"네", "예", "맞아", "맞아요", "맞습니다", "그래요", "응", "엉", "웅", "맞", "맛아", "맛",
		"그럼", "당연", "yes", "했어", "했습니다", "신청했", "했다", "완료", "마쳤", "ㅇㅇ",
	}
	unsureWords = []string{"모름", "몰라", "모르겠"}
)

type unitMultiplier struct {
	unit  string
	value int64
}

// descending magnitude
var amountUnits = []unitMultiplier{
	{"억", 100_000_000},
	{"천만", 10_000_000},
	{"백만", 1_000_000},
	{"만", 10_000},
}

type timePhrase struct {
	key   string
	value string
}

// matched against compacted text, in order
var timePhrases = []timePhrase{
	{"방금", "방금"},
	{"오늘", "오늘"},
	{"어제", "어제"},
	{"그저께", "그제"},
	{"그제", "그제"},
	{"지난주", "일주일 전"},
	{"일주일", "일주일 전"},
	{"한달", "한 달 전"},
}

var (
	digitRunPattern = regexp.MustCompile(`\d[\d,]*`)
	minutesAgo      = regexp.MustCompile(`(\d+)\s*분\s*전`)
	hoursAgo        = regexp.MustCompile(`(\d+)\s*시간\s*전`)
	trailingFiller  = regexp.MustCompile(`에?\s*다$`)
	timeHints       = []string{"시", "분", "일", "주", "달", "월", "년", "아침", "오전", "오후", "저녁", "밤", "새벽", "전"}
)

const (
	confidenceHigh   = 0.9
	confidenceMedium = 0.6
	confidenceLow    = 0.3
)

// ParseAnswer normalizes a raw utterance into a typed slot answer.
func ParseAnswer(raw string, kind model.AnswerKind) model.ParsedValue {
	switch kind {
	case model.KindYesNo:
		return parseYesNo(raw)
	case model.KindAmount:
		return parseAmount(raw)
	case model.KindTime:
		return parseTime(raw)
	default:
		return model.ParsedValue{Kind: kind, Value: strings.TrimSpace(raw)}
	}
}

func parseYesNo(raw string) model.ParsedValue {
	text := utils.NormalizeString(raw)
	out := model.ParsedValue{Kind: model.KindYesNo, Value: model.AnswerUnconfirmed}
	switch {
	case text == "":
	case utils.ContainsAny(text, unsureWords):
	case utils.ContainsAny(text, negativeWords):
		out.Value, out.Confidence = model.AnswerNo, confidenceHigh
	case utils.ContainsAny(text, affirmativeWords):
		out.Value, out.Confidence = model.AnswerYes, confidenceHigh
	}
	return out
}

func parseAmount(raw string) model.ParsedValue {
	text := strings.TrimSpace(raw)
	out := model.ParsedValue{Kind: model.KindAmount, Value: text, Confidence: confidenceLow}

	digits := strings.ReplaceAll(digitRunPattern.FindString(text), ",", "")
	if digits == "" {
		return out
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return out
	}

	multiplier := int64(1)
	for _, u := range amountUnits {
		if strings.Contains(text, u.unit) {
			multiplier = u.value
			break
		}
	}

	if n > math.MaxInt64/multiplier {
		return out
	}
	out.Amount = n * multiplier
	out.Value = utils.FormatWon(out.Amount)
	out.Confidence = confidenceMedium
	if multiplier > 1 || strings.Contains(text, "원") {
		out.Confidence = confidenceHigh
	}
	return out
}

func parseTime(raw string) model.ParsedValue {
	text := strings.TrimSpace(raw)
	out := model.ParsedValue{Kind: model.KindTime, Value: text}
	if text == "" {
		return out
	}

	compact := utils.CompactString(text)
	for _, p := range timePhrases {
		if strings.Contains(compact, p.key) {
			out.Value, out.Confidence = p.value, confidenceHigh
			return out
		}
	}

	if strings.Contains(text, "분") && strings.Contains(text, "전") {
		if m := minutesAgo.FindStringSubmatch(text); m != nil {
			out.Value, out.Confidence = m[1]+"분 전", confidenceHigh
			return out
		}
		out.Value = strings.TrimSpace(trailingFiller.ReplaceAllString(text, ""))
		out.Confidence = 0.7
		return out
	}
	if m := hoursAgo.FindStringSubmatch(text); m != nil {
		out.Value, out.Confidence = m[1]+"시간 전", confidenceHigh
		return out
	}

	out.Confidence = confidenceLow
	if utils.ContainsAny(text, timeHints) {
		out.Confidence = 0.5
	}
	return out
}
