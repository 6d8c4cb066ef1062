package tts

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"
)

var symbolReplacer = strings.NewReplacer(
	"🚨", "긴급",
	"⚠️", "주의",
	"1️⃣", "첫째,",
	"2️⃣", "둘째,",
	"3️⃣", "셋째,",
	"🔒", "",
	"📋", "",
	"✅", "",
	"•", "",
	"※", "",
	"→", " ",
)

var (
	urlPattern     = regexp.MustCompile(`(?i)https?://\S+|www\.[a-z0-9\-.]+[a-z]|[a-z0-9\-]+(\.[a-z0-9\-]+)*\.(kr|com|net|org)\b`)
	numberPattern  = regexp.MustCompile(`\d[\d,\-]*\d|\d`)
	spacePattern   = regexp.MustCompile(`\s+`)
	sentenceEnders = []string{". ", "? ", "! "}
)

// short service numbers always read digit by digit
var serviceNumbers = map[string]bool{
	"112": true, "119": true, "132": true, "182": true, "1332": true, "1811": true,
}

var koreanDigits = map[rune]string{
	'0': "공", '1': "일", '2': "이", '3': "삼", '4': "사",
	'5': "오", '6': "육", '7': "칠", '8': "팔", '9': "구",
}

// MakeVoiceFriendly rewrites display text for speech: symbols become words, phone
// numbers are read digit by digit, URLs collapse to "웹사이트" and the result is
// cut at a sentence boundary within maxChars runes.
func MakeVoiceFriendly(text string, maxChars int) string {
	out := symbolReplacer.Replace(text)
	out = urlPattern.ReplaceAllString(out, "웹사이트")
	out = numberPattern.ReplaceAllStringFunc(out, readNumber)
	out = strings.TrimSpace(spacePattern.ReplaceAllString(out, " "))
	return truncateAtSentence(out, maxChars)
}

func readNumber(tok string) string {
	if !strings.Contains(tok, "-") && !serviceNumbers[tok] {
		return tok
	}
	var b strings.Builder
	for _, r := range tok {
		switch {
		case r == '-':
			b.WriteString("의 ")
		case r == ',':
		default:
			b.WriteString(koreanDigits[r])
		}
	}
	return b.String()
}

func truncateAtSentence(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:maxChars])

	// every ender carries one trailing space; best is the byte offset just past the punctuation
	probe := cut + " "
	best := -1
	for _, end := range sentenceEnders {
		if i := strings.LastIndex(probe, end); i >= 0 && i+len(end)-1 > best {
			best = i + len(end) - 1
		}
	}
	if best > 0 && utf8.RuneCountInString(cut[:best]) >= maxChars/2 {
		return strings.TrimSpace(cut[:best])
	}
	return strings.TrimSpace(cut)
}

// VoiceFriendly applies MakeVoiceFriendly before handing text to the next provider
type VoiceFriendly struct {
	next     Provider
	maxChars int
}

func NewVoiceFriendly(next Provider, maxChars int) *VoiceFriendly {
	return &VoiceFriendly{next: next, maxChars: maxChars}
}

func (v *VoiceFriendly) Synthesize(ctx context.Context, text string) (*Audio, error) {
	spoken := MakeVoiceFriendly(text, v.maxChars)
	if spoken == "" {
		return nil, ErrEmptyText
	}
	return v.next.Synthesize(ctx, spoken)
}
