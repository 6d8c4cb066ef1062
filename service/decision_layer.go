package service

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"voice-aftercare/config"
	"voice-aftercare/model"
	"voice-aftercare/utils"
)

var (
	contradictionWords = []string{"말고", "아니라", "다른", "또 다른", "추가로"}
	topicWords         = []string{"예방", "신고", "지급정지", "환급", "설정", "번호"}
	directAnswerTokens = []string{"네", "예", "아니", "싫어", "응", "맞"}

	explanationPatterns = []string{
		"뭐예요", "무엇", "어떤", "설명", "의미", "뜻", "어디예요", "누구", "언제", "왜",
		"어떻게", "뭘", "뭔", "무슨", "어느", "해야", "하면", "방법", "어디서",
	}
	referencedNumbers = []string{"132", "1811", "1332", "112"}

	dissatisfactionWords = []string{"아니", "다시", "다른", "더", "또", "별로", "부족", "그런", "정말", "진짜", "제대로"}
	strongComplaints     = []string{"그런 거 말고", "그게 아니라", "다시 말해", "제대로 알려", "도움이 안", "별로예요"}
	confusionPhrases     = []string{"이해 안", "모르겠", "헷갈", "잘 모르"}
	recurringTopics      = []string{"132", "1811", "1332", "112", "지급정지", "환급", "신고"}

	multiClauseWords = []string{"그런데", "하지만", "그리고", "또한", "게다가", "복잡", "여러", "동시에"}
)

const (
	complexityLengthRunes = 50
	repetitionWindow      = 3
)

// DecisionLayer hybrid rule/LLM routing for one turn
type DecisionLayer struct {
	thresholds   config.DecisionConfig
	typeClassify *TypeClassify
	log          *zap.SugaredLogger
}

// NewDecisionLayer builds the engine from per-detector thresholds
func NewDecisionLayer(cfg config.DecisionConfig, logger *zap.SugaredLogger) *DecisionLayer {
	return &DecisionLayer{
		thresholds:   cfg,
		typeClassify: NewTypeClassify(cfg.FallbackRules),
		log:          logger,
	}
}

// Decide scores the five detectors and escalates when any exceeds its threshold.
// history holds the messages before userText.
func (d *DecisionLayer) Decide(userText string, history []model.Message, lastAssistant string) *model.DecisionResult {
	text := strings.TrimSpace(userText)
	scores := []struct {
		detector  model.Detector
		score     float64
		threshold float64
	}{
		{model.DetectorContextMismatch, contextMismatchScore(text, lastAssistant), d.thresholds.ContextMismatchThreshold},
		{model.DetectorExplanation, explanationScore(text), d.thresholds.ExplanationThreshold},
		{model.DetectorDissatisfaction, dissatisfactionScore(text, history), d.thresholds.DissatisfactionThreshold},
		{model.DetectorRepetition, repetitionScore(text, history), d.thresholds.RepetitionThreshold},
		{model.DetectorComplexity, complexityScore(text), d.thresholds.ComplexityThreshold},
	}

	result := &model.DecisionResult{Reasons: []model.Reason{}}
	for _, s := range scores {
		if s.score > result.Confidence {
			result.Confidence = s.score
		}
		if s.score <= 0 {
			continue
		}
		triggered := s.score > s.threshold
		if triggered {
			result.Escalate = true
		}
		result.Reasons = append(result.Reasons, model.Reason{
			Detector:  s.detector,
			Score:     s.score,
			Threshold: s.threshold,
			Triggered: triggered,
		})
	}

	if !result.Escalate {
		result.FallbackRule = d.typeClassify.Classify(text)
	}
	d.log.Debugf("[DecisionLayer] escalate=%v confidence=%.2f reasons=%d fallback=%s",
		result.Escalate, result.Confidence, len(result.Reasons), result.FallbackRule)
	return result
}

// contextMismatchScore contradiction markers, or a question left unanswered
func contextMismatchScore(text, lastAssistant string) float64 {
	if lastAssistant == "" {
		return 0
	}
	score := 0.3 * float64(utils.CountContains(text, contradictionWords))
	if strings.Contains(text, "말고") {
		for _, topic := range topicWords {
			if strings.Contains(lastAssistant, topic) && strings.Contains(text, topic) {
				score += 0.5
				break
			}
		}
	}
	if endsWithQuestion(lastAssistant) && !utils.ContainsAny(text, directAnswerTokens) {
		score += 0.2
	}
	return utils.ClampFloat(score, 0, 1)
}

// answerInstructions may trail a question, as in "본인일까요? '네' 혹은 '아니요'로 대답해주세요."
var answerInstructions = []string{"대답해", "답해", "말씀해"}

// endsWithQuestion the message closes on a question, optionally followed by a
// single sentence telling the caller how to answer
func endsWithQuestion(msg string) bool {
	msg = strings.TrimSpace(strings.ReplaceAll(msg, "？", "?"))
	if strings.HasSuffix(msg, "?") {
		return true
	}
	i := strings.LastIndex(msg, "?")
	if i < 0 {
		return false
	}
	tail := strings.TrimSpace(msg[i+1:])
	if strings.ContainsAny(strings.TrimRight(tail, ".!"), ".!") {
		return false
	}
	return utils.ContainsAny(tail, answerInstructions)
}

// explanationScore interrogatives, boosted by references to numbers or settings
func explanationScore(text string) float64 {
	score := 0.4 * float64(utils.CountContains(text, explanationPatterns))
	if strings.Contains(text, "무엇") && strings.Contains(text, "해야") {
		score += 0.5
	}
	if strings.Contains(text, "해야") && utils.ContainsAny(text, []string{"뭘", "어떻게", "무엇"}) {
		score += 0.5
	}
	if utils.ContainsAny(text, referencedNumbers) && strings.Contains(text, "어디") {
		score += 0.6
	}
	if strings.Contains(text, "설정") && strings.Contains(text, "뭐") {
		score += 0.5
	}
	if strings.Contains(text, "말하는") && strings.Contains(text, "뭘") {
		score += 0.6
	}
	return utils.ClampFloat(score, 0, 1)
}

// dissatisfactionScore negation and confusion, boosted by a recurring topic
func dissatisfactionScore(text string, history []model.Message) float64 {
	score := 0.2 * float64(utils.CountContains(text, dissatisfactionWords))
	score += 0.4 * float64(utils.CountContains(text, strongComplaints))
	score += 0.4 * float64(utils.CountContains(text, confusionPhrases))

	recent := history
	if len(recent) > 2 {
		recent = recent[len(recent)-2:]
	}
	for _, topic := range recurringTopics {
		if !strings.Contains(text, topic) {
			continue
		}
		for _, m := range recent {
			if strings.Contains(m.Text, topic) {
				score += 0.3
				return utils.ClampFloat(score, 0, 1)
			}
		}
	}
	return utils.ClampFloat(score, 0, 1)
}

// repetitionScore shared tokens with the last few user utterances
func repetitionScore(text string, history []model.Message) float64 {
	if len(history) < 2 {
		return 0
	}
	current := tokenSet(text)
	if len(current) == 0 {
		return 0
	}

	score := 0.0
	seen := 0
	for i := len(history) - 1; i >= 0 && seen < repetitionWindow; i-- {
		if history[i].Role != model.RoleUser {
			continue
		}
		seen++
		shared := 0
		for tok := range tokenSet(history[i].Text) {
			if _, ok := current[tok]; ok {
				shared++
			}
		}
		if shared >= 2 {
			score += 0.3
		}
	}
	return utils.ClampFloat(score, 0, 1)
}

// complexityScore long or multi-clause utterances
func complexityScore(text string) float64 {
	score := 0.0
	if utf8.RuneCountInString(text) > complexityLengthRunes {
		score += 0.2
	}
	score += 0.3 * float64(utils.CountContains(text, multiClauseWords))
	if strings.Contains(text, "그리고") && (strings.Contains(text, "?") || strings.Contains(text, "까요")) {
		score += 0.4
	}
	return utils.ClampFloat(score, 0, 1)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		set[tok] = struct{}{}
	}
	return set
}
