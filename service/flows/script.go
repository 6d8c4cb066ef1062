package flows

import (
	"fmt"

	"go.uber.org/zap"

	"voice-aftercare/model"
)

// ==================== 고정 안내 문구 ====================

const (
	GreetingText = "안녕하세요! 보이스피싱 에프터케어 센터입니다.\n" +
		"신속한 도움을 위해 몇 가지 질문을 드리겠습니다. 힘드시겠지만, 답변 부탁드립니다."
	RepeatText   = "죄송합니다. 다시 말씀해 주세요."
	SafeText     = "처리 중 문제가 발생했습니다. 긴급한 경우 112로 연락하세요."
	TerminalText = "더 궁금하신 점이 있으신가요? 긴급한 경우 112(경찰), 1332(금감원)로 연락하세요."
	FarewellText = "상담이 완료되었습니다. 안전하세요!"

	emergencyAckText = "긴급 상황으로 판단됩니다. 빠르게 필요한 정보부터 확인하겠습니다."
	normalAckText    = "말씀 감사합니다. 상황 파악을 위해 몇 가지 여쭤보겠습니다."
	unknownSlotText  = "확인이 어려워 '확인 필요'로 기록하고 다음 질문으로 넘어가겠습니다."
	forcedCloseText  = "상담 시간이 길어져 여기서 마무리하겠습니다."
	closingContacts  = "앞으로도 의심스러운 연락에 주의하시고, 문제가 발생하면 즉시 1566-1188로 연락하세요."
)

// SlotQuestion one entry of the fixed question flow
type SlotQuestion struct {
	Slot     model.SlotName
	Kind     model.AnswerKind
	Label    string
	Question string
	Retry    string
}

// Questions asked in model.SlotOrder
var Questions = []SlotQuestion{
	{
		Slot:     model.SlotVictim,
		Kind:     model.KindYesNo,
		Label:    "피해자",
		Question: "피해자가 본인일까요? '네' 혹은 '아니요'로 대답해주세요.",
		Retry:    "죄송합니다. 피해자가 본인이신지 '네' 또는 '아니요'로 명확히 답변해 주세요.",
	},
	{
		Slot:     model.SlotLossAmount,
		Kind:     model.KindAmount,
		Label:    "송금 금액",
		Question: "송금한 돈이 얼마인가요? 정확한 금액을 말씀해 주세요.",
		Retry:    "송금 금액을 정확히 말씀해 주세요. 예: '300만원', '5천만원'",
	},
	{
		Slot:     model.SlotTimeContext,
		Kind:     model.KindTime,
		Label:    "송금 시기",
		Question: "언제 송금하셨나요? 생각나는 송금시간을 말씀해주세요.",
		Retry:    "송금한 시간을 말씀해 주세요. 예: '30분 전', '오늘 오후', '어제'",
	},
	{
		Slot:     model.SlotAccountFrozen,
		Kind:     model.KindYesNo,
		Label:    "계좌 지급정지",
		Question: "계좌 지급정지 신청을 하셨나요? '네' 혹은 '아니요'로 답해주세요.",
		Retry:    "계좌 지급정지 신청 여부를 '네' 또는 '아니요'로 답변해 주세요.",
	},
	{
		Slot:     model.SlotReportedToPolice,
		Kind:     model.KindYesNo,
		Label:    "경찰 신고",
		Question: "경찰서에 신고하셨나요? '네' 혹은 '아니요'로 답해주세요.",
		Retry:    "경찰 신고 여부를 '네' 또는 '아니요'로 답변해 주세요.",
	},
}

// QuestionFor looks up the question of a slot
func QuestionFor(slot model.SlotName) (SlotQuestion, bool) {
	for _, q := range Questions {
		if q.Slot == slot {
			return q, true
		}
	}
	return SlotQuestion{}, false
}

// Script parameters shared by every stage handler
type Script struct {
	EmergencyThreshold int
	MaxRetries         int
	log                *zap.SugaredLogger
}

// NewScript creates the stage handlers' shared parameters
func NewScript(emergencyThreshold, maxRetries int, logger *zap.SugaredLogger) *Script {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Script{
		EmergencyThreshold: emergencyThreshold,
		MaxRetries:         maxRetries,
		log:                logger,
	}
}

// confirmation acknowledgement once a slot is confirmed
func confirmation(q SlotQuestion, v model.SlotValue) string {
	switch q.Slot {
	case model.SlotVictim:
		if v.Value == model.AnswerYes {
			return "피해자 본인이 맞으시군요."
		}
		return "가족이나 지인분의 피해로 확인했습니다."
	case model.SlotLossAmount:
		return fmt.Sprintf("송금 금액이 %s인 것으로 확인됩니다.", v.Value)
	case model.SlotTimeContext:
		return fmt.Sprintf("송금 시기가 %s인 것으로 확인됩니다.", v.Value)
	case model.SlotAccountFrozen:
		return fmt.Sprintf("계좌 지급정지 신청을 %s하신 것으로 확인됩니다.", doneLabel(v.Value))
	case model.SlotReportedToPolice:
		return fmt.Sprintf("경찰 신고를 %s하신 것으로 확인됩니다.", doneLabel(v.Value))
	}
	return ""
}

// confirmQuestion asks the caller to confirm a medium-confidence answer
func confirmQuestion(v model.SlotValue) string {
	return fmt.Sprintf("%s%s 이해했는데 맞나요? '네' 또는 '아니요'로 답해주세요.", v.Value, particleRo(v.Value))
}

// displayValue human readable slot value for summaries
func displayValue(q SlotQuestion, v model.SlotValue) string {
	if v.Status == model.SlotUnknown {
		return model.ValueUnknown
	}
	if v.Status != model.SlotConfirmed {
		return model.ValueUnconfirmed
	}
	if q.Kind != model.KindYesNo {
		return v.Value
	}
	if q.Slot == model.SlotVictim {
		if v.Value == model.AnswerYes {
			return "본인"
		}
		return "가족/지인"
	}
	return doneLabel(v.Value)
}

func doneLabel(answer string) string {
	if answer == model.AnswerYes {
		return "완료"
	}
	return "미완료"
}

// particleRo picks 으로/로 from the last syllable's final consonant
func particleRo(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return "로"
	}
	last := runes[len(runes)-1]
	if last < 0xAC00 || last > 0xD7A3 {
		return "로"
	}
	final := (last - 0xAC00) % 28
	// no final consonant, or ㄹ
	if final == 0 || final == 8 {
		return "로"
	}
	return "으로"
}
