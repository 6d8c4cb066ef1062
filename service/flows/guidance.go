package flows

import (
	"context"
	"fmt"
	"strings"

	"voice-aftercare/model"
)

// Bank hotline for payment-stop requests
type Bank struct {
	Name    string
	Aliases []string
	Hotline string
}

var banks = []Bank{
	{Name: "KB국민은행", Aliases: []string{"국민", "kb"}, Hotline: "1588-9999"},
	{Name: "우리은행", Aliases: []string{"우리은행"}, Hotline: "1588-5000"},
	{Name: "신한은행", Aliases: []string{"신한"}, Hotline: "1599-8000"},
	{Name: "하나은행", Aliases: []string{"하나은행"}, Hotline: "1599-1111"},
	{Name: "NH농협은행", Aliases: []string{"농협"}, Hotline: "1588-2100"},
	{Name: "IBK기업은행", Aliases: []string{"기업은행", "ibk"}, Hotline: "1566-2566"},
	{Name: "카카오뱅크", Aliases: []string{"카카오뱅크", "카뱅"}, Hotline: "1599-3333"},
	{Name: "토스뱅크", Aliases: []string{"토스"}, Hotline: "1661-7654"},
}

// DetectBank finds the first bank the caller mentioned
func DetectBank(text string) (Bank, bool) {
	lower := strings.ToLower(text)
	for _, b := range banks {
		for _, alias := range b.Aliases {
			if strings.Contains(lower, alias) {
				return b, true
			}
		}
	}
	return Bank{}, false
}

// HandleEmergencyGuidance emits tiered guidance once, then closes
func (s *Script) HandleEmergencyGuidance(ctx context.Context, st *model.ConversationState, userMessage string) (string, model.Stage, bool, error) {
	if st.GuidanceDelivered {
		return "", model.StageComplete, true, nil
	}
	st.GuidanceDelivered = true
	s.log.Infof("[Flow emergency_guidance] session=%s urgency=%d", st.SessionID, st.UrgencyLevel)
	return Guidance(st), model.StageComplete, true, nil
}

// Guidance picks the guidance tier by urgency and skips actions already taken
func Guidance(st *model.ConversationState) string {
	frozen := st.Slot(model.SlotAccountFrozen).Value == model.AnswerYes
	reported := st.Slot(model.SlotReportedToPolice).Value == model.AnswerYes

	switch {
	case st.UrgencyLevel >= 8:
		return highUrgencyGuidance(st, frozen, reported)
	case st.UrgencyLevel >= 6:
		return mediumUrgencyGuidance(frozen, reported)
	default:
		return preventiveGuidance()
	}
}

func highUrgencyGuidance(st *model.ConversationState, frozen, reported bool) string {
	lines := []string{"🚨 긴급 조치가 필요합니다."}
	step := 1
	add := func(text string) {
		lines = append(lines, fmt.Sprintf("%d. %s", step, text))
		step++
	}
	if !reported {
		add("즉시 112(경찰) 또는 1332(금감원)에 신고하세요.")
	}
	if !frozen {
		stop := "송금한 은행 고객센터에 지급정지를 신청하세요."
		if b, ok := DetectBank(userText(st)); ok {
			stop = fmt.Sprintf("%s 고객센터(%s)에 지급정지를 신청하세요.", b.Name, b.Hotline)
		}
		add(stop)
	}
	add("휴대폰을 비행기모드로 전환하거나 전원을 끄세요.")
	if frozen && reported {
		lines = append(lines, "신고와 지급정지를 이미 하셨군요. 잘하셨습니다. 추가 피해 문의는 112, 1332로 하세요.")
	}
	lines = append(lines,
		"⚠️ 3일 이내 경찰서에서 사건사고사실확인원을 발급받아 은행에 제출해야 환급 가능합니다.",
		"🔒 개인정보 노출 등록 pd.fss.or.kr, 계좌 일괄조회 www.payinfo.or.kr, 명의도용 방지 www.msafer.or.kr",
	)
	return strings.Join(lines, "\n")
}

func mediumUrgencyGuidance(frozen, reported bool) string {
	lines := []string{"⚠️ 빠른 조치가 필요합니다."}
	if !reported {
		lines = append(lines, "- 112(경찰) 또는 1332(금감원)에 상담 및 신고하세요.")
	}
	if !frozen {
		lines = append(lines, "- 송금하셨다면 은행 고객센터에 지급정지를 요청하세요.")
	}
	lines = append(lines, "- 3일 이내 사건사고사실확인원을 은행에 제출해야 환급 절차가 진행됩니다.")
	return strings.Join(lines, "\n")
}

func preventiveGuidance() string {
	return "의심스러운 전화는 끊고 기관의 공식 번호로 직접 확인하세요. 문의는 1332(금감원), 신고는 112(경찰)입니다."
}

func userText(st *model.ConversationState) string {
	var b strings.Builder
	for _, m := range st.Messages {
		if m.Role == model.RoleUser {
			b.WriteString(m.Text)
			b.WriteByte(' ')
		}
	}
	return b.String()
}
