package flows

import (
	"context"
	"fmt"
	"strings"

	"voice-aftercare/model"
	"voice-aftercare/utils"
)

// HandleComplete delivers the closing summary once; later turns get the terminal reply
func (s *Script) HandleComplete(ctx context.Context, st *model.ConversationState, userMessage string) (string, model.Stage, bool, error) {
	if st.SummaryDelivered {
		return TerminalText, model.StageComplete, false, nil
	}
	st.SummaryDelivered = true
	if st.EndReason == model.EndNone {
		st.EndReason = model.EndComplete
	}
	return Summary(st), model.StageComplete, false, nil
}

// Close forces the session into COMPLETE when a turn or time ceiling is hit
func (s *Script) Close(st *model.ConversationState, reason model.EndReason) string {
	st.Stage = model.StageComplete
	st.EndReason = reason
	if st.SummaryDelivered {
		return ""
	}
	st.SummaryDelivered = true

	parts := []string{forcedCloseText}
	if st.IsEmergency && !st.GuidanceDelivered {
		st.GuidanceDelivered = true
		parts = append(parts, Guidance(st))
	}
	parts = append(parts, Summary(st))
	return strings.Join(parts, "\n\n")
}

// Summary closing message listing every collected slot
func Summary(st *model.ConversationState) string {
	var b strings.Builder
	b.WriteString("상담이 완료되었습니다.\n\n📋 수집된 정보 요약:\n")
	for _, q := range Questions {
		fmt.Fprintf(&b, "• %s: %s\n", q.Label, displayValue(q, st.Slot(q.Slot)))
	}
	b.WriteString("\n")
	b.WriteString(closingContacts)
	return b.String()
}

var (
	highFollowUps = []string{
		"지금 신고 진행하고 계신가요?",
		"추가로 필요한 조치가 있나요?",
		"다른 피해는 없으신가요?",
	}
	mediumFollowUps = []string{
		"더 자세한 상황을 말씀해 주시겠어요?",
		"혹시 다른 궁금한 점이 있으신가요?",
		"추가로 도움이 필요하신가요?",
	}
	lowFollowUps = []string{
		"다른 질문이 있으시면 말씀해 주세요.",
		"더 도움이 필요하시면 말씀해 주세요.",
		"궁금한 점이 더 있으신가요?",
	}
)

// FollowUp prompt spoken after the caller stays silent
func FollowUp(st *model.ConversationState) string {
	if st.Stage == model.StageSlotFilling && st.SlotCursor > 0 && st.SlotCursor <= len(Questions) {
		q := Questions[st.SlotCursor-1]
		prompt := q.Question
		if v := st.Slot(q.Slot); v.Status == model.SlotPending {
			prompt = confirmQuestion(v)
		}
		return "혹시 못 들으셨다면 다시 여쭤볼게요. " + prompt
	}
	set := lowFollowUps
	switch {
	case st.UrgencyLevel >= 8:
		set = highFollowUps
	case st.UrgencyLevel >= 6:
		set = mediumFollowUps
	}
	return set[utils.Min(st.Turns, len(set)-1)]
}
