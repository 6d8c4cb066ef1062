package flows

import (
	"context"
	"fmt"
	"strings"

	"voice-aftercare/analyzer"
	"voice-aftercare/model"
)

const (
	confirmThreshold = 0.8
	holdThreshold    = 0.5

	// loss amounts that raise urgency on their own
	largeLossAmount    int64 = 10_000_000
	criticalLossAmount int64 = 50_000_000
)

// HandleSlotFilling parses the answer to the previous question, then asks the next one.
// When every slot is settled it hands over to guidance or completion.
func (s *Script) HandleSlotFilling(ctx context.Context, st *model.ConversationState, userMessage string) (string, model.Stage, bool, error) {
	if st.SlotCursor == 0 {
		st.SlotCursor = 1
		return Questions[0].Question, model.StageSlotFilling, false, nil
	}
	if st.SlotCursor > len(Questions) {
		return "", model.StageSlotFilling, false, fmt.Errorf("slot cursor %d out of range", st.SlotCursor)
	}

	q := Questions[st.SlotCursor-1]
	ack, settled := s.collect(st, q, userMessage)
	if !settled {
		return ack, model.StageSlotFilling, false, nil
	}

	if st.SlotCursor < len(Questions) {
		next := Questions[st.SlotCursor]
		st.SlotCursor++
		return joinLines(ack, next.Question), model.StageSlotFilling, false, nil
	}

	st.InfoCollectionComplete = true
	s.log.Infof("[Flow slot_filling] session=%s 정보 수집 완료, emergency=%v", st.SessionID, st.IsEmergency)
	if st.IsEmergency {
		return ack, model.StageEmergencyGuidance, true, nil
	}
	return ack, model.StageComplete, true, nil
}

// collect applies the confirmation policy to one answer. settled reports
// whether the slot reached a final status and the cursor may move on.
func (s *Script) collect(st *model.ConversationState, q SlotQuestion, userMessage string) (reply string, settled bool) {
	current := st.Slot(q.Slot)
	if current.Final() {
		return "", true
	}

	if current.Status == model.SlotPending {
		if analyzer.ParseAnswer(userMessage, model.KindYesNo).Value == model.AnswerYes {
			st.ConfirmSlot(q.Slot)
			return s.settle(st, q), true
		}
		st.RejectSlot(q.Slot)
		p := analyzer.ParseAnswer(userMessage, q.Kind)
		if p.Confidence >= confirmThreshold && p.Value != model.AnswerUnconfirmed {
			st.HoldSlot(q.Slot, p)
			st.ConfirmSlot(q.Slot)
			return s.settle(st, q), true
		}
		return s.retry(st, q)
	}

	p := analyzer.ParseAnswer(userMessage, q.Kind)
	s.log.Debugf("[Flow slot_filling] session=%s slot=%s value=%q confidence=%.2f", st.SessionID, q.Slot, p.Value, p.Confidence)
	switch {
	case q.Kind == model.KindYesNo && p.Value == model.AnswerUnconfirmed:
		return s.retry(st, q)
	case p.Confidence >= confirmThreshold:
		st.HoldSlot(q.Slot, p)
		st.ConfirmSlot(q.Slot)
		return s.settle(st, q), true
	case p.Confidence >= holdThreshold:
		st.HoldSlot(q.Slot, p)
		return confirmQuestion(st.Slot(q.Slot)), false
	default:
		return s.retry(st, q)
	}
}

// settle acknowledges a confirmed slot and applies amount-driven urgency
func (s *Script) settle(st *model.ConversationState, q SlotQuestion) string {
	v := st.Slot(q.Slot)
	if q.Slot == model.SlotLossAmount {
		switch {
		case v.Amount >= criticalLossAmount:
			st.RaiseUrgency(9, s.EmergencyThreshold)
		case v.Amount >= largeLossAmount:
			st.RaiseUrgency(8, s.EmergencyThreshold)
		}
	}
	return confirmation(q, v)
}

// retry re-prompts until retries run out, then accepts the slot as unknown
func (s *Script) retry(st *model.ConversationState, q SlotQuestion) (string, bool) {
	if st.RetryCounts[q.Slot] < s.MaxRetries {
		st.RetryCounts[q.Slot]++
		return q.Retry, false
	}
	st.MarkSlotUnknown(q.Slot)
	s.log.Infof("[Flow slot_filling] session=%s slot=%s 재시도 초과, 확인 필요 처리", st.SessionID, q.Slot)
	return unknownSlotText, true
}

func joinLines(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}
