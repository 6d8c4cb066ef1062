package flows

import (
	"context"

	"voice-aftercare/analyzer"
	"voice-aftercare/model"
)

// HandleGreeting first utterance moves straight on to the urgency check
func (s *Script) HandleGreeting(ctx context.Context, st *model.ConversationState, userMessage string) (string, model.Stage, bool, error) {
	if st.FirstUtterance == "" {
		st.FirstUtterance = userMessage
	}
	return "", model.StageUrgencyCheck, true, nil
}

// HandleUrgencyCheck seeds urgency from the first utterance
func (s *Script) HandleUrgencyCheck(ctx context.Context, st *model.ConversationState, userMessage string) (string, model.Stage, bool, error) {
	level := analyzer.AssessUrgency(userMessage)
	st.SetUrgency(level, s.EmergencyThreshold)
	s.log.Infof("[Flow urgency_check] session=%s urgency=%d emergency=%v", st.SessionID, st.UrgencyLevel, st.IsEmergency)

	if st.IsEmergency {
		return emergencyAckText, model.StageSlotFilling, true, nil
	}
	return normalAckText, model.StageSlotFilling, true, nil
}
