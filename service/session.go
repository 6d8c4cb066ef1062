package service

import (
	"time"

	"github.com/google/uuid"

	"voice-aftercare/config"
	"voice-aftercare/model"
	"voice-aftercare/service/flows"
)

// NewSession creates the initial state with the greeting already spoken
func NewSession(now time.Time) *model.ConversationState {
	st := &model.ConversationState{
		SessionID:    uuid.NewString(),
		Stage:        model.StageGreeting,
		Slots:        make(map[model.SlotName]model.SlotValue, len(model.SlotOrder)),
		RetryCounts:  make(map[model.SlotName]int, len(model.SlotOrder)),
		UrgencyLevel: model.DefaultUrgency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, name := range model.SlotOrder {
		st.Slots[name] = model.SlotValue{Value: model.ValueUnconfirmed, Status: model.SlotUnconfirmed}
	}
	st.AddMessage(model.RoleAssistant, flows.GreetingText, model.SourceScript, now)
	return st
}

// EndConditions reports whether the session is over and why
func EndConditions(st *model.ConversationState, now time.Time, cfg config.DialogueConfig) (bool, model.EndReason) {
	switch {
	case st.Stage == model.StageComplete:
		if st.EndReason != model.EndNone {
			return true, st.EndReason
		}
		return true, model.EndComplete
	case st.Turns >= cfg.MaxTurns:
		return true, model.EndMaxTurns
	case now.Sub(st.CreatedAt) > cfg.SessionTimeout():
		return true, model.EndTimeout
	}
	return false, model.EndNone
}
