package model

import "time"

// ConversationState one session of the dialogue. A session loop owns it exclusively;
// transitions work on a Clone and hand the copy back.
type ConversationState struct {
	SessionID              string                 `json:"session_id"`
	Stage                  Stage                  `json:"stage"`
	Messages               []Message              `json:"messages"`
	Slots                  map[SlotName]SlotValue `json:"slots"`
	SlotCursor             int                    `json:"slot_cursor"`
	RetryCounts            map[SlotName]int       `json:"retry_counts"`
	UrgencyLevel           int                    `json:"urgency_level"`
	IsEmergency            bool                   `json:"is_emergency"`
	Turns                  int                    `json:"turns"`
	InfoCollectionComplete bool                   `json:"info_collection_complete"`
	GuidanceDelivered      bool                   `json:"guidance_delivered"`
	SummaryDelivered       bool                   `json:"summary_delivered"`
	FirstUtterance         string                 `json:"first_utterance,omitempty"`
	EndReason              EndReason              `json:"end_reason,omitempty"`
	Archived               bool                   `json:"archived"`
	Version                int64                  `json:"version"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
}

// Clone deep copy so a transition never aliases the caller's state
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	c.Slots = make(map[SlotName]SlotValue, len(s.Slots))
	for k, v := range s.Slots {
		c.Slots[k] = v
	}
	c.RetryCounts = make(map[SlotName]int, len(s.RetryCounts))
	for k, v := range s.RetryCounts {
		c.RetryCounts[k] = v
	}
	return &c
}

// AddMessage appends one entry, keeping insertion order
func (s *ConversationState) AddMessage(role Role, text string, source ReplySource, at time.Time) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Text:      text,
		Source:    source,
		Timestamp: at,
	})
	s.UpdatedAt = at
}

// LastMessage most recent message of the given role, empty when none
func (s *ConversationState) LastMessage(role Role) string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == role {
			return s.Messages[i].Text
		}
	}
	return ""
}

// RecentMessages last n messages in order
func (s *ConversationState) RecentMessages(n int) []Message {
	if n <= 0 || len(s.Messages) == 0 {
		return nil
	}
	start := len(s.Messages) - n
	if start < 0 {
		start = 0
	}
	return append([]Message(nil), s.Messages[start:]...)
}

// SetUrgency clamps and derives the emergency flag
func (s *ConversationState) SetUrgency(level, emergencyThreshold int) {
	s.UrgencyLevel = ClampUrgency(level)
	s.IsEmergency = s.UrgencyLevel >= emergencyThreshold
}

// RaiseUrgency only ever increases urgency
func (s *ConversationState) RaiseUrgency(level, emergencyThreshold int) {
	if level > s.UrgencyLevel {
		s.SetUrgency(level, emergencyThreshold)
	}
}

// ClampUrgency bound urgency to [1,10]
func ClampUrgency(level int) int {
	if level < MinUrgency {
		return MinUrgency
	}
	if level > MaxUrgency {
		return MaxUrgency
	}
	return level
}

// Slot current value, unconfirmed when missing
func (s *ConversationState) Slot(name SlotName) SlotValue {
	if v, ok := s.Slots[name]; ok {
		return v
	}
	return SlotValue{Value: ValueUnconfirmed, Status: SlotUnconfirmed}
}

// Final confirmed or accepted as unknown; no further writes allowed
func (v SlotValue) Final() bool {
	return v.Status == SlotConfirmed || v.Status == SlotUnknown
}

// HoldSlot stores a parsed value awaiting confirmation
func (s *ConversationState) HoldSlot(name SlotName, p ParsedValue) bool {
	if s.Slot(name).Final() {
		return false
	}
	s.Slots[name] = SlotValue{Value: p.Value, Status: SlotPending, Confidence: p.Confidence, Amount: p.Amount}
	return true
}

// ConfirmSlot promotes a pending value
func (s *ConversationState) ConfirmSlot(name SlotName) bool {
	v := s.Slot(name)
	if v.Status != SlotPending {
		return false
	}
	v.Status = SlotConfirmed
	s.Slots[name] = v
	return true
}

// RejectSlot drops a pending value back to unconfirmed
func (s *ConversationState) RejectSlot(name SlotName) bool {
	if s.Slot(name).Status != SlotPending {
		return false
	}
	s.Slots[name] = SlotValue{Value: ValueUnconfirmed, Status: SlotUnconfirmed}
	return true
}

// MarkSlotUnknown accepts the slot as unknown after retries run out
func (s *ConversationState) MarkSlotUnknown(name SlotName) bool {
	if s.Slot(name).Final() {
		return false
	}
	s.Slots[name] = SlotValue{Value: ValueUnknown, Status: SlotUnknown}
	return true
}

// CollectedInfo slot values keyed by slot name, for prompts and summaries
func (s *ConversationState) CollectedInfo() map[string]string {
	out := make(map[string]string, len(SlotOrder))
	for _, name := range SlotOrder {
		out[string(name)] = s.Slot(name).Value
	}
	return out
}

// Archive snapshot for the consultation archive
func (s *ConversationState) Archive(endedAt time.Time) ArchiveRecord {
	c := s.Clone()
	return ArchiveRecord{
		SessionID:   c.SessionID,
		Urgency:     c.UrgencyLevel,
		IsEmergency: c.IsEmergency,
		Turns:       c.Turns,
		EndReason:   c.EndReason,
		Slots:       c.Slots,
		Messages:    c.Messages,
		CreatedAt:   c.CreatedAt,
		EndedAt:     endedAt,
	}
}
