package model

import (
	"testing"
	"time"
)

func newTestState() *ConversationState {
	return &ConversationState{
		SessionID:    "s1",
		Stage:        StageGreeting,
		Slots:        map[SlotName]SlotValue{},
		RetryCounts:  map[SlotName]int{},
		UrgencyLevel: DefaultUrgency,
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	t.Parallel()

	s := newTestState()
	s.AddMessage(RoleAssistant, "hello", SourceScript, time.Now())
	s.RetryCounts[SlotVictim] = 1

	c := s.Clone()
	c.AddMessage(RoleUser, "hi", "", time.Now())
	c.RetryCounts[SlotVictim] = 2
	c.Slots[SlotVictim] = SlotValue{Value: "yes", Status: SlotConfirmed}

	if len(s.Messages) != 1 {
		t.Fatalf("original messages changed: %d", len(s.Messages))
	}
	if s.RetryCounts[SlotVictim] != 1 {
		t.Errorf("original retry count changed: %d", s.RetryCounts[SlotVictim])
	}
	if _, ok := s.Slots[SlotVictim]; ok {
		t.Errorf("original slots changed")
	}
}

func TestSetUrgencyClamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in        int
		want      int
		emergency bool
	}{
		{-3, 1, false},
		{0, 1, false},
		{6, 6, false},
		{7, 7, true},
		{42, 10, true},
	}
	for _, tt := range tests {
		s := newTestState()
		s.SetUrgency(tt.in, 7)
		if s.UrgencyLevel != tt.want || s.IsEmergency != tt.emergency {
			t.Errorf("SetUrgency(%d) = (%d, %v), want (%d, %v)", tt.in, s.UrgencyLevel, s.IsEmergency, tt.want, tt.emergency)
		}
	}
}

func TestRaiseUrgencyNeverLowers(t *testing.T) {
	t.Parallel()

	s := newTestState()
	s.SetUrgency(9, 7)
	s.RaiseUrgency(3, 7)
	if s.UrgencyLevel != 9 {
		t.Fatalf("urgency lowered to %d", s.UrgencyLevel)
	}
}

func TestSlotNeverRegresses(t *testing.T) {
	t.Parallel()

	s := newTestState()
	if got := s.Slot(SlotVictim); got.Value != ValueUnconfirmed || got.Status != SlotUnconfirmed {
		t.Fatalf("unset slot = %+v", got)
	}

	s.HoldSlot(SlotVictim, ParsedValue{Value: AnswerYes, Confidence: 0.9})
	if !s.ConfirmSlot(SlotVictim) {
		t.Fatal("ConfirmSlot() = false")
	}
	if s.HoldSlot(SlotVictim, ParsedValue{Value: AnswerNo}) {
		t.Error("HoldSlot overwrote a confirmed slot")
	}
	if s.RejectSlot(SlotVictim) {
		t.Error("RejectSlot regressed a confirmed slot")
	}
	if s.MarkSlotUnknown(SlotVictim) {
		t.Error("MarkSlotUnknown overwrote a confirmed slot")
	}
	if got := s.Slot(SlotVictim); got.Value != AnswerYes || got.Status != SlotConfirmed {
		t.Errorf("slot = %+v", got)
	}
}

func TestLastMessageAndRecent(t *testing.T) {
	t.Parallel()

	s := newTestState()
	now := time.Now()
	s.AddMessage(RoleAssistant, "a1", SourceScript, now)
	s.AddMessage(RoleUser, "u1", "", now)
	s.AddMessage(RoleAssistant, "a2", SourceScript, now)

	if got := s.LastMessage(RoleUser); got != "u1" {
		t.Errorf("LastMessage(user) = %q", got)
	}
	if got := s.LastMessage(RoleAssistant); got != "a2" {
		t.Errorf("LastMessage(assistant) = %q", got)
	}
	recent := s.RecentMessages(2)
	if len(recent) != 2 || recent[0].Text != "u1" || recent[1].Text != "a2" {
		t.Errorf("RecentMessages(2) = %+v", recent)
	}
	if got := len(s.RecentMessages(10)); got != 3 {
		t.Errorf("RecentMessages(10) len = %d", got)
	}
}
