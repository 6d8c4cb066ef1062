package model

import "time"

// Stage position in the dialogue graph
type Stage string

const (
	StageGreeting          Stage = "GREETING"
	StageUrgencyCheck      Stage = "URGENCY_CHECK"
	StageSlotFilling       Stage = "SLOT_FILLING"
	StageEmergencyGuidance Stage = "EMERGENCY_GUIDANCE"
	StageComplete          Stage = "COMPLETE"
)

// Role message author
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ReplySource records which path produced an assistant message
type ReplySource string

const (
	SourceScript  ReplySource = "rule"
	SourceLLM     ReplySource = "llm"
	SourceSafe    ReplySource = "safe"
	SourceRepeat  ReplySource = "repeat"
	SourceSilence ReplySource = "silence"
)

// SlotName fixed information-collection fields
type SlotName string

const (
	SlotVictim           SlotName = "victim"
	SlotLossAmount       SlotName = "loss_amount"
	SlotTimeContext      SlotName = "time_context"
	SlotAccountFrozen    SlotName = "account_frozen"
	SlotReportedToPolice SlotName = "reported_to_police"
)

// SlotOrder question order of the slot-filling loop
var SlotOrder = []SlotName{
	SlotVictim,
	SlotLossAmount,
	SlotTimeContext,
	SlotAccountFrozen,
	SlotReportedToPolice,
}

// AnswerKind how a raw answer is parsed
type AnswerKind string

const (
	KindYesNo  AnswerKind = "yes_no"
	KindAmount AnswerKind = "amount"
	KindTime   AnswerKind = "time"
)

// SlotStatus confirmation progress of one slot
type SlotStatus string

const (
	SlotUnconfirmed SlotStatus = "unconfirmed"
	SlotPending     SlotStatus = "pending"
	SlotConfirmed   SlotStatus = "confirmed"
	SlotUnknown     SlotStatus = "unknown"
)

const (
	// ValueUnconfirmed display value of a slot nobody answered yet
	ValueUnconfirmed = "미확인"
	// ValueUnknown display value of a slot accepted after exhausting retries
	ValueUnknown = "확인 필요"

	AnswerYes         = "yes"
	AnswerNo          = "no"
	AnswerUnconfirmed = "unconfirmed"

	DefaultUrgency = 5
	MinUrgency     = 1
	MaxUrgency     = 10
)

// EndReason why a session stopped accepting the scripted flow
type EndReason string

const (
	EndNone     EndReason = ""
	EndComplete EndReason = "complete"
	EndMaxTurns EndReason = "max_turns"
	EndTimeout  EndReason = "timeout"
	EndClosed   EndReason = "closed"
)

// Message one conversation entry
type Message struct {
	Role      Role        `json:"role"`
	Text      string      `json:"text"`
	Source    ReplySource `json:"source,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// SlotValue parsed answer plus confirmation status
type SlotValue struct {
	Value      string     `json:"value"`
	Status     SlotStatus `json:"status"`
	Confidence float64    `json:"confidence"`
	Amount     int64      `json:"amount,omitempty"`
}

// ParsedValue output of the answer parser
type ParsedValue struct {
	Kind       AnswerKind `json:"kind"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	Amount     int64      `json:"amount,omitempty"`
}

// Detector names of the hybrid decision engine
type Detector string

const (
	DetectorContextMismatch Detector = "context_mismatch"
	DetectorExplanation     Detector = "explanation_request"
	DetectorDissatisfaction Detector = "dissatisfaction"
	DetectorRepetition      Detector = "repetition"
	DetectorComplexity      Detector = "complexity"
)

// FallbackRule coarse rule-based response bucket
type FallbackRule string

const (
	RuleEmergency   FallbackRule = "emergency_response"
	RuleHelp        FallbackRule = "help_guidance"
	RuleContactInfo FallbackRule = "contact_info"
	RuleGeneral     FallbackRule = "general_guidance"
)

// Reason one detector score
type Reason struct {
	Detector  Detector `json:"detector"`
	Score     float64  `json:"score"`
	Threshold float64  `json:"threshold"`
	Triggered bool     `json:"triggered"`
}

// DecisionResult hybrid decision outcome
type DecisionResult struct {
	Escalate     bool         `json:"escalate"`
	Confidence   float64      `json:"confidence"`
	Reasons      []Reason     `json:"reasons"`
	FallbackRule FallbackRule `json:"fallback_rule,omitempty"`
}

// FallbackRuleDef keyword bucket definition
type FallbackRuleDef struct {
	Rule     FallbackRule `yaml:"rule" json:"rule"`
	Keywords []string     `yaml:"keywords" json:"keywords"`
}

// LLMContext bundle handed to the LLM collaborator with each prompt
type LLMContext struct {
	SessionID     string            `json:"session_id"`
	Stage         Stage             `json:"stage"`
	Turns         int               `json:"conversation_turns"`
	Urgency       int               `json:"current_urgency"`
	CollectedInfo map[string]string `json:"collected_info"`
	History       []Message         `json:"history"`
}

// LLMReply structured LLM output
type LLMReply struct {
	Response      string         `json:"response"`
	UrgencyLevel  int            `json:"urgency_level"`
	ExtractedInfo map[string]any `json:"extracted_info,omitempty"`
	NextPriority  string         `json:"next_priority,omitempty"`
}

// TurnResult what one processed utterance produced
type TurnResult struct {
	Reply     string          `json:"reply"`
	Source    ReplySource     `json:"source"`
	Stage     Stage           `json:"stage"`
	Stages    []Stage         `json:"stages"`
	Urgency   int             `json:"urgency_level"`
	Emergency bool            `json:"is_emergency"`
	Decision  *DecisionResult `json:"decision,omitempty"`
	Ended     bool            `json:"ended"`
	EndReason EndReason       `json:"end_reason,omitempty"`
}

// ==================== API ====================

// TurnRequest user utterance for one turn
type TurnRequest struct {
	Text string `json:"text"`
}

// SessionResponse reply to session creation
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Stage     Stage  `json:"stage"`
	Greeting  string `json:"greeting"`
}

// TurnResponse reply to one turn
type TurnResponse struct {
	SessionID string `json:"session_id"`
	TurnResult
}

// SpeechRequest text to render as audio
type SpeechRequest struct {
	Text string `json:"text"`
}

// VoiceFrame websocket message between client and voice session
type VoiceFrame struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Text      string      `json:"text,omitempty"`
	IsFinal   bool        `json:"is_final,omitempty"`
	Source    ReplySource `json:"source,omitempty"`
	Stage     Stage       `json:"stage,omitempty"`
	Urgency   int         `json:"urgency_level,omitempty"`
	Format    string      `json:"format,omitempty"`
}

const (
	FrameSession    = "session"
	FrameTranscript = "transcript"
	FrameReply      = "reply"
	FrameAudioStart = "audio_start"
	FrameAudioEnd   = "audio_end"
	FrameEnded      = "ended"
)

// ArchiveRecord finished consultation summary
type ArchiveRecord struct {
	SessionID   string                 `json:"session_id"`
	Urgency     int                    `json:"urgency_level"`
	IsEmergency bool                   `json:"is_emergency"`
	Turns       int                    `json:"turns"`
	EndReason   EndReason              `json:"end_reason"`
	Slots       map[SlotName]SlotValue `json:"slots"`
	Messages    []Message              `json:"messages,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	EndedAt     time.Time              `json:"ended_at"`
}
