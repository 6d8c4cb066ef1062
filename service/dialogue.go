package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"voice-aftercare/config"
	"voice-aftercare/model"
	"voice-aftercare/service/flows"
	"voice-aftercare/utils"
)

var (
	ErrTurnPanic      = errors.New("turn handler panicked")
	ErrLLMEmptyReply  = errors.New("llm reply is empty")
	ErrLLMReplyTooBig = errors.New("llm reply exceeds hard limit")
)

const llmHistoryWindow = 6

// stages where free-form input may be routed to the LLM
var escalationStages = map[model.Stage]bool{
	model.StageSlotFilling:       true,
	model.StageEmergencyGuidance: true,
}

// Dialogue the dialogue state machine. It owns no session state itself;
// every turn takes a snapshot and returns the next one.
type Dialogue struct {
	cfg      config.DialogueConfig
	script   *flows.Script
	registry FlowRegistry
	decision *DecisionLayer
	llm      LLMProvider
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewDialogue wires the stage table, the decision layer and the LLM provider.
// A nil provider means the assistant runs rules only.
func NewDialogue(cfg *config.Config, llm LLMProvider, logger *zap.SugaredLogger) *Dialogue {
	if llm == nil {
		llm = NoopLLM{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	script := flows.NewScript(cfg.Dialogue.EmergencyUrgencyThreshold, cfg.Dialogue.MaxRetries, logger)
	return &Dialogue{
		cfg:      cfg.Dialogue,
		script:   script,
		registry: NewFlowRegistry(script),
		decision: NewDecisionLayer(cfg.Decision, logger),
		llm:      llm,
		log:      logger,
		now:      time.Now,
	}
}

// Start creates a new session
func (d *Dialogue) Start() *model.ConversationState {
	st := NewSession(d.now())
	d.log.Infof("[Dialogue] session=%s 상담 시작", st.SessionID)
	return st
}

// Config dialogue options in effect
func (d *Dialogue) Config() config.DialogueConfig {
	return d.cfg
}

// HandleTurn processes one user utterance and returns the next state with exactly one reply.
// st is never modified.
func (d *Dialogue) HandleTurn(ctx context.Context, st *model.ConversationState, text string) (*model.ConversationState, *model.TurnResult) {
	now := d.now()
	text = strings.TrimSpace(text)

	if text == "" {
		next := st.Clone()
		next.AddMessage(model.RoleAssistant, flows.RepeatText, model.SourceRepeat, now)
		return next, d.result(next, flows.RepeatText, model.SourceRepeat, []model.Stage{next.Stage}, nil, now)
	}

	next, res, err := d.process(ctx, st, text, now)
	if err == nil {
		return next, res
	}

	d.log.Errorf("[Dialogue] session=%s stage=%s 처리 실패: %v", st.SessionID, st.Stage, err)
	safe := st.Clone()
	safe.AddMessage(model.RoleUser, text, "", now)
	safe.Turns++
	return safe, d.finish(safe, []string{flows.SafeText}, model.SourceSafe, []model.Stage{safe.Stage}, nil, now)
}

// FollowUp appends the silence prompt to a copy of st
func (d *Dialogue) FollowUp(st *model.ConversationState) (*model.ConversationState, string) {
	next := st.Clone()
	prompt := flows.FollowUp(next)
	next.AddMessage(model.RoleAssistant, prompt, model.SourceSilence, d.now())
	return next, prompt
}

// Close ends the session early, e.g. when the caller hangs up or the wall clock runs out
func (d *Dialogue) Close(st *model.ConversationState, reason model.EndReason) (*model.ConversationState, string) {
	next := st.Clone()
	if next.Stage == model.StageComplete && next.SummaryDelivered {
		if next.EndReason == model.EndNone {
			next.EndReason = reason
		}
		return next, ""
	}
	text := d.script.Close(next, reason)
	if text != "" {
		next.AddMessage(model.RoleAssistant, text, model.SourceScript, d.now())
	}
	return next, text
}

func (d *Dialogue) process(ctx context.Context, st *model.ConversationState, text string, now time.Time) (next *model.ConversationState, res *model.TurnResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, res, err = nil, nil, fmt.Errorf("%w: %v", ErrTurnPanic, r)
		}
	}()

	next = st.Clone()
	lastAssistant := st.LastMessage(model.RoleAssistant)
	next.AddMessage(model.RoleUser, text, "", now)
	next.Turns++

	var decision *model.DecisionResult
	if escalationStages[next.Stage] {
		decision = d.decision.Decide(text, st.Messages, lastAssistant)
		if decision.Escalate {
			if reply, ok := d.askLLM(ctx, next, text); ok {
				if reply.UrgencyLevel > 0 {
					next.SetUrgency(reply.UrgencyLevel, d.cfg.EmergencyUrgencyThreshold)
				}
				return next, d.finish(next, []string{reply.Response}, model.SourceLLM, []model.Stage{next.Stage}, decision, now), nil
			}
		}
	}

	parts, stages, err := d.registry.Run(ctx, next, text)
	if err != nil {
		return nil, nil, err
	}
	return next, d.finish(next, parts, model.SourceScript, stages, decision, now), nil
}

// askLLM races the provider against the LLM timeout; a late answer is dropped
func (d *Dialogue) askLLM(ctx context.Context, st *model.ConversationState, text string) (*model.LLMReply, bool) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.LLMTimeout())
	defer cancel()

	llmCtx := model.LLMContext{
		SessionID:     st.SessionID,
		Stage:         st.Stage,
		Turns:         st.Turns,
		Urgency:       st.UrgencyLevel,
		CollectedInfo: st.CollectedInfo(),
		History:       st.RecentMessages(llmHistoryWindow),
	}

	type outcome struct {
		reply *model.LLMReply
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("%w: %v", ErrTurnPanic, r)}
			}
		}()
		reply, err := d.llm.Respond(ctx, text, llmCtx)
		ch <- outcome{reply: reply, err: err}
	}()

	select {
	case <-ctx.Done():
		d.log.Warnf("[Dialogue] session=%s LLM 응답 시간 초과, 규칙 기반으로 전환: %v", st.SessionID, ctx.Err())
		return nil, false
	case out := <-ch:
		if out.err != nil {
			if !errors.Is(out.err, ErrLLMDisabled) {
				d.log.Warnf("[Dialogue] session=%s LLM 호출 실패, 규칙 기반으로 전환: %v", st.SessionID, out.err)
			}
			return nil, false
		}
		reply, err := d.validateReply(out.reply)
		if err != nil {
			d.log.Warnf("[Dialogue] session=%s LLM 응답 거부: %v", st.SessionID, err)
			return nil, false
		}
		return reply, true
	}
}

// validateReply rejects empty or oversized replies and caps the rest
func (d *Dialogue) validateReply(reply *model.LLMReply) (*model.LLMReply, error) {
	if reply == nil {
		return nil, ErrLLMEmptyReply
	}
	response := strings.TrimSpace(reply.Response)
	if response == "" {
		return nil, ErrLLMEmptyReply
	}
	if n := utf8.RuneCountInString(response); n > d.cfg.LLMHardLimitChars {
		return nil, fmt.Errorf("%w: %d chars", ErrLLMReplyTooBig, n)
	}
	out := *reply
	out.Response = utils.TruncateRunes(response, d.cfg.MaxResponseChars)
	return &out, nil
}

// finish applies end conditions, appends the single assistant reply and builds the result
func (d *Dialogue) finish(next *model.ConversationState, parts []string, source model.ReplySource, stages []model.Stage, decision *model.DecisionResult, now time.Time) *model.TurnResult {
	if ended, reason := EndConditions(next, now, d.cfg); ended && next.Stage != model.StageComplete {
		d.log.Infof("[Dialogue] session=%s 종료 조건 충족: %s", next.SessionID, reason)
		if closing := d.script.Close(next, reason); closing != "" {
			parts = append(parts, closing)
		}
		stages = append(stages, model.StageComplete)
	}

	reply := strings.Join(parts, "\n\n")
	if strings.TrimSpace(reply) == "" {
		reply = flows.RepeatText
	}
	next.AddMessage(model.RoleAssistant, reply, source, now)
	return d.result(next, reply, source, stages, decision, now)
}

func (d *Dialogue) result(st *model.ConversationState, reply string, source model.ReplySource, stages []model.Stage, decision *model.DecisionResult, now time.Time) *model.TurnResult {
	ended, reason := EndConditions(st, now, d.cfg)
	return &model.TurnResult{
		Reply:     reply,
		Source:    source,
		Stage:     st.Stage,
		Stages:    stages,
		Urgency:   st.UrgencyLevel,
		Emergency: st.IsEmergency,
		Decision:  decision,
		Ended:     ended,
		EndReason: reason,
	}
}
