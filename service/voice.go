package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"voice-aftercare/config"
	"voice-aftercare/dao"
	"voice-aftercare/internal/transcript"
	"voice-aftercare/internal/tts"
	"voice-aftercare/model"
)

const (
	minSilenceTick = 20 * time.Millisecond
	archiveTimeout = 5 * time.Second
)

// Sink outbound side of a voice connection
type Sink interface {
	SendFrame(ctx context.Context, f model.VoiceFrame) error
	SendAudio(ctx context.Context, data []byte) error
}

// VoiceService starts voice sessions that share one dialogue, speech chain and archive
type VoiceService struct {
	dialogue *Dialogue
	speech   tts.Provider
	archive  dao.ArchiveStore
	log      *zap.SugaredLogger
}

func NewVoiceService(dialogue *Dialogue, speech tts.Provider, archive dao.ArchiveStore, logger *zap.SugaredLogger) *VoiceService {
	return &VoiceService{dialogue: dialogue, speech: speech, archive: archive, log: logger}
}

// NewSession a call whose output goes to sink
func (s *VoiceService) NewSession(sink Sink) *VoiceSession {
	return NewVoiceSession(s.dialogue, s.speech, s.archive, sink, s.log)
}

// VoiceSession one live call. Run owns the conversation state; transcripts arrive
// through the queue and replies leave through the sink.
type VoiceSession struct {
	dialogue *Dialogue
	speech   tts.Provider
	archive  dao.ArchiveStore
	sink     Sink
	queue    *transcript.Queue
	log      *zap.SugaredLogger
	now      func() time.Time

	state      *model.ConversationState
	userSpoke  bool
	lastUser   time.Time
	quietSince time.Time
}

func NewVoiceSession(dialogue *Dialogue, speech tts.Provider, archive dao.ArchiveStore, sink Sink, logger *zap.SugaredLogger) *VoiceSession {
	if speech == nil {
		speech = tts.NoopProvider{}
	}
	if archive == nil {
		archive = dao.NoopArchive{}
	}
	return &VoiceSession{
		dialogue: dialogue,
		speech:   speech,
		archive:  archive,
		sink:     sink,
		queue:    transcript.NewQueue(dialogue.Config().QueueSize),
		log:      logger,
		now:      time.Now,
	}
}

// Queue where the transport pushes final transcripts
func (v *VoiceSession) Queue() *transcript.Queue {
	return v.queue
}

// Run greets the caller and processes transcripts until the dialogue ends, the
// queue is closed or ctx is cancelled. It returns the final state, already archived.
func (v *VoiceSession) Run(ctx context.Context) *model.ConversationState {
	cfg := v.dialogue.Config()
	v.state = v.dialogue.Start()
	v.send(ctx, model.VoiceFrame{Type: model.FrameSession, SessionID: v.state.SessionID, Stage: v.state.Stage})
	v.speak(ctx, v.state.LastMessage(model.RoleAssistant), model.SourceScript)

	tick := cfg.SilenceTimeout() / 5
	if tick < minSilenceTick {
		tick = minSilenceTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	defer v.queue.Close()

	for {
		select {
		case <-ctx.Done():
			v.end(ctx, model.EndClosed)
			return v.state

		case text, ok := <-v.queue.C():
			if !ok {
				v.end(ctx, model.EndClosed)
				return v.state
			}
			if v.turn(ctx, text) {
				return v.state
			}

		case <-ticker.C:
			if ended, reason := EndConditions(v.state, v.now(), cfg); ended {
				v.end(ctx, reason)
				return v.state
			}
			if v.silent(cfg) {
				v.log.Debugf("[Voice] session=%s 무응답 감지", v.state.SessionID)
				next, prompt := v.dialogue.FollowUp(v.state)
				v.state = next
				v.speak(ctx, prompt, model.SourceSilence)
			}
		}
	}
}

// turn processes one utterance; it reports true when the session is over
func (v *VoiceSession) turn(ctx context.Context, text string) bool {
	v.userSpoke = true
	v.lastUser = v.now()
	v.send(ctx, model.VoiceFrame{Type: model.FrameTranscript, Text: text, IsFinal: true})

	next, res := v.dialogue.HandleTurn(ctx, v.state, text)
	v.state = next
	v.speak(ctx, res.Reply, res.Source)

	if !res.Ended {
		return false
	}
	if v.state.EndReason == model.EndNone {
		v.state.EndReason = res.EndReason
	}
	v.finish(ctx)
	return true
}

// end closes the dialogue early, speaking the closing text when the caller is still there
func (v *VoiceSession) end(ctx context.Context, reason model.EndReason) {
	next, text := v.dialogue.Close(v.state, reason)
	v.state = next
	if text != "" && ctx.Err() == nil {
		v.speak(ctx, text, model.SourceScript)
	}
	v.finish(ctx)
}

func (v *VoiceSession) finish(ctx context.Context) {
	if ctx.Err() == nil {
		v.send(ctx, model.VoiceFrame{
			Type:      model.FrameEnded,
			SessionID: v.state.SessionID,
			Text:      string(v.state.EndReason),
			Stage:     v.state.Stage,
			Urgency:   v.state.UrgencyLevel,
		})
	}
	if v.state.Archived {
		return
	}
	v.state.Archived = true

	actx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := v.archive.Save(actx, v.state.Archive(v.now())); err != nil {
		v.log.Errorf("[Voice] session=%s 상담 기록 저장 실패: %v", v.state.SessionID, err)
	}
	v.log.Infof("[Voice] session=%s 통화 종료: %s, 긴급도 %d", v.state.SessionID, v.state.EndReason, v.state.UrgencyLevel)
}

// silent no prompt before the caller's first utterance; afterwards idle time counts
// from whichever came last, the caller's speech or the end of our own playback
func (v *VoiceSession) silent(cfg config.DialogueConfig) bool {
	if !v.userSpoke {
		return false
	}
	since := v.lastUser
	if v.quietSince.After(since) {
		since = v.quietSince
	}
	return v.now().Sub(since) >= cfg.SilenceTimeout()
}

// speak sends the reply text, then renders it paragraph by paragraph. A failed
// rendering never withholds the text.
func (v *VoiceSession) speak(ctx context.Context, text string, source model.ReplySource) {
	cfg := v.dialogue.Config()
	v.send(ctx, model.VoiceFrame{
		Type:    model.FrameReply,
		Text:    text,
		Source:  source,
		Stage:   v.state.Stage,
		Urgency: v.state.UrgencyLevel,
	})

	var playback time.Duration
	for _, para := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(para) == "" || ctx.Err() != nil {
			continue
		}
		audio, err := v.render(ctx, para, cfg.TTSTimeout())
		if err != nil {
			if !errors.Is(err, tts.ErrTTSDisabled) && !errors.Is(err, tts.ErrEmptyText) {
				v.log.Warnf("[Voice] session=%s 음성 합성 실패, 텍스트만 전송: %v", v.state.SessionID, err)
			}
			continue
		}
		v.send(ctx, model.VoiceFrame{Type: model.FrameAudioStart, Format: audio.Format})
		if err := v.sink.SendAudio(ctx, audio.Data); err != nil {
			v.log.Warnf("[Voice] session=%s 오디오 전송 실패: %v", v.state.SessionID, err)
		}
		v.send(ctx, model.VoiceFrame{Type: model.FrameAudioEnd})
		playback += audio.Duration
	}
	v.quietSince = v.now().Add(playback + cfg.PostReplyGrace())
}

func (v *VoiceSession) render(ctx context.Context, text string, timeout time.Duration) (*tts.Audio, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		audio *tts.Audio
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		audio, err := v.speech.Synthesize(ctx, text)
		ch <- outcome{audio: audio, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-ch:
		return out.audio, out.err
	}
}

func (v *VoiceSession) send(ctx context.Context, f model.VoiceFrame) {
	if err := v.sink.SendFrame(ctx, f); err != nil {
		v.log.Debugf("[Voice] session=%s 프레임 전송 실패(%s): %v", v.state.SessionID, f.Type, err)
	}
}
