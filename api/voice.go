package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"voice-aftercare/model"
	"voice-aftercare/service"
)

// wsSink serializes writes; the session loop is the only writer but audio and
// control frames interleave
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) SendFrame(ctx context.Context, f model.VoiceFrame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *wsSink) SendAudio(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Write(ctx, websocket.MessageBinary, data)
}

// VoiceHandler upgrades to a websocket carrying transcript frames in and reply
// text plus mp3 audio out. Only final transcripts reach the dialogue.
// It is a plain net/http handler: gin's writer refuses the hijack after the 101.
func VoiceHandler(voiceSvc *service.VoiceService, allowedOrigins []string, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns(allowedOrigins),
		})
		if err != nil {
			logger.Warnf("[Voice] 웹소켓 연결 실패: %v", err)
			return
		}
		defer ws.Close(websocket.StatusNormalClosure, "session ended")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		session := voiceSvc.NewSession(&wsSink{conn: ws})
		done := make(chan *model.ConversationState, 1)
		go func() {
			done <- session.Run(ctx)
			cancel()
		}()

		readLoop(ctx, ws, session, logger)
		cancel()
		st := <-done
		logger.Infof("[Voice] session=%s 연결 종료", st.SessionID)
	}
}

func readLoop(ctx context.Context, ws *websocket.Conn, session *service.VoiceSession, logger *zap.SugaredLogger) {
	for {
		typ, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				logger.Warnf("[Voice] 웹소켓 읽기 오류: %v", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var frame model.VoiceFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			logger.Debugf("[Voice] 잘못된 프레임 무시: %v", err)
			continue
		}
		if frame.Type != model.FrameTranscript || !frame.IsFinal {
			continue
		}
		if !session.Queue().OnFinalTranscript(frame.Text) {
			logger.Debugf("[Voice] 전사 결과 무시: %q", frame.Text)
		}
	}
}

// originPatterns turns configured origins (with scheme) into host patterns; an empty list allows same-origin only
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		out = append(out, o)
	}
	return out
}
