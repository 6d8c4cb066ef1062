package route

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voice-aftercare/config"
	"voice-aftercare/dao"
	"voice-aftercare/internal/tts"
	"voice-aftercare/model"
	"voice-aftercare/service"
)

type stubSpeech struct {
	err error
}

func (s stubSpeech) Synthesize(ctx context.Context, text string) (*tts.Audio, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &tts.Audio{Text: text, Data: []byte("ID3-audio"), Format: tts.FormatMP3}, nil
}

func newTestRouter(t *testing.T, speech tts.Provider) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Dialogue.SilenceTimeoutSeconds = 30
	logger := zap.NewNop().Sugar()
	dialogue := service.NewDialogue(&cfg, nil, logger)
	archive := dao.NoopArchive{}

	return NewHandler(gin.New(), Services{
		Chat:          service.NewChatService(dialogue, dao.NewMemoryStore(time.Hour), archive, logger),
		Voice:         service.NewVoiceService(dialogue, speech, archive, logger),
		Speech:        speech,
		SpeechTimeout: time.Second,
		Log:           logger,
	})
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	t.Parallel()

	w := doJSON(t, newTestRouter(t, stubSpeech{}), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("GET /health = %d %s", w.Code, w.Body.String())
	}
}

func TestSessionEndpoints(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, stubSpeech{})

	w := doJSON(t, r, http.MethodPost, "/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /sessions = %d %s", w.Code, w.Body.String())
	}
	var start model.SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &start); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if start.SessionID == "" || start.Greeting == "" {
		t.Fatalf("session = %+v", start)
	}

	w = doJSON(t, r, http.MethodPost, "/sessions/"+start.SessionID+"/turns", model.TurnRequest{Text: "사기 당해서 방금 계좌이체 했어요"})
	if w.Code != http.StatusOK {
		t.Fatalf("POST turns = %d %s", w.Code, w.Body.String())
	}
	var turn model.TurnResponse
	if err := json.Unmarshal(w.Body.Bytes(), &turn); err != nil {
		t.Fatalf("decode turn: %v", err)
	}
	if !turn.Emergency || turn.Stage != model.StageSlotFilling || turn.Reply == "" {
		t.Errorf("turn = %+v", turn.TurnResult)
	}

	w = doJSON(t, r, http.MethodGet, "/sessions/"+start.SessionID, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"stage":"SLOT_FILLING"`) {
		t.Errorf("GET session = %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodDelete, "/sessions/"+start.SessionID, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"end_reason":"closed"`) {
		t.Errorf("DELETE session = %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/sessions/"+start.SessionID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("GET ended session = %d", w.Code)
	}
}

func TestTurnBadRequest(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, stubSpeech{})
	req := httptest.NewRequest(http.MethodPost, "/sessions/x/turns", strings.NewReader("{"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/sessions/missing/turns", model.TurnRequest{Text: "안녕하세요"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown session = %d", w.Code)
	}
}

func TestSpeechEndpoint(t *testing.T) {
	t.Parallel()

	w := doJSON(t, newTestRouter(t, stubSpeech{}), http.MethodPost, "/speech", model.SpeechRequest{Text: "112에 신고하세요"})
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "audio/mpeg" {
		t.Fatalf("POST /speech = %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if w.Body.String() != "ID3-audio" {
		t.Errorf("body = %q", w.Body.String())
	}

	w = doJSON(t, newTestRouter(t, tts.NoopProvider{}), http.MethodPost, "/speech", model.SpeechRequest{Text: "안녕"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled speech = %d", w.Code)
	}

	w = doJSON(t, newTestRouter(t, stubSpeech{}), http.MethodPost, "/speech", model.SpeechRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty speech = %d", w.Code)
	}
}

func TestVoiceWebsocket(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newTestRouter(t, stubSpeech{}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/voice", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	readFrame := func() model.VoiceFrame {
		t.Helper()
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if typ == websocket.MessageBinary {
				continue
			}
			var f model.VoiceFrame
			if err := json.Unmarshal(data, &f); err != nil {
				t.Fatalf("decode frame: %v", err)
			}
			return f
		}
	}

	if f := readFrame(); f.Type != model.FrameSession || f.SessionID == "" {
		t.Fatalf("first frame = %+v", f)
	}
	if f := readFrame(); f.Type != model.FrameReply {
		t.Fatalf("greeting frame = %+v", f)
	}

	send := func(f model.VoiceFrame) {
		data, _ := json.Marshal(f)
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	// interim results are ignored
	send(model.VoiceFrame{Type: model.FrameTranscript, Text: "사기", IsFinal: false})
	send(model.VoiceFrame{Type: model.FrameTranscript, Text: "사기 당했어요", IsFinal: true})

	for {
		f := readFrame()
		if f.Type == model.FrameTranscript {
			if f.Text != "사기 당했어요" {
				t.Fatalf("dialogue received %q", f.Text)
			}
			continue
		}
		if f.Type == model.FrameReply {
			if f.Stage != model.StageSlotFilling {
				t.Errorf("reply stage = %s", f.Stage)
			}
			return
		}
	}
}
