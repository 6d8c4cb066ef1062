package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

func TestMakeVoiceFriendly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"emergency number", "🚨 지금 즉시 112에 신고하세요", "긴급 지금 즉시 일일이에 신고하세요"},
		{"hyphenated phone", "콜센터 02-1234-5678", "콜센터 공이의 일이삼사의 오육칠팔"},
		{"url", "www.counterscam112.go.kr 에서 확인", "웹사이트 에서 확인"},
		{"plain number kept", "3일 이내에", "3일 이내에"},
		{"bullets and spaces", "•  은행   연락", "은행 연락"},
	}
	for _, tt := range tests {
		if got := MakeVoiceFriendly(tt.in, 0); got != tt.want {
			t.Errorf("%s: MakeVoiceFriendly(%q) = %q, want %q", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestMakeVoiceFriendlyCutsAtSentence(t *testing.T) {
	t.Parallel()

	in := "첫 문장입니다. 두 번째 문장은 훨씬 길게 이어집니다."
	got := MakeVoiceFriendly(in, 12)
	if got != "첫 문장입니다." {
		t.Errorf("got %q, want first sentence", got)
	}

	long := strings.Repeat("가", 40)
	if n := utf8.RuneCountInString(MakeVoiceFriendly(long, 20)); n != 20 {
		t.Errorf("hard cut length = %d, want 20", n)
	}
}

type countingProvider struct {
	calls atomic.Int32
	err   error
}

func (c *countingProvider) Synthesize(ctx context.Context, text string) (*Audio, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &Audio{Text: text, Data: []byte("ID3 fake"), Format: FormatMP3}, nil
}

func TestCachedReusesRenderings(t *testing.T) {
	t.Parallel()

	next := &countingProvider{}
	c, err := NewCached(next, 2, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Synthesize(ctx, "안녕하세요"); err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
	}
	if got := next.calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}

	c.Synthesize(ctx, "둘")
	c.Synthesize(ctx, "셋")
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCachedDoesNotStoreErrors(t *testing.T) {
	t.Parallel()

	next := &countingProvider{err: errors.New("boom")}
	c, _ := NewCached(next, 4, zap.NewNop().Sugar())
	c.Synthesize(context.Background(), "실패")
	c.Synthesize(context.Background(), "실패")
	if got := next.calls.Load(); got != 2 {
		t.Errorf("backend calls = %d, want 2", got)
	}
}

func TestVoiceFriendlyRejectsEmpty(t *testing.T) {
	t.Parallel()

	next := &countingProvider{}
	v := NewVoiceFriendly(next, 80)
	if _, err := v.Synthesize(context.Background(), " 📋 "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
	a, err := v.Synthesize(context.Background(), "112 신고")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if a.Text != "일일이 신고" {
		t.Errorf("spoken text = %q", a.Text)
	}
}

func TestNoopProvider(t *testing.T) {
	t.Parallel()

	if _, err := (NoopProvider{}).Synthesize(context.Background(), "x"); !errors.Is(err, ErrTTSDisabled) {
		t.Errorf("err = %v, want ErrTTSDisabled", err)
	}
}

type fakeHTTPDoer struct {
	statusCode  int
	body        string
	request     *http.Request
	requestBody []byte
}

func (f *fakeHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	f.request = req
	f.requestBody = append([]byte(nil), body...)

	return &http.Response{
		StatusCode: f.statusCode,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Header:     make(http.Header),
	}, nil
}

func TestOpenAIProviderRequest(t *testing.T) {
	t.Parallel()

	doer := &fakeHTTPDoer{statusCode: http.StatusOK, body: "ID3\x03\x00rest-of-mp3"}
	p := NewOpenAIProvider("sk-test", "", "ko-KR-Neural2-A", "https://example.test/v1/", doer)

	a, err := p.Synthesize(context.Background(), "지급정지 신청하세요")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if a.Format != FormatMP3 || len(a.Data) == 0 {
		t.Errorf("audio = %+v", a)
	}
	if got := doer.request.URL.String(); got != "https://example.test/v1/audio/speech" {
		t.Errorf("url = %s", got)
	}
	if got := doer.request.Header.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("Authorization = %q", got)
	}

	var payload openAISpeechRequest
	if err := json.Unmarshal(doer.requestBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Model != defaultOpenAIModel || payload.Voice != defaultOpenAIVoice || payload.ResponseFormat != "mp3" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestOpenAIProviderErrors(t *testing.T) {
	t.Parallel()

	doer := &fakeHTTPDoer{statusCode: http.StatusUnauthorized, body: `{"error":{"message":"bad key"}}`}
	p := NewOpenAIProvider("sk-test", "", "", "", doer)
	if _, err := p.Synthesize(context.Background(), "안녕"); err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Errorf("err = %v, want api message", err)
	}

	doer = &fakeHTTPDoer{statusCode: http.StatusOK, body: `{"not":"audio"}`}
	p = NewOpenAIProvider("sk-test", "", "", "", doer)
	if _, err := p.Synthesize(context.Background(), "안녕"); !errors.Is(err, ErrNotAudio) {
		t.Errorf("err = %v, want ErrNotAudio", err)
	}

	p = NewOpenAIProvider("", "", "", "", doer)
	if _, err := p.Synthesize(context.Background(), "안녕"); err == nil {
		t.Error("missing key accepted")
	}
}

func TestMP3DurationRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := MP3Duration([]byte("not an mp3")); err == nil {
		t.Error("MP3Duration accepted garbage")
	}
}
