// Package aiclient talks to the Gemini generateContent API.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voice-aftercare/model"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-1.5-flash"
)

var (
	ErrEmptyCandidates = errors.New("gemini returned no candidates")
	ErrMalformedReply  = errors.New("gemini reply is not the expected JSON")
)

// HTTPDoer lets tests fake the HTTP transport
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client Gemini collaborator returning structured replies
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient HTTPDoer
}

func NewClient(apiKey, model, baseURL string, httpClient HTTPDoer) *Client {
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type generateRequest struct {
	SystemInstruction content          `json:"systemInstruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Respond sends the utterance with its conversation context and parses the JSON reply
func (c *Client) Respond(ctx context.Context, prompt string, llmCtx model.LLMContext) (*model.LLMReply, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}

	payload, err := json.Marshal(generateRequest{
		SystemInstruction: content{Parts: []part{{Text: systemPrompt}}},
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: buildUserPrompt(prompt, llmCtx)}},
		}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json", Temperature: 0.3},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gemini response: %w", err)
	}

	var parsed generateResponse
	jsonErr := json.Unmarshal(body, &parsed)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if jsonErr == nil && parsed.Error.Message != "" {
			return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("decode gemini response: %w", jsonErr)
	}
	if len(parsed.Candidates) == 0 {
		return nil, ErrEmptyCandidates
	}

	var text strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return ParseReply(text.String())
}

// ParseReply decodes the model's JSON answer after stripping markdown fences.
// Anything else, including JSON without a response, is ErrMalformedReply so the
// caller can fall back to scripted replies.
func ParseReply(raw string) (*model.LLMReply, error) {
	text := stripFence(strings.TrimSpace(raw))

	var reply model.LLMReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if strings.TrimSpace(reply.Response) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedReply)
	}
	return &reply, nil
}

func stripFence(text string) string {
	for _, fence := range []string{"```json", "```"} {
		start := strings.Index(text, fence)
		if start < 0 {
			continue
		}
		rest := text[start+len(fence):]
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	return text
}

func buildUserPrompt(utterance string, llmCtx model.LLMContext) string {
	var b strings.Builder
	if len(llmCtx.History) == 0 {
		b.WriteString("대화 시작\n")
	} else {
		b.WriteString("최근 대화:\n")
		for _, m := range llmCtx.History {
			speaker := "상담원"
			if m.Role == model.RoleUser {
				speaker = "사용자"
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, m.Text)
		}
	}
	fmt.Fprintf(&b, "\n현재 단계: %s\n현재 대화 턴: %d\n현재 긴급도: %d\n", llmCtx.Stage, llmCtx.Turns, llmCtx.Urgency)
	if len(llmCtx.CollectedInfo) > 0 {
		info, _ := json.Marshal(llmCtx.CollectedInfo)
		fmt.Fprintf(&b, "수집된 정보: %s\n", info)
	}
	fmt.Fprintf(&b, "사용자 입력: %q\n", utterance)
	return b.String()
}

const systemPrompt = `당신은 보이스피싱 피해자를 돕는 전문 상담원입니다.

## 핵심 원칙
1. 3일 환급 신청 기한을 절대 놓치지 마세요
2. 즉시 조치사항을 긴급도에 따라 안내하세요
3. 자연스럽고 따뜻한 대화로 피해자를 안심시키세요
4. 불확실한 법적/의료 조언은 절대 하지 마세요

## 즉시 조치사항 (긴급도 8 이상)
1. 즉시 112(경찰) 또는 1332(금감원)에 신고
2. 송금한 은행 고객센터에 지급정지 신청
3. 휴대폰을 비행기모드로 전환 또는 전원 끄기

## 응답 형식
항상 JSON 형식으로 응답하세요:
{
    "response": "사용자에게 할 말 (80자 이내)",
    "urgency_level": 1-10,
    "extracted_info": {"amount": "금액 정보", "time": "시간 정보", "actions_taken": "이미 취한 조치"},
    "next_priority": "immediate_action/info_gathering/guidance/completion"
}`
