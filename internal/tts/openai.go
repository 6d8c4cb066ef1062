package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini-tts"
	defaultOpenAIVoice   = "alloy"
)

// HTTPDoer lets tests fake the HTTP transport
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OpenAIProvider speech via the OpenAI audio API
type OpenAIProvider struct {
	apiKey     string
	model      string
	voice      string
	baseURL    string
	httpClient HTTPDoer
}

type openAISpeechRequest struct {
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	Input          string  `json:"input"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

type openAIErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewOpenAIProvider(apiKey, model, voice, baseURL string, httpClient HTTPDoer) *OpenAIProvider {
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIModel
	}
	// Google voice names are not valid here
	if strings.TrimSpace(voice) == "" || strings.Contains(voice, "-") {
		voice = defaultOpenAIVoice
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		model:      model,
		voice:      voice,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (o *OpenAIProvider) Synthesize(ctx context.Context, text string) (*Audio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if strings.TrimSpace(o.apiKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is empty")
	}

	payload, err := json.Marshal(openAISpeechRequest{
		Model:          o.model,
		Voice:          o.voice,
		Input:          text,
		ResponseFormat: FormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai tts request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read openai tts response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr openAIErrorEnvelope
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("openai tts status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("openai tts status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return newMP3Audio(text, body)
}
