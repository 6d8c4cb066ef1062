// Package config builds the immutable assistant configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"voice-aftercare/model"
)

const defaultConfigFile = "config/assistant.yaml"

// Config assistant configuration. Built once by Load, never mutated afterwards.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Dialogue DialogueConfig `yaml:"dialogue"`
	Decision DecisionConfig `yaml:"decision"`
	LLM      LLMConfig      `yaml:"llm"`
	TTS      TTSConfig      `yaml:"tts"`
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig HTTP harness
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DialogueConfig options recognized by the dialogue state machine and the voice loop
type DialogueConfig struct {
	MaxResponseChars          int     `yaml:"max_response_chars"`
	LLMHardLimitChars         int     `yaml:"llm_hard_limit_chars"`
	EmergencyUrgencyThreshold int     `yaml:"emergency_urgency_threshold"`
	MaxTurns                  int     `yaml:"max_turns"`
	MaxRetries                int     `yaml:"max_retries"`
	SessionTimeoutSeconds     int     `yaml:"session_timeout_seconds"`
	SilenceTimeoutSeconds     float64 `yaml:"silence_timeout_seconds"`
	PostReplyGraceSeconds     float64 `yaml:"post_reply_grace_seconds"`
	LLMTimeoutSeconds         float64 `yaml:"llm_timeout_seconds"`
	TTSTimeoutSeconds         float64 `yaml:"tts_timeout_seconds"`
	QueueSize                 int     `yaml:"queue_size"`
}

// DecisionConfig per-detector escalation thresholds and fallback buckets
type DecisionConfig struct {
	ContextMismatchThreshold float64                 `yaml:"context_mismatch_threshold"`
	ExplanationThreshold     float64                 `yaml:"explanation_threshold"`
	DissatisfactionThreshold float64                 `yaml:"dissatisfaction_threshold"`
	RepetitionThreshold      float64                 `yaml:"repetition_threshold"`
	ComplexityThreshold      float64                 `yaml:"complexity_threshold"`
	FallbackRules            []model.FallbackRuleDef `yaml:"fallback_rules"`
}

// LLMConfig Gemini collaborator
type LLMConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"-"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// TTSConfig speech renderer. Voice tuning is file-only.
type TTSConfig struct {
	Provider        string  `yaml:"provider"`
	OpenAIKey       string  `yaml:"-"`
	OpenAIModel     string  `yaml:"openai_model"`
	OpenAIBaseURL   string  `yaml:"openai_base_url"`
	CredentialsFile string  `yaml:"-"`
	Voice           string  `yaml:"voice"`
	LanguageCode    string  `yaml:"language_code"`
	SpeakingRate    float64 `yaml:"speaking_rate"`
	MaxChars        int     `yaml:"max_chars"`
	CacheSize       int     `yaml:"cache_size"`
}

// StoreConfig session store and consultation archive
type StoreConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"-"`
	RedisDB       int           `yaml:"redis_db"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	ArchivePath   string        `yaml:"archive_path"`
}

// LogConfig zap setup
type LogConfig struct {
	Debug bool   `yaml:"debug"`
	Level string `yaml:"level"`
}

// Default configuration used when no file or env value is present
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8080"},
		Dialogue: DialogueConfig{
			MaxResponseChars:          80,
			LLMHardLimitChars:         1000,
			EmergencyUrgencyThreshold: 7,
			MaxTurns:                  15,
			MaxRetries:                2,
			SessionTimeoutSeconds:     1800,
			SilenceTimeoutSeconds:     5,
			PostReplyGraceSeconds:     2,
			LLMTimeoutSeconds:         4,
			TTSTimeoutSeconds:         3,
			QueueSize:                 10,
		},
		Decision: DecisionConfig{
			ContextMismatchThreshold: 0.7,
			ExplanationThreshold:     0.3,
			DissatisfactionThreshold: 0.3,
			RepetitionThreshold:      0.4,
			ComplexityThreshold:      0.5,
			FallbackRules:            DefaultFallbackRules(),
		},
		LLM: LLMConfig{
			Model:   "gemini-1.5-flash",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		},
		TTS: TTSConfig{
			Provider:      "none",
			OpenAIModel:   "gpt-4o-mini-tts",
			OpenAIBaseURL: "https://api.openai.com/v1",
			Voice:         "ko-KR-Neural2-A",
			LanguageCode:  "ko-KR",
			SpeakingRate:  1.1,
			MaxChars:      80,
			CacheSize:     10,
		},
		Store: StoreConfig{
			SessionTTL: 2 * time.Hour,
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultFallbackRules keyword buckets for the rule-based reply path
func DefaultFallbackRules() []model.FallbackRuleDef {
	return []model.FallbackRuleDef{
		{Rule: model.RuleEmergency, Keywords: []string{"돈", "송금", "급해", "사기"}},
		{Rule: model.RuleHelp, Keywords: []string{"도와", "도움", "알려"}},
		{Rule: model.RuleContactInfo, Keywords: []string{"132", "1811", "번호", "연락"}},
	}
}

// Load builds configuration: .env, then the YAML file, then environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	path := getEnv("CONFIG_FILE", defaultConfigFile)
	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadFile overlays the YAML file on cfg; a missing file is not an error
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		cfg.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	d := &cfg.Dialogue
	d.MaxResponseChars = getEnvInt("AI_RESPONSE_MAX_LENGTH", d.MaxResponseChars)
	d.EmergencyUrgencyThreshold = getEnvInt("EMERGENCY_URGENCY_THRESHOLD", d.EmergencyUrgencyThreshold)
	d.MaxTurns = getEnvInt("MAX_TURNS", d.MaxTurns)
	d.SessionTimeoutSeconds = getEnvInt("SESSION_TIMEOUT", d.SessionTimeoutSeconds)
	d.SilenceTimeoutSeconds = getEnvFloat("SILENCE_TIMEOUT", d.SilenceTimeoutSeconds)
	d.LLMTimeoutSeconds = getEnvFloat("LLM_TIMEOUT", d.LLMTimeoutSeconds)
	d.TTSTimeoutSeconds = getEnvFloat("TTS_TIMEOUT", d.TTSTimeoutSeconds)
	d.QueueSize = getEnvInt("TRANSCRIPT_QUEUE_SIZE", d.QueueSize)

	cfg.LLM.Enabled = getEnvBool("USE_AI_ASSISTANT", cfg.LLM.Enabled)
	cfg.LLM.APIKey = getEnv("GEMINI_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("GEMINI_MODEL", cfg.LLM.Model)

	cfg.TTS.Provider = getEnv("TTS_PROVIDER", cfg.TTS.Provider)
	cfg.TTS.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.TTS.OpenAIKey)
	cfg.TTS.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", cfg.TTS.CredentialsFile)

	cfg.Store.RedisAddr = getEnv("REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.RedisPassword = getEnv("REDIS_PASSWORD", cfg.Store.RedisPassword)
	cfg.Store.RedisDB = getEnvInt("REDIS_DB", cfg.Store.RedisDB)
	cfg.Store.ArchivePath = getEnv("ARCHIVE_DB", cfg.Store.ArchivePath)

	cfg.Log.Debug = getEnvBool("DEBUG", cfg.Log.Debug)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
}

// Validate checks ranges; a Config that passes is safe to hand to every component.
func (c *Config) Validate() error {
	d := c.Dialogue
	if c.Server.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if d.MaxResponseChars <= 0 {
		return fmt.Errorf("max_response_chars must be > 0")
	}
	if d.LLMHardLimitChars < d.MaxResponseChars {
		return fmt.Errorf("llm_hard_limit_chars must be >= max_response_chars")
	}
	if d.EmergencyUrgencyThreshold < model.MinUrgency || d.EmergencyUrgencyThreshold > model.MaxUrgency {
		return fmt.Errorf("emergency_urgency_threshold must be within [1,10]")
	}
	if d.MaxTurns <= 0 {
		return fmt.Errorf("max_turns must be > 0")
	}
	if d.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	if d.SessionTimeoutSeconds <= 0 {
		return fmt.Errorf("session_timeout_seconds must be > 0")
	}
	if d.SilenceTimeoutSeconds <= 0 || d.LLMTimeoutSeconds <= 0 || d.TTSTimeoutSeconds <= 0 {
		return fmt.Errorf("silence, llm and tts timeouts must be > 0")
	}
	if d.PostReplyGraceSeconds < 0 {
		return fmt.Errorf("post_reply_grace_seconds cannot be negative")
	}
	if d.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be > 0")
	}
	for name, v := range map[string]float64{
		"context_mismatch_threshold": c.Decision.ContextMismatchThreshold,
		"explanation_threshold":      c.Decision.ExplanationThreshold,
		"dissatisfaction_threshold":  c.Decision.DissatisfactionThreshold,
		"repetition_threshold":       c.Decision.RepetitionThreshold,
		"complexity_threshold":       c.Decision.ComplexityThreshold,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be within (0,1]", name)
		}
	}
	if c.LLM.Enabled && c.LLM.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when USE_AI_ASSISTANT is on")
	}
	switch c.TTS.Provider {
	case "none", "google":
	case "openai":
		if c.TTS.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai tts provider")
		}
	default:
		return fmt.Errorf("unknown tts provider %q", c.TTS.Provider)
	}
	if c.TTS.MaxChars <= 0 || c.TTS.CacheSize <= 0 {
		return fmt.Errorf("tts max_chars and cache_size must be > 0")
	}
	return nil
}

// SessionTimeout wall-clock ceiling of one session
func (d DialogueConfig) SessionTimeout() time.Duration {
	return time.Duration(d.SessionTimeoutSeconds) * time.Second
}

// SilenceTimeout idle window before a follow-up prompt
func (d DialogueConfig) SilenceTimeout() time.Duration {
	return seconds(d.SilenceTimeoutSeconds)
}

// PostReplyGrace quiet period after the assistant finished speaking
func (d DialogueConfig) PostReplyGrace() time.Duration {
	return seconds(d.PostReplyGraceSeconds)
}

// LLMTimeout bound of one LLM call
func (d DialogueConfig) LLMTimeout() time.Duration {
	return seconds(d.LLMTimeoutSeconds)
}

// TTSTimeout bound of one speech rendering
func (d DialogueConfig) TTSTimeout() time.Duration {
	return seconds(d.TTSTimeoutSeconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}
