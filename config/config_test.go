package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if got := cfg.Dialogue.LLMTimeout(); got != 4*time.Second {
		t.Errorf("LLMTimeout() = %v", got)
	}
	if got := cfg.Dialogue.SessionTimeout(); got != 30*time.Minute {
		t.Errorf("SessionTimeout() = %v", got)
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max turns", func(c *Config) { c.Dialogue.MaxTurns = 0 }},
		{"threshold above ten", func(c *Config) { c.Dialogue.EmergencyUrgencyThreshold = 11 }},
		{"hard limit below cap", func(c *Config) { c.Dialogue.LLMHardLimitChars = 10 }},
		{"detector threshold zero", func(c *Config) { c.Decision.RepetitionThreshold = 0 }},
		{"llm enabled without key", func(c *Config) { c.LLM.Enabled = true }},
		{"openai tts without key", func(c *Config) { c.TTS.Provider = "openai" }},
		{"unknown tts provider", func(c *Config) { c.TTS.Provider = "elevenlabs" }},
		{"empty queue", func(c *Config) { c.Dialogue.QueueSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assistant.yaml")
	yaml := []byte("dialogue:\n  max_turns: 9\n  silence_timeout_seconds: 7.5\ntts:\n  voice: ko-KR-Standard-B\nstore:\n  session_ttl: 30m\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MAX_TURNS", "12")
	t.Setenv("USE_AI_ASSISTANT", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Dialogue.MaxTurns != 12 {
		t.Errorf("MaxTurns = %d, want env override 12", cfg.Dialogue.MaxTurns)
	}
	if cfg.Dialogue.SilenceTimeout() != 7500*time.Millisecond {
		t.Errorf("SilenceTimeout() = %v", cfg.Dialogue.SilenceTimeout())
	}
	if cfg.TTS.Voice != "ko-KR-Standard-B" {
		t.Errorf("Voice = %q", cfg.TTS.Voice)
	}
	if cfg.Store.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.Store.SessionTTL)
	}
	if cfg.Dialogue.MaxResponseChars != 80 {
		t.Errorf("MaxResponseChars = %d, want default 80", cfg.Dialogue.MaxResponseChars)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Dialogue.EmergencyUrgencyThreshold != 7 {
		t.Errorf("EmergencyUrgencyThreshold = %d", cfg.Dialogue.EmergencyUrgencyThreshold)
	}
}
