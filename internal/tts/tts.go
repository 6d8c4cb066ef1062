// Package tts renders assistant replies as speech.
package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

var (
	ErrEmptyText   = errors.New("tts: empty text")
	ErrTTSDisabled = errors.New("tts: no provider configured")
	ErrNotAudio    = errors.New("tts: response is not audio")
)

const FormatMP3 = "mp3"

// Audio one rendered utterance
type Audio struct {
	Text     string        `json:"text"`
	Data     []byte        `json:"-"`
	Format   string        `json:"format"`
	Duration time.Duration `json:"duration"`
}

// Provider speech backend. Synthesize must return when ctx is done.
type Provider interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// NoopProvider used when no speech backend is configured
type NoopProvider struct{}

func (NoopProvider) Synthesize(ctx context.Context, text string) (*Audio, error) {
	return nil, ErrTTSDisabled
}

// MP3Duration playback length of an mp3 clip
func MP3Duration(data []byte) (time.Duration, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	rate := dec.SampleRate()
	// 16-bit stereo PCM, 4 bytes per frame
	frames := dec.Length() / 4
	if rate <= 0 || frames <= 0 {
		return 0, fmt.Errorf("%w: unknown mp3 length", ErrNotAudio)
	}
	return time.Duration(frames) * time.Second / time.Duration(rate), nil
}

// looksLikeMP3 ID3 tag or an MPEG frame sync
func looksLikeMP3(b []byte) bool {
	return (len(b) >= 3 && string(b[:3]) == "ID3") ||
		(len(b) >= 2 && b[0] == 0xFF && (b[1]&0xE0) == 0xE0)
}

// newMP3Audio wraps provider output, measuring its duration when possible
func newMP3Audio(text string, data []byte) (*Audio, error) {
	if !looksLikeMP3(data) {
		return nil, ErrNotAudio
	}
	a := &Audio{Text: text, Data: data, Format: FormatMP3}
	if d, err := MP3Duration(data); err == nil {
		a.Duration = d
	}
	return a, nil
}
