package tts

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// GoogleProvider Cloud Text-to-Speech, mp3 output
type GoogleProvider struct {
	client       *texttospeech.Client
	voice        string
	languageCode string
	speakingRate float64
}

func NewGoogleProvider(ctx context.Context, credentialsFile, voice, languageCode string, speakingRate float64) (*GoogleProvider, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create google tts client: %w", err)
	}
	return &GoogleProvider{
		client:       client,
		voice:        voice,
		languageCode: languageCode,
		speakingRate: speakingRate,
	}, nil
}

func (g *GoogleProvider) Synthesize(ctx context.Context, text string) (*Audio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.languageCode,
			Name:         g.voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  g.speakingRate,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("google synthesize: %w", err)
	}
	return newMP3Audio(text, resp.GetAudioContent())
}

func (g *GoogleProvider) Close() error {
	return g.client.Close()
}
