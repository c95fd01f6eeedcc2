package narrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// synthesizer turns text into audio bytes. The indirection keeps the
// director testable without a network.
type synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	CacheKey(text string) string
}

// ttsSynthesizer calls the OpenAI speech endpoint.
type ttsSynthesizer struct {
	client *openai.Client
	model  string
	voice  string
	speed  float64
}

func newTTS(apiKey, model, voice string, speed float64) *ttsSynthesizer {
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	if speed <= 0 {
		speed = 1.0
	}
	return &ttsSynthesizer{
		client: openai.NewClient(apiKey),
		model:  model,
		voice:  voice,
		speed:  speed,
	}
}

// CacheKey addresses a clip by everything that affects its waveform.
func (s *ttsSynthesizer) CacheKey(text string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%.2f|%s", s.model, s.voice, s.speed, text))
	return hex.EncodeToString(sum[:])
}

func (s *ttsSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          s.speed,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Close()
	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	return data, nil
}
