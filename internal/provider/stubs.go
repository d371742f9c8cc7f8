package provider

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/yichenlu/sensereader/internal/segmenter"
	"github.com/yichenlu/sensereader/pkg/types"
)

// StubTTSProvider is a deterministic TTSProvider used when no endpoint is
// configured, and in tests.
type StubTTSProvider struct {
	name   string
	config types.ProviderConfig
}

// NewStubTTSProvider creates a new stub TTS provider
func NewStubTTSProvider(config types.ProviderConfig) *StubTTSProvider {
	return &StubTTSProvider{name: config.Name, config: config}
}

func (s *StubTTSProvider) Name() string {
	return s.name
}

// Synthesize returns a deterministic playback URL derived from the request
// so identical inputs always map to the same opaque URL.
func (s *StubTTSProvider) Synthesize(ctx context.Context, req TTSRequest) (*TTSResponse, error) {
	voice := req.VoiceID
	if voice == "" {
		voice = req.Prosody.VoiceID
	}
	if voice == "" {
		voice = "default"
	}

	sum := sha256.Sum256([]byte(voice + "|" + req.Text))
	key := base64.RawURLEncoding.EncodeToString(sum[:12])

	speed := req.Prosody.Rate
	if req.Speed > 0 {
		speed *= req.Speed
	}
	if speed <= 0 {
		speed = 1.0
	}
	words := segmenter.CountWords(req.Text)
	duration := float64(words) / (150.0 / 60.0) / speed

	return &TTSResponse{
		AudioURL:        fmt.Sprintf("stub://audio/%s/%s.wav", s.name, key),
		DurationSeconds: duration,
		Format:          "wav",
		Provider:        s.name,
		Voice:           voice,
	}, nil
}

// ListVoices returns a few fixed test voices
func (s *StubTTSProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	return []Voice{
		{
			ID:          "cheerful",
			Name:        "Cheerful",
			Languages:   []string{"en", "zh-TW"},
			Gender:      "neutral",
			Description: "Bright delivery for upbeat passages",
		},
		{
			ID:          "melancholic",
			Name:        "Melancholic",
			Languages:   []string{"en", "zh-TW"},
			Gender:      "neutral",
			Description: "Slow, low delivery for somber passages",
		},
		{
			ID:          "normal",
			Name:        "Normal",
			Languages:   []string{"en", "zh-TW"},
			Gender:      "neutral",
			Description: "Baseline narration voice",
		},
	}, nil
}

func (s *StubTTSProvider) Close() error {
	return nil
}

// StubSTTProvider is a stub transcription provider
type StubSTTProvider struct {
	name string
}

// NewStubSTTProvider creates a new stub STT provider
func NewStubSTTProvider(config types.ProviderConfig) *StubSTTProvider {
	return &StubSTTProvider{name: config.Name}
}

func (s *StubSTTProvider) Name() string { return s.name }

// Transcribe returns a placeholder transcription sized from the audio
func (s *StubSTTProvider) Transcribe(ctx context.Context, req STTRequest) (*STTResponse, error) {
	lang := req.Language
	if lang == "" {
		lang = "en"
	}
	return &STTResponse{
		Text:            fmt.Sprintf("stub transcription of %d bytes", len(req.Audio)),
		Confidence:      0.95,
		Language:        lang,
		DurationSeconds: float64(len(req.Audio)) / 32000.0, // 16kHz s16le estimate
		Provider:        s.name,
	}, nil
}

func (s *StubSTTProvider) Close() error { return nil }

// StubVisionClassifier is a deterministic image classifier: the label is
// derived from the image hash so tests get stable results without a model.
type StubVisionClassifier struct {
	name string
}

// NewStubVisionClassifier creates a new stub vision classifier
func NewStubVisionClassifier(config types.ProviderConfig) *StubVisionClassifier {
	return &StubVisionClassifier{name: config.Name}
}

func (s *StubVisionClassifier) Name() string { return s.name }

func (s *StubVisionClassifier) ClassifyImage(ctx context.Context, image []byte) (*types.EmotionReading, error) {
	labels := types.AllEmotions()
	sum := sha256.Sum256(image)
	label := labels[int(sum[0])%len(labels)]
	return &types.EmotionReading{
		Primary:    label,
		Intensity:  0.6,
		Features:   "stub:image-hash",
		Source:     types.SourceImage,
		Confidence: 0.5,
		Timestamp:  time.Now().Unix(),
	}, nil
}

func (s *StubVisionClassifier) Close() error { return nil }

// StubAudioClassifier mirrors the vision stub for audio clips
type StubAudioClassifier struct {
	name string
}

// NewStubAudioClassifier creates a new stub audio classifier
func NewStubAudioClassifier(config types.ProviderConfig) *StubAudioClassifier {
	return &StubAudioClassifier{name: config.Name}
}

func (s *StubAudioClassifier) Name() string { return s.name }

func (s *StubAudioClassifier) ClassifyAudio(ctx context.Context, audio []byte) (*types.EmotionReading, error) {
	labels := types.AllEmotions()
	sum := sha256.Sum256(audio)
	label := labels[int(sum[0])%len(labels)]
	return &types.EmotionReading{
		Primary:    label,
		Intensity:  0.6,
		Features:   "stub:audio-hash",
		Source:     types.SourceAudio,
		Confidence: 0.5,
		Timestamp:  time.Now().Unix(),
	}, nil
}

func (s *StubAudioClassifier) Close() error { return nil }
