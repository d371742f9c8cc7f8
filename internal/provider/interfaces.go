package provider

import (
	"context"

	"github.com/yichenlu/sensereader/pkg/types"
)

// TTSProvider defines the interface for TTS providers
type TTSProvider interface {
	// Name returns the provider name
	Name() string

	// Synthesize converts text to speech
	Synthesize(ctx context.Context, req TTSRequest) (*TTSResponse, error)

	// ListVoices returns the voices this provider offers
	ListVoices(ctx context.Context) ([]Voice, error)

	// Close cleans up resources
	Close() error
}

// TTSRequest contains the text and prosody for synthesis
type TTSRequest struct {
	Text    string              // Text to synthesize
	VoiceID string              // Provider-specific voice ID
	Emotion types.EmotionLabel  // Emotion driving the delivery
	Prosody types.ProsodyPreset // Rate/pitch/volume parameters
	Speed   float64             // User speed multiplier on top of prosody rate
}

// TTSResponse contains the synthesized audio reference and metadata.
// Providers return either an opaque playback URL or inline base64 audio.
type TTSResponse struct {
	AudioURL        string  // Opaque playback URL, if the provider hosts audio
	AudioBase64     string  // Inline audio, if not
	DurationSeconds float64 // Estimated or reported duration
	Format          string  // Audio format (e.g. "mp3", "wav")
	Provider        string  // Provider name
	Voice           string  // Voice actually used
}

// Voice describes one selectable TTS voice
type Voice struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Languages   []string `json:"languages"`
	Gender      string   `json:"gender,omitempty"`
	Description string   `json:"description,omitempty"`
}

// STTProvider defines the interface for speech-to-text providers
type STTProvider interface {
	// Name returns the provider name
	Name() string

	// Transcribe converts audio to text
	Transcribe(ctx context.Context, req STTRequest) (*STTResponse, error)

	// Close cleans up resources
	Close() error
}

// STTRequest contains the audio for transcription
type STTRequest struct {
	Audio    []byte // Audio file data
	Language string // Optional language hint
}

// STTResponse contains the transcription
type STTResponse struct {
	Text            string  `json:"text"`
	Confidence      float64 `json:"confidence"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"duration"`
	Provider        string  `json:"provider"`
}

// TextClassifier classifies text into an emotion reading. It satisfies the
// emotion engine's TextClassifierPort.
type TextClassifier interface {
	Name() string
	ClassifyText(ctx context.Context, text string) (*types.EmotionReading, error)
	Close() error
}

// VisionClassifier classifies an image into an emotion reading
type VisionClassifier interface {
	Name() string
	ClassifyImage(ctx context.Context, image []byte) (*types.EmotionReading, error)
	Close() error
}

// AudioClassifier classifies an audio clip into an emotion reading
type AudioClassifier interface {
	Name() string
	ClassifyAudio(ctx context.Context, audio []byte) (*types.EmotionReading, error)
	Close() error
}
