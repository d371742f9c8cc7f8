package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yichenlu/sensereader/internal/segmenter"
	"github.com/yichenlu/sensereader/pkg/types"
)

// OpenAITTSProvider implements TTSProvider against OpenAI-compatible TTS APIs
type OpenAITTSProvider struct {
	name       string
	config     types.ProviderConfig
	httpClient *http.Client
	model      string
}

// NewOpenAITTSProvider creates a new OpenAI-compatible TTS provider
func NewOpenAITTSProvider(config types.ProviderConfig) (*OpenAITTSProvider, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required for OpenAI TTS provider")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required for OpenAI TTS provider")
	}

	// TTS synthesis can take far longer than classification calls.
	timeout := 300 * time.Second
	if timeoutStr, ok := config.Options["timeout"]; ok {
		if sec, err := strconv.Atoi(timeoutStr); err == nil && sec > 0 {
			timeout = time.Duration(sec) * time.Second
		}
	}

	return &OpenAITTSProvider{
		name:       config.Name,
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		model:      config.Model,
	}, nil
}

func (o *OpenAITTSProvider) Name() string {
	return o.name
}

// ttsAPIRequest is the OpenAI-compatible speech request body
type ttsAPIRequest struct {
	Model        string  `json:"model"`
	Input        string  `json:"input"`
	Voice        string  `json:"voice"`
	Speed        float64 `json:"speed,omitempty"`
	Instructions string  `json:"instructions,omitempty"`
}

// Synthesize converts text to speech using an OpenAI-compatible API. The
// emotion's prosody preset becomes delivery instructions plus a speed
// multiplier, since the API has no native pitch/volume parameters.
func (o *OpenAITTSProvider) Synthesize(ctx context.Context, req TTSRequest) (*TTSResponse, error) {
	voice := req.VoiceID
	if voice == "" {
		voice = req.Prosody.VoiceID
	}

	speed := req.Prosody.Rate
	if req.Speed > 0 {
		speed *= req.Speed
	}
	if speed < 0.25 {
		speed = 0.25
	}
	if speed > 4.0 {
		speed = 4.0
	}

	apiReq := ttsAPIRequest{
		Model: o.model,
		Input: req.Text,
		Voice: voice,
		Speed: speed,
	}
	if req.Emotion != "" && req.Emotion != types.EmotionNeutral {
		apiReq.Instructions = fmt.Sprintf("Read with a %s tone.", req.Emotion)
	}

	audio, err := o.callSpeechAPI(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call TTS API: %w", err)
	}

	words := segmenter.CountWords(req.Text)
	duration := float64(words) / (150.0 / 60.0) // spoken-word rate estimate
	if speed > 0 {
		duration /= speed
	}

	return &TTSResponse{
		AudioBase64:     base64.StdEncoding.EncodeToString(audio),
		DurationSeconds: duration,
		Format:          "mp3",
		Provider:        o.name,
		Voice:           voice,
	}, nil
}

// ListVoices returns available voices from the provider
func (o *OpenAITTSProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	endpoint := strings.TrimSuffix(o.config.Endpoint, "/") + "/voices"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if o.model != "" {
		q := httpReq.URL.Query()
		q.Add("model", o.model)
		httpReq.URL.RawQuery = q.Encode()
	}
	if o.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.config.APIKey)
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("voices endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode voices: %w", err)
	}
	return payload.Voices, nil
}

func (o *OpenAITTSProvider) callSpeechAPI(ctx context.Context, apiReq ttsAPIRequest) ([]byte, error) {
	endpoint := strings.TrimSuffix(o.config.Endpoint, "/") + "/audio/speech"

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.config.APIKey)
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("TTS API returned %d: %s", resp.StatusCode, string(errBody))
	}

	return io.ReadAll(resp.Body)
}

func (o *OpenAITTSProvider) Close() error {
	return nil
}
