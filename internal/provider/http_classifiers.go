package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yichenlu/sensereader/pkg/types"
)

// httpClassifier is the shared transport for remote classifier providers.
// All of them speak the same shape: POST JSON in, EmotionReading JSON out.
type httpClassifier struct {
	name       string
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func newHTTPClassifier(config types.ProviderConfig) httpClassifier {
	return httpClassifier{
		name:       config.Name,
		endpoint:   config.Endpoint,
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *httpClassifier) post(ctx context.Context, body any) (*types.EmotionReading, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classifier %s returned %d: %s", h.name, resp.StatusCode, string(errBody))
	}

	var reading types.EmotionReading
	if err := json.NewDecoder(resp.Body).Decode(&reading); err != nil {
		return nil, fmt.Errorf("failed to decode reading: %w", err)
	}
	return &reading, nil
}

// HTTPTextClassifier calls a remote text emotion classifier
type HTTPTextClassifier struct {
	httpClassifier
}

// NewHTTPTextClassifier creates a remote text classifier
func NewHTTPTextClassifier(config types.ProviderConfig) *HTTPTextClassifier {
	return &HTTPTextClassifier{newHTTPClassifier(config)}
}

func (c *HTTPTextClassifier) Name() string { return c.name }

func (c *HTTPTextClassifier) ClassifyText(ctx context.Context, text string) (*types.EmotionReading, error) {
	return c.post(ctx, map[string]string{"text": text})
}

func (c *HTTPTextClassifier) Close() error { return nil }

// HTTPVisionClassifier calls a remote image emotion classifier
type HTTPVisionClassifier struct {
	httpClassifier
}

// NewHTTPVisionClassifier creates a remote vision classifier
func NewHTTPVisionClassifier(config types.ProviderConfig) *HTTPVisionClassifier {
	return &HTTPVisionClassifier{newHTTPClassifier(config)}
}

func (c *HTTPVisionClassifier) Name() string { return c.name }

func (c *HTTPVisionClassifier) ClassifyImage(ctx context.Context, image []byte) (*types.EmotionReading, error) {
	return c.post(ctx, map[string]string{
		"image_base64": base64.StdEncoding.EncodeToString(image),
	})
}

func (c *HTTPVisionClassifier) Close() error { return nil }

// HTTPAudioClassifier calls a remote audio emotion classifier
type HTTPAudioClassifier struct {
	httpClassifier
}

// NewHTTPAudioClassifier creates a remote audio classifier
func NewHTTPAudioClassifier(config types.ProviderConfig) *HTTPAudioClassifier {
	return &HTTPAudioClassifier{newHTTPClassifier(config)}
}

func (c *HTTPAudioClassifier) Name() string { return c.name }

func (c *HTTPAudioClassifier) ClassifyAudio(ctx context.Context, audio []byte) (*types.EmotionReading, error) {
	return c.post(ctx, map[string]string{
		"audio_base64": base64.StdEncoding.EncodeToString(audio),
	})
}

func (c *HTTPAudioClassifier) Close() error { return nil }

// HTTPSTTProvider calls a remote transcription service
type HTTPSTTProvider struct {
	name       string
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPSTTProvider creates a remote STT provider
func NewHTTPSTTProvider(config types.ProviderConfig) *HTTPSTTProvider {
	return &HTTPSTTProvider{
		name:       config.Name,
		endpoint:   config.Endpoint,
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *HTTPSTTProvider) Name() string { return p.name }

// Transcribe converts audio to text
func (p *HTTPSTTProvider) Transcribe(ctx context.Context, req STTRequest) (*STTResponse, error) {
	body, err := json.Marshal(map[string]string{
		"audio_base64": base64.StdEncoding.EncodeToString(req.Audio),
		"language":     req.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("STT provider returned %d: %s", resp.StatusCode, string(errBody))
	}

	var out STTResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode transcription: %w", err)
	}
	out.Provider = p.name
	return &out, nil
}

func (p *HTTPSTTProvider) Close() error { return nil }
