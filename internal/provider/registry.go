package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/yichenlu/sensereader/pkg/types"
)

// Registry manages provider instances
type Registry struct {
	tts    map[string]TTSProvider
	stt    map[string]STTProvider
	vision map[string]VisionClassifier
	audio  map[string]AudioClassifier
	text   map[string]TextClassifier
	mu     sync.RWMutex
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		tts:    make(map[string]TTSProvider),
		stt:    make(map[string]STTProvider),
		vision: make(map[string]VisionClassifier),
		audio:  make(map[string]AudioClassifier),
		text:   make(map[string]TextClassifier),
	}
}

// RegisterTTS registers a TTS provider
func (r *Registry) RegisterTTS(p TTSProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tts[p.Name()]; exists {
		return fmt.Errorf("TTS provider already registered: %s", p.Name())
	}
	r.tts[p.Name()] = p
	return nil
}

// RegisterSTT registers a speech-to-text provider
func (r *Registry) RegisterSTT(p STTProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stt[p.Name()]; exists {
		return fmt.Errorf("STT provider already registered: %s", p.Name())
	}
	r.stt[p.Name()] = p
	return nil
}

// RegisterVision registers a vision classifier
func (r *Registry) RegisterVision(p VisionClassifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.vision[p.Name()]; exists {
		return fmt.Errorf("vision classifier already registered: %s", p.Name())
	}
	r.vision[p.Name()] = p
	return nil
}

// RegisterAudio registers an audio classifier
func (r *Registry) RegisterAudio(p AudioClassifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.audio[p.Name()]; exists {
		return fmt.Errorf("audio classifier already registered: %s", p.Name())
	}
	r.audio[p.Name()] = p
	return nil
}

// RegisterText registers a remote text classifier
func (r *Registry) RegisterText(p TextClassifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.text[p.Name()]; exists {
		return fmt.Errorf("text classifier already registered: %s", p.Name())
	}
	r.text[p.Name()] = p
	return nil
}

// GetTTS retrieves a TTS provider by name
func (r *Registry) GetTTS(name string) (TTSProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.tts[name]
	if !exists {
		return nil, fmt.Errorf("TTS provider not found: %s", name)
	}
	return p, nil
}

// GetSTT retrieves an STT provider by name
func (r *Registry) GetSTT(name string) (STTProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.stt[name]
	if !exists {
		return nil, fmt.Errorf("STT provider not found: %s", name)
	}
	return p, nil
}

// FirstTTS returns any registered TTS provider, or nil if none
func (r *Registry) FirstTTS() TTSProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.tts) {
		return r.tts[name]
	}
	return nil
}

// FirstSTT returns any registered STT provider, or nil if none
func (r *Registry) FirstSTT() STTProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.stt) {
		return r.stt[name]
	}
	return nil
}

// FirstVision returns any registered vision classifier, or nil if none
func (r *Registry) FirstVision() VisionClassifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.vision) {
		return r.vision[name]
	}
	return nil
}

// FirstAudio returns any registered audio classifier, or nil if none
func (r *Registry) FirstAudio() AudioClassifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.audio) {
		return r.audio[name]
	}
	return nil
}

// FirstText returns any registered text classifier, or nil if none
func (r *Registry) FirstText() TextClassifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.text) {
		return r.text[name]
	}
	return nil
}

// ListTTS returns all registered TTS provider names
func (r *Registry) ListTTS() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.tts)
}

// ListSTT returns all registered STT provider names
func (r *Registry) ListSTT() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.stt)
}

// ListClassifiers returns all registered classifier names by modality
func (r *Registry) ListClassifiers() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string][]string{
		"text":   sortedKeys(r.text),
		"vision": sortedKeys(r.vision),
		"audio":  sortedKeys(r.audio),
	}
}

// Close closes all registered providers
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, p := range r.tts {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close TTS provider %s: %w", name, err))
		}
	}
	for name, p := range r.stt {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close STT provider %s: %w", name, err))
		}
	}
	for name, p := range r.vision {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close vision classifier %s: %w", name, err))
		}
	}
	for name, p := range r.audio {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audio classifier %s: %w", name, err))
		}
	}
	for name, p := range r.text {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close text classifier %s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing providers: %v", errs)
	}
	return nil
}

// InitializeProviders creates provider instances from configuration.
// Providers with an endpoint become OpenAI-compatible HTTP providers;
// providers without one fall back to deterministic stubs so the system is
// exercisable offline.
func (r *Registry) InitializeProviders(cfg types.ProvidersConfig) error {
	for _, c := range cfg.TTS {
		if !c.Enabled {
			continue
		}
		var p TTSProvider
		var err error
		if c.Endpoint != "" {
			p, err = NewOpenAITTSProvider(c)
			if err != nil {
				return fmt.Errorf("failed to create TTS provider %s: %w", c.Name, err)
			}
		} else {
			p = NewStubTTSProvider(c)
		}
		if err := r.RegisterTTS(p); err != nil {
			return err
		}
	}

	for _, c := range cfg.STT {
		if !c.Enabled {
			continue
		}
		var p STTProvider
		if c.Endpoint != "" {
			p = NewHTTPSTTProvider(c)
		} else {
			p = NewStubSTTProvider(c)
		}
		if err := r.RegisterSTT(p); err != nil {
			return err
		}
	}

	for _, c := range cfg.Vision {
		if !c.Enabled {
			continue
		}
		var p VisionClassifier
		if c.Endpoint != "" {
			p = NewHTTPVisionClassifier(c)
		} else {
			p = NewStubVisionClassifier(c)
		}
		if err := r.RegisterVision(p); err != nil {
			return err
		}
	}

	for _, c := range cfg.Audio {
		if !c.Enabled {
			continue
		}
		var p AudioClassifier
		if c.Endpoint != "" {
			p = NewHTTPAudioClassifier(c)
		} else {
			p = NewStubAudioClassifier(c)
		}
		if err := r.RegisterAudio(p); err != nil {
			return err
		}
	}

	for _, c := range cfg.Classifier {
		if !c.Enabled {
			continue
		}
		// Text classification always has the lexicon fallback, so only
		// remote classifiers are worth registering.
		if c.Endpoint == "" {
			continue
		}
		if err := r.RegisterText(NewHTTPTextClassifier(c)); err != nil {
			return err
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
