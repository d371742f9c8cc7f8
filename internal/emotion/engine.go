package emotion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/pkg/types"
)

// TextClassifierPort is a remote classifier that accepts raw text and
// returns an emotion reading. The lexicon substitutes for it on failure.
type TextClassifierPort interface {
	ClassifyText(ctx context.Context, text string) (*types.EmotionReading, error)
}

// VisionClassifierPort classifies an image into an emotion reading
type VisionClassifierPort interface {
	ClassifyImage(ctx context.Context, image []byte) (*types.EmotionReading, error)
}

// AudioClassifierPort classifies an audio clip into an emotion reading
type AudioClassifierPort interface {
	ClassifyAudio(ctx context.Context, audio []byte) (*types.EmotionReading, error)
}

// Payload is exactly one of text, image bytes, or audio bytes
type Payload struct {
	Text  string
	Image []byte
	Audio []byte
}

// Engine predicts an emotion reading from a payload. It never returns an
// error: a missing or failing backend yields a clearly degraded reading with
// confidence zero. Outputs are memoized by payload hash so identical inputs
// within a session produce identical readings.
type Engine struct {
	text   TextClassifierPort
	vision VisionClassifierPort
	audio  AudioClassifierPort
	log    zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]types.EmotionReading
}

// NewEngine creates an emotion engine. Any port may be nil.
func NewEngine(text TextClassifierPort, vision VisionClassifierPort, audio AudioClassifierPort, log zerolog.Logger) *Engine {
	return &Engine{
		text:   text,
		vision: vision,
		audio:  audio,
		log:    log.With().Str("component", "emotion").Logger(),
		now:    time.Now,
		cache:  make(map[string]types.EmotionReading),
	}
}

// Predict classifies the payload. See Engine docs for failure semantics.
func (e *Engine) Predict(ctx context.Context, payload Payload) types.EmotionReading {
	key := payloadKey(payload)

	e.mu.Lock()
	if cached, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return cached
	}
	e.mu.Unlock()

	var reading types.EmotionReading
	switch {
	case len(payload.Image) > 0:
		reading = e.predictImage(ctx, payload.Image)
	case len(payload.Audio) > 0:
		reading = e.predictAudio(ctx, payload.Audio)
	default:
		reading = e.predictText(ctx, payload.Text)
	}

	reading.Intensity = types.Clamp01(reading.Intensity)
	reading.Confidence = types.Clamp01(reading.Confidence)
	if !reading.Primary.IsValid() {
		reading.Primary = types.EmotionNeutral
	}
	if len(reading.Secondary) > 3 {
		reading.Secondary = reading.Secondary[:3]
	}

	e.mu.Lock()
	e.cache[key] = reading
	e.mu.Unlock()

	return reading
}

func (e *Engine) predictText(ctx context.Context, text string) types.EmotionReading {
	if e.text != nil {
		remote, err := e.text.ClassifyText(ctx, text)
		if err == nil && remote != nil {
			reading := *remote
			reading.Primary = NormalizeLabel(string(remote.Primary))
			reading.Source = types.SourceText
			reading.Timestamp = e.now().Unix()
			return reading
		}
		e.log.Warn().Err(err).Msg("remote text classifier failed, falling back to lexicon")
		fallback := e.lexiconReading(text)
		if fallback.Confidence > 0.5 {
			fallback.Confidence = 0.5
		}
		return fallback
	}
	return e.lexiconReading(text)
}

func (e *Engine) predictImage(ctx context.Context, image []byte) types.EmotionReading {
	if e.vision == nil {
		return e.degraded(types.SourceImage)
	}
	remote, err := e.vision.ClassifyImage(ctx, image)
	if err != nil || remote == nil {
		e.log.Warn().Err(err).Msg("vision classifier failed")
		return e.degraded(types.SourceImage)
	}
	reading := *remote
	reading.Primary = NormalizeLabel(string(remote.Primary))
	reading.Source = types.SourceImage
	reading.Timestamp = e.now().Unix()
	return reading
}

func (e *Engine) predictAudio(ctx context.Context, audio []byte) types.EmotionReading {
	if e.audio == nil {
		return e.degraded(types.SourceAudio)
	}
	remote, err := e.audio.ClassifyAudio(ctx, audio)
	if err != nil || remote == nil {
		e.log.Warn().Err(err).Msg("audio classifier failed")
		return e.degraded(types.SourceAudio)
	}
	reading := *remote
	reading.Primary = NormalizeLabel(string(remote.Primary))
	reading.Source = types.SourceAudio
	reading.Timestamp = e.now().Unix()
	return reading
}

// degraded is the reading emitted when no backend can serve the request
func (e *Engine) degraded(source types.EmotionSource) types.EmotionReading {
	return types.EmotionReading{
		Primary:    types.EmotionNeutral,
		Intensity:  0.5,
		Features:   "unavailable",
		Source:     source,
		Confidence: 0.0,
		Timestamp:  e.now().Unix(),
	}
}

// lexiconReading scores the keyword lexicon over text. Ties between labels
// break in the fixed AllEmotions order so results are deterministic.
func (e *Engine) lexiconReading(text string) types.EmotionReading {
	scores := scoreText(text)

	total := 0
	for _, n := range scores {
		total += n
	}
	if total == 0 {
		return types.EmotionReading{
			Primary:    types.EmotionNeutral,
			Intensity:  0.5,
			Features:   "lexicon:no-match",
			Source:     types.SourceText,
			Confidence: 0.2,
			Timestamp:  e.now().Unix(),
		}
	}

	labels := types.AllEmotions()
	primary := types.EmotionNeutral
	best := 0
	for _, label := range labels {
		if scores[label] > best {
			best = scores[label]
			primary = label
		}
	}

	secondary := make([]types.EmotionLabel, 0, 3)
	for _, label := range labels {
		if label != primary && scores[label] > 0 {
			secondary = append(secondary, label)
		}
	}
	sort.SliceStable(secondary, func(i, j int) bool {
		return scores[secondary[i]] > scores[secondary[j]]
	})
	if len(secondary) > 3 {
		secondary = secondary[:3]
	}

	features := make([]string, 0, len(labels))
	for _, label := range labels {
		if scores[label] > 0 {
			features = append(features, fmt.Sprintf("%s=%d", label, scores[label]))
		}
	}

	return types.EmotionReading{
		Primary:    primary,
		Intensity:  types.Clamp01(0.4 + 0.15*float64(best)),
		Secondary:  secondary,
		Features:   "lexicon:" + strings.Join(features, ","),
		Source:     types.SourceText,
		Confidence: types.Clamp01(0.4 + 0.1*float64(best)),
		Timestamp:  e.now().Unix(),
	}
}

func payloadKey(p Payload) string {
	h := sha256.New()
	switch {
	case len(p.Image) > 0:
		h.Write([]byte("image:"))
		h.Write(p.Image)
	case len(p.Audio) > 0:
		h.Write([]byte("audio:"))
		h.Write(p.Audio)
	default:
		h.Write([]byte("text:"))
		h.Write([]byte(p.Text))
	}
	return hex.EncodeToString(h.Sum(nil))
}
