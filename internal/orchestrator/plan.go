package orchestrator

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/yichenlu/sensereader/internal/mapping"
	"github.com/yichenlu/sensereader/internal/provider"
	"github.com/yichenlu/sensereader/pkg/types"
)

// buildPlan assembles the playback plan: haptic events anchored to segment
// start times, one scent event at emotion onset, AR events mirroring scent.
func buildPlan(sessionID string, generation uint64, segments []*types.Segment, reading types.EmotionReading, prefs types.Preferences) types.PlaybackPlan {
	set := mapping.ForReading(reading)

	prosody := set.Prosody
	if prefs.PreferredVoice != "" {
		prosody.VoiceID = prefs.PreferredVoice
	}
	if prefs.VoiceSpeed > 0 {
		prosody.Rate = clampRange(prosody.Rate*prefs.VoiceSpeed, 0.5, 2.0)
	}

	total := 0.0
	haptics := make([]types.TimedEvent, 0, len(segments))
	for _, seg := range segments {
		if prefs.HapticsEnabled {
			haptic := set.Haptic
			haptics = append(haptics, types.TimedEvent{
				AtSeconds:    seg.StartOffset,
				SegmentIndex: seg.Index,
				Haptic:       &haptic,
			})
		}
		total += seg.EstDuration
	}

	// AR events mirror scent events one-for-one, so both share the gate.
	scents := make([]types.TimedEvent, 0, 1)
	ars := make([]types.TimedEvent, 0, 1)
	if prefs.ScentEnabled {
		scent := set.Scent
		scents = append(scents, types.TimedEvent{AtSeconds: 0, SegmentIndex: 0, Scent: &scent})
		ar := set.AR
		ars = append(ars, types.TimedEvent{AtSeconds: 0, SegmentIndex: 0, AR: &ar})
	}

	return types.PlaybackPlan{
		SessionID:     sessionID,
		Generation:    generation,
		Segments:      segments,
		Emotion:       reading,
		Prosody:       prosody,
		HapticEvents:  haptics,
		ScentEvents:   scents,
		AREvents:      ars,
		TotalDuration: total,
	}
}

// synthesize asks the TTS provider for a playback URL. Failures degrade the
// plan to the fallback voice instead of failing the play: haptic and scent
// events still run without audio.
func (o *Orchestrator) synthesize(ctx context.Context, text string, reading types.EmotionReading, prefs types.Preferences, plan *types.PlaybackPlan) string {
	tts := o.providers.FirstTTS()
	if tts == nil {
		return ""
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.CallTimeoutSeconds)*time.Second)
	defer cancel()

	resp, err := tts.Synthesize(callCtx, provider.TTSRequest{
		Text:    text,
		VoiceID: prefs.PreferredVoice,
		Emotion: reading.Primary,
		Prosody: plan.Prosody,
		Speed:   prefs.VoiceSpeed,
	})
	if err != nil {
		o.log.Warn().Err(err).Msg("TTS synthesis failed, emitting plan without audio")
		plan.Prosody.VoiceID = "normal"
		return ""
	}
	if resp.AudioURL != "" {
		return resp.AudioURL
	}
	if resp.AudioBase64 != "" {
		return "data:audio/" + resp.Format + ";base64," + resp.AudioBase64
	}
	return ""
}

// composeSummary builds a short textual summary from the highest-weight
// highlights across all segments.
func composeSummary(segments []*types.Segment) string {
	type weighted struct {
		text   string
		weight float64
		order  int
	}

	picks := make([]weighted, 0)
	for _, seg := range segments {
		runes := []rune(seg.Text)
		for _, h := range seg.Highlights {
			if h.StartChar < 0 || h.EndChar > len(runes) || h.StartChar >= h.EndChar {
				continue
			}
			span := strings.TrimSpace(string(runes[h.StartChar:h.EndChar]))
			if span == "" || len([]rune(span)) < 2 {
				// Bare punctuation marks carry no summary value; use the
				// whole segment instead.
				span = strings.TrimSpace(seg.Text)
			}
			picks = append(picks, weighted{text: span, weight: h.Weight, order: seg.Index})
		}
	}

	if len(picks) == 0 {
		if len(segments) == 0 {
			return ""
		}
		return strings.TrimSpace(segments[0].Text)
	}

	sort.SliceStable(picks, func(i, j int) bool { return picks[i].weight > picks[j].weight })
	if len(picks) > 3 {
		picks = picks[:3]
	}
	sort.SliceStable(picks, func(i, j int) bool { return picks[i].order < picks[j].order })

	seen := make(map[string]bool)
	parts := make([]string, 0, len(picks))
	for _, p := range picks {
		if seen[p.text] {
			continue
		}
		seen[p.text] = true
		parts = append(parts, p.text)
	}
	return strings.Join(parts, " … ")
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
