// Package orchestrator coordinates the segmenter, emotion engine, mapping
// tables, memory store and device fan-out for the play/pause/seek/summary
// session lifecycle.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/internal/device"
	"github.com/yichenlu/sensereader/internal/emotion"
	"github.com/yichenlu/sensereader/internal/memory"
	"github.com/yichenlu/sensereader/internal/metrics"
	"github.com/yichenlu/sensereader/internal/provider"
	"github.com/yichenlu/sensereader/internal/segmenter"
	"github.com/yichenlu/sensereader/pkg/errs"
	"github.com/yichenlu/sensereader/pkg/types"
)

// Orchestrator owns all live sessions. Per-session state is serialized by a
// per-session lock so play/pause/seek on one session are linearizable while
// different sessions proceed in parallel.
type Orchestrator struct {
	segmenter *segmenter.Service
	emotion   *emotion.Engine
	memory    *memory.Store
	fanout    *device.Fanout
	providers *provider.Registry
	cfg       types.OrchestratorConfig
	log       zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionState
	byUser   map[string]string // user id -> session id

	stop     chan struct{}
	stopOnce sync.Once
}

// sessionState wraps a session with its lock and the cancel handle for
// in-flight dispatches of the current plan.
type sessionState struct {
	mu         sync.Mutex
	sess       types.Session
	cancelPlan context.CancelFunc
}

// New creates an orchestrator and starts the session reaper
func New(seg *segmenter.Service, eng *emotion.Engine, mem *memory.Store, fan *device.Fanout, providers *provider.Registry, cfg types.OrchestratorConfig, log zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		segmenter: seg,
		emotion:   eng,
		memory:    mem,
		fanout:    fan,
		providers: providers,
		cfg:       cfg,
		log:       log.With().Str("component", "orchestrator").Logger(),
		sessions:  make(map[string]*sessionState),
		byUser:    make(map[string]string),
		stop:      make(chan struct{}),
	}
	go o.reap()
	return o
}

// PlayResult is the orchestrator's answer to a play request
type PlayResult struct {
	Plan        types.PlaybackPlan
	PlaybackURL string
}

// Play creates or refreshes a session for the text and returns the playback
// plan. A repeated play for the same user refreshes that user's session,
// cancelling in-flight dispatches of the previous plan.
func (o *Orchestrator) Play(ctx context.Context, text, userID string, strategy types.SegmentStrategy) (*PlayResult, error) {
	if text == "" {
		return nil, errs.New(errs.InvalidArgument, "text is required")
	}

	start := time.Now()
	prefs := o.memory.GetPreferences(ctx, userID)

	segments := o.segmenter.Segment(text, segmenter.Options{
		Strategy:      strategy,
		MaxChunkChars: o.cfg.MaxChunkChars,
		ReadingWPM:    prefs.ReadingWPM,
	})
	if len(segments) == 0 {
		return nil, errs.New(errs.InvalidArgument, "text contains no readable content")
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.CallTimeoutSeconds)*time.Second)
	reading := o.emotion.Predict(callCtx, emotion.Payload{Text: text})
	cancel()
	metrics.EmotionPredictions.WithLabelValues(string(reading.Source), string(reading.Primary)).Inc()

	st, created := o.obtainSession(userID)
	st.mu.Lock()
	if st.cancelPlan != nil {
		st.cancelPlan()
	}
	planCtx, cancelPlan := context.WithCancel(context.Background())
	st.cancelPlan = cancelPlan

	st.sess.Segments = segments
	st.sess.CurrentIndex = 0
	st.sess.Playing = true
	st.sess.LastEmotion = reading
	st.sess.PlanGeneration++
	st.sess.UpdatedAt = time.Now()
	generation := st.sess.PlanGeneration
	sessionID := st.sess.ID
	st.mu.Unlock()

	if created {
		metrics.SessionsActive.Inc()
	}
	metrics.PlaysTotal.Inc()

	plan := buildPlan(sessionID, generation, segments, reading, prefs)
	playbackURL := o.synthesize(ctx, text, reading, prefs, &plan)

	// First emotion goes out to the devices as soon as the plan exists;
	// a newer play cancels this through planCtx.
	o.dispatchAsync(planCtx, sessionID, generation, reading, segments[0].Text)

	metrics.PlanDuration.Observe(time.Since(start).Seconds())
	o.log.Info().
		Str("session_id", sessionID).
		Int("segments", len(segments)).
		Str("emotion", string(reading.Primary)).
		Uint64("generation", generation).
		Msg("play")

	return &PlayResult{Plan: plan, PlaybackURL: playbackURL}, nil
}

// Pause flips the session to paused. Pausing a paused session is a no-op.
func (o *Orchestrator) Pause(sessionID string) (*types.Session, error) {
	st, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.sess.Playing = false
	st.sess.UpdatedAt = time.Now()
	snapshot := st.sess
	return &snapshot, nil
}

// Seek moves the session to the given segment and re-emits downstream
// events from that offset. An invalid index leaves the session untouched.
func (o *Orchestrator) Seek(ctx context.Context, sessionID string, index int) (*types.Session, error) {
	st, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	if index < 0 || index >= len(st.sess.Segments) {
		st.mu.Unlock()
		return nil, errs.Newf(errs.InvalidArgument, "invalid_segment: index %d out of range [0,%d)", index, len(st.sess.Segments))
	}
	st.sess.CurrentIndex = index
	st.sess.UpdatedAt = time.Now()
	generation := st.sess.PlanGeneration
	reading := st.sess.LastEmotion
	segText := st.sess.Segments[index].Text
	snapshot := st.sess
	st.mu.Unlock()

	o.dispatchAsync(context.Background(), sessionID, generation, reading, segText)

	return &snapshot, nil
}

// SessionSummary is the condensed view of one session
type SessionSummary struct {
	Summary         string               `json:"summary"`
	TotalSegments   int                  `json:"total_segments"`
	TotalHighlights int                  `json:"total_highlights"`
	CurrentIndex    int                  `json:"current_position"`
	Playing         bool                 `json:"playing"`
	LastEmotion     types.EmotionReading `json:"emotion"`
}

// Summary reports session progress plus a short textual summary composed
// from the highest-weight highlights.
func (o *Orchestrator) Summary(sessionID string) (*SessionSummary, error) {
	st, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	total := 0
	for _, seg := range st.sess.Segments {
		total += len(seg.Highlights)
	}

	return &SessionSummary{
		Summary:         composeSummary(st.sess.Segments),
		TotalSegments:   len(st.sess.Segments),
		TotalHighlights: total,
		CurrentIndex:    st.sess.CurrentIndex,
		Playing:         st.sess.Playing,
		LastEmotion:     st.sess.LastEmotion,
	}, nil
}

// Get returns a copy of the session
func (o *Orchestrator) Get(sessionID string) (*types.Session, error) {
	st, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	snapshot := st.sess
	return &snapshot, nil
}

// Broadcast sends an ad-hoc emotion event to devices outside any session
func (o *Orchestrator) Broadcast(ctx context.Context, reading types.EmotionReading, targets []string, text string) map[string]types.DispatchResult {
	return o.fanout.Broadcast(ctx, reading, device.BroadcastOpts{
		SessionID: "broadcast:" + uuid.NewString(),
		TargetIDs: targets,
		Text:      text,
	})
}

// obtainSession finds the user's live session or creates a new one
func (o *Orchestrator) obtainSession(userID string) (*sessionState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if userID != "" {
		if id, ok := o.byUser[userID]; ok {
			if st, live := o.sessions[id]; live {
				return st, false
			}
		}
	}

	st := &sessionState{
		sess: types.Session{
			ID:        uuid.NewString(),
			UserID:    userID,
			StartedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
	o.sessions[st.sess.ID] = st
	if userID != "" {
		o.byUser[userID] = st.sess.ID
	}
	return st, true
}

func (o *Orchestrator) lookup(sessionID string) (*sessionState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	st, ok := o.sessions[sessionID]
	if !ok {
		return nil, errs.Newf(errs.NotFound, "session not found: %s", sessionID)
	}
	return st, nil
}

// dispatchAsync fans the reading out to all devices without blocking the
// request path. A plan superseded by a newer play is dropped through ctx
// cancellation; the generation is passed on to the fan-out with the payload.
func (o *Orchestrator) dispatchAsync(ctx context.Context, sessionID string, generation uint64, reading types.EmotionReading, text string) {
	go func() {
		if ctx.Err() != nil {
			return
		}
		results := o.fanout.Broadcast(ctx, reading, device.BroadcastOpts{
			SessionID:  sessionID,
			Generation: generation,
			Text:       text,
		})
		if ctx.Err() != nil {
			// A newer plan superseded this one; its results are discarded.
			return
		}
		o.log.Debug().
			Str("session_id", sessionID).
			Int("devices", len(results)).
			Msg("plan dispatched")
	}()
}

// reap expires sessions idle past the TTL
func (o *Orchestrator) reap() {
	ttl := time.Duration(o.cfg.SessionTTLMinutes) * time.Minute
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-o.stop:
			return
		case now := <-ticker.C:
			o.mu.Lock()
			for id, st := range o.sessions {
				st.mu.Lock()
				idle := now.Sub(st.sess.UpdatedAt)
				userID := st.sess.UserID
				if idle > ttl {
					if st.cancelPlan != nil {
						st.cancelPlan()
					}
					delete(o.sessions, id)
					if userID != "" && o.byUser[userID] == id {
						delete(o.byUser, userID)
					}
					metrics.SessionsActive.Dec()
					o.log.Info().Str("session_id", id).Msg("session expired")
				}
				st.mu.Unlock()
			}
			o.mu.Unlock()
		}
	}
}

// Close stops the reaper and cancels every live plan
func (o *Orchestrator) Close() {
	o.stopOnce.Do(func() { close(o.stop) })

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, st := range o.sessions {
		st.mu.Lock()
		if st.cancelPlan != nil {
			st.cancelPlan()
		}
		st.mu.Unlock()
	}
}
