package device

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/internal/mapping"
	"github.com/yichenlu/sensereader/internal/metrics"
	"github.com/yichenlu/sensereader/internal/runtime"
	"github.com/yichenlu/sensereader/pkg/errs"
	"github.com/yichenlu/sensereader/pkg/types"
)

// FanoutConfig holds dispatch timing knobs
type FanoutConfig struct {
	DispatchTimeout time.Duration
	RetryInitial    time.Duration
	RetryMaxRetries int // retries after the first attempt
}

// DefaultFanoutConfig returns the documented defaults
func DefaultFanoutConfig() FanoutConfig {
	return FanoutConfig{
		DispatchTimeout: 2 * time.Second,
		RetryInitial:    200 * time.Millisecond,
		RetryMaxRetries: 2,
	}
}

// Fanout dispatches one logical event to many devices concurrently. Per
// device, dispatches are totally ordered by submission; across devices there
// is no ordering. A broadcast never fails as a whole: the per-device result
// map is authoritative.
type Fanout struct {
	registry *Registry
	sched    *runtime.Scheduler
	cfg      FanoutConfig
	log      zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-device ordering
}

// NewFanout creates a fan-out over the registry, sharing the scheduler with
// the orchestrator.
func NewFanout(registry *Registry, sched *runtime.Scheduler, cfg FanoutConfig, log zerolog.Logger) *Fanout {
	if cfg.DispatchTimeout <= 0 {
		cfg = DefaultFanoutConfig()
	}
	return &Fanout{
		registry: registry,
		sched:    sched,
		cfg:      cfg,
		log:      log.With().Str("component", "fanout").Logger(),
		locks:    make(map[string]*sync.Mutex),
	}
}

// BroadcastOpts scope one broadcast
type BroadcastOpts struct {
	SessionID  string
	Generation uint64
	TargetIDs  []string // nil targets every registered device
	Text       string
}

// Broadcast shapes and dispatches the reading to every targeted device and
// returns exactly one DispatchResult per target. The call returns when every
// per-device outcome is terminal.
func (f *Fanout) Broadcast(ctx context.Context, reading types.EmotionReading, opts BroadcastOpts) map[string]types.DispatchResult {
	targets := opts.TargetIDs
	if targets == nil {
		targets = f.registry.IDs()
	}

	set := mapping.ForReading(reading)

	results := make(map[string]types.DispatchResult, len(targets))
	type outcome struct {
		id     string
		result types.DispatchResult
	}
	ch := make(chan outcome, len(targets))
	pending := 0

	for _, id := range targets {
		desc, port, ok := f.registry.Get(id)
		if !ok {
			results[id] = types.DispatchResult{
				Status: types.DispatchSkipped,
				Error:  "device not registered",
			}
			continue
		}

		payload, shaped := ShapePayload(desc, reading, set, opts.Text)
		if !shaped {
			results[id] = types.DispatchResult{
				Status: types.DispatchSkipped,
				Error:  "no payload matches device capabilities",
			}
			continue
		}
		payload.PlanGeneration = opts.Generation

		pending++
		deviceID := id
		devicePort := port
		task := func(taskCtx context.Context) {
			ch <- outcome{deviceID, f.dispatch(taskCtx, deviceID, devicePort, payload)}
		}
		if err := f.sched.Submit(ctx, opts.SessionID, task); err != nil {
			// Scheduler saturated or shut down: dispatch inline so the
			// device still gets exactly one result.
			go task(ctx)
		}
	}

	for i := 0; i < pending; i++ {
		o := <-ch
		results[o.id] = o.result
	}

	for id, res := range results {
		metrics.DispatchResults.WithLabelValues(string(res.Status)).Inc()
		if res.Status != types.DispatchSkipped {
			metrics.DispatchLatency.Observe(float64(res.LatencyMs) / 1000)
		}
		if res.Status == types.DispatchFailed {
			f.log.Warn().
				Str("device_id", id).
				Int("attempts", res.Attempts).
				Str("error", res.Error).
				Msg("dispatch failed")
		}
	}

	return results
}

// dispatch sends one payload with per-attempt timeout and classified retry.
// Transient errors back off exponentially; permanent errors fail fast.
func (f *Fanout) dispatch(ctx context.Context, deviceID string, port Port, payload types.DevicePayload) types.DispatchResult {
	lock := f.deviceLock(deviceID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	backoff := f.cfg.RetryInitial
	attempts := 0
	var lastErr error

	for attempts <= f.cfg.RetryMaxRetries {
		attempts++

		callCtx, cancel := context.WithTimeout(ctx, f.cfg.DispatchTimeout)
		err := port.Send(callCtx, payload)
		cancel()

		if err == nil {
			status := types.DispatchSuccess
			if attempts > 1 {
				status = types.DispatchRetriedSuccess
			}
			return types.DispatchResult{
				Status:    status,
				Attempts:  attempts,
				LatencyMs: time.Since(start).Milliseconds(),
			}
		}

		lastErr = err
		if !errs.Transient(err) || attempts > f.cfg.RetryMaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return types.DispatchResult{
				Status:    types.DispatchFailed,
				Attempts:  attempts,
				Error:     "cancelled: " + ctx.Err().Error(),
				LatencyMs: time.Since(start).Milliseconds(),
			}
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	status := types.DispatchFailed
	if errs.IsKind(lastErr, errs.Incompatible) {
		status = types.DispatchSkipped
	}
	return types.DispatchResult{
		Status:    status,
		Attempts:  attempts,
		Error:     lastErr.Error(),
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func (f *Fanout) deviceLock(deviceID string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()

	lock, ok := f.locks[deviceID]
	if !ok {
		lock = &sync.Mutex{}
		f.locks[deviceID] = lock
	}
	return lock
}
