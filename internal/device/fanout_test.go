package device

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/internal/runtime"
	"github.com/yichenlu/sensereader/pkg/errs"
	"github.com/yichenlu/sensereader/pkg/types"
)

func testFanout(t *testing.T) (*Registry, *Fanout) {
	t.Helper()

	reg := NewRegistry(time.Second, zerolog.Nop())
	t.Cleanup(reg.Close)

	sched := runtime.NewScheduler(4, 32)
	t.Cleanup(sched.Shutdown)

	fan := NewFanout(reg, sched, FanoutConfig{
		DispatchTimeout: 200 * time.Millisecond,
		RetryInitial:    time.Millisecond,
		RetryMaxRetries: 2,
	}, zerolog.Nop())
	return reg, fan
}

func reading(label types.EmotionLabel, intensity float64) types.EmotionReading {
	return types.EmotionReading{Primary: label, Intensity: intensity, Source: types.SourceText}
}

func TestBroadcast_OneResultPerTarget(t *testing.T) {
	reg, fan := testFanout(t)

	reg.Register(types.DeviceDescriptor{ID: "watch", Class: types.DeviceWatch}, NewLoopbackPort("watch", zerolog.Nop()))
	reg.Register(types.DeviceDescriptor{ID: "diffuser", Class: types.DeviceScent}, NewLoopbackPort("diffuser", zerolog.Nop()))

	targets := []string{"watch", "diffuser", "ghost"}
	results := fan.Broadcast(context.Background(), reading(types.EmotionSad, 0.7), BroadcastOpts{
		SessionID: "s1",
		TargetIDs: targets,
	})

	if len(results) != len(targets) {
		t.Fatalf("Got %d results, want %d", len(results), len(targets))
	}
	for _, id := range targets {
		if _, ok := results[id]; !ok {
			t.Errorf("Missing result for %s", id)
		}
	}

	if results["watch"].Status != types.DispatchSuccess {
		t.Errorf("watch = %s, want success", results["watch"].Status)
	}
	if results["diffuser"].Status != types.DispatchSuccess {
		t.Errorf("diffuser = %s, want success", results["diffuser"].Status)
	}
	if results["ghost"].Status != types.DispatchSkipped {
		t.Errorf("ghost = %s, want skipped_incompatible", results["ghost"].Status)
	}
}

func TestBroadcast_PayloadShaping(t *testing.T) {
	reg, fan := testFanout(t)

	var watchPayload, scentPayload atomic.Pointer[types.DevicePayload]
	reg.Register(types.DeviceDescriptor{ID: "watch", Class: types.DeviceWatch},
		PortFunc(func(ctx context.Context, p types.DevicePayload) error {
			watchPayload.Store(&p)
			return nil
		}))
	reg.Register(types.DeviceDescriptor{ID: "diffuser", Class: types.DeviceScent},
		PortFunc(func(ctx context.Context, p types.DevicePayload) error {
			scentPayload.Store(&p)
			return nil
		}))

	fan.Broadcast(context.Background(), reading(types.EmotionHappy, 1.0), BroadcastOpts{SessionID: "s1"})

	wp := watchPayload.Load()
	if wp == nil {
		t.Fatal("Watch got no payload")
	}
	if wp.Haptic == nil || wp.Haptic.Name != "nudge" {
		t.Errorf("Watch should get a scalar nudge, got %+v", wp.Haptic)
	}
	if wp.Scent != nil || wp.AR != nil {
		t.Error("Watch received capabilities it does not declare")
	}

	sp := scentPayload.Load()
	if sp == nil {
		t.Fatal("Diffuser got no payload")
	}
	if sp.Scent == nil {
		t.Error("Diffuser should receive a scent recipe")
	}
	if sp.Haptic != nil {
		t.Error("Diffuser received a haptic payload")
	}
}

func TestBroadcast_RetryClassification(t *testing.T) {
	t.Run("Transient errors retry to success", func(t *testing.T) {
		reg, fan := testFanout(t)

		var calls atomic.Int32
		reg.Register(types.DeviceDescriptor{ID: "flaky", Class: types.DeviceHapticVest},
			PortFunc(func(ctx context.Context, p types.DevicePayload) error {
				if calls.Add(1) < 3 {
					return errs.New(errs.UpstreamUnavailable, "transient blip")
				}
				return nil
			}))

		results := fan.Broadcast(context.Background(), reading(types.EmotionAngry, 0.8), BroadcastOpts{SessionID: "s1"})
		res := results["flaky"]
		if res.Status != types.DispatchRetriedSuccess {
			t.Errorf("Status = %s, want retried_success", res.Status)
		}
		if res.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", res.Attempts)
		}
	})

	t.Run("Permanent errors fail fast", func(t *testing.T) {
		reg, fan := testFanout(t)

		var calls atomic.Int32
		reg.Register(types.DeviceDescriptor{ID: "locked", Class: types.DeviceHapticVest},
			PortFunc(func(ctx context.Context, p types.DevicePayload) error {
				calls.Add(1)
				return errs.New(errs.Unauthorized, "bad pairing token")
			}))

		results := fan.Broadcast(context.Background(), reading(types.EmotionFear, 0.5), BroadcastOpts{SessionID: "s1"})
		res := results["locked"]
		if res.Status != types.DispatchFailed {
			t.Errorf("Status = %s, want failed", res.Status)
		}
		if calls.Load() != 1 {
			t.Errorf("Permanent error retried: %d calls", calls.Load())
		}
	})

	t.Run("Exhausted retries fail", func(t *testing.T) {
		reg, fan := testFanout(t)

		var calls atomic.Int32
		reg.Register(types.DeviceDescriptor{ID: "dead", Class: types.DeviceHapticVest},
			PortFunc(func(ctx context.Context, p types.DevicePayload) error {
				calls.Add(1)
				return errs.New(errs.Timeout, "deadline")
			}))

		results := fan.Broadcast(context.Background(), reading(types.EmotionSad, 0.5), BroadcastOpts{SessionID: "s1"})
		res := results["dead"]
		if res.Status != types.DispatchFailed {
			t.Errorf("Status = %s, want failed", res.Status)
		}
		if calls.Load() != 3 {
			t.Errorf("Attempts = %d, want 3 (1 + 2 retries)", calls.Load())
		}
	})
}

func TestBroadcast_PartialFailure(t *testing.T) {
	reg, fan := testFanout(t)

	reg.Register(types.DeviceDescriptor{ID: "good", Class: types.DeviceHapticVest}, NewLoopbackPort("good", zerolog.Nop()))
	reg.Register(types.DeviceDescriptor{ID: "bad", Class: types.DeviceHapticVest},
		PortFunc(func(ctx context.Context, p types.DevicePayload) error {
			return errs.New(errs.Incompatible, "firmware mismatch")
		}))

	results := fan.Broadcast(context.Background(), reading(types.EmotionNeutral, 0.5), BroadcastOpts{SessionID: "s1"})

	if results["good"].Status != types.DispatchSuccess {
		t.Errorf("good = %s, want success", results["good"].Status)
	}
	if results["bad"].Status != types.DispatchSkipped {
		t.Errorf("bad = %s, want skipped_incompatible", results["bad"].Status)
	}
}

func TestRegistry_Lifecycle(t *testing.T) {
	reg := NewRegistry(10*time.Millisecond, zerolog.Nop())
	defer reg.Close()

	if err := reg.Register(types.DeviceDescriptor{ID: "d1", Class: types.DeviceWatch}, NewLoopbackPort("d1", zerolog.Nop())); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	desc, _, ok := reg.Get("d1")
	if !ok || desc.Status != types.DeviceOnline {
		t.Fatalf("Device should be online after register: %+v", desc)
	}
	if !desc.HasCapability(types.CapHaptic) || !desc.HasCapability(types.CapDisplay) {
		t.Errorf("Watch class should default haptic+display: %v", desc.Capabilities)
	}

	// No heartbeats for over 3x the period transitions to offline.
	deadline := time.After(2 * time.Second)
	for {
		desc, _, _ = reg.Get("d1")
		if desc.Status == types.DeviceOffline {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Device never went offline")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := reg.Heartbeat("d1"); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}
	desc, _, _ = reg.Get("d1")
	if desc.Status != types.DeviceOnline {
		t.Errorf("Heartbeat should restore online status: %s", desc.Status)
	}

	if err := reg.Heartbeat("missing"); err == nil {
		t.Error("Heartbeat on unknown device should fail")
	}
}
