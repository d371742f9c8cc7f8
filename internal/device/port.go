// Package device tracks connected output hardware and fans emotion payloads
// out to it.
package device

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/internal/runtime"
	"github.com/yichenlu/sensereader/pkg/types"
)

// Port is the adapter contract every vendor integration implements. Send
// translates the capability-shaped payload into the vendor format and
// delivers it before the context deadline.
type Port interface {
	Send(ctx context.Context, payload types.DevicePayload) error
}

// PortFunc adapts a function to the Port interface
type PortFunc func(ctx context.Context, payload types.DevicePayload) error

func (f PortFunc) Send(ctx context.Context, payload types.DevicePayload) error {
	return f(ctx, payload)
}

// NewLoopbackPort returns a port that accepts every payload and logs it.
// Built-in simulator devices use it so the system is exercisable without
// physical hardware.
func NewLoopbackPort(id string, log zerolog.Logger) Port {
	l := log.With().Str("component", "device").Str("device_id", id).Logger()
	return PortFunc(func(ctx context.Context, payload types.DevicePayload) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.Debug().
			Str("emotion", string(payload.Emotion)).
			Float64("intensity", payload.Intensity).
			Msg("loopback dispatch")
		return nil
	})
}

// NewHTTPPort returns a port that POSTs the payload as JSON to the device
// address through a runtime connector, inheriting its retry settings for
// transport-level concerns.
func NewHTTPPort(id, addr string, conn *runtime.HTTPConnector) Port {
	return PortFunc(func(ctx context.Context, payload types.DevicePayload) error {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		if _, err := conn.Post(ctx, addr, "application/json", body); err != nil {
			return fmt.Errorf("device %s: %w", id, err)
		}
		return nil
	})
}
