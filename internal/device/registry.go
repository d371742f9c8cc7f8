package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/internal/metrics"
	"github.com/yichenlu/sensereader/pkg/types"
)

// Registry is the capability-typed table of connected devices. Reads take a
// snapshot; writes go through a single mutex so heartbeat updates and
// registration stay consistent.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*entry
	log     zerolog.Logger

	heartbeatPeriod time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

type entry struct {
	desc types.DeviceDescriptor
	port Port
}

// NewRegistry creates a device registry and starts the liveness sweeper. A
// device with no contact for 3x the heartbeat period transitions to offline.
func NewRegistry(heartbeatPeriod time.Duration, log zerolog.Logger) *Registry {
	if heartbeatPeriod <= 0 {
		heartbeatPeriod = 10 * time.Second
	}
	r := &Registry{
		devices:         make(map[string]*entry),
		log:             log.With().Str("component", "device-registry").Logger(),
		heartbeatPeriod: heartbeatPeriod,
		stop:            make(chan struct{}),
	}
	go r.sweep()
	return r
}

// Register adds or replaces a device. Empty capability sets default from the
// device class.
func (r *Registry) Register(desc types.DeviceDescriptor, port Port) error {
	if desc.ID == "" {
		return fmt.Errorf("device id is required")
	}
	if port == nil {
		return fmt.Errorf("device port is required")
	}
	if len(desc.Capabilities) == 0 {
		desc.Capabilities = types.DefaultCapabilities(desc.Class)
	}
	if len(desc.Capabilities) == 0 {
		return fmt.Errorf("device %s declares no capabilities", desc.ID)
	}
	desc.Status = types.DeviceOnline
	desc.LastSeen = time.Now()

	r.mu.Lock()
	r.devices[desc.ID] = &entry{desc: desc, port: port}
	r.mu.Unlock()

	r.log.Info().
		Str("device_id", desc.ID).
		Str("class", string(desc.Class)).
		Msg("device registered")
	return nil
}

// Heartbeat refreshes a device's liveness
func (r *Registry) Heartbeat(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.devices[deviceID]
	if !ok {
		return fmt.Errorf("device not found: %s", deviceID)
	}
	e.desc.LastSeen = time.Now()
	e.desc.Status = types.DeviceOnline
	return nil
}

// Unregister removes a device. Removing a missing device is a no-op.
func (r *Registry) Unregister(deviceID string) {
	r.mu.Lock()
	delete(r.devices, deviceID)
	r.mu.Unlock()
}

// Get returns a device descriptor and its port
func (r *Registry) Get(deviceID string) (types.DeviceDescriptor, Port, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.devices[deviceID]
	if !ok {
		return types.DeviceDescriptor{}, nil, false
	}
	return e.desc, e.port, true
}

// Snapshot returns a copy of every descriptor
func (r *Registry) Snapshot() []types.DeviceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.DeviceDescriptor, 0, len(r.devices))
	for _, e := range r.devices {
		out = append(out, e.desc)
	}
	return out
}

// IDs returns every registered device id
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.devices))
	for id := range r.devices {
		out = append(out, id)
	}
	return out
}

// sweep marks devices offline when heartbeats stop arriving
func (r *Registry) sweep() {
	ticker := time.NewTicker(r.heartbeatPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			cutoff := now.Add(-3 * r.heartbeatPeriod)
			degraded := now.Add(-r.heartbeatPeriod)

			r.mu.Lock()
			online := 0
			for id, e := range r.devices {
				switch {
				case e.desc.LastSeen.Before(cutoff):
					if e.desc.Status != types.DeviceOffline {
						r.log.Warn().Str("device_id", id).Msg("device offline")
					}
					e.desc.Status = types.DeviceOffline
				case e.desc.LastSeen.Before(degraded):
					e.desc.Status = types.DeviceDegraded
				default:
					online++
				}
			}
			r.mu.Unlock()
			metrics.DevicesOnline.Set(float64(online))
		}
	}
}

// Close stops the liveness sweeper
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}
