// Package runtime provides the shared agent substrate: capability
// descriptors, connectors, and the bounded scheduler the orchestrator and
// device fan-out share.
package runtime

import (
	"fmt"
	"sync"
)

// Descriptor declares what an agent consumes, produces, and requires.
// The orchestrator wires agents by matching capabilities, never by concrete
// type.
type Descriptor struct {
	Name       string   `json:"name"`
	Inputs     []string `json:"inputs"`
	Outputs    []string `json:"outputs"`
	Connectors []string `json:"connectors"`
}

// Registration pairs a descriptor with the agent handle it describes
type Registration struct {
	Descriptor Descriptor
	Agent      any
}

// CapabilityRegistry indexes agents by the outputs they produce
type CapabilityRegistry struct {
	mu     sync.RWMutex
	agents map[string]Registration // by descriptor name
	byOut  map[string][]string     // output -> descriptor names
}

// NewCapabilityRegistry creates an empty registry
func NewCapabilityRegistry() *CapabilityRegistry {
	return &CapabilityRegistry{
		agents: make(map[string]Registration),
		byOut:  make(map[string][]string),
	}
}

// Register adds an agent under its descriptor. Names must be unique.
func (r *CapabilityRegistry) Register(desc Descriptor, agent any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[desc.Name]; exists {
		return fmt.Errorf("agent already registered: %s", desc.Name)
	}
	r.agents[desc.Name] = Registration{Descriptor: desc, Agent: agent}
	for _, out := range desc.Outputs {
		r.byOut[out] = append(r.byOut[out], desc.Name)
	}
	return nil
}

// Resolve returns the first agent producing the given output
func (r *CapabilityRegistry) Resolve(output string) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.byOut[output]
	if len(names) == 0 {
		return Registration{}, fmt.Errorf("no agent produces %q", output)
	}
	return r.agents[names[0]], nil
}

// Get returns an agent by descriptor name
func (r *CapabilityRegistry) Get(name string) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.agents[name]
	if !ok {
		return Registration{}, fmt.Errorf("agent not found: %s", name)
	}
	return reg, nil
}

// List returns every registered descriptor
func (r *CapabilityRegistry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.agents))
	for _, reg := range r.agents {
		out = append(out, reg.Descriptor)
	}
	return out
}
