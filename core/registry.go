package core

import (
	"fmt"
	"sort"
	"sync"
)

// ErrAlreadyRegistered reports a duplicate agent id on Register. The original
// registration is left untouched.
type ErrAlreadyRegistered struct{ ID string }

// Error implements the error interface.
func (e *ErrAlreadyRegistered) Error() string {
	return fmt.Sprintf("agent %q is already registered", e.ID)
}

// Registry is a lookup table of agent instances by identifier. It is built
// explicitly and passed to collaborators (scheduler, message bus); there is
// no process-wide default instance. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	agents  map[string]Agent
	emitter *Emitter
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Emitter receives agent:{register,unregister} events. Nil disables emission.
	Emitter *Emitter
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{agents: make(map[string]Agent), emitter: opts.Emitter}
}

// Register adds an agent. A duplicate id is rejected with
// *ErrAlreadyRegistered and the existing registration is kept.
func (r *Registry) Register(a Agent) error {
	if a == nil {
		return fmt.Errorf("cannot register a nil agent")
	}

	r.mu.Lock()
	if _, exists := r.agents[a.ID()]; exists {
		r.mu.Unlock()
		return &ErrAlreadyRegistered{ID: a.ID()}
	}
	r.agents[a.ID()] = a
	r.mu.Unlock()

	ev := NewEvent(EventAgentRegister)
	ev.AgentID = a.ID()
	r.emitter.Emit(ev)

	return nil
}

// Unregister removes an agent by id, reporting whether it was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	_, exists := r.agents[id]
	delete(r.agents, id)
	r.mu.Unlock()

	if exists {
		ev := NewEvent(EventAgentUnregister)
		ev.AgentID = id
		r.emitter.Emit(ev)
	}

	return exists
}

// Get returns the agent registered under id, or false if absent.
func (r *Registry) Get(id string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// IDs returns the registered agent ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
