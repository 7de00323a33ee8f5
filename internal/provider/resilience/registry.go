package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Condition summarizes a provider for readiness and status reporting.
type Condition string

const (
	ConditionUp       Condition = "up"
	ConditionDegraded Condition = "degraded"
	ConditionDown     Condition = "down"
)

// ProviderHealth is a point-in-time view of one provider. Zero times mean
// the outcome has not happened yet.
type ProviderHealth struct {
	Name                string
	CircuitState        gobreaker.State
	ConsecutiveFailures uint32

	Successes uint64
	Failures  uint64

	LastSuccessAt time.Time
	LastFailureAt time.Time
	LastError     string
}

// Condition maps the circuit state: closed is up, half-open is degraded and
// open is down.
func (h ProviderHealth) Condition() Condition {
	switch h.CircuitState {
	case gobreaker.StateHalfOpen:
		return ConditionDegraded
	case gobreaker.StateOpen:
		return ConditionDown
	default:
		return ConditionUp
	}
}

// Registry keeps the outcome history of provider clients. Clients register
// themselves when created with ClientConfig.Registry set.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*outcomes
	now       func() time.Time
}

type outcomes struct {
	client        *Client
	successes     uint64
	failures      uint64
	lastSuccessAt time.Time
	lastFailureAt time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*outcomes),
		now:       time.Now,
	}
}

// Register adds a client under name, replacing any earlier one.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &outcomes{client: client}
}

// Record stores the outcome of one call; a nil err is a success. Unknown
// names are ignored.
func (r *Registry) Record(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.providers[name]
	if !ok {
		return
	}
	if err == nil {
		o.successes++
		o.lastSuccessAt = r.now()
		return
	}
	o.failures++
	o.lastFailureAt = r.now()
	o.lastError = err.Error()
}

// Health returns the current view of one provider.
func (r *Registry) Health(name string) (ProviderHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.providers[name]
	if !ok {
		return ProviderHealth{}, false
	}
	return o.health(name), true
}

// Snapshot returns every provider sorted by name.
func (r *Registry) Snapshot() []ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(r.providers))
	for name, o := range r.providers {
		out = append(out, o.health(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (o *outcomes) health(name string) ProviderHealth {
	h := ProviderHealth{
		Name:          name,
		Successes:     o.successes,
		Failures:      o.failures,
		LastSuccessAt: o.lastSuccessAt,
		LastFailureAt: o.lastFailureAt,
		LastError:     o.lastError,
	}
	if o.client != nil {
		h.CircuitState = o.client.CircuitBreakerState()
		h.ConsecutiveFailures = o.client.CircuitBreakerCounts().ConsecutiveFailures
	}
	return h
}
