package discovery

import (
	"sort"
	"sync"
)

// Registry is the local set of known peers keyed by instance name.
type Registry struct {
	mu      sync.RWMutex
	records map[string]ServiceInfo
}

func NewRegistry() *Registry {
	return &Registry{records: make(map[string]ServiceInfo)}
}

// Add inserts s unless a record with the same name exists.
func (r *Registry) Add(s ServiceInfo) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[s.Name]; exists {
		return false
	}
	r.records[s.Name] = s
	return true
}

func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[name]; !exists {
		return false
	}
	delete(r.records, name)
	return true
}

// Replace makes the registry match snapshot: missing names are removed and new
// ones added. The first record wins when snapshot repeats a name.
func (r *Registry) Replace(snapshot []ServiceInfo) {
	next := make(map[string]ServiceInfo, len(snapshot))
	for _, s := range snapshot {
		if _, exists := next[s.Name]; !exists {
			next[s.Name] = s
		}
	}
	r.mu.Lock()
	r.records = next
	r.mu.Unlock()
}

func (r *Registry) Lookup(name string) (ServiceInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.records[name]
	return s, ok
}

// Snapshot returns the records sorted by name.
func (r *Registry) Snapshot() []ServiceInfo {
	r.mu.RLock()
	out := make([]ServiceInfo, 0, len(r.records))
	for _, s := range r.records {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
