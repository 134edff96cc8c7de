package policy

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spacefoot/pricer/internal/pricing"
)

// DefaultProfile names the profile served when no policy file is configured.
const DefaultProfile = "default"

// ErrUnknownProfile is returned when a profile name is not registered.
var ErrUnknownProfile = errors.New("policy: unknown profile")

// Entry is one registered profile. Revision starts at 1 and grows with every
// replacement of the policy. Fingerprint depends on the settings only.
type Entry struct {
	Name        string
	Policy      *pricing.Policy
	Revision    uint64
	Fingerprint string
	UpdatedAt   time.Time
}

type snapshot struct {
	entries map[string]Entry
	names   []string
}

// Registry serves named policies. Reads load an immutable snapshot without
// locking; writers serialise on a mutex and publish a fresh snapshot.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
	now  func() time.Time
}

// NewRegistry registers the given policies at revision 1.
func NewRegistry(policies map[string]*pricing.Policy) *Registry {
	r := &Registry{now: time.Now}
	entries := make(map[string]Entry, len(policies))
	at := r.now().UTC()
	for name, p := range policies {
		entries[name] = Entry{Name: name, Policy: p, Revision: 1, Fingerprint: Fingerprint(p), UpdatedAt: at}
	}
	r.publish(entries)
	return r
}

// NewDefaultRegistry registers a single profile built from policy defaults.
func NewDefaultRegistry(name string) (*Registry, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, err := pricing.NewPolicy()
	if err != nil {
		return nil, err
	}
	return NewRegistry(map[string]*pricing.Policy{name: p}), nil
}

// FromFile loads, validates and registers every profile of a YAML file.
func FromFile(path string) (*Registry, error) {
	f, err := LoadAndValidate(path)
	if err != nil {
		return nil, err
	}
	policies, err := f.Build()
	if err != nil {
		return nil, err
	}
	return NewRegistry(policies), nil
}

func (r *Registry) publish(entries map[string]Entry) {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	r.snap.Store(&snapshot{entries: entries, names: names})
}

// Get returns the current entry of a profile.
func (r *Registry) Get(name string) (Entry, error) {
	entry, ok := r.snap.Load().entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return entry, nil
}

// Names returns the registered profile names in lexical order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.snap.Load().names...)
}

// Entries returns every registered entry ordered by name.
func (r *Registry) Entries() []Entry {
	snap := r.snap.Load()
	out := make([]Entry, 0, len(snap.names))
	for _, name := range snap.names {
		out = append(out, snap.entries[name])
	}
	return out
}

// Put registers or replaces a profile and bumps its revision.
func (r *Registry) Put(name string, p *pricing.Policy) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.putLocked(name, p)
}

func (r *Registry) putLocked(name string, p *pricing.Policy) Entry {
	current := r.snap.Load().entries
	next := make(map[string]Entry, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	entry := Entry{
		Name:        name,
		Policy:      p,
		Revision:    current[name].Revision + 1,
		Fingerprint: Fingerprint(p),
		UpdatedAt:   r.now().UTC(),
	}
	next[name] = entry
	r.publish(next)
	return entry
}

// Update applies a partial patch to an existing profile. The stored policy is
// replaced only when the patched policy is valid.
func (r *Registry) Update(name string, patch Patch) (Entry, error) {
	opts, err := patch.Options()
	if err != nil {
		return Entry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.snap.Load().entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	next, err := entry.Policy.With(opts...)
	if err != nil {
		return Entry{}, err
	}
	return r.putLocked(name, next), nil
}
