package layer

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb/geojson"
)

// DefaultMaxSize is the number of layers a registry holds unless told otherwise.
const DefaultMaxSize = 3

// Policy decides what Add does when the registry is full.
type Policy int

const (
	// PolicyEvictOldest closes and removes the oldest layer that is not current.
	PolicyEvictOldest Policy = iota
	// PolicyReject fails the addition with ErrRegistryFull.
	PolicyReject
)

// ParsePolicy reads "evict-oldest" or "reject".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "evict-oldest", "":
		return PolicyEvictOldest, nil
	case "reject":
		return PolicyReject, nil
	}
	return 0, fmt.Errorf("unknown registry policy %q", s)
}

func (p Policy) String() string {
	if p == PolicyReject {
		return "reject"
	}
	return "evict-oldest"
}

// EventKind tells what changed in the registry.
type EventKind int

const (
	Added EventKind = iota
	Removed
	Cleared
	CurrentChanged
	Evicted
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Cleared:
		return "cleared"
	case CurrentChanged:
		return "current changed"
	case Evicted:
		return "evicted"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is sent to subscribers after the layer set changed.
type Event struct {
	Kind EventKind
	ID   string
}

// Registry holds the opened layers by id and tracks the current and
// previous selection. Current and previous always name registered layers
// or are empty.
type Registry struct {
	MaxSize int
	Policy  Policy

	mu       sync.Mutex
	layers   map[string]*Layer
	order    []string
	current  string
	previous string

	subscribers map[int]func(Event)
	nextSub     int
}

// NewRegistry creates a registry bounded to maxSize layers. A maxSize of
// zero or less means unbounded.
func NewRegistry(maxSize int, policy Policy) *Registry {
	return &Registry{
		MaxSize:     maxSize,
		Policy:      policy,
		layers:      map[string]*Layer{},
		subscribers: map[int]func(Event){},
	}
}

// Subscribe registers fn for change events and returns a function that
// removes it again. Events are delivered synchronously after the change.
func (r *Registry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subscribers[id] = fn

	return func() {
		r.mu.Lock()
		delete(r.subscribers, id)
		r.mu.Unlock()
	}
}

func (r *Registry) notify(events []Event) {
	r.mu.Lock()
	subscribers := make([]func(Event), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		subscribers = append(subscribers, fn)
	}
	r.mu.Unlock()

	for _, e := range events {
		for _, fn := range subscribers {
			fn(e)
		}
	}
}

// Add registers l and makes it current, the old current becomes previous.
// Duplicate ids are rejected and leave the registry unchanged.
func (r *Registry) Add(l *Layer) error {
	r.mu.Lock()

	if _, exists := r.layers[l.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateLayer, l.ID)
	}

	var events []Event
	if r.MaxSize > 0 && len(r.layers) >= r.MaxSize {
		if r.Policy == PolicyReject {
			r.mu.Unlock()
			return fmt.Errorf("%w: %d of %d layers", ErrRegistryFull, len(r.layers), r.MaxSize)
		}

		evicted, ok := r.oldestEvictable()
		if !ok {
			r.mu.Unlock()
			return fmt.Errorf("%w: nothing to evict", ErrRegistryFull)
		}
		r.delete(evicted)
		events = append(events, Event{Kind: Evicted, ID: evicted})
	}

	r.layers[l.ID] = l
	r.order = append(r.order, l.ID)
	if r.current != "" {
		r.previous = r.current
	}
	r.current = l.ID

	r.mu.Unlock()

	r.notify(append(events, Event{Kind: Added, ID: l.ID}))
	return nil
}

func (r *Registry) oldestEvictable() (string, bool) {
	for _, id := range r.order {
		if id != r.current {
			return id, true
		}
	}
	return "", false
}

// delete closes and drops a layer and repairs the selection. Removing the
// current layer falls back to previous, and previous is always cleared once
// one of the two is removed, so a second removal leaves no stale selection.
func (r *Registry) delete(id string) {
	l := r.layers[id]
	if err := l.Close(); err != nil {
		logger.Printf("closing %s: %v", id, err)
	}

	delete(r.layers, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	switch id {
	case r.current:
		r.current = r.previous
		r.previous = ""
	case r.previous:
		r.previous = ""
	}
}

// Remove closes and unregisters the layer.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	if _, ok := r.layers[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
	}
	r.delete(id)
	r.mu.Unlock()

	r.notify([]Event{{Kind: Removed, ID: id}})
	return nil
}

// RemoveAll closes and unregisters every layer.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	for _, id := range append([]string(nil), r.order...) {
		r.delete(id)
	}
	r.current, r.previous = "", ""
	r.mu.Unlock()

	r.notify([]Event{{Kind: Cleared}})
}

// SetCurrent selects a registered layer. The old current becomes previous.
func (r *Registry) SetCurrent(id string) error {
	r.mu.Lock()
	if _, ok := r.layers[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
	}
	if r.current != id {
		r.previous = r.current
		r.current = id
	}
	r.mu.Unlock()

	r.notify([]Event{{Kind: CurrentChanged, ID: id}})
	return nil
}

// Current returns the selected layer.
func (r *Registry) Current() (*Layer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.layers[r.current]
	return l, ok
}

// Previous returns the layer that was current before.
func (r *Registry) Previous() (*Layer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.layers[r.previous]
	return l, ok
}

// Get returns the layer registered under id.
func (r *Registry) Get(id string) (*Layer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.layers[id]
	return l, ok
}

// IDs lists the registered ids in insertion order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.order...)
}

// Len is the number of registered layers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.layers)
}

// FootprintCollection exports the footprints of all georeferenced layers.
func (r *Registry) FootprintCollection() *geojson.FeatureCollection {
	r.mu.Lock()
	defer r.mu.Unlock()

	fc := geojson.NewFeatureCollection()
	for _, id := range r.order {
		l := r.layers[id]
		quad, ok := l.Footprint()
		if !ok {
			continue
		}

		f := geojson.NewFeature(quad.Polygon())
		f.Properties["id"] = l.ID
		f.Properties["driver"] = l.Driver
		f.Properties["width"] = l.Width
		f.Properties["height"] = l.Height
		f.Properties["bands"] = len(l.Bands)
		f.Properties["current"] = id == r.current
		fc.Append(f)
	}

	return fc
}
