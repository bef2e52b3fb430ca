// Package trace holds execution evidence: which lines ran and which
// arcs were taken, per source file and measurement context. It is the
// hand-off point between an external execution monitor and the
// analyzer.
package trace

import "sync"

// DefaultContext is the label measurement starts under.
const DefaultContext = "default"

// Contexts maps measurement context labels to small integer IDs. The
// default context is always ID 0; new labels get the next free ID.
// Safe for concurrent use.
type Contexts struct {
	mu      sync.Mutex
	ids     map[string]int
	labels  map[int]string
	nextID  int
	current int
}

// NewContexts returns a registry with the default context active.
func NewContexts() *Contexts {
	return &Contexts{
		ids:    map[string]int{DefaultContext: 0},
		labels: map[int]string{0: DefaultContext},
		nextID: 1,
	}
}

// Switch makes the given label the active context, registering it with
// a fresh ID when unseen, and returns its ID.
func (c *Contexts) Switch(label string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.ids[label]
	if !ok {
		id = c.nextID
		c.nextID++
		c.ids[label] = id
		c.labels[id] = label
	}
	c.current = id
	return id
}

// Current returns the active context's ID.
func (c *Contexts) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CurrentLabel returns the active context's label.
func (c *Contexts) CurrentLabel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.labels[c.current]
}

// ID returns the ID registered for a label.
func (c *Contexts) ID(label string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[label]
	return id, ok
}

// Label returns the label registered for an ID.
func (c *Contexts) Label(id int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	label, ok := c.labels[id]
	return label, ok
}

// Len returns the number of registered contexts.
func (c *Contexts) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}
