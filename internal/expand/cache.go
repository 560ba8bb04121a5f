package expand

// Cache maps canonical signatures to their placeholder text for the duration
// of one top-level expansion. A signature present in the cache is never
// expanded again within that expansion; it is emitted as its own text. This
// terminates self-referential shapes.
//
// Unions and arrays are never registered; they are only tracked while their
// members are being expanded, which is enough to stop recursion through them.
type Cache struct {
	seen   map[string]string
	active map[string]int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{seen: make(map[string]string), active: make(map[string]int)}
}

// Lookup returns the placeholder registered for sig.
func (c *Cache) Lookup(sig string) (string, bool) {
	text, ok := c.seen[sig]
	return text, ok
}

func (c *Cache) add(sig string) {
	c.seen[sig] = sig
}

// Len returns the number of registered signatures.
func (c *Cache) Len() int {
	return len(c.seen)
}

func (c *Cache) enter(sig string) {
	c.active[sig]++
}

func (c *Cache) leave(sig string) {
	if c.active[sig]--; c.active[sig] <= 0 {
		delete(c.active, sig)
	}
}

func (c *Cache) inProgress(sig string) bool {
	return c.active[sig] > 0
}
