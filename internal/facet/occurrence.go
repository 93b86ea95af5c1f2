package facet

// Counter hands out occurrence indices for the labels seen at one level under
// one parent selection. Entering a different parent empties it.
type Counter struct {
	scope string
	seen  map[string]int
}

func NewCounter() *Counter {
	return &Counter{seen: map[string]int{}}
}

// Enter scopes the counter to parent, the counter is reset if parent is not
// the path it was previously scoped to.
func (c *Counter) Enter(parent Path) {
	key := parent.Key()
	if key == c.scope && c.seen != nil {
		return
	}
	c.scope = key
	c.Reset()
}

func (c *Counter) Reset() {
	c.seen = map[string]int{}
}

// Next returns the next unused occurrence index for label and marks it used.
func (c *Counter) Next(label string) int {
	occurrence := c.seen[label]
	c.seen[label] = occurrence + 1
	return occurrence
}

// Seen returns how many occurrences of label were handed out in this scope.
func (c *Counter) Seen(label string) int {
	return c.seen[label]
}
