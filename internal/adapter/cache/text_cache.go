package cache

import (
	"sync"

	"biblegen/internal/adapter/analyzer"
)

// TextCache memoizes normalization and tokenization by exact input string.
// It belongs to a single mapper and is cleared at the start of each
// generation run.
type TextCache struct {
	mu         sync.RWMutex
	normalized map[string]string
	tokens     map[string]analyzer.TokenSet
	hits       uint64
	misses     uint64
}

func NewTextCache() *TextCache {
	return &TextCache{
		normalized: make(map[string]string),
		tokens:     make(map[string]analyzer.TokenSet),
	}
}

// Normalized returns analyzer.Normalize(text), computing it at most once.
func (c *TextCache) Normalized(text string) string {
	c.mu.RLock()
	s, ok := c.normalized[text]
	c.mu.RUnlock()
	if ok {
		c.recordHit()
		return s
	}

	s = analyzer.Normalize(text)

	c.mu.Lock()
	c.normalized[text] = s
	c.misses++
	c.mu.Unlock()
	return s
}

// Tokens returns the token set of text. Callers must not modify the
// returned set.
func (c *TextCache) Tokens(text string) analyzer.TokenSet {
	c.mu.RLock()
	set, ok := c.tokens[text]
	c.mu.RUnlock()
	if ok {
		c.recordHit()
		return set
	}

	set = analyzer.TokensOf(c.Normalized(text))

	c.mu.Lock()
	c.tokens[text] = set
	c.misses++
	c.mu.Unlock()
	return set
}

// Clear drops every entry and resets the counters.
func (c *TextCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.normalized = make(map[string]string)
	c.tokens = make(map[string]analyzer.TokenSet)
	c.hits = 0
	c.misses = 0
}

// Size returns the number of distinct texts with a cached normalization.
func (c *TextCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.normalized)
}

// Stats returns hit and miss counts since the last Clear.
func (c *TextCache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *TextCache) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}
