package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryCatalog is an in-process Catalog. Safe for concurrent use.
type MemoryCatalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

var _ Catalog = (*MemoryCatalog)(nil)

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{entries: make(map[string]Entry)}
}

// Register implements Catalog.
func (c *MemoryCatalog) Register(_ context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[e.Key()]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, e.Key())
	}
	c.entries[e.Key()] = e
	return nil
}

// Get implements Catalog.
func (c *MemoryCatalog) Get(_ context.Context, segment, field string) (Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[Entry{Segment: segment, Field: field}.Key()]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s/%s", ErrNotFound, segment, field)
	}
	return e, nil
}

// List implements Catalog.
func (c *MemoryCatalog) List(_ context.Context, segment string) ([]Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Entry
	for _, e := range c.entries {
		if segment == "" || e.Segment == segment {
			out = append(out, e)
		}
	}
	Sort(out)
	return out, nil
}

// Sort orders entries by segment, then field.
func Sort(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Segment != entries[j].Segment {
			return entries[i].Segment < entries[j].Segment
		}
		return entries[i].Field < entries[j].Field
	})
}
