package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyExists is returned when an index is registered twice.
	ErrAlreadyExists = errors.New("catalog: index already registered")
	// ErrNotFound is returned when no index is registered for a key.
	ErrNotFound = errors.New("catalog: index not found")
	// ErrInvalidEntry is returned for entries without segment or field.
	ErrInvalidEntry = errors.New("catalog: invalid entry")
)

// Entry describes one built index.
type Entry struct {
	Segment     string    `json:"segment"`
	Field       string    `json:"field"`
	Blob        string    `json:"blob"`
	Metric      string    `json:"metric"`
	Dimension   int       `json:"dimension"`
	Count       int       `json:"count"`
	Compression string    `json:"compression"`
	Bytes       int64     `json:"bytes"`
	Checksum    uint32    `json:"checksum"`
	CreatedAt   time.Time `json:"created_at"`
}

// Key returns "segment/field".
func (e Entry) Key() string {
	return e.Segment + "/" + e.Field
}

// Validate checks the fields needed to key the entry.
func (e Entry) Validate() error {
	if e.Segment == "" || e.Field == "" {
		return fmt.Errorf("%w: segment and field are required", ErrInvalidEntry)
	}
	return nil
}

// Catalog is a registry of built indexes.
type Catalog interface {
	// Register records e. It fails with ErrAlreadyExists if an entry with
	// the same segment and field exists.
	Register(ctx context.Context, e Entry) error
	// Get returns the entry for segment and field.
	Get(ctx context.Context, segment, field string) (Entry, error)
	// List returns the entries of segment, or of every segment if segment is
	// empty, ordered by segment and field.
	List(ctx context.Context, segment string) ([]Entry, error)
}
