package source

import (
	"errors"

	"github.com/hupe1980/vecstream/model"
)

var (
	// ErrClosed is returned when using a closed source or iterator.
	ErrClosed = errors.New("source: closed")
	// ErrDocNotFound is returned when deleting a document that does not exist.
	ErrDocNotFound = errors.New("source: document not found")
)

// Source is a collection of fixed-dimension vectors keyed by document.
type Source interface {
	// TotalLiveDocs returns the number of documents not marked deleted.
	TotalLiveDocs() int64

	// Iterator returns a new forward-only cursor over the live documents.
	Iterator() (Iterator, error)
}

// Iterator is a forward-only cursor over live documents.
//
//	it, err := src.Iterator()
//	if err != nil { ... }
//	defer it.Close()
//	for it.Next() {
//	    doc, vec := it.DocID(), it.Vector()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator interface {
	// Next advances to the next live document. It returns false when the
	// cursor is exhausted or an error occurred.
	Next() bool

	// DocID returns the current document id.
	DocID() model.DocID

	// Vector returns the current vector. The slice is only valid until the
	// next call to Next.
	Vector() []float32

	// Err returns the error that stopped iteration, if any.
	Err() error

	// Close releases the cursor.
	Close() error
}

// Collect drains it and returns copies of every (DocID, vector) pair.
// Intended for tests and small sources.
func Collect(it Iterator) ([]model.DocID, [][]float32, error) {
	var (
		ids  []model.DocID
		vecs [][]float32
	)
	for it.Next() {
		ids = append(ids, it.DocID())
		v := it.Vector()
		cp := make([]float32, len(v))
		copy(cp, v)
		vecs = append(vecs, cp)
	}
	return ids, vecs, it.Err()
}
