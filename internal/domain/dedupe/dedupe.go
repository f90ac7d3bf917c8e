// Package dedupe tracks identifiers seen within a scope, such as one source table.
package dedupe

// Deduper records identifiers per scope so repeated rows can be reported.
type Deduper interface {
	// SeenAndRecord checks whether id was already recorded in scope and
	// records it with row if not. When it was seen, firstRow is the row
	// that recorded it first.
	SeenAndRecord(scope, id string, row int) (firstRow int, seen bool)
}

type key struct {
	scope string
	id    string
}

// inMemoryDeduper implements Deduper with a map keyed by (scope, id).
// It is not safe for concurrent use; one reconcile pass owns it.
type inMemoryDeduper struct {
	seen     map[key]int
	capacity int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[key]int, d.capacity)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(scope, id string, row int) (int, bool) {
	k := key{scope: scope, id: id}
	if first, ok := d.seen[k]; ok {
		return first, true
	}
	d.seen[k] = row
	return 0, false
}
