package common

// Backend is a plain byte-oriented key-value store. Keys and values passed in are read-only for
// the backend; values returned are copies owned by the caller.
type Backend interface {
	// Get returns nil, nil when the key does not exist.
	Get(key []byte) ([]byte, error)

	Has(key []byte) (bool, error)

	// Set upserts the key.
	Set(key, value []byte) error

	// Delete is a no-op for a missing key.
	Delete(key []byte) error

	// Iterator walks all keys sharing prefix in ascending order. A nil prefix walks everything.
	Iterator(prefix []byte) (Iterator, error)

	Close() error
}

// Iterator represents an iterator over a domain of keys. Callers must call Close when done.
type Iterator interface {
	// Valid returns whether the current iterator is valid. Once invalid, the Iterator remains
	// invalid forever.
	Valid() bool

	// Next moves the iterator to the next key in the database, as defined by order of iteration.
	Next()

	// Key returns the key at the current position.
	Key() (key []byte)

	// Value returns the value at the current position.
	Value() (value []byte)

	// Error returns the last error encountered by the iterator, if any.
	Error() error

	// Close closes the iterator, relasing any allocated resources.
	Close() error
}

// KV is one key/value pair of a snapshot.
type KV struct {
	Key   []byte
	Value []byte
}

// sliceIterator iterates an already materialized snapshot.
type sliceIterator struct {
	items []KV
	pos   int
}

// NewSliceIterator serves backends that snapshot a prefix inside a read transaction.
func NewSliceIterator(items []KV) Iterator {
	return &sliceIterator{items: items}
}

func (it *sliceIterator) Valid() bool {
	return it.pos < len(it.items)
}

func (it *sliceIterator) Next() {
	if it.Valid() {
		it.pos++
	}
}

func (it *sliceIterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.items[it.pos].Key
}

func (it *sliceIterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.items[it.pos].Value
}

func (it *sliceIterator) Error() error {
	return nil
}

func (it *sliceIterator) Close() error {
	it.items = nil
	return nil
}

// CountPrefix counts the keys under prefix.
func CountPrefix(b Backend, prefix []byte) (int, error) {
	it, err := b.Iterator(prefix)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	n := 0
	for ; it.Valid(); it.Next() {
		n++
	}
	return n, it.Error()
}
