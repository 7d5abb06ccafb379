package backend

import (
	"bytes"

	tpcmm "github.com/TopiaNetwork/topia-wallet/common"
	tpbkcmm "github.com/TopiaNetwork/topia-wallet/storage/backend/common"
)

func prefixed(prefix, key []byte) []byte {
	return append(tpcmm.BytesCopy(prefix), key...)
}

type prefixIterator struct {
	prefix []byte
	source tpbkcmm.Iterator
}

func newPrefixIterator(prefix []byte, source tpbkcmm.Iterator) *prefixIterator {
	return &prefixIterator{
		prefix: prefix,
		source: source,
	}
}

func (itr *prefixIterator) Valid() bool {
	if !itr.source.Valid() {
		return false
	}
	return bytes.HasPrefix(itr.source.Key(), itr.prefix)
}

func (itr *prefixIterator) Next() {
	itr.source.Next()
}

func (itr *prefixIterator) Key() []byte {
	if !itr.Valid() {
		return nil
	}
	return itr.source.Key()[len(itr.prefix):]
}

func (itr *prefixIterator) Value() []byte {
	if !itr.Valid() {
		return nil
	}
	return itr.source.Value()
}

func (itr *prefixIterator) Error() error {
	return itr.source.Error()
}

func (itr *prefixIterator) Close() error {
	return itr.source.Close()
}

// BackendPrefixed scopes every key of the wrapped backend under a fixed namespace. Closing it
// closes the underlying backend.
type BackendPrefixed struct {
	prefix  []byte
	backend tpbkcmm.Backend
}

func NewBackendPrefixed(prefix []byte, backend tpbkcmm.Backend) tpbkcmm.Backend {
	return &BackendPrefixed{
		prefix:  tpcmm.BytesCopy(prefix),
		backend: backend,
	}
}

func (b *BackendPrefixed) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, tpbkcmm.ErrKeyEmpty
	}
	return b.backend.Get(prefixed(b.prefix, key))
}

func (b *BackendPrefixed) Has(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, tpbkcmm.ErrKeyEmpty
	}
	return b.backend.Has(prefixed(b.prefix, key))
}

func (b *BackendPrefixed) Set(key []byte, value []byte) error {
	if err := tpbkcmm.ValidateKv(key, value); err != nil {
		return err
	}
	return b.backend.Set(prefixed(b.prefix, key), value)
}

func (b *BackendPrefixed) Delete(key []byte) error {
	if len(key) == 0 {
		return tpbkcmm.ErrKeyEmpty
	}
	return b.backend.Delete(prefixed(b.prefix, key))
}

func (b *BackendPrefixed) Iterator(prefix []byte) (tpbkcmm.Iterator, error) {
	full := prefixed(b.prefix, prefix)
	iter, err := b.backend.Iterator(full)
	if err != nil {
		return nil, err
	}
	return newPrefixIterator(b.prefix, iter), nil
}

func (b *BackendPrefixed) Close() error {
	return b.backend.Close()
}
