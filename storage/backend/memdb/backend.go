package memdb

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	tpbkcmm "github.com/TopiaNetwork/topia-wallet/storage/backend/common"
	tpcmm "github.com/TopiaNetwork/topia-wallet/common"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
)

const (
	// The approximate number of items and children per B-tree node. Tuned with benchmarks.
	bTreeDegree = 32
)

type item struct {
	key   []byte
	value []byte
}

func (i *item) Less(than btree.Item) bool {
	return bytes.Compare(i.key, than.(*item).key) < 0
}

// MemBackend lives as long as the process does; it backs the session store.
type MemBackend struct {
	log    tplog.Logger
	name   string
	mtx    sync.RWMutex
	btree  *btree.BTree
	closed bool
}

func NewMemDBBackend(log tplog.Logger, name string) *MemBackend {
	return &MemBackend{
		log:   log,
		name:  name,
		btree: btree.New(bTreeDegree),
	}
}

func (b *MemBackend) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, tpbkcmm.ErrKeyEmpty
	}

	b.mtx.RLock()
	defer b.mtx.RUnlock()
	if b.closed {
		return nil, tpbkcmm.ErrBackendClosed
	}

	i := b.btree.Get(&item{key: key})
	if i == nil {
		return nil, nil
	}
	return tpcmm.BytesCopy(i.(*item).value), nil
}

func (b *MemBackend) Has(key []byte) (bool, error) {
	val, err := b.Get(key)
	if err != nil {
		return false, err
	}
	return val != nil, nil
}

func (b *MemBackend) Set(key []byte, value []byte) error {
	if err := tpbkcmm.ValidateKv(key, value); err != nil {
		return err
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()
	if b.closed {
		return tpbkcmm.ErrBackendClosed
	}

	b.btree.ReplaceOrInsert(&item{key: tpcmm.BytesCopy(key), value: tpcmm.BytesCopy(value)})
	return nil
}

func (b *MemBackend) Delete(key []byte) error {
	if len(key) == 0 {
		return tpbkcmm.ErrKeyEmpty
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()
	if b.closed {
		return tpbkcmm.ErrBackendClosed
	}

	b.btree.Delete(&item{key: key})
	return nil
}

func (b *MemBackend) Iterator(prefix []byte) (tpbkcmm.Iterator, error) {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	if b.closed {
		return nil, tpbkcmm.ErrBackendClosed
	}

	var items []tpbkcmm.KV
	b.btree.AscendGreaterOrEqual(&item{key: prefix}, func(i btree.Item) bool {
		it := i.(*item)
		if !bytes.HasPrefix(it.key, prefix) {
			return false
		}
		items = append(items, tpbkcmm.KV{Key: tpcmm.BytesCopy(it.key), Value: tpcmm.BytesCopy(it.value)})
		return true
	})

	return tpbkcmm.NewSliceIterator(items), nil
}

func (b *MemBackend) Close() error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.closed = true
	b.btree.Clear(false)
	return nil
}
