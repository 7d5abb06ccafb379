package badger

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	lru "github.com/hashicorp/golang-lru"

	tpcmm "github.com/TopiaNetwork/topia-wallet/common"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tpbkcmm "github.com/TopiaNetwork/topia-wallet/storage/backend/common"
)

type BadgerBackend struct {
	log   tplog.Logger
	name  string
	cache *lru.ARCCache
	db    *badger.DB
}

// NewBadgerBackend opens <path>/<name>.db. An empty path runs badger in memory.
func NewBadgerBackend(log tplog.Logger, name string, path string, cacheSize int) (*BadgerBackend, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		pathWithName := filepath.Join(path, name+".db")
		if err := os.MkdirAll(pathWithName, 0700); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(pathWithName).WithSyncWrites(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Errorf("can't open badger: name=%s path=%s, err=%v", name, path, err)
		return nil, err
	}

	cache, err := lru.NewARC(cacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BadgerBackend{
		log:   log,
		name:  name,
		cache: cache,
		db:    db,
	}, nil
}

func (b *BadgerBackend) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, tpbkcmm.ErrKeyEmpty
	}
	if val, ok := b.cache.Get(string(key)); ok {
		return tpcmm.BytesCopy(val.([]byte)), nil
	}

	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return nil, tpbkcmm.ErrBackendClosed
	}
	if err != nil {
		return nil, err
	}
	if val == nil {
		val = []byte{}
	}

	b.cache.Add(string(key), tpcmm.BytesCopy(val))
	return val, nil
}

func (b *BadgerBackend) Has(key []byte) (bool, error) {
	val, err := b.Get(key)
	if err != nil {
		return false, err
	}
	return val != nil, nil
}

func (b *BadgerBackend) Set(key, value []byte) error {
	if err := tpbkcmm.ValidateKv(key, value); err != nil {
		return err
	}

	b.cache.Remove(string(key))
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tpcmm.BytesCopy(key), tpcmm.BytesCopy(value))
	})
	if err != nil {
		return err
	}
	b.cache.Add(string(key), tpcmm.BytesCopy(value))
	return nil
}

func (b *BadgerBackend) Delete(key []byte) error {
	if len(key) == 0 {
		return tpbkcmm.ErrKeyEmpty
	}

	b.cache.Remove(string(key))
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Iterator snapshots the prefix inside one read transaction.
func (b *BadgerBackend) Iterator(prefix []byte) (tpbkcmm.Iterator, error) {
	var items []tpbkcmm.KV
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			item := iter.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			items = append(items, tpbkcmm.KV{Key: item.KeyCopy(nil), Value: val})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tpbkcmm.NewSliceIterator(items), nil
}

func (b *BadgerBackend) Close() error {
	b.cache.Purge()
	return b.db.Close()
}
