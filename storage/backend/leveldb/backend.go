package leveldb

import (
	"errors"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	tpcmm "github.com/TopiaNetwork/topia-wallet/common"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tpbkcmm "github.com/TopiaNetwork/topia-wallet/storage/backend/common"
)

type LeveldbBackend struct {
	log   tplog.Logger
	name  string
	cache *lru.ARCCache
	db    *leveldb.DB
}

// NewLeveldbBackend opens <path>/<name>.db. An empty path keeps the database in memory.
func NewLeveldbBackend(log tplog.Logger, name string, path string, cacheSize int) (*LeveldbBackend, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		pathWithName := filepath.Join(path, name+".db")
		if err = os.MkdirAll(pathWithName, 0700); err != nil {
			return nil, err
		}
		db, err = leveldb.OpenFile(pathWithName, nil)
	}
	if err != nil {
		log.Errorf("Create leveldb %s error %v, dbPath=%s", name, err, path)
		return nil, err
	}

	cache, err := lru.NewARC(cacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &LeveldbBackend{
		log:   log,
		name:  name,
		cache: cache,
		db:    db,
	}, nil
}

func (b *LeveldbBackend) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, tpbkcmm.ErrKeyEmpty
	}
	if val, ok := b.cache.Get(string(key)); ok {
		return tpcmm.BytesCopy(val.([]byte)), nil
	}

	val, err := b.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if errors.Is(err, leveldb.ErrClosed) {
		return nil, tpbkcmm.ErrBackendClosed
	}
	if err != nil {
		return nil, err
	}

	b.cache.Add(string(key), tpcmm.BytesCopy(val))
	return val, nil
}

func (b *LeveldbBackend) Has(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, tpbkcmm.ErrKeyEmpty
	}
	if b.cache.Contains(string(key)) {
		return true, nil
	}
	return b.db.Has(key, nil)
}

func (b *LeveldbBackend) Set(key []byte, value []byte) error {
	if err := tpbkcmm.ValidateKv(key, value); err != nil {
		return err
	}

	b.cache.Remove(string(key))
	if err := b.db.Put(key, value, &opt.WriteOptions{Sync: true}); err != nil {
		return err
	}
	b.cache.Add(string(key), tpcmm.BytesCopy(value))
	return nil
}

func (b *LeveldbBackend) Delete(key []byte) error {
	if len(key) == 0 {
		return tpbkcmm.ErrKeyEmpty
	}

	b.cache.Remove(string(key))
	return b.db.Delete(key, &opt.WriteOptions{Sync: true})
}

func (b *LeveldbBackend) Iterator(prefix []byte) (tpbkcmm.Iterator, error) {
	var rng *util.Range
	if len(prefix) > 0 {
		rng = util.BytesPrefix(prefix)
	}
	it := b.db.NewIterator(rng, nil)
	return newLeveldbIterator(it), nil
}

func (b *LeveldbBackend) Close() error {
	b.cache.Purge()
	return b.db.Close()
}

type leveldbIterator struct {
	source iterator.Iterator
	valid  bool
}

func newLeveldbIterator(source iterator.Iterator) *leveldbIterator {
	return &leveldbIterator{
		source: source,
		valid:  source.First(),
	}
}

func (it *leveldbIterator) Valid() bool {
	return it.valid
}

func (it *leveldbIterator) Next() {
	if it.valid {
		it.valid = it.source.Next()
	}
}

func (it *leveldbIterator) Key() []byte {
	if !it.valid {
		return nil
	}
	return tpcmm.BytesCopy(it.source.Key())
}

func (it *leveldbIterator) Value() []byte {
	if !it.valid {
		return nil
	}
	return tpcmm.BytesCopy(it.source.Value())
}

func (it *leveldbIterator) Error() error {
	return it.source.Error()
}

func (it *leveldbIterator) Close() error {
	it.source.Release()
	it.valid = false
	return nil
}
