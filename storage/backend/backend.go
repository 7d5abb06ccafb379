package backend

import (
	"fmt"
	"strings"

	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tplogcmm "github.com/TopiaNetwork/topia-wallet/log/common"
	"github.com/TopiaNetwork/topia-wallet/storage/backend/badger"
	tpbkcmm "github.com/TopiaNetwork/topia-wallet/storage/backend/common"
	"github.com/TopiaNetwork/topia-wallet/storage/backend/leveldb"
	"github.com/TopiaNetwork/topia-wallet/storage/backend/memdb"
)

type BackendType int

const (
	BackendType_Unknown BackendType = iota
	BackendType_Leveldb
	BackendType_Badger
	BackendType_Memdb
)

const (
	DefaultCacheSize = 1024
)

var backendTypeNames = map[BackendType]string{
	BackendType_Leveldb: "leveldb",
	BackendType_Badger:  "badger",
	BackendType_Memdb:   "memdb",
}

func (t BackendType) String() string {
	if name, ok := backendTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

func ParseBackendType(s string) (BackendType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range backendTypeNames {
		if name == s {
			return t, nil
		}
	}
	return BackendType_Unknown, fmt.Errorf("unknown backend type %q", s)
}

// NewBackend opens a backend of the given type. Leveldb and badger store data under <path>/<name>.db
// and fall back to memory when path is empty.
func NewBackend(backendType BackendType, log tplog.Logger, path string, name string) (tpbkcmm.Backend, error) {
	bLog := tplog.CreateModuleLogger(tplogcmm.InfoLevel, "StorageBackend", log)

	switch backendType {
	case BackendType_Leveldb:
		return leveldb.NewLeveldbBackend(bLog, name, path, DefaultCacheSize)
	case BackendType_Badger:
		return badger.NewBadgerBackend(bLog, name, path, DefaultCacheSize)
	case BackendType_Memdb:
		return memdb.NewMemDBBackend(bLog, name), nil
	default:
		bLog.Errorf("Invalid backend type %d", backendType)
		return nil, fmt.Errorf("invalid backend type %d", backendType)
	}
}
