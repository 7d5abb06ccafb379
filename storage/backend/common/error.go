package common

import (
	"errors"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrKeyEmpty is returned when attempting to use an empty or nil key.
	ErrKeyEmpty = errors.New("key cannot be empty")

	// ErrValueNil is returned when attempting to set a nil value.
	ErrValueNil = errors.New("value cannot be nil")

	// ErrBackendClosed is returned when a closed backend is used.
	ErrBackendClosed = errors.New("backend has been closed")

	// ErrIteratorInvalid is returned by Key/Value on an exhausted iterator.
	ErrIteratorInvalid = errors.New("iterator is not valid")
)

func ValidateKv(key, value []byte) error {
	if len(key) == 0 {
		return ErrKeyEmpty
	}
	if value == nil {
		return ErrValueNil
	}
	return nil
}

// CombineErrors folds also into ret, keeping both when both are set.
func CombineErrors(ret error, also error) error {
	if also == nil {
		return ret
	}
	if ret == nil {
		return also
	}
	return multierror.Append(ret, also)
}

