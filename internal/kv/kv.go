package kv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"syscall"
)

// Driver identifies a storage backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite"
	DriverS3       Driver = "s3"
	DriverPostgres Driver = "postgres"
)

// ValidDrivers lists the drivers accepted by Open.
var ValidDrivers = []Driver{DriverMemory, DriverFile, DriverSQLite, DriverS3, DriverPostgres}

// Storage is a minimal key-value store.
type Storage interface {
	// Get returns the value for key. A missing key is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases the backend's resources.
	Close() error
}

// ErrStoragePathUnavailable reports that the storage location itself cannot be
// used. Drivers return it (wrapped) when they detect the condition directly.
var ErrStoragePathUnavailable = errors.New("storage path unavailable")

// ErrInvalidKey is returned for keys that cannot be mapped onto every backend.
var ErrInvalidKey = errors.New("invalid storage key")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,200}$`)

// ValidateKey checks that key is portable across drivers.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// IsPathFault reports whether err means the storage location is unusable,
// as opposed to a transient I/O failure.
func IsPathFault(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStoragePathUnavailable) || errors.Is(err, fs.ErrPermission) {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.ENOTDIR, syscall.EROFS, syscall.EACCES, syscall.ENOSPC} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
