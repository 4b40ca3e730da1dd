package kv

import (
	"context"
	"fmt"
)

const (
	// DefaultFileRoot is the file driver's directory when Path is empty.
	DefaultFileRoot = ".planetarium"
	// DefaultSQLitePath is the sqlite driver's database when Path is empty.
	DefaultSQLitePath = "planetarium.db"
)

// Config selects and parameterizes a driver.
type Config struct {
	Driver Driver   `yaml:"driver" json:"driver"`
	Path   string   `yaml:"path" json:"path"` // file root or sqlite database
	DSN    string   `yaml:"dsn" json:"dsn"`   // postgres
	S3     S3Config `yaml:"s3" json:"s3"`
}

// Open constructs the Storage described by cfg. An empty driver means file.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFile
	}
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		root := cfg.Path
		if root == "" {
			root = DefaultFileRoot
		}
		return NewFile(root)
	case DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = DefaultSQLitePath
		}
		return OpenSQLite(path)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q: must be one of %v", driver, ValidDrivers)
	}
}
