package scandb

import (
	"fmt"
	"os"

	"github.com/silentpay/spd/scandb/engine"
	"github.com/silentpay/spd/scandb/engine/leveldb"
	"github.com/silentpay/spd/scandb/engine/pebbledb"
)

// Driver opens a storage engine by name.
type Driver struct {
	DbType string
	Open   func(path string, create bool) (engine.Engine, error)
}

// driverList holds all of the known storage backends.
var driverList = []Driver{
	{
		DbType: "leveldb",
		Open:   leveldb.NewDB,
	},
	{
		DbType: "pebble",
		Open: func(path string, create bool) (engine.Engine, error) {
			return pebbledb.NewDB(path, create, 0, 0)
		},
	},
}

// SupportedDrivers returns the names of the known storage backends.
func SupportedDrivers() []string {
	supported := make([]string, 0, len(driverList))
	for _, drv := range driverList {
		supported = append(supported, drv.DbType)
	}
	return supported
}

// OpenEngine opens the engine of type dbType at path, creating the database
// when the path does not exist yet.
func OpenEngine(dbType, path string) (engine.Engine, error) {
	for _, drv := range driverList {
		if drv.DbType != dbType {
			continue
		}

		_, err := os.Stat(path)
		create := os.IsNotExist(err)

		log.Debugf("Opening %s result store at %s (create=%v)", dbType,
			path, create)

		db, err := drv.Open(path, create)
		if err != nil {
			return nil, fmt.Errorf("open %s database: %w", dbType, err)
		}
		return db, nil
	}

	return nil, makeError(ErrUnknownDBType, fmt.Sprintf("unknown database "+
		"type %q, supported: %v", dbType, SupportedDrivers()))
}

// Open opens a result store backed by the engine of type dbType at path.
func Open(dbType, path string) (*ResultStore, error) {
	db, err := OpenEngine(dbType, path)
	if err != nil {
		return nil, err
	}

	return NewResultStore(db), nil
}
