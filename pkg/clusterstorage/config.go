package clusterstorage

import (
	"context"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/meta/kv"
	"github.com/hanfei1991/rcmanager/pkg/meta/metaclient"
	"github.com/hanfei1991/rcmanager/pkg/meta/orm"
	"github.com/hanfei1991/rcmanager/pkg/sqlutil"
)

const defaultNamespace = "resource-clusters"

// Config selects and configures a StorageProvider.
type Config struct {
	Type Type `toml:"type" json:"type"`
	// Namespace is the key prefix of the specs in etcd.
	Namespace string                       `toml:"namespace" json:"namespace"`
	Etcd      metaclient.StoreConfigParams `toml:"etcd" json:"etcd"`
	SQL       SQLConfig                    `toml:"sql" json:"sql"`
}

// SQLConfig configures a SQLStorage.
type SQLConfig struct {
	// Driver is either mysql or sqlite.
	Driver string `toml:"driver" json:"driver"`
	// Path is the sqlite database file, ":memory:" by default.
	Path  string                       `toml:"path" json:"path"`
	Store metaclient.StoreConfigParams `toml:"store" json:"store"`
	Pool  sqlutil.DBConfig             `toml:"pool" json:"pool"`
}

// NewDefaultConfig returns an in-memory storage config.
func NewDefaultConfig() Config {
	return Config{
		Type:      TypeMemory,
		Namespace: defaultNamespace,
		SQL: SQLConfig{
			Driver: orm.DriverSQLite,
			Path:   ":memory:",
			Pool:   sqlutil.NewDefaultDBConfig(),
		},
	}
}

// Adjust validates c and fills the defaults.
func (c *Config) Adjust() error {
	if c.Type == "" {
		c.Type = TypeMemory
	}
	if c.Namespace == "" {
		c.Namespace = defaultNamespace
	}
	switch c.Type {
	case TypeMemory:
	case TypeEtcd:
		c.Etcd.Adjust()
	case TypeSQL:
		switch c.SQL.Driver {
		case orm.DriverMySQL:
			c.SQL.Store.Adjust()
			if c.SQL.Store.Schema == "" {
				return errors.ErrConfigInvalid.GenWithStackByArgs("storage.sql.store.schema is empty")
			}
		case "", orm.DriverSQLite:
			c.SQL.Driver = orm.DriverSQLite
			if c.SQL.Path == "" {
				c.SQL.Path = ":memory:"
			}
		default:
			return errors.ErrConfigInvalid.GenWithStackByArgs("unknown sql driver " + c.SQL.Driver)
		}
	default:
		return errors.ErrMetaStoreTypeUnknown.GenWithStackByArgs(c.Type)
	}
	return nil
}

// NewStorageProvider builds the StorageProvider selected by conf.
func NewStorageProvider(ctx context.Context, conf Config) (StorageProvider, error) {
	log.L().Info("create resource cluster storage",
		zap.String("type", string(conf.Type)))

	switch conf.Type {
	case TypeMemory:
		return NewMemoryStorage(), nil
	case TypeEtcd:
		cli, err := kv.NewKVClient(&conf.Etcd)
		if err != nil {
			return nil, err
		}
		prefixed := kv.NewPrefixKVClient(cli, conf.Namespace)
		if err := kv.Ping(ctx, prefixed); err != nil {
			_ = prefixed.Close()
			return nil, err
		}
		return NewKVStorage(prefixed), nil
	case TypeSQL:
		db, err := openSQL(ctx, conf.SQL)
		if err != nil {
			return nil, err
		}
		s, err := NewSQLStorage(ctx, db)
		if err != nil {
			_ = orm.CloseDB(db)
			return nil, err
		}
		return s, nil
	}
	return nil, errors.ErrMetaStoreTypeUnknown.GenWithStackByArgs(conf.Type)
}
