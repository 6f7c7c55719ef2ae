package orm

import (
	"context"
	"database/sql"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/meta/metaclient"
	"github.com/hanfei1991/rcmanager/pkg/sqlutil"
)

// Supported sql drivers
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

func gormConfig() *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		Logger: NewOrmLogger(log.L().With(zap.String("component", "orm")),
			WithSlowThreshold(time.Second),
			WithIgnoreTraceRecordNotFoundErr()),
	}
}

// NewMySQLDB creates the schema of mc if needed and opens a gorm DB on it.
func NewMySQLDB(ctx context.Context, mc metaclient.StoreConfigParams, conf sqlutil.DBConfig) (*gorm.DB, error) {
	if err := sqlutil.CreateDatabaseIfNotExists(ctx, mc, conf); err != nil {
		return nil, err
	}
	sqlDB, err := sqlutil.NewSQLDB(DriverMySQL, sqlutil.GenerateDSNByParams(mc, conf, true), conf)
	if err != nil {
		return nil, err
	}
	db, err := newGormMySQL(sqlDB, false)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func newGormMySQL(sqlDB *sql.DB, skipInitializeWithVersion bool) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: skipInitializeWithVersion,
	}), gormConfig())
	if err != nil {
		log.L().Error("create gorm client fail", zap.Error(err))
		return nil, errors.ErrMetaNewClientFail.Wrap(err)
	}
	return db, nil
}

// NewSQLiteDB opens an embedded sqlite DB, dsn ":memory:" keeps it in memory.
func NewSQLiteDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		log.L().Error("create gorm client fail", zap.Error(err))
		return nil, errors.ErrMetaNewClientFail.Wrap(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.ErrMetaNewClientFail.Wrap(err)
	}
	// every connection of an in-memory sqlite sees its own database
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// CloseDB closes the connections of db.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(sqlDB.Close())
}
