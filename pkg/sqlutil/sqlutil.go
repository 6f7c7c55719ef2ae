package sqlutil

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dmysql "github.com/go-sql-driver/mysql"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/meta/metaclient"
)

// CreateDatabaseIfNotExists creates the schema of mc.
func CreateDatabaseIfNotExists(ctx context.Context, mc metaclient.StoreConfigParams, conf DBConfig) error {
	dsn := GenerateDSNByParams(mc, conf, false)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.L().Error("open dsn fail", zap.String("addr", mc.Endpoints[0]), zap.Error(err))
		return errors.ErrMetaOpFail.Wrap(err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	query := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", mc.Schema)
	if _, err = db.ExecContext(ctx, query); err != nil {
		return errors.ErrMetaOpFail.Wrap(err)
	}
	return nil
}

// GenerateDSNByParams adds the default mysql params to the dsn of mc.
// The schema is only included when withDB is true.
func GenerateDSNByParams(mc metaclient.StoreConfigParams, conf DBConfig, withDB bool) string {
	dsnCfg := dmysql.NewConfig()
	if dsnCfg.Params == nil {
		dsnCfg.Params = make(map[string]string, 1)
	}
	dsnCfg.User = mc.User
	dsnCfg.Passwd = mc.Password
	dsnCfg.Net = "tcp"
	if len(mc.Endpoints) > 0 {
		dsnCfg.Addr = mc.Endpoints[0]
	}
	if withDB {
		dsnCfg.DBName = mc.Schema
	}
	dsnCfg.InterpolateParams = true
	dsnCfg.Params["readTimeout"] = conf.ReadTimeout
	dsnCfg.Params["writeTimeout"] = conf.WriteTimeout
	dsnCfg.Params["timeout"] = conf.DialTimeout
	dsnCfg.Params["parseTime"] = "true"
	dsnCfg.Params["loc"] = "Local"

	// dsn format: [username[:password]@][protocol[(address)]]/[dbname]
	return dsnCfg.FormatDSN()
}

// NewSQLDB return sql.DB for specified driver and dsn
func NewSQLDB(driver string, dsn string, conf DBConfig) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		log.L().Error("open dsn fail", zap.String("driver", driver), zap.Error(err))
		return nil, errors.ErrMetaNewClientFail.Wrap(err)
	}

	db.SetConnMaxIdleTime(conf.ConnMaxIdleTime)
	db.SetConnMaxLifetime(conf.ConnMaxLifeTime)
	db.SetMaxIdleConns(conf.MaxIdleConns)
	db.SetMaxOpenConns(conf.MaxOpenConns)
	return db, nil
}
