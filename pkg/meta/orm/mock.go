package orm

import (
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pingcap/log"
	"gorm.io/gorm"

	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// NewMockDB returns a mysql gorm DB backed by sqlmock.
func NewMockDB() (*gorm.DB, sqlmock.Sqlmock, error) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		log.L().Error("create sql mock fail")
		return nil, nil, errors.ErrMetaNewClientFail.Wrap(err)
	}

	// common execution for orm
	mock.ExpectQuery("SELECT VERSION()").WillReturnRows(sqlmock.NewRows(
		[]string{"VERSION()"}).AddRow("5.7.35-log"))

	db, err := newGormMySQL(sqlDB, false)
	if err != nil {
		log.L().Error("create gorm client fail")
		return nil, nil, err
	}
	return db, mock, nil
}
