package clusterstorage

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/meta/orm"
)

func TestSQLStorageQueryFailure(t *testing.T) {
	t.Parallel()

	db, mock, err := orm.NewMockDB()
	require.NoError(t, err)
	s := &SQLStorage{db: db}

	mock.ExpectQuery("SELECT \\* FROM `resource_cluster_specs`").
		WillReturnError(errors.New("connection reset"))
	_, err = s.GetRegisteredResourceClustersWritable(context.Background())
	require.True(t, errors.ErrMetaOpFail.Equal(err))
	require.Contains(t, err.Error(), "connection reset")

	mock.ExpectQuery("SELECT \\* FROM `resource_cluster_specs` WHERE cluster_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"seq_id", "cluster_id", "version", "spec"}))
	_, err = s.GetResourceClusterSpecWritable(context.Background(), "c1")
	require.True(t, errors.ErrClusterSpecNotFound.Equal(err))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()
	_, err = s.RegisterAndUpdateClusterSpec(context.Background(), newSpec("c1", "alice"))
	require.True(t, errors.ErrMetaOpFail.Equal(err))

	require.NoError(t, mock.ExpectationsWereMet())
}
