package clusterstorage

import (
	"context"
	stderrors "errors"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hanfei1991/rcmanager/model"
	"github.com/hanfei1991/rcmanager/pkg/errors"
	"github.com/hanfei1991/rcmanager/pkg/meta/orm"
	ormModel "github.com/hanfei1991/rcmanager/pkg/meta/orm/model"
)

var globalModels = []interface{}{
	&ormModel.ResourceClusterSpec{},
	&ormModel.LogicEpoch{},
}

// SQLStorage stores specs in a mysql compatible database (or sqlite).
// Versions come from a logic epoch bumped in the same transaction as the
// write, so they are never reused.
type SQLStorage struct {
	// gorm claim to be thread safe
	db *gorm.DB
}

// NewSQLStorage creates the tables if needed.
func NewSQLStorage(ctx context.Context, db *gorm.DB) (*SQLStorage, error) {
	if err := db.WithContext(ctx).AutoMigrate(globalModels...); err != nil {
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}
	if err := ormModel.InitializeEpoch(ctx, db); err != nil {
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}
	return &SQLStorage{db: db}, nil
}

func (s *SQLStorage) RegisterAndUpdateClusterSpec(
	ctx context.Context, spec *model.ResourceClusterSpecWritable,
) (*model.ResourceClusterSpecWritable, error) {
	stored, err := cloneWritable(spec)
	if err != nil {
		return nil, err
	}
	stored.Version = ""
	val, err := stored.ToJSON()
	if err != nil {
		return nil, err
	}

	var version int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		epoch, err := ormModel.GenEpoch(ctx, tx)
		if err != nil {
			return err
		}
		row := &ormModel.ResourceClusterSpec{
			ClusterID: string(stored.ID),
			Version:   epoch,
			Spec:      val,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cluster_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"version", "spec", "updated_at"}),
		}).Create(row).Error; err != nil {
			return err
		}
		version = epoch
		return nil
	})
	if err != nil {
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}

	stored.Version = strconv.FormatInt(version, 10)
	return stored, nil
}

func (s *SQLStorage) GetResourceClusterSpecWritable(
	ctx context.Context, id model.ClusterID,
) (*model.ResourceClusterSpecWritable, error) {
	var row ormModel.ResourceClusterSpec
	err := s.db.WithContext(ctx).Where("cluster_id = ?", string(id)).First(&row).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrClusterSpecNotFound.GenWithStackByArgs(id)
		}
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}
	return decodeRow(&row)
}

func (s *SQLStorage) GetRegisteredResourceClustersWritable(
	ctx context.Context,
) (map[model.ClusterID]*model.ResourceClusterSpecWritable, error) {
	var rows []*ormModel.ResourceClusterSpec
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}
	ret := make(map[model.ClusterID]*model.ResourceClusterSpecWritable, len(rows))
	for _, row := range rows {
		w, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		ret[w.ID] = w
	}
	return ret, nil
}

func (s *SQLStorage) DeregisterCluster(ctx context.Context, id model.ClusterID) error {
	err := s.db.WithContext(ctx).
		Where("cluster_id = ?", string(id)).
		Delete(&ormModel.ResourceClusterSpec{}).Error
	if err != nil {
		return errors.ErrMetaOpFail.Wrap(err)
	}
	return nil
}

func (s *SQLStorage) Close() error {
	return orm.CloseDB(s.db)
}

func decodeRow(row *ormModel.ResourceClusterSpec) (*model.ResourceClusterSpecWritable, error) {
	w, err := model.ResourceClusterSpecWritableFromJSON([]byte(row.Spec))
	if err != nil {
		return nil, err
	}
	w.Version = strconv.FormatInt(row.Version, 10)
	return w, nil
}

func openSQL(ctx context.Context, conf SQLConfig) (*gorm.DB, error) {
	if conf.Driver == orm.DriverMySQL {
		return orm.NewMySQLDB(ctx, conf.Store, conf.Pool)
	}
	return orm.NewSQLiteDB(conf.Path)
}
