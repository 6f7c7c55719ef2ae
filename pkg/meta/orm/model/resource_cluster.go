package model

// ResourceClusterSpec is the row of a stored resource cluster spec.
type ResourceClusterSpec struct {
	Model
	ClusterID string `gorm:"column:cluster_id;type:varchar(128) not null;uniqueIndex:uidx_cluster_id"`
	Version   int64  `gorm:"column:version;type:bigint not null"`
	// Spec is the json encoded model.ResourceClusterSpecWritable
	Spec string `gorm:"column:spec;type:text not null"`
}

// TableName implements gorm's Tabler.
func (ResourceClusterSpec) TableName() string {
	return "resource_cluster_specs"
}
