package model

import (
	"encoding/json"
	"strings"

	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// EnvType is the environment a resource cluster is deployed to.
type EnvType string

// All EnvTypes
const (
	EnvTypeProd EnvType = "Prod"
	EnvTypeTest EnvType = "Test"
	EnvTypeQA   EnvType = "Qa"
)

// SkuCapacity is the size range of one SKU inside a cluster.
type SkuCapacity struct {
	SkuID      string `json:"skuId"`
	MinSize    int    `json:"minSize"`
	MaxSize    int    `json:"maxSize"`
	DesireSize int    `json:"desireSize"`
}

// SkuTypeSpec declares one kind of machine a cluster is made of.
type SkuTypeSpec struct {
	SkuID             string            `json:"skuId"`
	Capacity          SkuCapacity       `json:"capacity"`
	ImageID           string            `json:"imageId"`
	CPUCoreCount      int               `json:"cpuCoreCount"`
	MemorySizeInMB    int               `json:"memorySizeInMB"`
	NetworkMbps       int               `json:"networkMbps"`
	DiskSizeInMB      int               `json:"diskSizeInMB"`
	SkuMetadataFields map[string]string `json:"skuMetadataFields,omitempty"`
}

// MachineDefinition returns the shape every executor of this SKU offers.
func (s *SkuTypeSpec) MachineDefinition() MachineDefinition {
	return MachineDefinition{
		CPUCores:    float64(s.CPUCoreCount),
		MemoryMB:    float64(s.MemorySizeInMB),
		NetworkMbps: float64(s.NetworkMbps),
		DiskMB:      float64(s.DiskSizeInMB),
		NumPorts:    len(DefaultWorkerPorts().Ports()),
	}
}

// ResourceClusterSpec is the declarative description of a resource cluster.
type ResourceClusterSpec struct {
	Name                  string            `json:"name"`
	ID                    ClusterID         `json:"id"`
	OwnerName             string            `json:"ownerName"`
	OwnerEmail            string            `json:"ownerEmail"`
	EnvType               EnvType           `json:"envType"`
	SkuSpecs              []SkuTypeSpec     `json:"skuSpecs"`
	ClusterMetadataFields map[string]string `json:"clusterMetadataFields,omitempty"`
}

// Validate checks the spec can be persisted.
func (s *ResourceClusterSpec) Validate() error {
	if s == nil {
		return errors.ErrInvalidArgument.GenWithStackByArgs("cluster spec is nil")
	}
	for _, sku := range s.SkuSpecs {
		if strings.TrimSpace(sku.SkuID) == "" {
			return errors.ErrInvalidArgument.GenWithStackByArgs("sku id is empty")
		}
		c := sku.Capacity
		if c.MinSize < 0 || c.MinSize > c.MaxSize {
			return errors.ErrInvalidArgument.GenWithStackByArgs("invalid capacity of sku " + sku.SkuID)
		}
	}
	return nil
}

// Sku returns the spec of the given SKU.
func (s *ResourceClusterSpec) Sku(skuID string) (*SkuTypeSpec, bool) {
	for i := range s.SkuSpecs {
		if s.SkuSpecs[i].SkuID == skuID {
			return &s.SkuSpecs[i], true
		}
	}
	return nil, false
}

// ResourceClusterSpecWritable is the persisted record of a cluster spec.
// Version is empty until the storage provider assigns one.
type ResourceClusterSpecWritable struct {
	ID          ClusterID           `json:"id"`
	Version     string              `json:"version"`
	ClusterSpec ResourceClusterSpec `json:"clusterSpec"`
}

// ToJSON encodes the writable for a KV store.
func (w *ResourceClusterSpecWritable) ToJSON() (string, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return "", errors.ErrEncodeFailed.Wrap(err).GenWithStackByArgs("resource cluster spec")
	}
	return string(data), nil
}

// ResourceClusterSpecWritableFromJSON decodes a writable encoded by ToJSON.
func ResourceClusterSpecWritableFromJSON(data []byte) (*ResourceClusterSpecWritable, error) {
	var w ResourceClusterSpecWritable
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.ErrDecodeFailed.Wrap(err).GenWithStackByArgs("resource cluster spec")
	}
	return &w, nil
}

// RegisteredResourceCluster is an entry of the cluster list.
type RegisteredResourceCluster struct {
	ID      ClusterID `json:"id"`
	Version string    `json:"version"`
}
