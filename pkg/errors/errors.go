package errors

import (
	"github.com/pingcap/errors"
)

// Re-exported helpers so that callers only import this package.
var (
	Trace    = errors.Trace
	Annotate = errors.Annotate
	Errorf   = errors.Errorf
	New      = errors.New
	Cause    = errors.Cause
)

// all resource cluster manager errors
var (
	// general errors
	ErrUnknown = errors.Normalize(
		"unknown error",
		errors.RFCCodeText("RCM:ErrUnknown"),
	)
	ErrInvalidArgument = errors.Normalize(
		"invalid argument: %s",
		errors.RFCCodeText("RCM:ErrInvalidArgument"),
	)
	ErrEncodeFailed = errors.Normalize(
		"encode failed: %s",
		errors.RFCCodeText("RCM:ErrEncodeFailed"),
	)
	ErrDecodeFailed = errors.Normalize(
		"decode failed: %s",
		errors.RFCCodeText("RCM:ErrDecodeFailed"),
	)
	ErrRequestPanicked = errors.Normalize(
		"internal error while handling %s: %v",
		errors.RFCCodeText("RCM:ErrRequestPanicked"),
	)

	// task executor registry errors
	ErrUnknownTaskExecutor = errors.Normalize(
		"task executor %s has never registered",
		errors.RFCCodeText("RCM:ErrUnknownTaskExecutor"),
	)
	ErrTaskExecutorNotFound = errors.Normalize(
		"task executor not found: %s",
		errors.RFCCodeText("RCM:ErrTaskExecutorNotFound"),
	)
	ErrNoResourceAvailable = errors.Normalize(
		"no task executor in cluster %s can satisfy %s",
		errors.RFCCodeText("RCM:ErrNoResourceAvailable"),
	)
	ErrTaskExecutorClusterMismatch = errors.Normalize(
		"task executor %s belongs to cluster %s, not %s",
		errors.RFCCodeText("RCM:ErrTaskExecutorClusterMismatch"),
	)
	ErrResourceClusterNotFound = errors.Normalize(
		"resource cluster not found: %s",
		errors.RFCCodeText("RCM:ErrResourceClusterNotFound"),
	)
	ErrResourceClusterClosed = errors.Normalize(
		"resource cluster %s is closed",
		errors.RFCCodeText("RCM:ErrResourceClusterClosed"),
	)

	// host manager errors
	ErrClusterSpecNotFound = errors.Normalize(
		"resource cluster spec not found: %s",
		errors.RFCCodeText("RCM:ErrClusterSpecNotFound"),
	)
	ErrHostManagerClosed = errors.Normalize(
		"resource cluster host manager is closed",
		errors.RFCCodeText("RCM:ErrHostManagerClosed"),
	)

	// meta store related errors
	ErrMetaNewClientFail = errors.Normalize(
		"create meta client fail",
		errors.RFCCodeText("RCM:ErrMetaNewClientFail"),
	)
	ErrMetaOpFail = errors.Normalize(
		"meta operation fail",
		errors.RFCCodeText("RCM:ErrMetaOpFail"),
	)
	ErrMetaOptionInvalid = errors.Normalize(
		"meta option invalid",
		errors.RFCCodeText("RCM:ErrMetaOptionInvalid"),
	)
	ErrMetaStoreTypeUnknown = errors.Normalize(
		"unknown storage type: %s",
		errors.RFCCodeText("RCM:ErrMetaStoreTypeUnknown"),
	)

	// provider related errors
	ErrProviderNotConfigured = errors.Normalize(
		"no resource cluster provider is configured, cannot %s",
		errors.RFCCodeText("RCM:ErrProviderNotConfigured"),
	)
	ErrProviderTypeUnknown = errors.Normalize(
		"unknown provider type: %s",
		errors.RFCCodeText("RCM:ErrProviderTypeUnknown"),
	)
	ErrProviderOpFail = errors.Normalize(
		"resource cluster provider operation %s fail",
		errors.RFCCodeText("RCM:ErrProviderOpFail"),
	)
	ErrProviderUnknownSku = errors.Normalize(
		"cluster %s has no sku %s",
		errors.RFCCodeText("RCM:ErrProviderUnknownSku"),
	)

	// gateway and agent errors
	ErrGatewayOpFail = errors.Normalize(
		"executor gateway operation %s fail",
		errors.RFCCodeText("RCM:ErrGatewayOpFail"),
	)
	ErrAgentRegisterFail = errors.Normalize(
		"task executor %s failed to register",
		errors.RFCCodeText("RCM:ErrAgentRegisterFail"),
	)

	// config related errors
	ErrConfigDecodeFile = errors.Normalize(
		"decode config file failed",
		errors.RFCCodeText("RCM:ErrConfigDecodeFile"),
	)
	ErrConfigUnknownItem = errors.Normalize(
		"config contains unknown configuration options: %s",
		errors.RFCCodeText("RCM:ErrConfigUnknownItem"),
	)
	ErrConfigInvalid = errors.Normalize(
		"invalid config: %s",
		errors.RFCCodeText("RCM:ErrConfigInvalid"),
	)
)
