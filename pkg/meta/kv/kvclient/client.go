package kvclient

import "context"

// Client holds the resources of a connection to the store.
type Client interface {
	// Close is the method to close the client and release inner resources
	Close() error
}

// KVClient is user interface for kvclient
type KVClient interface {
	Client
	KV
}

// KVEx extend the KV interface with Do method to implement the intermediate layer easier
// [NOTICE]: only use inner
type KVEx interface {
	KV

	// Do applies a single Op on KV without a transaction.
	Do(ctx context.Context, op Op) (OpResponse, error)
}

// KVClientEx extend the KVClient interface with Do method to implement the intermediate layer easier
// [NOTICE]: only use inner
type KVClientEx interface {
	KVEx
	Client
}
