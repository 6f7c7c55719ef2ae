package kvclient

import "context"

// ResponseHeader is common response header
type ResponseHeader struct {
	// ClusterID is the ID of the cluster which sent the response.
	ClusterID string
	// Revision is the store revision when the request was applied.
	Revision int64
}

// PutResponse is the response of Put
type PutResponse struct {
	Header *ResponseHeader
}

// GetResponse is the response of Get
type GetResponse struct {
	Header *ResponseHeader
	// Kvs is the list of key-value pairs matched by the range request,
	// sorted by key in ascending order.
	Kvs []*KeyValue
}

// DeleteResponse is the response of Delete
type DeleteResponse struct {
	Header *ResponseHeader
	// Deleted is the number of keys deleted by the request.
	Deleted int64
}

// KeyValue is one entry of the store.
type KeyValue struct {
	// Key is the key in bytes. An empty key is not allowed.
	Key []byte
	// Value is the value held by the key, in bytes.
	Value []byte
	// CreateRevision is the revision of last creation on this key.
	CreateRevision int64
	// ModRevision is the revision of last modification on this key.
	// Revisions only increase, so `delete + create` never reuses one.
	ModRevision int64
}

// OpResponse is the union of the responses of a single Op
type OpResponse struct {
	put *PutResponse
	get *GetResponse
	del *DeleteResponse
}

func (op OpResponse) Put() *PutResponse    { return op.put }
func (op OpResponse) Get() *GetResponse    { return op.get }
func (op OpResponse) Del() *DeleteResponse { return op.del }

func (resp *PutResponse) OpResponse() OpResponse {
	return OpResponse{put: resp}
}

func (resp *GetResponse) OpResponse() OpResponse {
	return OpResponse{get: resp}
}

func (resp *DeleteResponse) OpResponse() OpResponse {
	return OpResponse{del: resp}
}

// KV is the key-value interface the storage layer is written against.
type KV interface {
	// Put puts a key-value pair into metastore.
	Put(ctx context.Context, key, val string) (*PutResponse, error)

	// Get retrieves keys.
	// By default, Get will return the value for "key", if any.
	// When passed WithRange(end), Get will return the keys in the range [key, end).
	// When passed WithPrefix(), Get returns keys starting with key.
	// When passed WithFromKey(), Get returns keys greater than or equal to key.
	// When passed WithLimit(limit), the number of returned keys is bounded by limit.
	Get(ctx context.Context, key string, opts ...OpOption) (*GetResponse, error)

	// Delete deletes a key, or optionally using WithRange(end), [key, end).
	Delete(ctx context.Context, key string, opts ...OpOption) (*DeleteResponse, error)
}
