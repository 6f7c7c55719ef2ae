package kvclient

import (
	"github.com/hanfei1991/rcmanager/pkg/errors"
)

type opType int

const (
	// A default Op has opType 0, which is invalid.
	tGet opType = iota + 1
	tPut
	tDelete
)

var noPrefixEnd = []byte{0}

// Op represents an Operation that kv can execute.
type Op struct {
	T   opType
	key []byte
	end []byte

	// for range
	limit int64

	// for put
	val []byte

	isOptsWithPrefix  bool
	isOptsWithFromKey bool
	isOptsWithRange   bool
}

// IsPut returns true if the operation is a Put.
func (op Op) IsPut() bool { return op.T == tPut }

// IsGet returns true if the operation is a Get.
func (op Op) IsGet() bool { return op.T == tGet }

// IsDelete returns true if the operation is a Delete.
func (op Op) IsDelete() bool { return op.T == tDelete }

// IsOptsWithPrefix returns true if WithPrefix option is called in the given opts.
func (op Op) IsOptsWithPrefix() bool { return op.isOptsWithPrefix }

// IsOptsWithFromKey returns true if WithFromKey option is called in the given opts.
func (op Op) IsOptsWithFromKey() bool { return op.isOptsWithFromKey }

// IsOptsWithRange returns true if WithRange option is called in the given opts.
func (op Op) IsOptsWithRange() bool { return op.isOptsWithRange }

// KeyBytes returns the byte slice holding the Op's key.
func (op Op) KeyBytes() []byte { return op.key }

// RangeBytes returns the byte slice holding with the Op's range end, if any.
func (op Op) RangeBytes() []byte { return op.end }

// ValueBytes returns the byte slice holding the Op's value, if any.
func (op Op) ValueBytes() []byte { return op.val }

// Limit returns the limit num for `Get` response, if any.
func (op Op) Limit() int64 { return op.limit }

// CheckValidOp rejects conflicting options.
func (op Op) CheckValidOp() error {
	n := 0
	for _, b := range []bool{op.isOptsWithPrefix, op.isOptsWithFromKey, op.isOptsWithRange} {
		if b {
			n++
		}
	}
	if n > 1 {
		return errors.ErrMetaOptionInvalid.GenWithStack("only one of prefix, from-key and range can be set")
	}
	if op.IsPut() && (n > 0 || op.limit != 0) {
		return errors.ErrMetaOptionInvalid.GenWithStack("put does not accept options")
	}
	if op.IsDelete() && op.limit != 0 {
		return errors.ErrMetaOptionInvalid.GenWithStack("delete does not accept a limit")
	}
	return nil
}

// OpGet returns "get" operation based on given key and operation options.
func OpGet(key string, opts ...OpOption) Op {
	ret := Op{T: tGet, key: []byte(key)}
	ret.ApplyOpts(opts)
	return ret
}

// OpDelete returns "delete" operation based on given key and operation options.
func OpDelete(key string, opts ...OpOption) Op {
	ret := Op{T: tDelete, key: []byte(key)}
	ret.ApplyOpts(opts)
	return ret
}

// OpPut returns "put" operation based on given key-value.
func OpPut(key, val string) Op {
	return Op{T: tPut, key: []byte(key), val: []byte(val)}
}

// GetPrefixRangeEnd gets the range end of the prefix.
// 'Get(foo, WithPrefix())' is equal to 'Get(foo, WithRange(GetPrefixRangeEnd(foo))'.
func GetPrefixRangeEnd(prefix string) string {
	return string(getPrefix([]byte(prefix)))
}

func getPrefix(key []byte) []byte {
	end := make([]byte, len(key))
	copy(end, key)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i] = end[i] + 1
			end = end[:i+1]
			return end
		}
	}
	// next prefix does not exist (e.g., 0xffff);
	// default to WithFromKey policy
	return noPrefixEnd
}

// ApplyOpts applies opts in order.
func (op *Op) ApplyOpts(opts []OpOption) {
	for _, opt := range opts {
		opt(op)
	}
}

// OpOption configures Operations like Get, Delete.
type OpOption func(*Op)

// WithLimit limits the number of results to return from 'Get' request.
// If WithLimit is given a 0 limit, it is treated as no limit.
func WithLimit(n int64) OpOption { return func(op *Op) { op.limit = n } }

// WithPrefix enables 'Get', 'Delete' requests to operate
// on the keys with matching prefix. For example, 'Get(foo, WithPrefix())'
// can return 'foo1', 'foo2', and so on.
func WithPrefix() OpOption {
	return func(op *Op) {
		op.isOptsWithPrefix = true
		if len(op.key) == 0 {
			op.key, op.end = []byte{0}, []byte{0}
			return
		}
		op.end = getPrefix(op.key)
	}
}

// WithRange specifies the range of 'Get', 'Delete' requests.
// For example, 'Get' requests with 'WithRange(end)' returns
// the keys in the range [key, end).
// endKey must be lexicographically greater than start key.
func WithRange(endKey string) OpOption {
	return func(op *Op) {
		op.end = []byte(endKey)
		op.isOptsWithRange = true
	}
}

// WithFromKey specifies the range of 'Get', 'Delete' requests
// to be equal or greater than the key in the argument.
func WithFromKey() OpOption {
	return func(op *Op) {
		if len(op.key) == 0 {
			op.key = []byte{0}
		}
		op.end = []byte("\x00")
		op.isOptsWithFromKey = true
	}
}
