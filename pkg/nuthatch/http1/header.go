package http1

import (
	"github.com/tommika/nuthatch/pkg/nuthatch/bytesutil"
)

// Header is a case-insensitive Name -> Value mapping. Keys are stored
// lower-cased on insertion (C2's responsibility); lookups lower-case their
// argument so that Get("Host"), Get("host"), and Get("HOST") agree, per
// SPEC_FULL.md invariant 5.
//
// Unlike the teacher's http11/header.go, which backs this with a fixed
// 32-slot inline array plus a map overflow to chase zero-allocation
// microbenchmarks, this implementation is a plain map: this server parses
// one request per connection with no keep-alive request loop to amortize
// the array's allocation savings over, and a hand-rolled fixed-array
// bookkeeping path is a correctness liability with no test-running feedback
// loop to catch an off-by-one in it.
type Header map[string]string

// NewHeader returns an empty Header ready for Add.
func NewHeader() Header {
	return make(Header)
}

// Add inserts name/value, lower-casing name and overwriting any prior entry
// for the same name (per SPEC_FULL.md §3, "Duplicate names overwrite").
func (h Header) Add(name, value []byte) {
	key := string(bytesutil.ToLower(append([]byte(nil), name...)))
	h[key] = string(value)
}

// Get returns the value for name, case-insensitively, and whether it was
// present.
func (h Header) Get(name string) (string, bool) {
	key := string(bytesutil.ToLower([]byte(name)))
	v, ok := h[key]
	return v, ok
}

// GetDefault returns the value for name or def if absent.
func (h Header) GetDefault(name, def string) string {
	if v, ok := h.Get(name); ok {
		return v
	}
	return def
}
