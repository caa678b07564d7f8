// Package codec serializes cache entry values for byte-oriented stores.
//
// Values held by the engine have heterogeneous types (a plain query and its
// accumulated pages share one store), so a Codec marshals any value and
// unmarshals into a caller-supplied destination pointer.
package codec

// Codec encodes values to []byte and decodes them back into dst (a pointer).
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, dst any) error
}
