// Package testutil provides shared test helper utilities.
package testutil

// Ptr returns a pointer to v. Optional wire fields are modelled as pointers,
// so tests build them inline with this helper.
func Ptr[T any](v T) *T { return &v }

// Bytes returns n bytes filled with the given value. Tests use distinct fill
// values per chunk so payload ordering is visible in assertions.
func Bytes(n int, fill byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return b
}
