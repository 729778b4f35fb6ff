// Package unsafehelpers centralises the unavoidable usage of the `unsafe`
// standard library package so the rest of shmcache stays clean and easier
// to audit. Every helper documents its pre-/post-conditions.
//
// Carried over from arena-cache's own unsafehelpers package; trimmed to the
// one zero-copy conversion shmcache actually exercises (the public API
// accepts string keys but the slot table and value copier work in terms of
// []byte). The reverse conversion isn't needed: comparing a stored []byte
// key against the []byte lookup key is done as string(e.key) == string(key),
// which the compiler already special-cases to avoid allocating.
//
// © 2025 shmcache authors. MIT License.
package unsafehelpers

import "unsafe"

// StringToBytes reinterprets string data as a []byte without allocating.
// The returned slice MUST remain read-only: writing to it mutates Go's
// immutable string storage and is undefined behaviour.
func StringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
