// Package value provides the value model shared by every bindlab package.
//
// This package contains the sealed Value union, the error codes reported by
// the binding core, and canonical serialization helpers. All other internal
// packages import value; value imports nothing internal.
//
// Key design constraints:
//   - Primitives (Number, Text, Bool, Null, Undefined) are copied on assignment
//   - Handle is the only reference type; it names one aggregate in a heap.Store
//   - No implicit coercion between kinds, anywhere
//   - Canonical JSON sorts object keys by UTF-16 code units (RFC 8785)
package value
