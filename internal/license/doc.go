// Package license tracks the license inventory and its binding state.
//
// Status (self-run, leased-bound, leased-unbound, available) is set
// directly by the operator or by import; there is no transition graph.
// Binding is a narrower state layered on top:
//
//   - isBound flips to true when earnings are ingested for the license's
//     node (MarkBound).
//   - isBound flips to false only through SetBinding. On that transition
//     downtimeDays is computed from lastActive and frozen until the
//     license binds again.
//
// Dormant and Pattern are read-only views computed from earnings history.
// They are independent of the stored isBound flag and may disagree with it.
package license
