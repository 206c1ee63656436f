// Package record defines the two persisted record types of nodeledger,
// earnings and licenses, together with the helpers every other package
// shares: date and amount normalization, license address checks, node
// matching and the error taxonomy.
//
// This package imports nothing internal. All other internal packages
// import record; record stays the foundational layer.
//
// Key constraints:
//   - Dates are day-granular and always stored as YYYY-MM-DD
//   - License ids are lower-cased 0x-prefixed 40 digit hex addresses
//   - JSON tags use camelCase so exports stay compatible with earlier dumps
package record
