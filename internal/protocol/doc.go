// Package protocol defines the catalog's only entity, the Protocol record,
// and the byte codec used to persist it.
//
// # Encoding
//
// Stored bytes are canonical JSON:
//   - Object keys sorted
//   - No HTML escaping (< > & are written as-is)
//   - Strings NFC normalized
//   - No trailing newline
//
// Encoding the same record twice always yields identical bytes, so a reseed
// with an unchanged corpus writes byte-identical rows.
//
// # Decoding
//
// Decode is strict. Unknown fields, missing fields, an empty protocol_id,
// trailing data and malformed bytes all produce a *DecodeError. A stored row
// written by an incompatible binary therefore fails to decode instead of
// being partially interpreted.
package protocol
