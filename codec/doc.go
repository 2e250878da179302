// Package codec implements the compact variable-length encoding shared by
// every fulfillment variant.
//
// Three sinks implement one Writer contract:
//   - Buffer accumulates the encoded bytes.
//   - Predictor only counts them, so size predictions run through the exact
//     code path used for real serialization.
//   - Hasher streams them into a hash function (fingerprint computation).
//
// Reader consumes encoded bytes with bounds checks and a bookmark stack.
//
// Integers are encoded as little-endian base-128 groups with the high bit of
// each byte marking continuation. Encodings are minimal; decoders reject
// redundant trailing zero groups.
package codec
