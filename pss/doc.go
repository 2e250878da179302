// Package pss implements the RSASSA-PSS signature padding of RFC 3447.
//
// MGF1 (section B.2.1) and EMSA-PSS encoding and verification (section 9.1)
// are implemented here directly. Raw RSA exponentiation is a thin
// math/big layer with the public exponent fixed at 65537.
//
// Verification never distinguishes between padding failures: every
// malformed encoding yields false.
package pss
