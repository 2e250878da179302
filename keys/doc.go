// Package keys provides signing inputs for fulfillments: Ed25519 seeds and
// RSA private keys.
//
// Keys are parsed from caller-supplied bytes or files. Nothing here stores
// or caches key material.
package keys
