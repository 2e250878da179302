// Package ccond implements crypto-conditions: SHA-256 preimage, prefix,
// threshold, RSA-PSS and Ed25519 fulfillments and the conditions derived
// from them.
//
// A Fulfillment is built by setting fields or signing, its Condition is
// derived from it, and both serialize to URIs and DER. On the receiving
// side a Codec parses the fulfillment and condition, checks that the
// fulfillment derives the condition and validates it against a message:
//
//	err := ccond.ValidateFulfillment(fulfillmentURI, conditionURI, message)
//
// Condition URIs use the RFC 6920 form
//
//	ni:///sha-256;<fingerprint>?fpt=<type>&cost=<n>[&subtypes=<types>]
//
// and fulfillment URIs the cf:1:<type bit>:<payload> form. Legacy cc:1:
// condition URIs are accepted in Permissive mode.
//
// Errors are *Error values with a stable Kind and RuleID.
package ccond
