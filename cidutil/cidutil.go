package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// FingerprintMultihash wraps an existing SHA-256 digest as a multihash
// without rehashing.
func FingerprintMultihash(fingerprint []byte) (multihash.Multihash, error) {
	if len(fingerprint) != 32 {
		return nil, fmt.Errorf("cidutil: sha2-256 fingerprint must be 32 bytes, got %d", len(fingerprint))
	}
	return multihash.Encode(fingerprint, multihash.SHA2_256)
}

// ConditionCID returns the CIDv1 (raw + sha2-256) whose digest is the
// fingerprint. It equals CIDv1RawSHA256CID of the fingerprint contents.
func ConditionCID(fingerprint []byte) (cid.Cid, error) {
	mh, err := FingerprintMultihash(fingerprint)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}
