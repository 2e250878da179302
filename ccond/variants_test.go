package ccond

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
	"testing/iotest"
)

var (
	rsaKeyOnce sync.Once
	rsaKey     *rsa.PrivateKey
	rsaKeyErr  error
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	rsaKeyOnce.Do(func() { rsaKey, rsaKeyErr = rsa.GenerateKey(rand.Reader, 2048) })
	if rsaKeyErr != nil {
		t.Fatalf("GenerateKey: %v", rsaKeyErr)
	}
	return rsaKey
}

func TestPreimage(t *testing.T) {
	f := NewPreimageSha256([]byte("hello"))
	c := mustCondition(t, f)
	if c.Cost() != 5 {
		t.Fatalf("cost = %d, want 5", c.Cost())
	}
	if got := encodeB64(c.Fingerprint()); got != "LPJNul-wow4m6DsqxbninhsWHlwfp0JecwQzYpOLmCQ" {
		t.Fatalf("fingerprint = %s", got)
	}
	if err := f.Validate([]byte("any message")); err != nil {
		t.Fatalf("preimage validates any message: %v", err)
	}
	in := []byte("abc")
	f.SetPreimage(in)
	in[0] = 'x'
	if string(f.Preimage()) != "abc" {
		t.Fatalf("SetPreimage must copy its input")
	}
}

func TestPrefix_Validate(t *testing.T) {
	ed := signedEd25519(t, []byte("abc-hello"))
	f := NewPrefixSha256([]byte("abc-"), 5, ed)

	if err := f.Validate([]byte("hello")); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	requireRule(t, f.Validate([]byte("hello!")), KindValidation, "CC-PFX-102")

	err := f.Validate([]byte("hellO"))
	requireRule(t, err, KindValidation, "CC-ED-101")

	cond := NewPrefixSha256([]byte("abc-"), 5, nil)
	cond.SetSubcondition(mustCondition(t, ed))
	requireRule(t, cond.Validate([]byte("hello")), KindValidation, "CC-PFX-101")
	if !mustCondition(t, cond).Equal(mustCondition(t, f)) {
		t.Fatalf("subcondition form should derive the same condition")
	}
	_, err = FulfillmentURI(cond)
	requireRule(t, err, KindMissingData, "CC-PFX-001")
}

func TestPrefix_Cost(t *testing.T) {
	f := NewPrefixSha256([]byte("abcd"), 10, signedEd25519(t, nil))
	cost, err := f.Cost()
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if want := uint64(4 + 10 + Ed25519Cost + childCostOverhead); cost != want {
		t.Fatalf("cost = %d, want %d", cost, want)
	}
}

func TestEd25519_SignValidate(t *testing.T) {
	msg := []byte("payment 42")
	f := signedEd25519(t, msg)
	if err := f.Validate(msg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	requireRule(t, f.Validate([]byte("payment 43")), KindValidation, "CC-ED-101")

	sig := f.Signature()
	sig[0] ^= 1
	tampered, err := NewEd25519Sha256(f.PublicKey(), sig)
	if err != nil {
		t.Fatalf("NewEd25519Sha256: %v", err)
	}
	requireRule(t, tampered.Validate(msg), KindValidation, "CC-ED-101")

	unsigned := &Ed25519Sha256{}
	if err := unsigned.SetPublicKey(f.PublicKey()); err != nil {
		t.Fatalf("SetPublicKey: %v", err)
	}
	if !mustCondition(t, unsigned).Equal(mustCondition(t, f)) {
		t.Fatalf("condition must depend on the key only")
	}
	requireRule(t, unsigned.Validate(msg), KindValidation, "CC-ED-100")
	_, err = MarshalFulfillment(unsigned)
	requireRule(t, err, KindMissingData, "CC-ED-021")
}

func TestEd25519_BadInputs(t *testing.T) {
	_, err := NewEd25519Sha256(make([]byte, 31), make([]byte, 64))
	requireRule(t, err, KindValidation, "CC-ED-001")
	_, err = NewEd25519Sha256(make([]byte, 32), make([]byte, 63))
	requireRule(t, err, KindValidation, "CC-ED-002")

	// 32-byte key followed by a 10-byte signature.
	_, err = ParseFulfillmentURI("cf:1:10:" + encodeB64(make([]byte, 42)))
	requireRule(t, err, KindUnderflow, "CC-ED-031")
}

func TestRsa_SignValidate(t *testing.T) {
	key := testRSAKey(t)
	msg := []byte("transfer")

	f := &RsaSha256{}
	if err := f.Sign(msg, key, nil); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !bytes.Equal(f.Modulus(), key.N.Bytes()) {
		t.Fatalf("modulus not taken from key")
	}
	if err := f.Validate(msg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	requireRule(t, f.Validate([]byte("transfeR")), KindValidation, "CC-RSA-104")

	c := mustCondition(t, f)
	if c.Cost() != 256*256 {
		t.Fatalf("cost = %d, want 65536", c.Cost())
	}

	uri, err := FulfillmentURI(f)
	if err != nil {
		t.Fatalf("FulfillmentURI: %v", err)
	}
	if err := ValidateFulfillment(uri, c.URI(), msg); err != nil {
		t.Fatalf("ValidateFulfillment: %v", err)
	}

	unsigned := &RsaSha256{}
	if err := unsigned.SetPublicModulus(key.N.Bytes()); err != nil {
		t.Fatalf("SetPublicModulus: %v", err)
	}
	if !mustCondition(t, unsigned).Equal(c) {
		t.Fatalf("condition must depend on the modulus only")
	}
}

func TestRsa_ShortEncodedMessage(t *testing.T) {
	// 1025 bits leaves the encoded message one byte shorter than the modulus.
	key, err := rsa.GenerateKey(rand.Reader, 1025)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	msg := []byte("odd modulus")
	f := &RsaSha256{}
	if err := f.Sign(msg, key, nil); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(f.Modulus()) != 129 || len(f.Signature()) != 129 {
		t.Fatalf("modulus/signature = %d/%d bytes, want 129", len(f.Modulus()), len(f.Signature()))
	}
	if err := f.Validate(msg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	requireRule(t, f.Validate([]byte("odd moduluS")), KindValidation, "CC-RSA-104")

	der, err := MarshalFulfillment(f)
	if err != nil {
		t.Fatalf("MarshalFulfillment: %v", err)
	}
	back, err := strict.ParseFulfillmentBinary(der)
	if err != nil {
		t.Fatalf("ParseFulfillmentBinary: %v", err)
	}
	if err := back.Validate(msg); err != nil {
		t.Fatalf("Validate after round trip: %v", err)
	}
}

func TestCodec_SignRsaUsesRand(t *testing.T) {
	key := testRSAKey(t)
	msg := []byte("salted")
	salt := bytes.Repeat([]byte{0x5a}, 32)

	sign := func() []byte {
		c := NewCodec(Options{Rand: bytes.NewReader(salt)})
		f, err := c.SignRsa(msg, key)
		if err != nil {
			t.Fatalf("SignRsa: %v", err)
		}
		if err := f.Validate(msg); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		return f.Signature()
	}
	if a, b := sign(), sign(); !bytes.Equal(a, b) {
		t.Fatalf("same salt source produced different signatures")
	}

	broken := NewCodec(Options{Rand: iotest.ErrReader(errors.New("no entropy"))})
	_, err := broken.SignRsa(msg, key)
	requireRule(t, err, KindInternal, "CC-RSA-012")
}

func TestRsa_BadInputs(t *testing.T) {
	_, err := NewRsaSha256(nil, nil)
	requireRule(t, err, KindMissingData, "CC-RSA-000")

	lead := append([]byte{0}, bytes.Repeat([]byte{0xff}, 127)...)
	_, err = NewRsaSha256(lead, lead)
	requireRule(t, err, KindValidation, "CC-RSA-001")

	small := bytes.Repeat([]byte{0xff}, 64)
	_, err = NewRsaSha256(small, small)
	requireRule(t, err, KindValidation, "CC-RSA-002")

	big := bytes.Repeat([]byte{0xff}, 513)
	_, err = NewRsaSha256(big, big)
	requireRule(t, err, KindValidation, "CC-RSA-002")

	m := bytes.Repeat([]byte{0xff}, 128)
	_, err = NewRsaSha256(m, m[:127])
	requireRule(t, err, KindValidation, "CC-RSA-003")

	err = (&RsaSha256{}).Sign([]byte("x"), nil, nil)
	requireRule(t, err, KindMissingData, "CC-RSA-010")
}
