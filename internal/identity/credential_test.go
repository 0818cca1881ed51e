package identity

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"testing"

	"github.com/cairnmsg/mlscore/internal/mlserr"
)

func id32(fill byte) []byte {
	b := make([]byte, 32)
	for i := range b {
		b[i] = fill
	}
	return b
}

func TestCreateCredential(t *testing.T) {
	bundle, err := CreateCredential(id32(0x01))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(bundle.Identity, id32(0x01)) {
		t.Error("identity not preserved verbatim")
	}
	if len(bundle.SigningPublicKey) != SigningKeySize {
		t.Errorf("signing public key wrong size: %d", len(bundle.SigningPublicKey))
	}
	if len(bundle.SigningPrivateKey) != SigningKeySize {
		t.Errorf("signing private key wrong size: %d", len(bundle.SigningPrivateKey))
	}
	priv := bundle.SigningKey()
	if !ed25519.PublicKey(bundle.SigningPublicKey).Equal(priv.Public()) {
		t.Error("signing public key does not match derived private key")
	}
}

// TestCreateCredentialInvalidSize asserts testable property 1: key-size
// enforcement fails fast with InvalidInput and never touches state.
func TestCreateCredentialInvalidSize(t *testing.T) {
	_, err := CreateCredential(id32(0x01)[:31])
	if err == nil {
		t.Fatal("expected an error for a 31-byte identity key")
	}
	merr, ok := err.(*mlserr.Error)
	if !ok || merr.Kind != mlserr.InvalidInput {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

// TestImportSigningKeyNormalization asserts testable property 2: a
// 64-byte SecretKey‖PublicKey import yields the same bundle as the
// truncated 32-byte seed form.
func TestImportSigningKeyNormalization(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	identity := id32(0x02)

	wide, err := ImportSigningKey(identity, priv, pub)
	if err != nil {
		t.Fatalf("import 64-byte form: %v", err)
	}
	narrow, err := ImportSigningKey(identity, priv.Seed(), pub)
	if err != nil {
		t.Fatalf("import 32-byte form: %v", err)
	}
	if !bytes.Equal(wide.SigningPrivateKey, narrow.SigningPrivateKey) {
		t.Error("64-byte and 32-byte private key imports diverged")
	}
	if !bytes.Equal(wide.Identity, narrow.Identity) || !bytes.Equal(wide.SigningPublicKey, narrow.SigningPublicKey) {
		t.Error("identity or public key diverged across import forms")
	}
}

func TestImportSigningKeyRejectsBadSizes(t *testing.T) {
	good := id32(0x03)
	if _, err := ImportSigningKey(good[:31], good, good); err == nil {
		t.Error("expected error for short identity key")
	}
	if _, err := ImportSigningKey(good, good, good[:31]); err == nil {
		t.Error("expected error for short signing public key")
	}
	if _, err := ImportSigningKey(good, good[:20], good); err == nil {
		t.Error("expected error for malformed signing private key length")
	}
}

func TestSupportedCiphersuites(t *testing.T) {
	out, err := SupportedCiphersuites()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var suites []string
	if err := json.Unmarshal([]byte(out), &suites); err != nil {
		t.Fatalf("not valid JSON: %v", err)
	}
	if len(suites) != 1 || suites[0] != CiphersuiteName {
		t.Errorf("unexpected ciphersuite list: %v", suites)
	}
}
