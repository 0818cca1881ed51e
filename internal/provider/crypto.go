package provider

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Crypto is the stateless crypto backend binding for this module's
// fixed ciphersuite. Ed25519 signing and AES-128-GCM AEAD come from the
// standard library: the ciphersuite name
// (MLS_128_DHKEMX25519_AES128GCM_SHA256_Ed25519) literally names these
// two stdlib-covered primitives, and crypto/ed25519 plus crypto/cipher
// are the canonical constant-time implementations the Go ecosystem
// defers to rather than reimplementing — the same choice the
// self-contained germtb-mlsgit reference implementation makes for
// Ed25519. HKDF comes from golang.org/x/crypto/hkdf, also following that
// reference's lead, since HKDF is an extension package, not core stdlib.
type Crypto struct{}

// Sign produces an Ed25519 signature over content.
func (Crypto) Sign(priv ed25519.PrivateKey, content []byte) []byte {
	return ed25519.Sign(priv, content)
}

// Verify checks an Ed25519 signature over content.
func (Crypto) Verify(pub ed25519.PublicKey, content, sig []byte) bool {
	return ed25519.Verify(pub, content, sig)
}

// RandomBytes returns n cryptographically random bytes.
func (Crypto) RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return b, nil
}

// hkdfExpand derives length bytes from secret using full HKDF
// (Extract with the given salt, then Expand with info), matching the
// ciphersuite's SHA-256 hash.
func hkdfExpand(secret, salt, info []byte, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return out, nil
}

// AdvanceEpochSecret derives the next epoch's secret from the current
// one, salted by the epoch number being left, mirroring MLS's key
// schedule without implementing its full secret tree — this module
// derives one application secret per epoch rather than a per-sender
// ratchet, which is sufficient for the session-layer guarantees this
// spec requires (see DESIGN.md).
func (Crypto) AdvanceEpochSecret(current []byte, fromEpoch uint64) ([]byte, error) {
	salt := make([]byte, 8)
	binary.BigEndian.PutUint64(salt, fromEpoch)
	return hkdfExpand(current, salt, []byte("mls-epoch-advance"), 32)
}

// ExportApplicationSecret derives the per-epoch secret used to key
// PrivateMessage AEAD sealing, MLS's "exporter secret" role.
func (Crypto) ExportApplicationSecret(epochSecret []byte, epoch uint64) ([]byte, error) {
	salt := make([]byte, 8)
	binary.BigEndian.PutUint64(salt, epoch)
	return hkdfExpand(epochSecret, salt, []byte("mls-application-secret"), 32)
}

// SealApplication AES-128-GCM-encrypts plaintext under a key derived
// from the application secret and a fresh random nonce, returning the
// nonce and ciphertext separately for the PrivateMessage wire struct.
func (Crypto) SealApplication(applicationSecret, aad, plaintext []byte) (nonce, ciphertext []byte, err error) {
	key, err := hkdfExpand(applicationSecret, nil, []byte("mls-application-key"), 16)
	if err != nil {
		return nil, nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("new gcm: %w", err)
	}
	nonce = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("read nonce: %w", err)
	}
	ciphertext = gcm.Seal(nil, nonce, plaintext, aad)
	return nonce, ciphertext, nil
}

// OpenApplication reverses SealApplication.
func (Crypto) OpenApplication(applicationSecret, aad, nonce, ciphertext []byte) ([]byte, error) {
	key, err := hkdfExpand(applicationSecret, nil, []byte("mls-application-key"), 16)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("gcm open: %w", err)
	}
	return plaintext, nil
}
