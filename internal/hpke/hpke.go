// Package hpke wraps circl's RFC 9180 HPKE implementation with the exact
// KEM/KDF/AEAD triple named by this module's fixed ciphersuite
// (MLS_128_DHKEMX25519_AES128GCM_SHA256_Ed25519): X25519 + HKDF-SHA256 +
// AES-128-GCM. Real MLS uses HPKE to seal path secrets into UpdatePath
// nodes and joiner secrets into Welcome messages; this is the one piece
// of the ciphersuite this module does not hand-roll, because circl is a
// maintained, audited implementation and there is no reason to replace
// it with a bespoke ECIES construction.
package hpke

import (
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/hpke"
	"github.com/cloudflare/circl/kem"
)

const (
	kemID  = hpke.KEM_X25519_HKDF_SHA256
	kdfID  = hpke.KDF_HKDF_SHA256
	aeadID = hpke.AEAD_AES128GCM
)

var suite = hpke.NewSuite(kemID, kdfID, aeadID)

// GenerateKeyPair returns a fresh HPKE (X25519) keypair as raw bytes,
// suitable for a KeyPackage's init key or a LeafNode's encryption key.
func GenerateKeyPair() (pub, priv []byte, err error) {
	scheme := kemID.Scheme()
	pk, sk, err := scheme.GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("generate hpke keypair: %w", err)
	}
	pubBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("marshal hpke public key: %w", err)
	}
	privBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("marshal hpke private key: %w", err)
	}
	return pubBytes, privBytes, nil
}

// Seal HPKE-encrypts plaintext to the recipient's raw public key,
// returning the KEM encapsulation and the AEAD ciphertext separately so
// the caller can place them into whatever wire struct it likes.
func Seal(recipientPub, info, aad, plaintext []byte) (encapsulated, ciphertext []byte, err error) {
	pk, err := unmarshalPublic(recipientPub)
	if err != nil {
		return nil, nil, err
	}
	sender, err := suite.NewSender(pk, info)
	if err != nil {
		return nil, nil, fmt.Errorf("hpke sender setup: %w", err)
	}
	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("hpke sender handshake: %w", err)
	}
	ct, err := sealer.Seal(plaintext, aad)
	if err != nil {
		return nil, nil, fmt.Errorf("hpke seal: %w", err)
	}
	return enc, ct, nil
}

// Open HPKE-decrypts a ciphertext produced by Seal using the recipient's
// raw private key.
func Open(recipientPriv, info, aad, encapsulated, ciphertext []byte) ([]byte, error) {
	sk, err := unmarshalPrivate(recipientPriv)
	if err != nil {
		return nil, err
	}
	receiver, err := suite.NewReceiver(sk, info)
	if err != nil {
		return nil, fmt.Errorf("hpke receiver setup: %w", err)
	}
	opener, err := receiver.Setup(encapsulated)
	if err != nil {
		return nil, fmt.Errorf("hpke receiver handshake: %w", err)
	}
	pt, err := opener.Open(ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("hpke open: %w", err)
	}
	return pt, nil
}

func unmarshalPublic(raw []byte) (kem.PublicKey, error) {
	scheme := kemID.Scheme()
	pk, err := scheme.UnmarshalBinaryPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal hpke public key: %w", err)
	}
	return pk, nil
}

func unmarshalPrivate(raw []byte) (kem.PrivateKey, error) {
	scheme := kemID.Scheme()
	sk, err := scheme.UnmarshalBinaryPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal hpke private key: %w", err)
	}
	return sk, nil
}
