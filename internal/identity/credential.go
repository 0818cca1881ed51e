// Package identity implements the credential factory: turning an
// externally-supplied identity public key into a signed MLS credential
// bundle (spec.md §4.2).
package identity

import (
	"crypto/ed25519"
	"encoding/json"

	"github.com/cairnmsg/mlscore/internal/mlserr"
)

// Ciphersuite is fixed for the lifetime of this module.
const (
	Ciphersuite      = 1 // MLS_128_DHKEMX25519_AES128GCM_SHA256_Ed25519
	CiphersuiteName  = "MLS_128_DHKEMX25519_AES128GCM_SHA256_Ed25519"
	ProtocolVersion  = "RFC9420-v1"
	IdentityKeySize  = 32
	SigningKeySize   = 32
	SigningKeyWide   = 64 // SecretKey‖PublicKey import form
)

// Bundle is returned to the caller and never retained by this module —
// the caller owns its persistence (spec.md §3, CredentialBundle).
type Bundle struct {
	Identity         []byte
	SigningPublicKey []byte
	SigningPrivateKey []byte // 32-byte seed form
}

// CreateCredential generates a fresh Ed25519 signing keypair and wraps
// it with the caller-supplied identity public key.
func CreateCredential(identityPublicKey []byte) (Bundle, error) {
	if len(identityPublicKey) != IdentityKeySize {
		return Bundle{}, mlserr.New(mlserr.InvalidInput, "identity public key must be %d bytes, got %d", IdentityKeySize, len(identityPublicKey))
	}
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return Bundle{}, mlserr.New(mlserr.StorageError, "generate signing keypair: %v", err)
	}
	return Bundle{
		Identity:          append([]byte(nil), identityPublicKey...),
		SigningPublicKey:  append([]byte(nil), pub...),
		SigningPrivateKey: append([]byte(nil), priv.Seed()...),
	}, nil
}

// ImportSigningKey wraps an externally-generated Ed25519 signing
// keypair with the caller-supplied identity public key, normalizing a
// 64-byte SecretKey‖PublicKey private key to its leading 32-byte seed.
// It does not verify that signingPrivateKey and signingPublicKey are
// consistent; inconsistency surfaces later as a signature failure.
func ImportSigningKey(identityPublicKey, signingPrivateKey, signingPublicKey []byte) (Bundle, error) {
	if len(identityPublicKey) != IdentityKeySize {
		return Bundle{}, mlserr.New(mlserr.InvalidInput, "identity public key must be %d bytes, got %d", IdentityKeySize, len(identityPublicKey))
	}
	if len(signingPublicKey) != SigningKeySize {
		return Bundle{}, mlserr.New(mlserr.InvalidInput, "signing public key must be %d bytes, got %d", SigningKeySize, len(signingPublicKey))
	}
	var seed []byte
	switch len(signingPrivateKey) {
	case SigningKeySize:
		seed = signingPrivateKey
	case SigningKeyWide:
		seed = signingPrivateKey[:SigningKeySize]
	default:
		return Bundle{}, mlserr.New(mlserr.InvalidInput, "signing private key must be %d or %d bytes, got %d", SigningKeySize, SigningKeyWide, len(signingPrivateKey))
	}
	return Bundle{
		Identity:          append([]byte(nil), identityPublicKey...),
		SigningPublicKey:  append([]byte(nil), signingPublicKey...),
		SigningPrivateKey: append([]byte(nil), seed...),
	}, nil
}

// SigningKey reconstructs the full ed25519.PrivateKey from a Bundle's
// 32-byte seed.
func (b Bundle) SigningKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(b.SigningPrivateKey)
}

// SupportedCiphersuites returns the JSON escape hatch named by spec.md
// §4.2: a single-element array, pre-positioned for future suites.
func SupportedCiphersuites() (string, error) {
	data, err := json.Marshal([]string{CiphersuiteName})
	if err != nil {
		return "", mlserr.New(mlserr.SerializeError, "marshal ciphersuite list: %v", err)
	}
	return string(data), nil
}
