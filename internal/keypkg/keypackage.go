// Package keypkg implements the KeyPackage factory (spec.md §4.3): it
// builds and TLS-serializes a KeyPackage and extracts its init private
// key for caller-side backup or session-retained use.
package keypkg

import (
	"crypto/ed25519"

	"github.com/cairnmsg/mlscore/internal/hpke"
	"github.com/cairnmsg/mlscore/internal/identity"
	"github.com/cairnmsg/mlscore/internal/mlserr"
	"github.com/cairnmsg/mlscore/internal/provider"
	"github.com/cairnmsg/mlscore/internal/wire"
)

// Result mirrors spec.md's KeyPackageResult.
type Result struct {
	KeyPackageData []byte
	InitPrivateKey []byte
}

// Build constructs, signs, and TLS-encodes a KeyPackage bound to bundle,
// storing the signer and the fresh init keypair in prov. Shared by both
// GenerateKeyPackage (throwaway provider) and session-scoped generation
// (the caller's live session provider).
func Build(prov *provider.Provider, bundle identity.Bundle) (Result, error) {
	signer := bundle.SigningKey()

	if err := prov.Storage().StoreSigner(signer.Seed(), bundle.SigningPublicKey); err != nil {
		return Result{}, mlserr.New(mlserr.StorageError, "store signer: %v", err)
	}

	leafEncPub, leafEncPriv, err := hpke.GenerateKeyPair()
	if err != nil {
		return Result{}, mlserr.New(mlserr.StorageError, "generate leaf encryption keypair: %v", err)
	}
	initPub, initPriv, err := hpke.GenerateKeyPair()
	if err != nil {
		return Result{}, mlserr.New(mlserr.StorageError, "generate init keypair: %v", err)
	}

	leaf := wire.LeafNode{
		EncryptionKey: leafEncPub,
		SignatureKey:  bundle.SigningPublicKey,
		Credential:    wire.Credential{Identity: bundle.Identity},
	}
	leaf.Signature = ed25519.Sign(signer, leaf.SignedContent())

	kp := wire.KeyPackage{
		Version:     1,
		CipherSuite: identity.Ciphersuite,
		InitKey:     initPub,
		Leaf:        leaf,
	}
	kp.Signature = ed25519.Sign(signer, kp.SignedContent())

	if err := prov.Storage().StoreInitKey(initPub, initPriv); err != nil {
		return Result{}, mlserr.New(mlserr.StorageError, "store init private key: %v", err)
	}
	// The leaf's own encryption private key is neither stored nor
	// returned: nothing in this module decrypts to a leaf encryption key,
	// so leafEncPriv is discarded here. The joiner's member record keeps
	// only the public half from this KeyPackage's leaf.
	_ = leafEncPriv

	return Result{
		KeyPackageData: kp.Marshal(),
		InitPrivateKey: append([]byte(nil), initPriv...),
	}, nil
}

// GenerateKeyPackage is the stateless one-shot entry point (spec.md
// §4.3): it builds a throwaway provider so the signer and init key
// exist somewhere storage-shaped, but that provider is discarded —
// callers of this variant are expected to use session_generate_key_package
// if they want process_welcome's init-key lookup to Just Work.
func GenerateKeyPackage(identityPublicKey, signingPrivateKey, signingPublicKey []byte) (Result, error) {
	bundle, err := identity.ImportSigningKey(identityPublicKey, signingPrivateKey, signingPublicKey)
	if err != nil {
		return Result{}, err
	}
	prov := provider.New()
	return Build(prov, bundle)
}
