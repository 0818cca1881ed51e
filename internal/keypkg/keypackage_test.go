package keypkg

import (
	"crypto/ed25519"
	"testing"

	"github.com/cairnmsg/mlscore/internal/identity"
	"github.com/cairnmsg/mlscore/internal/provider"
	"github.com/cairnmsg/mlscore/internal/wire"
)

func TestGenerateKeyPackageRoundTrips(t *testing.T) {
	ident := make([]byte, 32)
	ident[0] = 0xAA

	res, err := GenerateKeyPackage(ident, nil, nil)
	if err == nil {
		t.Fatal("expected an error for a nil signing keypair")
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	res, err = GenerateKeyPackage(ident, priv, pub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.InitPrivateKey) == 0 {
		t.Fatal("expected a non-empty init private key")
	}

	kp, err := wire.UnmarshalKeyPackage(res.KeyPackageData)
	if err != nil {
		t.Fatalf("unmarshal key package: %v", err)
	}
	if kp.CipherSuite != identity.Ciphersuite {
		t.Errorf("unexpected ciphersuite: %d", kp.CipherSuite)
	}
	if !ed25519.Verify(pub, kp.SignedContent(), kp.Signature) {
		t.Error("key package signature does not verify")
	}
	if !ed25519.Verify(pub, kp.Leaf.SignedContent(), kp.Leaf.Signature) {
		t.Error("leaf node signature does not verify")
	}
}

func TestBuildStoresSignerAndInitKey(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	bundle := identity.Bundle{
		Identity:          make([]byte, 32),
		SigningPublicKey:  pub,
		SigningPrivateKey: priv.Seed(),
	}
	prov := provider.New()
	res, err := Build(prov, bundle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	kp, err := wire.UnmarshalKeyPackage(res.KeyPackageData)
	if err != nil {
		t.Fatalf("unmarshal key package: %v", err)
	}
	got, err := prov.Storage().TakeInitKey(kp.InitKey)
	if err != nil {
		t.Fatalf("init private key not stored: %v", err)
	}
	if string(got) != string(res.InitPrivateKey) {
		t.Error("stored init private key does not match returned value")
	}
	if _, err := prov.Storage().TakeInitKey(kp.InitKey); err == nil {
		t.Error("expected TakeInitKey to fail the second time (consumed once)")
	}
}
