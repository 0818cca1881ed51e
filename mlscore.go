// Package mlscore is the flat, call-based boundary for the MLS session
// layer: every exported function takes and returns primitive types
// (uint32, []byte, string) so a non-native caller — or the JSON-RPC
// service in internal/rpcserver — never has to hold a rich handle.
package mlscore

import (
	"github.com/luxfi/log"

	"github.com/cairnmsg/mlscore/internal/dispatch"
	"github.com/cairnmsg/mlscore/internal/group"
	"github.com/cairnmsg/mlscore/internal/identity"
	"github.com/cairnmsg/mlscore/internal/keypkg"
	"github.com/cairnmsg/mlscore/internal/session"
)

// registry is the single process-global session map, constructed once.
// It is never reentered: no façade function below calls back into it
// from inside a With callback (a logger, where needed, is taken first).
var registry = session.NewRegistry(log.New("component", "mlscore"))

// SetLogger replaces the registry's logger, for callers (cmd/mlscored)
// that want structured output routed through their own configured
// sink instead of the package default.
func SetLogger(logger log.Logger) {
	registry.SetLogger(logger)
}

// CredentialBundle mirrors spec.md §3's CredentialBundle: returned to
// the caller and never retained by this module.
type CredentialBundle struct {
	Identity          []byte
	SigningPublicKey  []byte
	SigningPrivateKey []byte
}

// CreateCredential generates a fresh Ed25519 signing keypair wrapped
// around identityPublicKey (spec.md §4.2).
func CreateCredential(identityPublicKey []byte) (CredentialBundle, error) {
	b, err := identity.CreateCredential(identityPublicKey)
	if err != nil {
		return CredentialBundle{}, err
	}
	return CredentialBundle(b), nil
}

// ImportSigningKey wraps an externally-generated signing keypair
// (spec.md §4.2), truncating a 64-byte private key to its seed.
func ImportSigningKey(identityPublicKey, signingPrivateKey, signingPublicKey []byte) (CredentialBundle, error) {
	b, err := identity.ImportSigningKey(identityPublicKey, signingPrivateKey, signingPublicKey)
	if err != nil {
		return CredentialBundle{}, err
	}
	return CredentialBundle(b), nil
}

// SupportedCiphersuites returns the fixed-ciphersuite JSON array
// (spec.md §4.2).
func SupportedCiphersuites() (string, error) {
	return identity.SupportedCiphersuites()
}

// ProtocolVersion reports the protocol version string this module
// implements (spec.md §6).
func ProtocolVersion() string {
	return identity.ProtocolVersion
}

// KeyPackageResult mirrors spec.md §3's KeyPackageResult.
type KeyPackageResult struct {
	KeyPackageData []byte
	InitPrivateKey []byte
}

// GenerateKeyPackage is the stateless one-shot KeyPackage factory entry
// point (spec.md §4.3).
func GenerateKeyPackage(identityPublicKey, signingPrivateKey, signingPublicKey []byte) (KeyPackageResult, error) {
	r, err := keypkg.GenerateKeyPackage(identityPublicKey, signingPrivateKey, signingPublicKey)
	if err != nil {
		return KeyPackageResult{}, err
	}
	return KeyPackageResult(r), nil
}

// SessionGenerateKeyPackage is the stateful KeyPackage factory entry
// point: the init private key is retained in the session's own
// provider storage so a later ProcessWelcome against it just works
// (spec.md §4.3).
func SessionGenerateKeyPackage(sessionID uint32) (KeyPackageResult, error) {
	var out KeyPackageResult
	err := registry.With(sessionID, func(sess *session.Session) error {
		bundle := identity.Bundle{
			Identity:          sess.Identity,
			SigningPublicKey:  sess.SigningPublicKey,
			SigningPrivateKey: sess.Signer.Seed(),
		}
		r, err := keypkg.Build(sess.Provider, bundle)
		if err != nil {
			return err
		}
		out = KeyPackageResult(r)
		return nil
	})
	return out, err
}

// NewSession allocates a session id for the given bundle (spec.md §4.4).
func NewSession(bundle CredentialBundle) (uint32, error) {
	return registry.New(identity.Bundle(bundle))
}

// DestroySession frees a session's provider and all contained group
// state, reporting whether it was present (spec.md §4.4).
func DestroySession(sessionID uint32) bool {
	return registry.Drop(sessionID)
}

// CreateGroup builds a new group with the calling session as its sole
// initial member (spec.md §4.5, "Group creation").
func CreateGroup(sessionID uint32, groupID []byte) error {
	logger := registry.Logger()
	return registry.With(sessionID, func(sess *session.Session) error {
		return group.Create(logger, sess, groupID)
	})
}

// AddMember validates an incoming KeyPackage and commits its addition,
// merging on the adder's side (spec.md §4.5, "Add member").
func AddMember(sessionID uint32, groupID, keyPackageTLS []byte) (group.AddResult, error) {
	var out group.AddResult
	logger := registry.Logger()
	err := registry.With(sessionID, func(sess *session.Session) error {
		r, err := group.AddMember(logger, sess, groupID, keyPackageTLS)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// RemoveMember commits the removal of leafIndex and merges immediately
// (spec.md §4.5, "Remove member").
func RemoveMember(sessionID uint32, groupID []byte, leafIndex uint32) ([]byte, error) {
	var out []byte
	logger := registry.Logger()
	err := registry.With(sessionID, func(sess *session.Session) error {
		r, err := group.RemoveMember(logger, sess, groupID, leafIndex)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// UpdateSelf rotates the caller's own leaf encryption key, per
// SPEC_FULL.md §4.5's supplemented operation.
func UpdateSelf(sessionID uint32, groupID []byte) ([]byte, error) {
	var out []byte
	logger := registry.Logger()
	err := registry.With(sessionID, func(sess *session.Session) error {
		r, err := group.UpdateSelf(logger, sess, groupID)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// ProcessWelcome stages and finalizes a Welcome into a real, persisted
// group, returning the new group id (spec.md §4.5, "Welcome processing").
func ProcessWelcome(sessionID uint32, welcomeTLS []byte) ([]byte, error) {
	var out []byte
	logger := registry.Logger()
	err := registry.With(sessionID, func(sess *session.Session) error {
		id, err := group.ProcessWelcome(logger, sess, welcomeTLS)
		if err != nil {
			return err
		}
		out = id
		return nil
	})
	return out, err
}

// EncryptMessage seals plaintext for the group's current epoch (spec.md
// §4.5, "Encrypt application message"). No merge step.
func EncryptMessage(sessionID uint32, groupID, plaintext []byte) ([]byte, error) {
	var out []byte
	err := registry.With(sessionID, func(sess *session.Session) error {
		ct, err := group.EncryptMessage(sess, groupID, plaintext)
		if err != nil {
			return err
		}
		out = ct
		return nil
	})
	return out, err
}

// ProcessGroupMessage classifies and routes an inbound envelope (spec.md
// §4.5, "Process incoming message" / §4.7).
func ProcessGroupMessage(sessionID uint32, groupID, messageTLS []byte) (dispatch.ProcessedMessage, error) {
	var out dispatch.ProcessedMessage
	logger := registry.Logger()
	err := registry.With(sessionID, func(sess *session.Session) error {
		r, err := group.ProcessGroupMessage(logger, sess, groupID, messageTLS)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// GetEpoch returns the group's current epoch number (spec.md §4.6).
func GetEpoch(sessionID uint32, groupID []byte) (uint64, error) {
	var out uint64
	err := registry.With(sessionID, func(sess *session.Session) error {
		e, err := group.GetEpoch(sess, groupID)
		if err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

// GetMembers returns the group's active membership as a JSON array of
// {index, identity, signature_key} (spec.md §4.6).
func GetMembers(sessionID uint32, groupID []byte) (string, error) {
	var out string
	err := registry.With(sessionID, func(sess *session.Session) error {
		m, err := group.GetMembers(sess, groupID)
		if err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}
