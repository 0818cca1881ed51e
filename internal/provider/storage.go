// Package provider implements the crypto-provider adapter: the
// in-memory storage and crypto backend bound to exactly one session.
// It mirrors OpenMLS's StorageProvider/CryptoProvider split so that a
// future persistent or hardware-backed provider can be swapped in
// behind the same two accessors without touching internal/group or
// internal/keypkg.
package provider

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cairnmsg/mlscore/internal/mlserr"
)

// Storage is a mutex-guarded in-memory key/value store. One instance
// belongs to exactly one Provider, which belongs to exactly one
// session — two sessions must never share a Storage, or loading the
// same group_id out of each would race (spec invariant, §4.1).
type Storage struct {
	mu sync.Mutex

	signerPriv []byte
	signerPub  []byte

	// initKeys maps a base64-encoded HPKE init public key to its raw
	// private key. Consumed (deleted) exactly once by TakeInitKey when
	// a Welcome referencing it is processed.
	initKeys map[string][]byte

	// groups maps a raw group_id (as a string key) to the TLS-encoded
	// serialized group state owned by internal/group. Storage never
	// interprets these bytes.
	groups map[string][]byte
}

// NewStorage returns an empty Storage.
func NewStorage() *Storage {
	return &Storage{
		initKeys: make(map[string][]byte),
		groups:   make(map[string][]byte),
	}
}

// StoreSigner persists the session's signing keypair. Called once, at
// session creation.
func (s *Storage) StoreSigner(priv, pub []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signerPriv = append([]byte(nil), priv...)
	s.signerPub = append([]byte(nil), pub...)
	return nil
}

// Signer returns the stored signing keypair.
func (s *Storage) Signer() (priv, pub []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signerPriv == nil {
		return nil, nil, mlserr.New(mlserr.StorageError, "no signer stored for this provider")
	}
	return s.signerPriv, s.signerPub, nil
}

// StoreInitKey retains a KeyPackage's init private key, addressed by its
// public half, so a later Welcome referencing this KeyPackage can be
// opened.
func (s *Storage) StoreInitKey(pub, priv []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initKeys[initKeyLabel(pub)] = append([]byte(nil), priv...)
	return nil
}

// TakeInitKey removes and returns the init private key for pub, failing
// if it was never stored or was already consumed. Invoked exactly once,
// by ProcessWelcome.
func (s *Storage) TakeInitKey(pub []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	label := initKeyLabel(pub)
	priv, ok := s.initKeys[label]
	if !ok {
		return nil, mlserr.New(mlserr.StorageError, "no init private key stored for this key package")
	}
	delete(s.initKeys, label)
	return priv, nil
}

func initKeyLabel(pub []byte) string {
	return base64.StdEncoding.EncodeToString(pub)
}

// StoreGroup writes back the serialized state for group_id, overwriting
// any prior state. This is the "merge" step of every mutating group
// operation.
func (s *Storage) StoreGroup(groupID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[string(groupID)] = append([]byte(nil), data...)
	return nil
}

// LoadGroup returns the serialized state for group_id, and whether it
// was present. Every group operation starts here — groups are never
// cached above the provider.
func (s *Storage) LoadGroup(groupID []byte) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.groups[string(groupID)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// GroupExists reports whether group_id is already present.
func (s *Storage) GroupExists(groupID []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.groups[string(groupID)]
	return ok
}

// snapshot is the JSON-serializable form of Storage, used by Export and
// ImportStorage. Design note §9: the hook spec.md asks to not design
// out, built but never wired to the façade.
type snapshot struct {
	SignerPriv []byte            `json:"signer_priv"`
	SignerPub  []byte            `json:"signer_pub"`
	InitKeys   map[string][]byte `json:"init_keys"`
	Groups     map[string][]byte `json:"groups"`
}

// Export serializes the entire storage contents to bytes.
func (s *Storage) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		SignerPriv: s.signerPriv,
		SignerPub:  s.signerPub,
		InitKeys:   s.initKeys,
		Groups:     s.groups,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("export provider storage: %w", err)
	}
	return data, nil
}

// ImportStorage reconstructs a Storage from bytes produced by Export.
func ImportStorage(data []byte) (*Storage, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("import provider storage: %w", err)
	}
	s := NewStorage()
	s.signerPriv = snap.SignerPriv
	s.signerPub = snap.SignerPub
	if snap.InitKeys != nil {
		s.initKeys = snap.InitKeys
	}
	if snap.Groups != nil {
		s.groups = snap.Groups
	}
	return s, nil
}
