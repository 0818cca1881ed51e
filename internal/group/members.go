package group

import (
	"crypto/ed25519"

	"github.com/luxfi/log"

	"github.com/cairnmsg/mlscore/internal/hpke"
	"github.com/cairnmsg/mlscore/internal/identity"
	"github.com/cairnmsg/mlscore/internal/mlserr"
	"github.com/cairnmsg/mlscore/internal/session"
	"github.com/cairnmsg/mlscore/internal/wire"
)

// AddResult is the pair returned to a caller that just added a member.
type AddResult struct {
	Commit  []byte
	Welcome []byte
}

// validateIncomingKeyPackage checks the signatures and protocol version
// of a KeyPackage received from the network, per spec.md §4.5 step 2.
func validateIncomingKeyPackage(kp wire.KeyPackage) error {
	if kp.Version != 1 {
		return mlserr.New(mlserr.ValidationError, "unsupported protocol version %d, want MLS 1.0", kp.Version)
	}
	if kp.CipherSuite != identity.Ciphersuite {
		return mlserr.New(mlserr.ValidationError, "unsupported ciphersuite %d", kp.CipherSuite)
	}
	leafKey := ed25519.PublicKey(kp.Leaf.SignatureKey)
	if !ed25519.Verify(leafKey, kp.Leaf.SignedContent(), kp.Leaf.Signature) {
		return mlserr.New(mlserr.ValidationError, "leaf node signature does not verify")
	}
	if !ed25519.Verify(leafKey, kp.SignedContent(), kp.Signature) {
		return mlserr.New(mlserr.ValidationError, "key package signature does not verify")
	}
	return nil
}

// AddMember validates an incoming KeyPackage, commits its addition, and
// merges immediately on the adder's side — the commit has already been
// emitted and will be accepted by peers, so not merging here would
// strand the adder in the old epoch (spec.md §4.5, step 4).
func AddMember(logger log.Logger, sess *session.Session, groupID, keyPackageTLS []byte) (AddResult, error) {
	store := sess.Provider.Storage()
	s, err := loadState(store, groupID)
	if err != nil {
		return AddResult{}, err
	}

	kp, err := wire.UnmarshalKeyPackage(keyPackageTLS)
	if err != nil {
		return AddResult{}, mlserr.New(mlserr.DecodeError, "key package: %v", err)
	}
	if err := validateIncomingKeyPackage(kp); err != nil {
		return AddResult{}, err
	}

	senderLeaf, err := findOwnLeaf(s, sess.SigningPublicKey)
	if err != nil {
		return AddResult{}, err
	}

	commit := wire.Commit{
		GroupID:    groupID,
		Epoch:      s.Epoch,
		SenderLeaf: senderLeaf,
		Adds:       []wire.KeyPackage{kp},
	}
	joinerLeaf := uint32(len(s.Members))

	if err := applyCommit(sess.Provider.Crypto(), &s, commit); err != nil {
		return AddResult{}, err
	}

	secrets := wire.GroupSecrets{
		GroupID:         groupID,
		Epoch:           s.Epoch,
		EpochSecret:     s.EpochSecret,
		Members:         s.Members,
		JoinerLeafIndex: joinerLeaf,
	}
	enc, ciphertext, err := hpke.Seal(kp.InitKey, groupID, groupID, secrets.Marshal())
	if err != nil {
		return AddResult{}, mlserr.New(mlserr.StorageError, "seal welcome: %v", err)
	}
	welcome := wire.Welcome{
		GroupID:          groupID,
		Epoch:            s.Epoch,
		CipherSuite:      identity.Ciphersuite,
		InitKeyPub:       kp.InitKey,
		HPKEEncapsulated: enc,
		Ciphertext:       ciphertext,
	}

	if err := storeState(store, s); err != nil {
		return AddResult{}, err
	}

	commitEnv := signCommit(sess.Signer, commit)
	if logger != nil {
		logger.Info("member added", "group_id", wire.HumanID(groupID), "epoch", s.Epoch, "leaf", joinerLeaf)
	}
	return AddResult{
		Commit:  commitEnv.Marshal(),
		Welcome: wire.WrapWelcome(welcome).Marshal(),
	}, nil
}

// RemoveMember commits the removal of leafIndex and merges immediately,
// symmetric to AddMember but producing no welcome.
func RemoveMember(logger log.Logger, sess *session.Session, groupID []byte, leafIndex uint32) ([]byte, error) {
	store := sess.Provider.Storage()
	s, err := loadState(store, groupID)
	if err != nil {
		return nil, err
	}

	senderLeaf, err := findOwnLeaf(s, sess.SigningPublicKey)
	if err != nil {
		return nil, err
	}

	commit := wire.Commit{
		GroupID:    groupID,
		Epoch:      s.Epoch,
		SenderLeaf: senderLeaf,
		Removes:    []uint32{leafIndex},
	}
	if err := applyCommit(sess.Provider.Crypto(), &s, commit); err != nil {
		return nil, err
	}
	if err := storeState(store, s); err != nil {
		return nil, err
	}

	commitEnv := signCommit(sess.Signer, commit)
	if logger != nil {
		logger.Info("member removed", "group_id", wire.HumanID(groupID), "epoch", s.Epoch, "leaf", leafIndex)
	}
	return commitEnv.Marshal(), nil
}

// UpdateSelf rotates the caller's own leaf encryption key and merges the
// resulting commit immediately. Not named by spec.md, added per
// SPEC_FULL.md §4.5 since key rotation is table stakes for a non-toy
// MLS group and excluded by no Non-goal.
func UpdateSelf(logger log.Logger, sess *session.Session, groupID []byte) ([]byte, error) {
	store := sess.Provider.Storage()
	s, err := loadState(store, groupID)
	if err != nil {
		return nil, err
	}

	senderLeaf, err := findOwnLeaf(s, sess.SigningPublicKey)
	if err != nil {
		return nil, err
	}
	newEncPub, _, err := hpke.GenerateKeyPair()
	if err != nil {
		return nil, mlserr.New(mlserr.StorageError, "generate updated leaf encryption keypair: %v", err)
	}

	commit := wire.Commit{
		GroupID:      groupID,
		Epoch:        s.Epoch,
		SenderLeaf:   senderLeaf,
		Updates:      []wire.LeafNode{{EncryptionKey: newEncPub, SignatureKey: sess.SigningPublicKey}},
		UpdateLeaves: []uint32{senderLeaf},
	}
	if err := applyCommit(sess.Provider.Crypto(), &s, commit); err != nil {
		return nil, err
	}
	if err := storeState(store, s); err != nil {
		return nil, err
	}

	commitEnv := signCommit(sess.Signer, commit)
	if logger != nil {
		logger.Info("self update committed", "group_id", wire.HumanID(groupID), "epoch", s.Epoch)
	}
	return commitEnv.Marshal(), nil
}
