// Package group implements the Group Handle (spec.md §4.5): every
// operation follows load -> execute -> (if mutating) merge -> serialize.
// Groups are never cached above the provider; loading from storage is
// the source of truth on every call.
package group

import (
	"bytes"
	"crypto/ed25519"

	"github.com/cairnmsg/mlscore/internal/mlserr"
	"github.com/cairnmsg/mlscore/internal/provider"
	"github.com/cairnmsg/mlscore/internal/wire"
)

// state is the storage representation of a group, reusing
// wire.GroupSecrets's shape since a Welcome's payload and a group's
// resting state are the same information: group id, epoch, epoch
// secret, and membership list. JoinerLeafIndex doubles as "own leaf
// index" once the struct is resting in storage rather than in transit.
type state = wire.GroupSecrets

func loadState(store *provider.Storage, groupID []byte) (state, error) {
	data, ok := store.LoadGroup(groupID)
	if !ok {
		return state{}, mlserr.New(mlserr.GroupNotFound, "%s", wire.HumanID(groupID))
	}
	s, err := wire.UnmarshalGroupSecrets(data)
	if err != nil {
		return state{}, mlserr.New(mlserr.DecodeError, "group state: %v", err)
	}
	return s, nil
}

func storeState(store *provider.Storage, s state) error {
	if err := store.StoreGroup(s.GroupID, s.Marshal()); err != nil {
		return mlserr.New(mlserr.StorageError, "write back group state: %v", err)
	}
	return nil
}

// findOwnLeaf locates the caller's own membership record by signature
// key, since leaf index is not otherwise known to the session.
func findOwnLeaf(s state, signingPub []byte) (uint32, error) {
	for _, m := range s.Members {
		if bytes.Equal(m.SignatureKey, signingPub) && m.Active {
			return m.LeafIndex, nil
		}
	}
	return 0, mlserr.New(mlserr.ProtocolError, "caller is not an active member of this group")
}

// memberAt returns the member record at leafIndex, regardless of
// whether it is active — callers decide whether an inactive sender is
// acceptable for their operation.
func memberAt(s state, leafIndex uint32) (*wire.MemberRecord, error) {
	for i := range s.Members {
		if s.Members[i].LeafIndex == leafIndex {
			return &s.Members[i], nil
		}
	}
	return nil, mlserr.New(mlserr.ProtocolError, "no member at leaf index %d", leafIndex)
}

// applyCommit mutates s in place to reflect commit, advancing the epoch.
// Used both by the sender (to merge its own pending commit) and by
// receivers (processing a StagedCommitMessage) — the same function
// guarantees both sides converge on an identical resulting state.
func applyCommit(crypto provider.Crypto, s *state, commit wire.Commit) error {
	for _, kp := range commit.Adds {
		for _, existing := range s.Members {
			if existing.Active && bytes.Equal(existing.SignatureKey, kp.Leaf.SignatureKey) {
				return mlserr.New(mlserr.ProtocolError, "cannot add a duplicate member")
			}
		}
		s.Members = append(s.Members, wire.MemberRecord{
			LeafIndex:     uint32(len(s.Members)),
			EncryptionKey: kp.Leaf.EncryptionKey,
			SignatureKey:  kp.Leaf.SignatureKey,
			Identity:      kp.Leaf.Credential.Identity,
			Active:        true,
		})
	}
	for _, leafIndex := range commit.Removes {
		m, err := memberAt(*s, leafIndex)
		if err != nil {
			return err
		}
		if !m.Active {
			return mlserr.New(mlserr.ProtocolError, "leaf %d is not an active member", leafIndex)
		}
		m.Active = false
	}
	for i, leafIndex := range commit.UpdateLeaves {
		m, err := memberAt(*s, leafIndex)
		if err != nil {
			return err
		}
		if !m.Active {
			return mlserr.New(mlserr.ProtocolError, "leaf %d is not an active member", leafIndex)
		}
		m.EncryptionKey = commit.Updates[i].EncryptionKey
	}

	nextSecret, err := crypto.AdvanceEpochSecret(s.EpochSecret, s.Epoch)
	if err != nil {
		return mlserr.New(mlserr.ProtocolError, "advance epoch secret: %v", err)
	}
	s.EpochSecret = nextSecret
	s.Epoch++
	return nil
}

// signCommit wraps commit in a signed PublicMessage, framed as an
// MlsMessage envelope, ready for the wire.
func signCommit(signer ed25519.PrivateKey, commit wire.Commit) wire.Envelope {
	pm := wire.PublicMessage{
		GroupID:     commit.GroupID,
		Epoch:       commit.Epoch,
		SenderLeaf:  commit.SenderLeaf,
		ContentType: wire.ContentCommit,
		Content:     wire.EncodeCommit(commit),
	}
	pm.Signature = ed25519.Sign(signer, pm.SignedContent())
	return wire.WrapPublicMessage(pm)
}
