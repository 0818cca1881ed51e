package group

import (
	"github.com/luxfi/log"

	"github.com/cairnmsg/mlscore/internal/hpke"
	"github.com/cairnmsg/mlscore/internal/mlserr"
	"github.com/cairnmsg/mlscore/internal/session"
	"github.com/cairnmsg/mlscore/internal/wire"
)

// Create builds a new MlsGroup with the caller as its sole initial
// member, with the ratchet-tree extension always enabled so a later
// Welcome is self-contained (spec.md §4.5, "Group creation").
func Create(logger log.Logger, sess *session.Session, groupID []byte) error {
	store := sess.Provider.Storage()
	if store.GroupExists(groupID) {
		return mlserr.New(mlserr.ProtocolError, "group %s already exists", wire.HumanID(groupID))
	}

	ownEncPub, _, err := hpke.GenerateKeyPair()
	if err != nil {
		return mlserr.New(mlserr.StorageError, "generate leaf encryption keypair: %v", err)
	}
	epochSecret, err := sess.Provider.Crypto().RandomBytes(32)
	if err != nil {
		return mlserr.New(mlserr.StorageError, "generate initial epoch secret: %v", err)
	}

	s := state{
		GroupID:     groupID,
		Epoch:       0,
		EpochSecret: epochSecret,
		Members: []wire.MemberRecord{{
			LeafIndex:     0,
			EncryptionKey: ownEncPub,
			SignatureKey:  sess.SigningPublicKey,
			Identity:      sess.Identity,
			Active:        true,
		}},
	}
	if err := storeState(store, s); err != nil {
		return err
	}
	if logger != nil {
		logger.Info("group created", "group_id", wire.HumanID(groupID), "epoch", s.Epoch)
	}
	return nil
}
