package group

import (
	"bytes"

	"github.com/luxfi/log"

	"github.com/cairnmsg/mlscore/internal/hpke"
	"github.com/cairnmsg/mlscore/internal/identity"
	"github.com/cairnmsg/mlscore/internal/mlserr"
	"github.com/cairnmsg/mlscore/internal/session"
	"github.com/cairnmsg/mlscore/internal/wire"
)

// ProcessWelcome stages a Welcome against the session's provider (which
// must hold the init private key for the KeyPackage the Welcome
// targets) and finalizes it into a real, persisted group. Returns the
// new group's id (spec.md §4.5, "Welcome processing").
func ProcessWelcome(logger log.Logger, sess *session.Session, welcomeTLS []byte) ([]byte, error) {
	env, err := wire.UnmarshalEnvelope(welcomeTLS)
	if err != nil {
		return nil, mlserr.New(mlserr.DecodeError, "envelope: %v", err)
	}
	if env.Variant != wire.VariantWelcome {
		return nil, mlserr.New(mlserr.UnexpectedMessageType, "expected Welcome, got %s", env.Variant)
	}
	w, err := wire.UnwrapWelcome(env)
	if err != nil {
		return nil, mlserr.New(mlserr.DecodeError, "welcome: %v", err)
	}
	if w.CipherSuite != identity.Ciphersuite {
		return nil, mlserr.New(mlserr.ValidationError, "unsupported ciphersuite %d", w.CipherSuite)
	}

	initPriv, err := sess.Provider.Storage().TakeInitKey(w.InitKeyPub)
	if err != nil {
		return nil, mlserr.New(mlserr.StorageError, "no init private key for this welcome's key package: %v", err)
	}

	plaintext, err := hpke.Open(initPriv, w.GroupID, w.GroupID, w.HPKEEncapsulated, w.Ciphertext)
	if err != nil {
		return nil, mlserr.New(mlserr.ValidationError, "open welcome: %v", err)
	}
	secrets, err := wire.UnmarshalGroupSecrets(plaintext)
	if err != nil {
		return nil, mlserr.New(mlserr.DecodeError, "group secrets: %v", err)
	}
	if !bytes.Equal(secrets.GroupID, w.GroupID) {
		return nil, mlserr.New(mlserr.ValidationError, "welcome group id mismatch")
	}

	if err := storeState(sess.Provider.Storage(), secrets); err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("welcome processed", "group_id", wire.HumanID(secrets.GroupID), "epoch", secrets.Epoch, "leaf", secrets.JoinerLeafIndex)
	}
	return secrets.GroupID, nil
}
