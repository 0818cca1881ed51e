package group

import (
	"crypto/ed25519"
	"testing"

	"github.com/cairnmsg/mlscore/internal/identity"
	"github.com/cairnmsg/mlscore/internal/keypkg"
	"github.com/cairnmsg/mlscore/internal/mlserr"
	"github.com/cairnmsg/mlscore/internal/session"
)

// newTestSession builds a live session outside the registry's mutex, for
// tests that only need one session at a time and want direct access to
// the *session.Session value.
func newTestSession(t *testing.T, fill byte) (*session.Registry, uint32, *session.Session) {
	t.Helper()
	ident := make([]byte, 32)
	for i := range ident {
		ident[i] = fill
	}
	bundle, err := identity.CreateCredential(ident)
	if err != nil {
		t.Fatalf("create credential: %v", err)
	}
	reg := session.NewRegistry(nil)
	id, err := reg.New(bundle)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	var sess *session.Session
	if err := reg.With(id, func(s *session.Session) error { sess = s; return nil }); err != nil {
		t.Fatalf("with: %v", err)
	}
	return reg, id, sess
}

func TestCreateGroupRejectsDuplicate(t *testing.T) {
	_, _, sess := newTestSession(t, 0x11)
	groupID := []byte{0xAA}
	if err := Create(nil, sess, groupID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := Create(nil, sess, groupID)
	merr, ok := err.(*mlserr.Error)
	if !ok || merr.Kind != mlserr.ProtocolError {
		t.Fatalf("expected ProtocolError for duplicate group, got %v", err)
	}
}

func TestGetEpochAndMembersAfterCreate(t *testing.T) {
	_, _, sess := newTestSession(t, 0x12)
	groupID := []byte{0xBB}
	if err := Create(nil, sess, groupID); err != nil {
		t.Fatalf("create: %v", err)
	}
	epoch, err := GetEpoch(sess, groupID)
	if err != nil {
		t.Fatalf("get epoch: %v", err)
	}
	if epoch != 0 {
		t.Errorf("expected epoch 0 at creation, got %d", epoch)
	}
	membersJSON, err := GetMembers(sess, groupID)
	if err != nil {
		t.Fatalf("get members: %v", err)
	}
	if membersJSON == "" || membersJSON == "null" {
		t.Fatalf("expected a members array, got %q", membersJSON)
	}
}

func TestGetEpochUnknownGroup(t *testing.T) {
	_, _, sess := newTestSession(t, 0x13)
	_, err := GetEpoch(sess, []byte{0xFF})
	merr, ok := err.(*mlserr.Error)
	if !ok || merr.Kind != mlserr.GroupNotFound {
		t.Fatalf("expected GroupNotFound, got %v", err)
	}
}

// TestAddMemberRejectsInvalidKeyPackage is related to the supplemented property
// from SPEC_FULL.md §8: a commit applied but never written back never
// happens in this implementation (AddMember always merges before
// returning), but a KeyPackage that fails validation must leave storage
// untouched so a retried AddMember with a corrected KeyPackage succeeds.
func TestAddMemberRejectsInvalidKeyPackage(t *testing.T) {
	_, _, sessA := newTestSession(t, 0x14)
	groupID := []byte{0xCC}
	if err := Create(nil, sessA, groupID); err != nil {
		t.Fatalf("create: %v", err)
	}
	epochBefore, _ := GetEpoch(sessA, groupID)

	_, err := AddMember(nil, sessA, groupID, []byte("not a key package"))
	if err == nil {
		t.Fatal("expected an error for a garbage key package")
	}

	epochAfter, err := GetEpoch(sessA, groupID)
	if err != nil {
		t.Fatalf("get epoch: %v", err)
	}
	if epochAfter != epochBefore {
		t.Errorf("epoch changed after a failed add: %d -> %d", epochBefore, epochAfter)
	}

	bPub, bPriv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	bBundle, err := identity.ImportSigningKey(make([]byte, 32), bPriv, bPub)
	if err != nil {
		t.Fatalf("import signing key: %v", err)
	}
	kp, err := keypkg.GenerateKeyPackage(bBundle.Identity, bBundle.SigningPrivateKey, bBundle.SigningPublicKey)
	if err != nil {
		t.Fatalf("generate key package: %v", err)
	}
	if _, err := AddMember(nil, sessA, groupID, kp.KeyPackageData); err != nil {
		t.Fatalf("expected a retried AddMember with a valid key package to succeed: %v", err)
	}
}
