package group

import (
	"bytes"
	"testing"

	"github.com/cairnmsg/mlscore/internal/dispatch"
	"github.com/cairnmsg/mlscore/internal/identity"
	"github.com/cairnmsg/mlscore/internal/keypkg"
	"github.com/cairnmsg/mlscore/internal/mlserr"
	"github.com/cairnmsg/mlscore/internal/session"
)

// party bundles a session with its own registry, mirroring how the
// façade gives each caller an independent session-id space.
type party struct {
	reg  *session.Registry
	id   uint32
	sess *session.Session
}

func newParty(t *testing.T, fill byte) party {
	t.Helper()
	reg, id, sess := newTestSession(t, fill)
	return party{reg: reg, id: id, sess: sess}
}

// sessionKeyPackage mirrors session_generate_key_package: the init
// private key is retained in p's own provider storage, so a later
// ProcessWelcome against it just works.
func sessionKeyPackage(t *testing.T, p party) []byte {
	t.Helper()
	bundle := identity.Bundle{
		Identity:          p.sess.Identity,
		SigningPublicKey:  p.sess.SigningPublicKey,
		SigningPrivateKey: p.sess.Signer.Seed(),
	}
	res, err := keypkg.Build(p.sess.Provider, bundle)
	if err != nil {
		t.Fatalf("build key package: %v", err)
	}
	return res.KeyPackageData
}

// TestTwoPartyRoundTrip is testable property 3 and scenario S1.
func TestTwoPartyRoundTrip(t *testing.T) {
	a := newParty(t, 0x01)
	b := newParty(t, 0x02)
	groupID := []byte{0xAA, 0xBB}

	if err := Create(nil, a.sess, groupID); err != nil {
		t.Fatalf("create: %v", err)
	}
	bKP := sessionKeyPackage(t, b)

	addResult, err := AddMember(nil, a.sess, groupID, bKP)
	if err != nil {
		t.Fatalf("add member: %v", err)
	}

	joinedGroupID, err := ProcessWelcome(nil, b.sess, addResult.Welcome)
	if err != nil {
		t.Fatalf("process welcome: %v", err)
	}
	if !bytes.Equal(joinedGroupID, groupID) {
		t.Fatalf("welcome yielded group id %x, want %x", joinedGroupID, groupID)
	}

	ciphertext, err := EncryptMessage(a.sess, groupID, []byte("hi"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	processed, err := ProcessGroupMessage(nil, b.sess, groupID, ciphertext)
	if err != nil {
		t.Fatalf("process group message: %v", err)
	}
	if processed.MessageType != dispatch.TypeApplication {
		t.Errorf("expected application message, got %s", processed.MessageType)
	}
	if string(processed.Plaintext) != "hi" {
		t.Errorf("expected plaintext %q, got %q", "hi", processed.Plaintext)
	}
	if !bytes.Equal(processed.SenderIdentity, a.sess.Identity) {
		t.Errorf("sender identity mismatch: got %x, want %x", processed.SenderIdentity, a.sess.Identity)
	}

	// Testable property 5: sender-side merge keeps the epoch in step
	// with the epoch the receiver reaches after processing the welcome.
	epochA, err := GetEpoch(a.sess, groupID)
	if err != nil {
		t.Fatalf("get epoch a: %v", err)
	}
	epochB, err := GetEpoch(b.sess, groupID)
	if err != nil {
		t.Fatalf("get epoch b: %v", err)
	}
	if epochA != epochB {
		t.Errorf("epoch mismatch after add: a=%d b=%d", epochA, epochB)
	}
	if epochA != 1 {
		t.Errorf("expected epoch 1 after one add, got %d", epochA)
	}
}

// TestRemoveAdvancesEpochAndRevokesAccess is testable properties 4 and 7,
// and scenario S2.
func TestRemoveAdvancesEpochAndRevokesAccess(t *testing.T) {
	a := newParty(t, 0x01)
	b := newParty(t, 0x02)
	groupID := []byte{0xAA, 0xBB}

	if err := Create(nil, a.sess, groupID); err != nil {
		t.Fatalf("create: %v", err)
	}
	addResult, err := AddMember(nil, a.sess, groupID, sessionKeyPackage(t, b))
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := ProcessWelcome(nil, b.sess, addResult.Welcome); err != nil {
		t.Fatalf("process welcome: %v", err)
	}

	epochBefore, _ := GetEpoch(a.sess, groupID)

	commit, err := RemoveMember(nil, a.sess, groupID, 1)
	if err != nil {
		t.Fatalf("remove member: %v", err)
	}
	epochAfter, err := GetEpoch(a.sess, groupID)
	if err != nil {
		t.Fatalf("get epoch: %v", err)
	}
	if epochAfter <= epochBefore {
		t.Fatalf("epoch did not advance: before=%d after=%d", epochBefore, epochAfter)
	}

	// B (removed, but not yet aware of it) encrypts against its stale
	// view of the group, before processing the removal commit.
	ciphertext, err := EncryptMessage(b.sess, groupID, []byte("can i still talk"))
	if err != nil {
		t.Fatalf("b can still locally encrypt against its stale view: %v", err)
	}

	processed, err := ProcessGroupMessage(nil, b.sess, groupID, commit)
	if err != nil {
		t.Fatalf("b processing the removal commit: %v", err)
	}
	if processed.MessageType != dispatch.TypeCommit {
		t.Errorf("expected a commit message, got %s", processed.MessageType)
	}
	epochB, err := GetEpoch(b.sess, groupID)
	if err != nil {
		t.Fatalf("get epoch b: %v", err)
	}
	if epochB != epochAfter {
		t.Errorf("b's epoch %d does not match a's %d after merging the removal", epochB, epochAfter)
	}

	// A must reject the removed member's message with ProtocolError.
	_, err = ProcessGroupMessage(nil, a.sess, groupID, ciphertext)
	merr, ok := err.(*mlserr.Error)
	if !ok || merr.Kind != mlserr.ProtocolError {
		t.Fatalf("expected ProtocolError processing a removed member's message, got %v", err)
	}
}

// TestThreePartyGroup is testable property 6.
func TestThreePartyGroup(t *testing.T) {
	a := newParty(t, 0x01)
	b := newParty(t, 0x02)
	c := newParty(t, 0x03)
	groupID := []byte{0xDD}

	if err := Create(nil, a.sess, groupID); err != nil {
		t.Fatalf("create: %v", err)
	}

	addB, err := AddMember(nil, a.sess, groupID, sessionKeyPackage(t, b))
	if err != nil {
		t.Fatalf("add b: %v", err)
	}
	if _, err := ProcessWelcome(nil, b.sess, addB.Welcome); err != nil {
		t.Fatalf("b processes welcome: %v", err)
	}

	addC, err := AddMember(nil, a.sess, groupID, sessionKeyPackage(t, c))
	if err != nil {
		t.Fatalf("add c: %v", err)
	}
	// B must process the second add's commit to stay in step.
	if _, err := ProcessGroupMessage(nil, b.sess, groupID, addC.Commit); err != nil {
		t.Fatalf("b processes add-c commit: %v", err)
	}
	if _, err := ProcessWelcome(nil, c.sess, addC.Welcome); err != nil {
		t.Fatalf("c processes welcome: %v", err)
	}

	epochA, _ := GetEpoch(a.sess, groupID)
	epochB, _ := GetEpoch(b.sess, groupID)
	epochC, _ := GetEpoch(c.sess, groupID)
	if epochA != epochB || epochB != epochC {
		t.Fatalf("epochs diverged: a=%d b=%d c=%d", epochA, epochB, epochC)
	}

	for _, sender := range []party{a, b, c} {
		ciphertext, err := EncryptMessage(sender.sess, groupID, []byte("hello all"))
		if err != nil {
			t.Fatalf("encrypt from sender: %v", err)
		}
		for _, receiver := range []party{a, b, c} {
			if receiver.sess == sender.sess {
				continue
			}
			processed, err := ProcessGroupMessage(nil, receiver.sess, groupID, ciphertext)
			if err != nil {
				t.Fatalf("receiver failed to process sender's message: %v", err)
			}
			if string(processed.Plaintext) != "hello all" {
				t.Errorf("unexpected plaintext: %q", processed.Plaintext)
			}
		}
	}
}

// TestSessionIsolation is testable property 8: operations on session X
// never observe or mutate groups created in session Y with the same
// group_id.
func TestSessionIsolation(t *testing.T) {
	x := newParty(t, 0x05)
	y := newParty(t, 0x06)
	groupID := []byte{0x01}

	if err := Create(nil, x.sess, groupID); err != nil {
		t.Fatalf("create in x: %v", err)
	}
	if _, err := GetEpoch(y.sess, groupID); err == nil {
		t.Fatal("expected y's provider to not see x's group with the same id")
	}
	if err := Create(nil, y.sess, groupID); err != nil {
		t.Fatalf("create in y with the same group id should succeed independently: %v", err)
	}
	// x's group still has only its creator at leaf 0, so removing leaf 1
	// is refused — confirms x's group state was untouched by y's Create.
	if _, err := RemoveMember(nil, x.sess, groupID, 1); err == nil {
		t.Fatal("expected removing a non-existent leaf from x's group to fail")
	}
}
