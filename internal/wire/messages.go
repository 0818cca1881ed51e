package wire

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Ciphersuite is the MLS ciphersuite identifier. This module fixes it at
// MLS_128_DHKEMX25519_AES128GCM_SHA256_Ed25519 (numeric 1) throughout —
// see identity.Ciphersuite for the exported constant.
type Ciphersuite uint16

// Credential is a BasicCredential: an opaque identity byte string. MLS
// defines other credential types (X.509); this module never constructs
// them, matching spec's "identity is embedded verbatim" design.
type Credential struct {
	Identity []byte
}

func (c Credential) encode(e *Encoder) {
	e.U16(1) // credential_type = basic
	e.VarBytes(c.Identity)
}

func decodeCredential(d *Decoder) (Credential, error) {
	typ, err := d.U16()
	if err != nil {
		return Credential{}, err
	}
	if typ != 1 {
		return Credential{}, fmt.Errorf("unsupported credential type %d", typ)
	}
	identity, err := d.VarBytes()
	if err != nil {
		return Credential{}, err
	}
	return Credential{Identity: identity}, nil
}

// LeafNode is a member's entry in the ratchet tree: its HPKE encryption
// key (rotated by update/commit), its long-lived Ed25519 signature key,
// and its credential.
type LeafNode struct {
	EncryptionKey []byte // HPKE (X25519) public key, 32 bytes
	SignatureKey  []byte // Ed25519 public key, 32 bytes
	Credential    Credential
	Signature     []byte // signs the fields above, by SignatureKey
}

func (l LeafNode) signedContent() []byte {
	e := NewEncoder()
	e.VarBytes(l.EncryptionKey)
	e.VarBytes(l.SignatureKey)
	l.Credential.encode(e)
	return e.Bytes()
}

func (l LeafNode) encode(e *Encoder) {
	e.VarBytes(l.EncryptionKey)
	e.VarBytes(l.SignatureKey)
	l.Credential.encode(e)
	e.VarBytes(l.Signature)
}

func decodeLeafNode(d *Decoder) (LeafNode, error) {
	var l LeafNode
	var err error
	if l.EncryptionKey, err = d.VarBytes(); err != nil {
		return l, err
	}
	if l.SignatureKey, err = d.VarBytes(); err != nil {
		return l, err
	}
	if l.Credential, err = decodeCredential(d); err != nil {
		return l, err
	}
	if l.Signature, err = d.VarBytes(); err != nil {
		return l, err
	}
	return l, nil
}

// KeyPackage advertises a user's ability to be added to a group. It is
// signed by the leaf's own signature key (a self-signed "this is me").
type KeyPackage struct {
	Version     uint16
	CipherSuite Ciphersuite
	InitKey     []byte // HPKE (X25519) public key, 32 bytes
	Leaf        LeafNode
	Signature   []byte
}

func (k KeyPackage) signedContent() []byte {
	e := NewEncoder()
	e.U16(k.Version)
	e.U16(uint16(k.CipherSuite))
	e.VarBytes(k.InitKey)
	k.Leaf.encode(e)
	return e.Bytes()
}

// Marshal TLS-encodes the KeyPackage.
func (k KeyPackage) Marshal() []byte {
	e := NewEncoder()
	e.U16(k.Version)
	e.U16(uint16(k.CipherSuite))
	e.VarBytes(k.InitKey)
	k.Leaf.encode(e)
	e.VarBytes(k.Signature)
	return e.Bytes()
}

// UnmarshalKeyPackage TLS-decodes a KeyPackage.
func UnmarshalKeyPackage(b []byte) (KeyPackage, error) {
	d := NewDecoder(b)
	var k KeyPackage
	var err error
	if version, err2 := d.U16(); err2 != nil {
		return k, err2
	} else {
		k.Version = version
	}
	if cs, err2 := d.U16(); err2 != nil {
		return k, err2
	} else {
		k.CipherSuite = Ciphersuite(cs)
	}
	if k.InitKey, err = d.VarBytes(); err != nil {
		return k, err
	}
	if k.Leaf, err = decodeLeafNode(d); err != nil {
		return k, err
	}
	if k.Signature, err = d.VarBytes(); err != nil {
		return k, err
	}
	if d.Remaining() != 0 {
		return k, fmt.Errorf("%d trailing bytes after KeyPackage", d.Remaining())
	}
	return k, nil
}

// SignedContent returns the bytes a KeyPackage's Signature covers.
func (k KeyPackage) SignedContent() []byte { return k.signedContent() }

// SignedContent returns the bytes a LeafNode's Signature covers.
func (l LeafNode) SignedContent() []byte { return l.signedContent() }

// Commit describes the membership/key changes applied by a commit
// message. Proposals are carried inline rather than by reference —
// this module never defers a proposal into a later commit.
type Commit struct {
	GroupID    []byte
	Epoch      uint64 // epoch this commit transitions OUT of
	SenderLeaf uint32
	Adds       []KeyPackage
	Removes    []uint32
	Updates    []LeafNode // leaf-node replacements, indexed positionally by UpdateLeaves
	UpdateLeaves []uint32
}

func (c Commit) encode(e *Encoder) {
	e.VarBytes(c.GroupID)
	e.U64(c.Epoch)
	e.U32(c.SenderLeaf)
	e.U32(uint32(len(c.Adds)))
	for _, a := range c.Adds {
		e.VarBytes(a.Marshal())
	}
	e.U32(uint32(len(c.Removes)))
	for _, r := range c.Removes {
		e.U32(r)
	}
	e.U32(uint32(len(c.Updates)))
	for i, u := range c.Updates {
		e.U32(c.UpdateLeaves[i])
		e.VarBytes(u.encode2())
	}
}

// encode2 exists because encode() takes an *Encoder but LeafNode.encode
// already does; kept as a small adapter for Commit's nested encoding.
func (l LeafNode) encode2() []byte {
	e := NewEncoder()
	l.encode(e)
	return e.Bytes()
}

func decodeCommit(d *Decoder) (Commit, error) {
	var c Commit
	var err error
	if c.GroupID, err = d.VarBytes(); err != nil {
		return c, err
	}
	if c.Epoch, err = d.U64(); err != nil {
		return c, err
	}
	if c.SenderLeaf, err = d.U32(); err != nil {
		return c, err
	}
	nAdds, err := d.U32()
	if err != nil {
		return c, err
	}
	for i := uint32(0); i < nAdds; i++ {
		raw, err := d.VarBytes()
		if err != nil {
			return c, err
		}
		kp, err := UnmarshalKeyPackage(raw)
		if err != nil {
			return c, err
		}
		c.Adds = append(c.Adds, kp)
	}
	nRemoves, err := d.U32()
	if err != nil {
		return c, err
	}
	for i := uint32(0); i < nRemoves; i++ {
		r, err := d.U32()
		if err != nil {
			return c, err
		}
		c.Removes = append(c.Removes, r)
	}
	nUpdates, err := d.U32()
	if err != nil {
		return c, err
	}
	for i := uint32(0); i < nUpdates; i++ {
		leafIdx, err := d.U32()
		if err != nil {
			return c, err
		}
		raw, err := d.VarBytes()
		if err != nil {
			return c, err
		}
		leaf, err := decodeLeafNode(NewDecoder(raw))
		if err != nil {
			return c, err
		}
		c.UpdateLeaves = append(c.UpdateLeaves, leafIdx)
		c.Updates = append(c.Updates, leaf)
	}
	return c, nil
}

// FramedContentType discriminates the payload of a PublicMessage or
// PrivateMessage, mirroring RFC 9420's ContentType.
type FramedContentType uint8

const (
	ContentApplication FramedContentType = iota + 1
	ContentProposal
	ContentCommit
	ContentExternalJoinProposal
)

// PublicMessage carries a Commit or Proposal signed in the clear by the
// sender's leaf signature key. This module never needs PublicMessage
// confidentiality (the delivery service is untrusted-but-not-secret for
// control traffic in this deployment), so commits and proposals both
// travel as PublicMessage; only application plaintext goes through
// PrivateMessage's AEAD sealing.
type PublicMessage struct {
	GroupID     []byte
	Epoch       uint64
	SenderLeaf  uint32
	ContentType FramedContentType
	Content     []byte // TLS-encoded Commit, or raw proposal/external-join bytes
	Signature   []byte
}

func (m PublicMessage) signedContent() []byte {
	e := NewEncoder()
	e.VarBytes(m.GroupID)
	e.U64(m.Epoch)
	e.U32(m.SenderLeaf)
	e.U8(uint8(m.ContentType))
	e.VarBytes(m.Content)
	return e.Bytes()
}

// SignedContent returns the bytes a PublicMessage's Signature covers.
func (m PublicMessage) SignedContent() []byte { return m.signedContent() }

func (m PublicMessage) encode(e *Encoder) {
	e.VarBytes(m.GroupID)
	e.U64(m.Epoch)
	e.U32(m.SenderLeaf)
	e.U8(uint8(m.ContentType))
	e.VarBytes(m.Content)
	e.VarBytes(m.Signature)
}

func decodePublicMessage(d *Decoder) (PublicMessage, error) {
	var m PublicMessage
	var err error
	if m.GroupID, err = d.VarBytes(); err != nil {
		return m, err
	}
	if m.Epoch, err = d.U64(); err != nil {
		return m, err
	}
	if m.SenderLeaf, err = d.U32(); err != nil {
		return m, err
	}
	ct, err := d.U8()
	if err != nil {
		return m, err
	}
	m.ContentType = FramedContentType(ct)
	if m.Content, err = d.VarBytes(); err != nil {
		return m, err
	}
	if m.Signature, err = d.VarBytes(); err != nil {
		return m, err
	}
	return m, nil
}

// PrivateMessage carries AEAD-sealed application plaintext. Nonce and
// ciphertext are opaque to this codec; internal/group owns the AEAD key
// schedule.
type PrivateMessage struct {
	GroupID    []byte
	Epoch      uint64
	SenderLeaf uint32
	Nonce      []byte
	Ciphertext []byte
}

func (m PrivateMessage) encode(e *Encoder) {
	e.VarBytes(m.GroupID)
	e.U64(m.Epoch)
	e.U32(m.SenderLeaf)
	e.VarBytes(m.Nonce)
	e.VarBytes(m.Ciphertext)
}

func decodePrivateMessage(d *Decoder) (PrivateMessage, error) {
	var m PrivateMessage
	var err error
	if m.GroupID, err = d.VarBytes(); err != nil {
		return m, err
	}
	if m.Epoch, err = d.U64(); err != nil {
		return m, err
	}
	if m.SenderLeaf, err = d.U32(); err != nil {
		return m, err
	}
	if m.Nonce, err = d.VarBytes(); err != nil {
		return m, err
	}
	if m.Ciphertext, err = d.VarBytes(); err != nil {
		return m, err
	}
	return m, nil
}

// Welcome invites a new member by sealing the group's joiner secret and
// membership list to the joiner's KeyPackage init key.
type Welcome struct {
	GroupID          []byte
	Epoch            uint64
	CipherSuite      Ciphersuite
	InitKeyPub       []byte // the recipient KeyPackage's init public key, for init-key lookup
	HPKEEncapsulated []byte // HPKE "enc" value from the seal to InitKey
	Ciphertext       []byte // HPKE-sealed GroupSecretsPayload
}

func (w Welcome) encode(e *Encoder) {
	e.VarBytes(w.GroupID)
	e.U64(w.Epoch)
	e.U16(uint16(w.CipherSuite))
	e.VarBytes(w.InitKeyPub)
	e.VarBytes(w.HPKEEncapsulated)
	e.VarBytes(w.Ciphertext)
}

func decodeWelcome(d *Decoder) (Welcome, error) {
	var w Welcome
	var err error
	if w.GroupID, err = d.VarBytes(); err != nil {
		return w, err
	}
	if w.Epoch, err = d.U64(); err != nil {
		return w, err
	}
	cs, err := d.U16()
	if err != nil {
		return w, err
	}
	w.CipherSuite = Ciphersuite(cs)
	if w.InitKeyPub, err = d.VarBytes(); err != nil {
		return w, err
	}
	if w.HPKEEncapsulated, err = d.VarBytes(); err != nil {
		return w, err
	}
	if w.Ciphertext, err = d.VarBytes(); err != nil {
		return w, err
	}
	return w, nil
}

// EnvelopeVariant discriminates the top-level MlsMessage body, mirroring
// RFC 9420's WireFormat enum.
type EnvelopeVariant uint8

const (
	VariantKeyPackage EnvelopeVariant = iota + 1
	VariantWelcome
	VariantGroupInfo
	VariantPublicMessage
	VariantPrivateMessage
)

func (v EnvelopeVariant) String() string {
	switch v {
	case VariantKeyPackage:
		return "KeyPackage"
	case VariantWelcome:
		return "Welcome"
	case VariantGroupInfo:
		return "GroupInfo"
	case VariantPublicMessage:
		return "PublicMessage"
	case VariantPrivateMessage:
		return "PrivateMessage"
	default:
		return "Unknown"
	}
}

// Envelope is the MlsMessage(In) wrapper every wire-crossing blob is
// framed in.
type Envelope struct {
	Variant EnvelopeVariant
	Body    []byte
}

// Marshal TLS-encodes the envelope.
func (env Envelope) Marshal() []byte {
	e := NewEncoder()
	e.U8(uint8(env.Variant))
	e.VarBytes(env.Body)
	return e.Bytes()
}

// UnmarshalEnvelope TLS-decodes an MlsMessageIn envelope.
func UnmarshalEnvelope(b []byte) (Envelope, error) {
	d := NewDecoder(b)
	variant, err := d.U8()
	if err != nil {
		return Envelope{}, err
	}
	body, err := d.VarBytes()
	if err != nil {
		return Envelope{}, err
	}
	if d.Remaining() != 0 {
		return Envelope{}, fmt.Errorf("%d trailing bytes after envelope", d.Remaining())
	}
	return Envelope{Variant: EnvelopeVariant(variant), Body: body}, nil
}

// WrapKeyPackage frames a KeyPackage as an MlsMessage envelope.
func WrapKeyPackage(k KeyPackage) Envelope {
	return Envelope{Variant: VariantKeyPackage, Body: k.Marshal()}
}

// WrapWelcome frames a Welcome as an MlsMessage envelope.
func WrapWelcome(w Welcome) Envelope {
	e := NewEncoder()
	w.encode(e)
	return Envelope{Variant: VariantWelcome, Body: e.Bytes()}
}

// UnwrapWelcome requires the envelope to be a Welcome and decodes it.
func UnwrapWelcome(env Envelope) (Welcome, error) {
	if env.Variant != VariantWelcome {
		return Welcome{}, fmt.Errorf("expected Welcome, got %s", env.Variant)
	}
	return decodeWelcome(NewDecoder(env.Body))
}

// WrapPublicMessage frames a PublicMessage as an MlsMessage envelope.
func WrapPublicMessage(m PublicMessage) Envelope {
	e := NewEncoder()
	m.encode(e)
	return Envelope{Variant: VariantPublicMessage, Body: e.Bytes()}
}

// UnwrapPublicMessage requires the envelope to be a PublicMessage.
func UnwrapPublicMessage(env Envelope) (PublicMessage, error) {
	if env.Variant != VariantPublicMessage {
		return PublicMessage{}, fmt.Errorf("expected PublicMessage, got %s", env.Variant)
	}
	return decodePublicMessage(NewDecoder(env.Body))
}

// WrapPrivateMessage frames a PrivateMessage as an MlsMessage envelope.
func WrapPrivateMessage(m PrivateMessage) Envelope {
	e := NewEncoder()
	m.encode(e)
	return Envelope{Variant: VariantPrivateMessage, Body: e.Bytes()}
}

// UnwrapPrivateMessage requires the envelope to be a PrivateMessage.
func UnwrapPrivateMessage(env Envelope) (PrivateMessage, error) {
	if env.Variant != VariantPrivateMessage {
		return PrivateMessage{}, fmt.Errorf("expected PrivateMessage, got %s", env.Variant)
	}
	return decodePrivateMessage(NewDecoder(env.Body))
}

// DecodeCommit TLS-decodes a Commit from a PublicMessage's Content field.
func DecodeCommit(content []byte) (Commit, error) {
	return decodeCommit(NewDecoder(content))
}

// EncodeCommit TLS-encodes a Commit for a PublicMessage's Content field.
func EncodeCommit(c Commit) []byte {
	e := NewEncoder()
	c.encode(e)
	return e.Bytes()
}

// HumanID renders an opaque identifier (group id, identity key, leaf
// signature key) as base58 for operator-facing log lines, the way
// lux-derived IDs are conventionally displayed rather than as raw hex.
func HumanID(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base58.Encode(b)
}
