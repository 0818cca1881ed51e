package wire

// MemberRecord is one ratchet-tree leaf as seen from the outside: enough
// to reconstruct get_members() and to route future commits.
type MemberRecord struct {
	LeafIndex     uint32
	EncryptionKey []byte
	SignatureKey  []byte
	Identity      []byte
	Active        bool
}

func (m MemberRecord) encode(e *Encoder) {
	e.U32(m.LeafIndex)
	e.VarBytes(m.EncryptionKey)
	e.VarBytes(m.SignatureKey)
	e.VarBytes(m.Identity)
	if m.Active {
		e.U8(1)
	} else {
		e.U8(0)
	}
}

func decodeMemberRecord(d *Decoder) (MemberRecord, error) {
	var m MemberRecord
	var err error
	if m.LeafIndex, err = d.U32(); err != nil {
		return m, err
	}
	if m.EncryptionKey, err = d.VarBytes(); err != nil {
		return m, err
	}
	if m.SignatureKey, err = d.VarBytes(); err != nil {
		return m, err
	}
	if m.Identity, err = d.VarBytes(); err != nil {
		return m, err
	}
	active, err := d.U8()
	if err != nil {
		return m, err
	}
	m.Active = active != 0
	return m, nil
}

// GroupSecrets is the payload HPKE-sealed into a Welcome's ciphertext:
// everything a joiner needs to materialize the group at its current
// epoch without any further round trip, since ratchet-tree-in-extension
// is always enabled by this module's CreateGroup.
type GroupSecrets struct {
	GroupID         []byte
	Epoch           uint64
	EpochSecret     []byte
	Members         []MemberRecord
	JoinerLeafIndex uint32
}

// Marshal TLS-encodes the GroupSecrets payload.
func (g GroupSecrets) Marshal() []byte {
	e := NewEncoder()
	e.VarBytes(g.GroupID)
	e.U64(g.Epoch)
	e.VarBytes(g.EpochSecret)
	e.U32(uint32(len(g.Members)))
	for _, m := range g.Members {
		m.encode(e)
	}
	e.U32(g.JoinerLeafIndex)
	return e.Bytes()
}

// UnmarshalGroupSecrets TLS-decodes a GroupSecrets payload.
func UnmarshalGroupSecrets(b []byte) (GroupSecrets, error) {
	d := NewDecoder(b)
	var g GroupSecrets
	var err error
	if g.GroupID, err = d.VarBytes(); err != nil {
		return g, err
	}
	if g.Epoch, err = d.U64(); err != nil {
		return g, err
	}
	if g.EpochSecret, err = d.VarBytes(); err != nil {
		return g, err
	}
	n, err := d.U32()
	if err != nil {
		return g, err
	}
	for i := uint32(0); i < n; i++ {
		m, err := decodeMemberRecord(d)
		if err != nil {
			return g, err
		}
		g.Members = append(g.Members, m)
	}
	if g.JoinerLeafIndex, err = d.U32(); err != nil {
		return g, err
	}
	return g, nil
}
