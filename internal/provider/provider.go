package provider

// Provider binds one Storage to one Crypto backend. Exactly one exists
// per session (spec.md §4.1); never share a Provider across sessions.
type Provider struct {
	storage *Storage
	crypto  Crypto
}

// New returns a fresh, empty Provider.
func New() *Provider {
	return &Provider{storage: NewStorage()}
}

// Storage returns the provider's storage backend.
func (p *Provider) Storage() *Storage { return p.storage }

// Crypto returns the provider's crypto backend.
func (p *Provider) Crypto() Crypto { return p.crypto }

// Export snapshots the provider's storage to bytes. Not wired to the
// façade or RPC surface (SPEC_FULL.md §9, Open Question resolved "no") — kept
// so a persistent provider can be built behind the same interface
// later without an architecture change.
func (p *Provider) Export() ([]byte, error) {
	return p.storage.Export()
}

// Import reconstructs a Provider from bytes produced by Export.
func Import(data []byte) (*Provider, error) {
	storage, err := ImportStorage(data)
	if err != nil {
		return nil, err
	}
	return &Provider{storage: storage}, nil
}
