package domain

// Marketplace is the registry record of one marketplace instance.
// Immutable after creation.
type Marketplace struct {
	Address    Address `json:"address"`
	Admin      Address `json:"admin"`
	Seed       uint64  `json:"seed"`
	CreatedSeq uint64  `json:"created_seq"`
}

// NewMarketplace builds the registry record at its derived address.
func NewMarketplace(admin Address, seed uint64) *Marketplace {
	return &Marketplace{
		Address: MarketplaceAddress(admin, seed),
		Admin:   admin,
		Seed:    seed,
	}
}

func (m *Marketplace) AccountAddress() Address { return m.Address }
func (m *Marketplace) Kind() AccountKind       { return KindMarketplace }

func (m *Marketplace) Clone() Account {
	c := *m
	return &c
}

func (m *Marketplace) StampSeq(seq uint64) {
	if m.CreatedSeq == 0 {
		m.CreatedSeq = seq
	}
}
