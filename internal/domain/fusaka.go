package domain

// FusakaDeath is one persistent tracker entry: a node presumed to have
// stopped attesting at the Fusaka fork.
type FusakaDeath struct {
	NodeAddress string `json:"node_address"`
	Epoch       int64  `json:"epoch"`
	Timestamp   int64  `json:"timestamp"`
	DateTime    string `json:"datetime"`
}

// FusakaDeathFile is the side file persisted across runs.
type FusakaDeathFile struct {
	Validators  []FusakaDeath `json:"validators"`
	TotalCount  int           `json:"total_count"`
	LastUpdated string        `json:"last_updated"`
}
