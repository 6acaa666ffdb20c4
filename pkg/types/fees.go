package types

// FeeSnapshot is the fee schedule as normalized by the backend.
type FeeSnapshot struct {
	DPHPercent float64 `json:"dph_percent"`
	KWhFees    struct {
		Komodita        float64    `json:"komodita_sluzba"`
		OZE             float64    `json:"oze"`
		Dan             float64    `json:"dan"`
		SystemoveSluzby float64    `json:"systemove_sluzby"`
		Distribuce      Distribuce `json:"distribuce"`
	} `json:"kwh_fees"`
	Fixed struct {
		Daily struct {
			StalyPlat float64 `json:"staly_plat"`
		} `json:"daily"`
		Monthly struct {
			ProvozNesitoveInfrastruktury float64 `json:"provoz_nesitove_infrastruktury"`
			Jistic                       float64 `json:"jistic"`
		} `json:"monthly"`
	} `json:"fixed"`
	Prodej Prodej `json:"prodej"`
}

// FeeScheduleEntry is one period of the fee history as returned by the backend.
// EffectiveTo is nil for an open-ended period.
type FeeScheduleEntry struct {
	EffectiveFrom string      `json:"effective_from"`
	EffectiveTo   *string     `json:"effective_to,omitempty"`
	Snapshot      FeeSnapshot `json:"snapshot"`
}

// FeeSnapshotInput is the snapshot shape accepted by PUT /fees-history.
type FeeSnapshotInput struct {
	DPH      float64  `json:"dph"`
	Poplatky Poplatky `json:"poplatky"`
	Fixni    Fixni    `json:"fixni"`
	Prodej   Prodej   `json:"prodej"`
}

// FeeScheduleInput is one period submitted to PUT /fees-history.
type FeeScheduleInput struct {
	EffectiveFrom string           `json:"effective_from"`
	EffectiveTo   string           `json:"effective_to,omitempty"`
	Snapshot      FeeSnapshotInput `json:"snapshot"`
}

// FeesHistory is the /fees-history response.
type FeesHistory struct {
	History []FeeScheduleEntry `json:"history"`
}
