package types

// Poplatky are the per-kWh fees.
type Poplatky struct {
	KomoditaSluzba  float64    `json:"komodita_sluzba"`
	OZE             float64    `json:"oze"`
	Dan             float64    `json:"dan"`
	SystemoveSluzby float64    `json:"systemove_sluzby"`
	Distribuce      Distribuce `json:"distribuce"`
}

// Distribuce is the distribution fee split by tariff.
type Distribuce struct {
	NT float64 `json:"NT"`
	VT float64 `json:"VT"`
}

// Fixni are the fixed daily and monthly fees.
type Fixni struct {
	Denni struct {
		StalyPlat float64 `json:"staly_plat"`
	} `json:"denni"`
	Mesicni struct {
		ProvozNesitoveInfrastruktury float64 `json:"provoz_nesitove_infrastruktury"`
		Jistic                       float64 `json:"jistic"`
	} `json:"mesicni"`
}

// Prodej configures the sell price.
type Prodej struct {
	KoeficientSnizeniCeny float64 `json:"koeficient_snizeni_ceny"`
}

// Config is the subset of the /config tree the dashboard reads.
type Config struct {
	DPH           float64  `json:"dph"`
	PriceProvider string   `json:"price_provider"`
	Poplatky      Poplatky `json:"poplatky"`
	Fixni         Fixni    `json:"fixni"`
	Prodej        Prodej   `json:"prodej"`
	Tarif         struct {
		VTPeriods any `json:"vt_periods"`
	} `json:"tarif"`
}

// Version is the /version response.
type Version struct {
	Version string `json:"version"`
}

// CacheInfo describes one on-disk cache of the backend.
type CacheInfo struct {
	Count     int     `json:"count"`
	Latest    *string `json:"latest"`
	SizeBytes *int64  `json:"size_bytes"`
	Dir       string  `json:"dir"`
}

// CacheStatus is the /cache-status response.
type CacheStatus struct {
	Prices      CacheInfo `json:"prices"`
	Consumption CacheInfo `json:"consumption"`
}
