package types

// CostPoint is a consumption sample with its cost.
type CostPoint struct {
	Time string   `json:"time"`
	KWh  *float64 `json:"kwh"`
	Cost *float64 `json:"cost"`
}

// CostSummary totals a day of consumption.
type CostSummary struct {
	KWhTotal  *float64 `json:"kwh_total"`
	CostTotal *float64 `json:"cost_total"`
}

// Costs is the /costs response.
type Costs struct {
	Points        []CostPoint  `json:"points"`
	Summary       *CostSummary `json:"summary"`
	FromCache     bool         `json:"from_cache"`
	CacheFallback bool         `json:"cache_fallback"`
}

// CacheFlags implements the cache flag accessor used by resource slices.
func (c *Costs) CacheFlags() (bool, bool) {
	return c.FromCache, c.CacheFallback
}

// ExportPoint is an exported energy sample with its sell revenue.
type ExportPoint struct {
	Time string   `json:"time"`
	KWh  *float64 `json:"kwh"`
	Sell *float64 `json:"sell"`
}

// ExportSummary totals a day of export.
type ExportSummary struct {
	ExportKWhTotal *float64 `json:"export_kwh_total"`
	SellTotal      *float64 `json:"sell_total"`
}

// Export is the /export response.
type Export struct {
	Points        []ExportPoint  `json:"points"`
	Summary       *ExportSummary `json:"summary"`
	FromCache     bool           `json:"from_cache"`
	CacheFallback bool           `json:"cache_fallback"`
}

// CacheFlags implements the cache flag accessor used by resource slices.
func (e *Export) CacheFlags() (bool, bool) {
	return e.FromCache, e.CacheFallback
}

// DaySummary is one day of the monthly summary.
type DaySummary struct {
	Date           string   `json:"date"`
	KWhTotal       *float64 `json:"kwh_total"`
	CostTotal      *float64 `json:"cost_total"`
	ExportKWhTotal *float64 `json:"export_kwh_total"`
	SellTotal      *float64 `json:"sell_total"`
}

// DailySummary is the /daily-summary response.
type DailySummary struct {
	Month   string       `json:"month"`
	Days    []DaySummary `json:"days"`
	Summary *DaySummary  `json:"summary"`
}

// BillingTotals is the cost breakdown of a billing period.
type BillingTotals struct {
	KWhTotal       *float64 `json:"kwh_total"`
	VariableCost   *float64 `json:"variable_cost"`
	FixedCost      *float64 `json:"fixed_cost"`
	TotalCost      *float64 `json:"total_cost"`
	ExportKWhTotal *float64 `json:"export_kwh_total"`
	SellTotal      *float64 `json:"sell_total"`
	NetTotal       *float64 `json:"net_total"`
}

// BillingMonth is the /billing-month response.
type BillingMonth struct {
	Month        string         `json:"month"`
	DaysWithData int            `json:"days_with_data"`
	DaysInMonth  int            `json:"days_in_month"`
	Actual       *BillingTotals `json:"actual"`
	Projected    *BillingTotals `json:"projected"`
}

// BillingYear is the /billing-year response.
type BillingYear struct {
	Year   int            `json:"year"`
	Months []BillingMonth `json:"months"`
	Totals *BillingTotals `json:"totals"`
}

// Billing holds whichever billing view is selected. Exactly one field is set.
type Billing struct {
	Month *BillingMonth `json:"month,omitempty"`
	Year  *BillingYear  `json:"year,omitempty"`
}

// EnergyBalancePoint is one bucket of the energy balance.
type EnergyBalancePoint struct {
	Key           string   `json:"key"`
	Label         string   `json:"label"`
	Start         string   `json:"start"`
	PVKWh         *float64 `json:"pv_kwh"`
	HouseLoadKWh  *float64 `json:"house_load_kwh"`
	GridImportKWh *float64 `json:"grid_import_kwh"`
	GridExportKWh *float64 `json:"grid_export_kwh"`
}

// EnergyBalanceTotals sums all buckets.
type EnergyBalanceTotals struct {
	PVKWh         float64 `json:"pv_kwh"`
	HouseLoadKWh  float64 `json:"house_load_kwh"`
	GridImportKWh float64 `json:"grid_import_kwh"`
	GridExportKWh float64 `json:"grid_export_kwh"`
}

// EnergyBalance is the /energy-balance response.
type EnergyBalance struct {
	Period string `json:"period"`
	Anchor string `json:"anchor"`
	Bucket string `json:"bucket"`
	Range  struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"range"`
	Interval string               `json:"interval"`
	Points   []EnergyBalancePoint `json:"points"`
	Totals   EnergyBalanceTotals  `json:"totals"`
}

// HeatmapDay is one row of the heatmap.
type HeatmapDay struct {
	Date    string     `json:"date"`
	Day     int        `json:"day"`
	Weekday int        `json:"weekday"`
	Values  []*float64 `json:"values"`
}

// Heatmap is the /history-heatmap response.
type Heatmap struct {
	Month  string       `json:"month"`
	Metric string       `json:"metric"`
	Hours  []int        `json:"hours"`
	Days   []HeatmapDay `json:"days"`
	Stats  struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	} `json:"stats"`
}
