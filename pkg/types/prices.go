package types

// SlotsPerDay is the number of 15 minute price slots in a day.
const SlotsPerDay = 96

// PriceSlot is the price of a single 15 minute slot.
type PriceSlot struct {
	Time   string  `json:"time"`
	Hour   int     `json:"hour"`
	Minute int     `json:"minute"`
	Spot   float64 `json:"spot"`
	Final  float64 `json:"final"`
}

// Prices is the /prices response. Without a date it holds today followed by
// tomorrow, 192 slots when both days are published.
type Prices struct {
	Prices []PriceSlot `json:"prices"`
}

// Today returns the first day of slots.
func (p *Prices) Today() []PriceSlot {
	if p == nil {
		return nil
	}
	if len(p.Prices) > SlotsPerDay {
		return p.Prices[:SlotsPerDay]
	}
	return p.Prices
}

// Tomorrow returns the second day of slots, if published.
func (p *Prices) Tomorrow() []PriceSlot {
	if p == nil || len(p.Prices) <= SlotsPerDay {
		return nil
	}
	end := len(p.Prices)
	if end > 2*SlotsPerDay {
		end = 2 * SlotsPerDay
	}
	return p.Prices[SlotsPerDay:end]
}

// RefreshedDate is one entry of the /prices/refresh response.
type RefreshedDate struct {
	Date    string `json:"date"`
	Count   int    `json:"count"`
	HasData bool   `json:"has_data"`
}

// PricesRefresh is the /prices/refresh response.
type PricesRefresh struct {
	Status    string          `json:"status"`
	Provider  string          `json:"provider"`
	Refreshed []RefreshedDate `json:"refreshed"`
}

// ScheduleWindow is one recommended window from the planner.
type ScheduleWindow struct {
	Start     string  `json:"start"`
	End       string  `json:"end"`
	AvgPrice  float64 `json:"avg_price"`
	EnergyKWh float64 `json:"energy_kwh,omitempty"`
	TotalCost float64 `json:"total_cost"`
}

// Schedule is the /schedule response.
type Schedule struct {
	Duration        int              `json:"duration"`
	Recommendations []ScheduleWindow `json:"recommendations"`
	Note            *string          `json:"note"`
}
