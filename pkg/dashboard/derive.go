package dashboard

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/elektroapp/elektrodash/pkg/format"
	"github.com/elektroapp/elektrodash/pkg/types"
)

// Tone is the color family of a KPI tile.
type Tone string

const (
	TonePrice   Tone = "price"
	ToneNeutral Tone = "neutral"
	ToneBuy     Tone = "buy"
	ToneSell    Tone = "sell"
	ToneBattery Tone = "battery"
)

// KPI is one tile of the today strip.
type KPI struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Value  string `json:"value"`
	Detail string `json:"detail,omitempty"`
	Tone   Tone   `json:"tone"`
}

// KPIInputs are the slices the KPI tiles are computed from. Nil means not
// loaded.
type KPIInputs struct {
	Prices      *types.Prices
	TodayCosts  *types.Costs
	TodayExport *types.Export
	Battery     *types.Battery
}

// PriceNow returns today's slot covering now, if prices are loaded for it.
func PriceNow(prices *types.Prices, now time.Time) (types.PriceSlot, int, bool) {
	today := prices.Today()
	slot := format.SlotAt(now)
	if slot < 0 || slot >= len(today) {
		return types.PriceSlot{}, slot, false
	}
	return today[slot], slot, true
}

// NetToday is today's cost minus today's sell revenue. Either side missing
// counts as zero; nil is returned only when both are missing.
func NetToday(costs *types.Costs, export *types.Export) *float64 {
	cost := todayCost(costs)
	sell := todaySell(export)
	if cost == nil && sell == nil {
		return nil
	}
	var net float64
	if cost != nil {
		net += *cost
	}
	if sell != nil {
		net -= *sell
	}
	return &net
}

func todayCost(c *types.Costs) *float64 {
	if c == nil || c.Summary == nil {
		return nil
	}
	return c.Summary.CostTotal
}

func todaySell(e *types.Export) *float64 {
	if e == nil || e.Summary == nil {
		return nil
	}
	return e.Summary.SellTotal
}

func kwhDetail(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f kWh", *v)
}

// BuildKPIs computes the today tiles at now.
func BuildKPIs(now time.Time, in KPIInputs, loc *time.Location) []KPI {
	priceNow := KPI{Key: "price-now", Label: "Cena ted", Value: format.Missing, Tone: TonePrice}
	if slot, idx, ok := PriceNow(in.Prices, now); ok {
		priceNow.Value = format.Currency(&slot.Final)
		priceNow.Detail = format.SlotToTime(idx)
	}

	minPrice := KPI{Key: "price-min", Label: "Dnes min", Value: format.Missing, Tone: ToneNeutral}
	maxPrice := KPI{Key: "price-max", Label: "Dnes max", Value: format.Missing, Tone: ToneNeutral}
	if today := in.Prices.Today(); len(today) > 0 {
		finals := make([]float64, len(today))
		for i, s := range today {
			finals[i] = s.Final
		}
		lo, hi := slices.Min(finals), slices.Max(finals)
		minPrice.Value = format.Currency(&lo)
		maxPrice.Value = format.Currency(&hi)
	}

	cost := KPI{Key: "cost-today", Label: "Naklad dnes", Value: format.Currency(todayCost(in.TodayCosts)), Tone: ToneBuy}
	if in.TodayCosts != nil && in.TodayCosts.Summary != nil {
		cost.Detail = kwhDetail(in.TodayCosts.Summary.KWhTotal)
	}

	export := KPI{Key: "export-today", Label: "Export dnes", Value: format.Currency(todaySell(in.TodayExport)), Tone: ToneSell}
	if in.TodayExport != nil && in.TodayExport.Summary != nil {
		export.Detail = kwhDetail(in.TodayExport.Summary.ExportKWhTotal)
	}

	net := NetToday(in.TodayCosts, in.TodayExport)
	netKPI := KPI{Key: "net-today", Label: "Netto dnes", Value: format.Currency(net), Tone: ToneBuy}
	if net != nil && *net <= 0 {
		netKPI.Tone = ToneSell
	}

	return []KPI{priceNow, minPrice, maxPrice, cost, export, netKPI, batteryKPI(in.Battery, loc)}
}

func batteryKPI(b *types.Battery, loc *time.Location) KPI {
	k := KPI{Key: "battery", Label: "Baterie", Value: format.Missing, Tone: ToneBattery}
	if b == nil || b.Status == nil {
		return k
	}
	st := b.Status
	if st.SOCPercent != nil {
		k.Value = format.Percent(st.SOCPercent)
		if st.BatteryState != "" && st.BatteryState != types.BatteryUnknown {
			k.Value += " (" + string(st.BatteryState) + ")"
		}
	}
	var detail []string
	if p := format.SignedWatts(st.BatteryPowerW); p != "" {
		detail = append(detail, p)
	}
	if eta := BatteryETADetail(b, loc); eta != "" {
		detail = append(detail, eta)
	}
	k.Detail = strings.Join(detail, " | ")
	return k
}

// etaPoint picks the projected ETA matching the projection direction.
func etaPoint(b *types.Battery) (at string, minutes *int, state types.BatteryState) {
	p := b.Projection
	if p == nil {
		return "", nil, ""
	}
	switch p.State {
	case types.BatteryCharging:
		if p.ETAToFullAt != nil && *p.ETAToFullAt != "" {
			return *p.ETAToFullAt, p.ETAToFullMinutes, p.State
		}
	case types.BatteryDischarging:
		if p.ETAToReserveAt != nil && *p.ETAToReserveAt != "" {
			return *p.ETAToReserveAt, p.ETAToReserveMinutes, p.State
		}
	}
	return "", nil, ""
}

func withDuration(clock string, minutes *int) string {
	if d := format.Duration(minutes); d != "" {
		return clock + " (" + d + ")"
	}
	return clock
}

// BatteryETADetail is the short ETA shown in the battery KPI tile, e.g.
// "plna v 14:30 (2 h 5 min)". It is empty unless the data is for today and
// the projection has an ETA in its direction.
func BatteryETADetail(b *types.Battery, loc *time.Location) string {
	if b == nil || !b.IsToday {
		return ""
	}
	at, minutes, state := etaPoint(b)
	if at == "" {
		return ""
	}
	clock := format.Clock(at, loc)
	if clock == "" {
		return ""
	}
	if state == types.BatteryCharging {
		return "plna v " + withDuration(clock, minutes)
	}
	return "do rezervy v " + withDuration(clock, minutes)
}

// BatteryETA is the sentence under the battery chart. It is empty when the
// data is not for today or no status was measured.
func BatteryETA(b *types.Battery, loc *time.Location) string {
	if b == nil || !b.IsToday || b.Status == nil {
		return ""
	}
	if at, minutes, state := etaPoint(b); at != "" {
		clock := format.Clock(at, loc)
		if clock == "" {
			return ""
		}
		if state == types.BatteryCharging {
			return "Baterie bude nabita cca v " + withDuration(clock, minutes) + "."
		}
		return "Baterie vydrzi cca do " + withDuration(clock, minutes) + "."
	}
	if b.Status.BatteryState == types.BatteryIdle {
		return "Baterie je zhruba ve stabilnim stavu (vykon pod prahem pro ETA)."
	}
	return "ETA neni k dispozici (chybi trend nebo data)."
}
