package dashboard

import (
	"fmt"
	"time"

	"github.com/elektroapp/elektrodash/pkg/calendar"
	"github.com/elektroapp/elektrodash/pkg/types"
)

// PageMode selects between the overview and the detail page. Detail panels
// only fetch while the detail page is shown.
type PageMode string

const (
	PageOverview PageMode = "overview"
	PageDetail   PageMode = "detail"
)

// BillingMode selects the monthly or yearly billing estimate.
type BillingMode string

const (
	BillingMonth BillingMode = "month"
	BillingYear  BillingMode = "year"
)

// Params are the user controlled inputs the resources depend on.
type Params struct {
	SelectedDate  string `json:"selected_date"`
	SelectedMonth string `json:"selected_month"`

	ShowConfig      bool `json:"show_config"`
	ShowFeesHistory bool `json:"show_fees_history"`
	ShowBilling     bool `json:"show_billing"`

	BillingMode  BillingMode `json:"billing_mode"`
	BillingMonth string      `json:"billing_month"`
	BillingYear  int         `json:"billing_year"`

	PageMode            PageMode            `json:"page_mode"`
	EnergyBalancePeriod types.Period        `json:"energy_balance_period"`
	EnergyBalanceAnchor string              `json:"energy_balance_anchor"`
	HeatmapMonth        string              `json:"heatmap_month"`
	HeatmapMetric       types.HeatmapMetric `json:"heatmap_metric"`

	AutoRefreshEnabled bool `json:"auto_refresh_enabled"`
	PageVisible        bool `json:"page_visible"`
}

// DefaultParams returns the parameters of a freshly opened dashboard.
func DefaultParams(now time.Time) Params {
	return Params{
		SelectedDate:        calendar.Today(now),
		SelectedMonth:       calendar.CurrentMonth(now),
		BillingMode:         BillingMonth,
		BillingMonth:        calendar.CurrentMonth(now),
		BillingYear:         calendar.CurrentYear(now),
		PageMode:            PageOverview,
		EnergyBalancePeriod: types.PeriodWeek,
		EnergyBalanceAnchor: calendar.Today(now),
		HeatmapMonth:        calendar.CurrentMonth(now),
		HeatmapMetric:       types.HeatmapPrice,
		AutoRefreshEnabled:  true,
		PageVisible:         true,
	}
}

// Validate rejects parameters no resource can be fetched for.
func (p Params) Validate() error {
	if _, err := time.Parse(calendar.DateLayout, p.SelectedDate); err != nil {
		return fmt.Errorf("invalid selected_date %q: %w", p.SelectedDate, err)
	}
	if _, err := time.Parse(calendar.MonthLayout, p.SelectedMonth); err != nil {
		return fmt.Errorf("invalid selected_month %q: %w", p.SelectedMonth, err)
	}
	if _, err := time.Parse(calendar.MonthLayout, p.BillingMonth); err != nil {
		return fmt.Errorf("invalid billing_month %q: %w", p.BillingMonth, err)
	}
	if p.BillingYear <= 0 {
		return fmt.Errorf("invalid billing_year: %d", p.BillingYear)
	}
	if _, err := time.Parse(calendar.MonthLayout, p.HeatmapMonth); err != nil {
		return fmt.Errorf("invalid heatmap_month %q: %w", p.HeatmapMonth, err)
	}
	switch p.BillingMode {
	case BillingMonth, BillingYear:
	default:
		return fmt.Errorf("unknown billing_mode: %q", p.BillingMode)
	}
	switch p.PageMode {
	case PageOverview, PageDetail:
	default:
		return fmt.Errorf("unknown page_mode: %q", p.PageMode)
	}
	if _, err := types.ParsePeriod(string(p.EnergyBalancePeriod)); err != nil {
		return err
	}
	if _, err := types.ParseHeatmapMetric(string(p.HeatmapMetric)); err != nil {
		return err
	}
	return nil
}
