package types

// BatteryState is the direction of the projected battery trend.
type BatteryState string

const (
	BatteryCharging    BatteryState = "charging"
	BatteryDischarging BatteryState = "discharging"
	BatteryIdle        BatteryState = "idle"
	BatteryUnknown     BatteryState = "unknown"
)

// BatteryStatus is the latest measured battery state.
type BatteryStatus struct {
	SOCPercent            *float64     `json:"soc_percent"`
	BatteryPowerW         *float64     `json:"battery_power_w"`
	BatteryState          BatteryState `json:"battery_state"`
	AvgBatteryPowerW      *float64     `json:"avg_battery_power_w"`
	UsableCapacityKWh     *float64     `json:"usable_capacity_kwh"`
	ReserveSOCPercent     *float64     `json:"reserve_soc_percent"`
	StoredKWh             *float64     `json:"stored_kwh"`
	AvailableToReserveKWh *float64     `json:"available_to_reserve_kwh"`
	RemainingToFullKWh    *float64     `json:"remaining_to_full_kwh"`
	LastSOCTime           *string      `json:"last_soc_time"`
	LastPowerTime         *string      `json:"last_power_time"`
}

// BatteryPoint is a measured or projected sample.
type BatteryPoint struct {
	Time          string   `json:"time"`
	SOCPercent    *float64 `json:"soc_percent"`
	BatteryPowerW *float64 `json:"battery_power_w,omitempty"`
}

// BatteryProjection is the backend's trend/forecast projection.
type BatteryProjection struct {
	State               BatteryState   `json:"state"`
	ETAToFullAt         *string        `json:"eta_to_full_at"`
	ETAToFullMinutes    *int           `json:"eta_to_full_minutes"`
	ETAToReserveAt      *string        `json:"eta_to_reserve_at"`
	ETAToReserveMinutes *int           `json:"eta_to_reserve_minutes"`
	Method              string         `json:"method"`
	Confidence          string         `json:"confidence"`
	Points              []BatteryPoint `json:"points"`
}

// BatteryEnergy is today's energy counters.
type BatteryEnergy struct {
	BatteryInputTodayKWh  *float64 `json:"battery_input_today_kwh"`
	BatteryOutputTodayKWh *float64 `json:"battery_output_today_kwh"`
}

// SolarForecast is the solar production forecast.
type SolarForecast struct {
	Enabled                          bool     `json:"enabled"`
	PowerNowW                        *float64 `json:"power_now_w"`
	EnergyCurrentHourKWh             *float64 `json:"energy_current_hour_kwh"`
	EnergyNextHourKWh                *float64 `json:"energy_next_hour_kwh"`
	EnergyProductionTodayKWh         *float64 `json:"energy_production_today_kwh"`
	EnergyProductionTodayRemainingKW *float64 `json:"energy_production_today_remaining_kwh"`
	EnergyProductionTomorrowKWh      *float64 `json:"energy_production_tomorrow_kwh"`
	PeakTimeToday                    *string  `json:"peak_time_today"`
	PeakTimeTomorrow                 *string  `json:"peak_time_tomorrow"`
}

// Battery is the /battery response.
type Battery struct {
	Enabled       bool               `json:"enabled"`
	Configured    bool               `json:"configured"`
	IsToday       bool               `json:"is_today"`
	Date          string             `json:"date"`
	Timezone      string             `json:"timezone"`
	Status        *BatteryStatus     `json:"status"`
	CurrentEnergy *BatteryEnergy     `json:"current_energy"`
	ForecastSolar *SolarForecast     `json:"forecast_solar"`
	Projection    *BatteryProjection `json:"projection"`
	History       struct {
		Interval string         `json:"interval"`
		Points   []BatteryPoint `json:"points"`
	} `json:"history"`
}
