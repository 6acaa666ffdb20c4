package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricesDays(t *testing.T) {
	var nilPrices *Prices
	assert.Nil(t, nilPrices.Today())
	assert.Nil(t, nilPrices.Tomorrow())

	p := &Prices{Prices: make([]PriceSlot, SlotsPerDay)}
	assert.Len(t, p.Today(), SlotsPerDay)
	assert.Nil(t, p.Tomorrow())

	p.Prices = make([]PriceSlot, 2*SlotsPerDay+4)
	for i := range p.Prices {
		p.Prices[i].Final = float64(i)
	}
	assert.Len(t, p.Today(), SlotsPerDay)
	require.Len(t, p.Tomorrow(), SlotsPerDay)
	assert.Equal(t, float64(SlotsPerDay), p.Tomorrow()[0].Final)

	p.Prices = p.Prices[:10]
	assert.Len(t, p.Today(), 10)
}

func TestParsePeriod(t *testing.T) {
	for _, s := range []string{"week", "month", "year"} {
		p, err := ParsePeriod(s)
		require.NoError(t, err)
		assert.Equal(t, Period(s), p)
	}
	_, err := ParsePeriod("day")
	assert.Error(t, err)

	m, err := ParseHeatmapMetric("buy")
	require.NoError(t, err)
	assert.Equal(t, HeatmapBuy, m)
	_, err = ParseHeatmapMetric("")
	assert.Error(t, err)
}

func TestCacheFlags(t *testing.T) {
	var c Costs
	require.NoError(t, json.Unmarshal([]byte(`{"points":[],"from_cache":true,"cache_fallback":true}`), &c))
	fromCache, fallback := c.CacheFlags()
	assert.True(t, fromCache)
	assert.True(t, fallback)

	var e Export
	require.NoError(t, json.Unmarshal([]byte(`{"points":[],"summary":{"export_kwh_total":1.5,"sell_total":null}}`), &e))
	fromCache, fallback = e.CacheFlags()
	assert.False(t, fromCache)
	assert.False(t, fallback)
	require.NotNil(t, e.Summary)
	assert.Nil(t, e.Summary.SellTotal)
}

func TestBatteryDecode(t *testing.T) {
	var b Battery
	require.NoError(t, json.Unmarshal([]byte(`{
		"enabled": true,
		"is_today": true,
		"status": {"soc_percent": 55.5, "battery_state": "charging", "battery_power_w": 1200},
		"projection": {"state": "charging", "eta_to_full_at": "2026-03-15T12:30:00+01:00", "eta_to_full_minutes": 140, "eta_to_reserve_at": null},
		"history": {"interval": "5m", "points": [{"time": "2026-03-15T10:00:00+01:00", "soc_percent": 50}]}
	}`), &b))
	require.NotNil(t, b.Status)
	assert.Equal(t, BatteryCharging, b.Status.BatteryState)
	require.NotNil(t, b.Projection)
	assert.Equal(t, 140, *b.Projection.ETAToFullMinutes)
	assert.Nil(t, b.Projection.ETAToReserveAt)
	assert.Len(t, b.History.Points, 1)
}
