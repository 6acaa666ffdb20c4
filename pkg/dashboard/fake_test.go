package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elektroapp/elektrodash/pkg/types"
)

var prague = mustLoad("Europe/Prague")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// testNow is 2026-03-15 10:07 in Prague, price slot 40.
var testNow = time.Date(2026, 3, 15, 10, 7, 0, 0, prague)

// fakeAPI records every call as "Method(args)" and answers with the hook for
// the method, or a zero value.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	prices        func(ctx context.Context, date string) (types.Prices, error)
	refreshPrices func(ctx context.Context) (types.PricesRefresh, error)
	config        func(ctx context.Context) (types.Config, error)
	costs         func(ctx context.Context, date string) (types.Costs, error)
	export        func(ctx context.Context, date string) (types.Export, error)
	battery       func(ctx context.Context, date string) (types.Battery, error)
	feesHistory   func(ctx context.Context) ([]types.FeeScheduleEntry, error)
	saveFees      func(ctx context.Context, history []types.FeeScheduleInput) ([]types.FeeScheduleEntry, error)
	schedule      func(ctx context.Context, duration, count int) (types.Schedule, error)
}

func (f *fakeAPI) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// count returns how many calls start with prefix.
func (f *fakeAPI) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeAPI) GetPrices(ctx context.Context, date string) (types.Prices, error) {
	f.record("GetPrices(%s)", date)
	if f.prices != nil {
		return f.prices(ctx, date)
	}
	return types.Prices{}, nil
}

func (f *fakeAPI) RefreshPrices(ctx context.Context) (types.PricesRefresh, error) {
	f.record("RefreshPrices()")
	if f.refreshPrices != nil {
		return f.refreshPrices(ctx)
	}
	return types.PricesRefresh{}, nil
}

func (f *fakeAPI) GetConfig(ctx context.Context) (types.Config, error) {
	f.record("GetConfig()")
	if f.config != nil {
		return f.config(ctx)
	}
	return types.Config{}, nil
}

func (f *fakeAPI) GetVersion(ctx context.Context) (types.Version, error) {
	f.record("GetVersion()")
	return types.Version{Version: "test"}, nil
}

func (f *fakeAPI) GetCacheStatus(ctx context.Context) (types.CacheStatus, error) {
	f.record("GetCacheStatus()")
	return types.CacheStatus{}, nil
}

func (f *fakeAPI) GetCosts(ctx context.Context, date string) (types.Costs, error) {
	f.record("GetCosts(%s)", date)
	if f.costs != nil {
		return f.costs(ctx, date)
	}
	return types.Costs{}, nil
}

func (f *fakeAPI) GetExport(ctx context.Context, date string) (types.Export, error) {
	f.record("GetExport(%s)", date)
	if f.export != nil {
		return f.export(ctx, date)
	}
	return types.Export{}, nil
}

func (f *fakeAPI) GetBattery(ctx context.Context, date string) (types.Battery, error) {
	f.record("GetBattery(%s)", date)
	if f.battery != nil {
		return f.battery(ctx, date)
	}
	return types.Battery{}, nil
}

func (f *fakeAPI) GetDailySummary(ctx context.Context, month string) (types.DailySummary, error) {
	f.record("GetDailySummary(%s)", month)
	return types.DailySummary{Month: month}, nil
}

func (f *fakeAPI) GetBillingMonth(ctx context.Context, month string) (types.BillingMonth, error) {
	f.record("GetBillingMonth(%s)", month)
	return types.BillingMonth{Month: month}, nil
}

func (f *fakeAPI) GetBillingYear(ctx context.Context, year int) (types.BillingYear, error) {
	f.record("GetBillingYear(%d)", year)
	return types.BillingYear{Year: year}, nil
}

func (f *fakeAPI) GetEnergyBalance(ctx context.Context, period types.Period, anchor string) (types.EnergyBalance, error) {
	f.record("GetEnergyBalance(%s,%s)", period, anchor)
	return types.EnergyBalance{Period: string(period), Anchor: anchor}, nil
}

func (f *fakeAPI) GetHistoryHeatmap(ctx context.Context, month string, metric types.HeatmapMetric) (types.Heatmap, error) {
	f.record("GetHistoryHeatmap(%s,%s)", month, metric)
	return types.Heatmap{Month: month, Metric: string(metric)}, nil
}

func (f *fakeAPI) GetFeesHistory(ctx context.Context) ([]types.FeeScheduleEntry, error) {
	f.record("GetFeesHistory()")
	if f.feesHistory != nil {
		return f.feesHistory(ctx)
	}
	return nil, nil
}

func (f *fakeAPI) SaveFeesHistory(ctx context.Context, history []types.FeeScheduleInput) ([]types.FeeScheduleEntry, error) {
	f.record("SaveFeesHistory(%d)", len(history))
	if f.saveFees != nil {
		return f.saveFees(ctx, history)
	}
	return nil, nil
}

func (f *fakeAPI) GetSchedule(ctx context.Context, duration, count int) (types.Schedule, error) {
	f.record("GetSchedule(%d,%d)", duration, count)
	if f.schedule != nil {
		return f.schedule(ctx, duration, count)
	}
	return types.Schedule{Duration: duration}, nil
}

// newTestCoordinator returns a started coordinator with the timers off, so
// only explicit actions hit the API.
func newTestCoordinator(t *testing.T, f *fakeAPI, setup func(*Params)) *Coordinator {
	t.Helper()
	c := New(f, nil, Options{
		Now:      func() time.Time { return testNow },
		Location: prague,
	})
	_, err := c.Update(context.Background(), func(p *Params) {
		p.AutoRefreshEnabled = false
		if setup != nil {
			setup(p)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	c.Start(context.Background())
	c.Wait()
	t.Cleanup(c.Close)
	return c
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
