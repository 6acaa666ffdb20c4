// Package dashboard owns the state of every remote resource shown on the
// dashboard and keeps it consistent with the user controlled parameters.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/elektroapp/elektrodash/pkg/api"
	"github.com/elektroapp/elektrodash/pkg/calendar"
	"github.com/elektroapp/elektrodash/pkg/feeshistory"
	"github.com/elektroapp/elektrodash/pkg/log"
	"github.com/elektroapp/elektrodash/pkg/storage"
	"github.com/elektroapp/elektrodash/pkg/types"
	"github.com/levenlabs/go-lflag"
)

const (
	DefaultRefreshInterval = 10 * time.Minute
	DefaultBatteryInterval = time.Minute

	feesLoadFailed = "Nepodarilo se nacist historii poplatku."
	feesSaveFailed = "Nepodarilo se ulozit historii poplatku."
)

// API is the backend the coordinator reads from. *api.Client implements it.
type API interface {
	GetPrices(ctx context.Context, date string) (types.Prices, error)
	RefreshPrices(ctx context.Context) (types.PricesRefresh, error)
	GetConfig(ctx context.Context) (types.Config, error)
	GetVersion(ctx context.Context) (types.Version, error)
	GetCacheStatus(ctx context.Context) (types.CacheStatus, error)
	GetCosts(ctx context.Context, date string) (types.Costs, error)
	GetExport(ctx context.Context, date string) (types.Export, error)
	GetBattery(ctx context.Context, date string) (types.Battery, error)
	GetDailySummary(ctx context.Context, month string) (types.DailySummary, error)
	GetBillingMonth(ctx context.Context, month string) (types.BillingMonth, error)
	GetBillingYear(ctx context.Context, year int) (types.BillingYear, error)
	GetEnergyBalance(ctx context.Context, period types.Period, anchor string) (types.EnergyBalance, error)
	GetHistoryHeatmap(ctx context.Context, month string, metric types.HeatmapMetric) (types.Heatmap, error)
	GetFeesHistory(ctx context.Context) ([]types.FeeScheduleEntry, error)
	SaveFeesHistory(ctx context.Context, history []types.FeeScheduleInput) ([]types.FeeScheduleEntry, error)
	GetSchedule(ctx context.Context, duration, count int) (types.Schedule, error)
}

var _ API = (*api.Client)(nil)

// PricesRefreshResult is the outcome of a manual price refresh.
type PricesRefreshResult struct {
	Message   string                `json:"message"`
	Refreshed []types.RefreshedDate `json:"refreshed"`
}

// Resources holds one Slice per remote resource.
type Resources struct {
	Prices        Slice[types.Prices]        `json:"prices"`
	Config        Slice[types.Config]        `json:"config"`
	Version       Slice[types.Version]       `json:"version"`
	CacheStatus   Slice[types.CacheStatus]   `json:"cache_status"`
	Costs         Slice[types.Costs]         `json:"costs"`
	Export        Slice[types.Export]        `json:"export"`
	TodayCosts    Slice[types.Costs]         `json:"today_costs"`
	TodayExport   Slice[types.Export]        `json:"today_export"`
	Battery       Slice[types.Battery]       `json:"battery"`
	Monthly       Slice[types.DailySummary]  `json:"monthly"`
	Billing       Slice[types.Billing]       `json:"billing"`
	EnergyBalance Slice[types.EnergyBalance] `json:"energy_balance"`
	Heatmap       Slice[types.Heatmap]       `json:"heatmap"`
	FeesHistory   Slice[types.FeesHistory]   `json:"fees_history"`
	PricesRefresh Slice[PricesRefreshResult] `json:"prices_refresh"`
	Planner       Slice[types.Schedule]      `json:"planner"`
}

// state is everything guarded by Coordinator.mu.
type state = Resources

// Options tune a Coordinator. Zero values use the defaults.
type Options struct {
	Now             func() time.Time
	Location        *time.Location
	RefreshInterval time.Duration
	BatteryInterval time.Duration
}

type timer struct {
	cancel context.CancelFunc
	date   string
}

// Coordinator owns the resource slices, the refetch rules tied to Params and
// the auto refresh timers.
type Coordinator struct {
	api   API
	prefs *storage.Preferences
	fees  *feeshistory.Editor

	now             func() time.Time
	loc             *time.Location
	refreshInterval time.Duration
	batteryInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu                sync.Mutex
	state             state
	params            Params
	started           bool
	closed            bool
	refreshTimer      *timer
	batteryTimer      *timer
	plannerDuration   string
	plannerValidation string

	pendingMu   sync.Mutex
	pendingCond *sync.Cond
	pending     int

	subsMu     sync.Mutex
	subs       map[chan struct{}]struct{}
	subsClosed bool
}

// Configured returns a Coordinator whose timezone and timer intervals come
// from flags.
func Configured(a API, prefs *storage.Preferences) *Coordinator {
	tz := lflag.String("timezone", "Europe/Prague", "Timezone used to determine today and the current price slot")
	refresh := lflag.Duration("refresh-interval", DefaultRefreshInterval, "Interval of the combined auto refresh")
	battery := lflag.Duration("battery-interval", DefaultBatteryInterval, "Interval of the silent battery refresh")

	c := &Coordinator{}
	lflag.Do(func() {
		loc, err := time.LoadLocation(*tz)
		if err != nil {
			panic(fmt.Sprintf("invalid timezone %q: %v", *tz, err))
		}
		if *refresh <= 0 || *battery <= 0 {
			panic("refresh-interval and battery-interval must be positive")
		}
		c.init(a, prefs, Options{
			Location:        loc,
			RefreshInterval: *refresh,
			BatteryInterval: *battery,
		})
	})
	return c
}

// New returns a Coordinator reading from a. prefs may be nil, in which case
// preferences are kept in memory only.
func New(a API, prefs *storage.Preferences, opts Options) *Coordinator {
	c := &Coordinator{}
	c.init(a, prefs, opts)
	return c
}

func (c *Coordinator) init(a API, prefs *storage.Preferences, opts Options) {
	c.api = a
	c.prefs = prefs
	c.now = opts.Now
	if c.now == nil {
		c.now = time.Now
	}
	c.loc = opts.Location
	if c.loc == nil {
		c.loc = time.Local
	}
	c.refreshInterval = opts.RefreshInterval
	if c.refreshInterval <= 0 {
		c.refreshInterval = DefaultRefreshInterval
	}
	c.batteryInterval = opts.BatteryInterval
	if c.batteryInterval <= 0 {
		c.batteryInterval = DefaultBatteryInterval
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.pendingCond = sync.NewCond(&c.pendingMu)
	c.subs = make(map[chan struct{}]struct{})
	c.params = DefaultParams(c.localNow())
	c.plannerDuration = storage.DefaultPlannerDuration
	c.fees = feeshistory.NewEditor(c, c.localNow)
}

func (c *Coordinator) localNow() time.Time {
	return c.now().In(c.loc)
}

func (c *Coordinator) today() string {
	return calendar.Today(c.localNow())
}

// Location returns the timezone used for "today".
func (c *Coordinator) Location() *time.Location {
	return c.loc
}

// FeesEditor returns the fee history editor. Its saves go through the
// coordinator's fees history slice.
func (c *Coordinator) FeesEditor() *feeshistory.Editor {
	return c.fees
}

// EditFees runs fn against the fee history editor and notifies subscribers
// afterwards, whatever fn returns.
func (c *Coordinator) EditFees(fn func(*feeshistory.Editor) error) error {
	defer c.notify()
	return fn(c.fees)
}

// Params returns the current parameters.
func (c *Coordinator) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Start loads every active resource and starts the auto refresh timers.
// Stored preferences are applied first. Cancelling ctx closes the
// coordinator.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	if c.prefs != nil {
		c.params.AutoRefreshEnabled = c.prefs.AutoRefreshEnabled()
		c.plannerDuration = c.prefs.PlannerDuration()
	}
	p := c.params

	c.loadPricesLocked()
	c.loadTodayKPIsLocked()
	c.loadBatteryLocked(true)
	c.loadConfigLocked()
	c.loadVersionLocked()
	if p.ShowConfig {
		c.loadCacheStatusLocked()
	}
	c.loadCostsLocked(p.SelectedDate, true)
	c.loadExportLocked(p.SelectedDate, true)
	c.loadMonthlyLocked()
	if p.ShowBilling {
		c.loadBillingLocked()
	}
	if p.ShowConfig && p.ShowFeesHistory {
		c.loadFeesHistoryLocked()
	}
	if p.PageMode == PageDetail {
		c.loadEnergyBalanceLocked()
		c.loadHeatmapLocked()
	}
	c.syncTimersLocked()
	c.mu.Unlock()
	c.notify()

	log.Ctx(ctx).InfoContext(ctx, "dashboard started", slog.String("today", c.today()), slog.Bool("autoRefresh", p.AutoRefreshEnabled))

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.ctx.Done():
		}
	}()
}

// Close stops the timers, abandons in-flight requests and waits for them to
// return.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimersLocked()
	c.mu.Unlock()

	c.cancel()
	c.Wait()

	c.subsMu.Lock()
	c.subsClosed = true
	for ch := range c.subs {
		close(ch)
		delete(c.subs, ch)
	}
	c.subsMu.Unlock()
}

// Update applies fn to a copy of the parameters. Invalid results are
// rejected. Resources whose inputs changed are refetched and the timers are
// restarted when their inputs changed.
func (c *Coordinator) Update(ctx context.Context, fn func(*Params)) (Params, error) {
	c.mu.Lock()
	old := c.params
	next := old
	fn(&next)
	if err := next.Validate(); err != nil {
		c.mu.Unlock()
		return old, err
	}
	c.params = next
	if c.started && !c.closed {
		c.applyLocked(old, next)
		c.syncTimersLocked()
	}
	c.mu.Unlock()

	if old.AutoRefreshEnabled != next.AutoRefreshEnabled && c.prefs != nil {
		if err := c.prefs.SetAutoRefreshEnabled(ctx, next.AutoRefreshEnabled); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to persist auto refresh preference", slog.Any("error", err))
		}
	}
	c.notify()
	return next, nil
}

func (c *Coordinator) applyLocked(old, next Params) {
	if old.SelectedDate != next.SelectedDate {
		c.loadCostsLocked(next.SelectedDate, true)
		c.loadExportLocked(next.SelectedDate, true)
	}
	if old.SelectedMonth != next.SelectedMonth {
		c.loadMonthlyLocked()
	}
	if next.ShowConfig && !old.ShowConfig {
		c.loadCacheStatusLocked()
	}
	if next.ShowBilling && (!old.ShowBilling ||
		old.BillingMode != next.BillingMode ||
		old.BillingMonth != next.BillingMonth ||
		old.BillingYear != next.BillingYear) {
		c.loadBillingLocked()
	}
	if next.ShowConfig && next.ShowFeesHistory && (!old.ShowConfig || !old.ShowFeesHistory) {
		c.loadFeesHistoryLocked()
	}
	if next.PageMode == PageDetail {
		enteredDetail := old.PageMode != PageDetail
		if enteredDetail || old.EnergyBalancePeriod != next.EnergyBalancePeriod || old.EnergyBalanceAnchor != next.EnergyBalanceAnchor {
			c.loadEnergyBalanceLocked()
		}
		if enteredDetail || old.HeatmapMonth != next.HeatmapMonth || old.HeatmapMetric != next.HeatmapMetric {
			c.loadHeatmapLocked()
		}
	}
}

func (c *Coordinator) loadPricesLocked() {
	loadLocked(c, "prices", func(s *state) *Slice[types.Prices] { return &s.Prices }, loadOpts{silent: true}, func(ctx context.Context) (types.Prices, error) {
		return c.api.GetPrices(ctx, "")
	})
}

func (c *Coordinator) loadConfigLocked() {
	sel := func(s *state) *Slice[types.Config] { return &s.Config }
	seq := sel(&c.state).begin(loadOpts{})
	ctx := c.ctx
	c.spawn(func() {
		cfg, applied, err := complete(ctx, c, "config", sel, loadOpts{errorText: formatted("")}, seq, c.api.GetConfig)
		if applied && err == nil {
			c.fees.SetDefaults(feeshistory.DefaultsFromConfig(cfg))
		}
	})
}

func (c *Coordinator) loadVersionLocked() {
	loadLocked(c, "version", func(s *state) *Slice[types.Version] { return &s.Version }, loadOpts{errorText: formatted("")}, c.api.GetVersion)
}

func (c *Coordinator) loadCacheStatusLocked() {
	loadLocked(c, "cache status", func(s *state) *Slice[types.CacheStatus] { return &s.CacheStatus }, loadOpts{errorText: formatted("")}, c.api.GetCacheStatus)
}

func (c *Coordinator) loadCostsLocked(date string, reset bool) {
	loadLocked(c, "costs", func(s *state) *Slice[types.Costs] { return &s.Costs }, loadOpts{reset: reset}, func(ctx context.Context) (types.Costs, error) {
		return c.api.GetCosts(ctx, date)
	})
}

func (c *Coordinator) loadExportLocked(date string, reset bool) {
	loadLocked(c, "export", func(s *state) *Slice[types.Export] { return &s.Export }, loadOpts{reset: reset}, func(ctx context.Context) (types.Export, error) {
		return c.api.GetExport(ctx, date)
	})
}

func (c *Coordinator) loadTodayKPIsLocked() {
	today := c.today()
	o := loadOpts{silent: true, clearOnError: true}
	loadLocked(c, "today costs", func(s *state) *Slice[types.Costs] { return &s.TodayCosts }, o, func(ctx context.Context) (types.Costs, error) {
		return c.api.GetCosts(ctx, today)
	})
	loadLocked(c, "today export", func(s *state) *Slice[types.Export] { return &s.TodayExport }, o, func(ctx context.Context) (types.Export, error) {
		return c.api.GetExport(ctx, today)
	})
}

func (c *Coordinator) loadBatteryLocked(silent bool) {
	loadLocked(c, "battery", func(s *state) *Slice[types.Battery] { return &s.Battery }, loadOpts{silent: silent}, func(ctx context.Context) (types.Battery, error) {
		return c.api.GetBattery(ctx, "")
	})
}

func (c *Coordinator) loadMonthlyLocked() {
	month := c.params.SelectedMonth
	loadLocked(c, "monthly summary", func(s *state) *Slice[types.DailySummary] { return &s.Monthly }, loadOpts{reset: true}, func(ctx context.Context) (types.DailySummary, error) {
		return c.api.GetDailySummary(ctx, month)
	})
}

func (c *Coordinator) loadBillingLocked() {
	p := c.params
	loadLocked(c, "billing", func(s *state) *Slice[types.Billing] { return &s.Billing }, loadOpts{reset: true}, func(ctx context.Context) (types.Billing, error) {
		if p.BillingMode == BillingYear {
			y, err := c.api.GetBillingYear(ctx, p.BillingYear)
			if err != nil {
				return types.Billing{}, err
			}
			return types.Billing{Year: &y}, nil
		}
		m, err := c.api.GetBillingMonth(ctx, p.BillingMonth)
		if err != nil {
			return types.Billing{}, err
		}
		return types.Billing{Month: &m}, nil
	})
}

func (c *Coordinator) loadEnergyBalanceLocked() {
	period := c.params.EnergyBalancePeriod
	anchor := calendar.NormalizeAnchorAt(c.localNow(), period, c.params.EnergyBalanceAnchor)
	loadLocked(c, "energy balance", func(s *state) *Slice[types.EnergyBalance] { return &s.EnergyBalance }, loadOpts{}, func(ctx context.Context) (types.EnergyBalance, error) {
		return c.api.GetEnergyBalance(ctx, period, anchor)
	})
}

func (c *Coordinator) loadHeatmapLocked() {
	month, metric := c.params.HeatmapMonth, c.params.HeatmapMetric
	loadLocked(c, "heatmap", func(s *state) *Slice[types.Heatmap] { return &s.Heatmap }, loadOpts{}, func(ctx context.Context) (types.Heatmap, error) {
		return c.api.GetHistoryHeatmap(ctx, month, metric)
	})
}

func selFees(s *state) *Slice[types.FeesHistory] { return &s.FeesHistory }

func (c *Coordinator) loadFeesHistoryLocked() {
	o := loadOpts{errorText: formatted(feesLoadFailed)}
	seq := selFees(&c.state).begin(o)
	ctx := c.ctx
	c.spawn(func() {
		h, applied, err := complete(ctx, c, "fees history", selFees, o, seq, func(ctx context.Context) (types.FeesHistory, error) {
			history, err := c.api.GetFeesHistory(ctx)
			return types.FeesHistory{History: history}, err
		})
		if applied && err == nil {
			c.fees.Reset(h.History)
		}
	})
}

// RefreshBattery reloads the battery state with a visible loading state.
func (c *Coordinator) RefreshBattery() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.loadBatteryLocked(false)
	c.mu.Unlock()
	c.notify()
}

// SaveFeesHistory replaces the fee history through the fees history slice.
// It implements feeshistory.Saver.
func (c *Coordinator) SaveFeesHistory(ctx context.Context, history []types.FeeScheduleInput) ([]types.FeeScheduleEntry, error) {
	h, err := fetch(ctx, c, "fees history save", selFees, loadOpts{errorText: formatted(feesSaveFailed)}, func(ctx context.Context) (types.FeesHistory, error) {
		saved, err := c.api.SaveFeesHistory(ctx, history)
		return types.FeesHistory{History: saved}, err
	})
	if err != nil {
		return nil, err
	}
	return h.History, nil
}

func formatted(fallback string) func(error) string {
	return func(err error) string {
		return api.FormatError(err, fallback)
	}
}

func (c *Coordinator) syncTimersLocked() {
	if !c.started || c.closed || !c.params.AutoRefreshEnabled || !c.params.PageVisible {
		c.stopTimersLocked()
		return
	}
	if c.refreshTimer == nil || c.refreshTimer.date != c.params.SelectedDate {
		if c.refreshTimer != nil {
			c.refreshTimer.cancel()
		}
		c.refreshTimer = c.startTimerLocked(c.refreshInterval, c.refreshTick)
		c.refreshTimer.date = c.params.SelectedDate
	}
	if c.batteryTimer == nil {
		c.batteryTimer = c.startTimerLocked(c.batteryInterval, c.batteryTick)
	}
}

func (c *Coordinator) stopTimersLocked() {
	if c.refreshTimer != nil {
		c.refreshTimer.cancel()
		c.refreshTimer = nil
	}
	if c.batteryTimer != nil {
		c.batteryTimer.cancel()
		c.batteryTimer = nil
	}
}

// startTimerLocked runs tick right away and then every interval until the
// returned timer is cancelled. The first tick counts towards Wait.
func (c *Coordinator) startTimerLocked(interval time.Duration, tick func(context.Context)) *timer {
	ctx, cancel := context.WithCancel(c.ctx)
	c.addPending()
	go func() {
		tick(ctx)
		c.release()

		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				tick(ctx)
			}
		}
	}()
	return &timer{cancel: cancel}
}

// refreshTick reloads prices, today's KPIs, the selected day when it is
// today and, silently, the battery.
func (c *Coordinator) refreshTick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	log.Ctx(ctx).DebugContext(ctx, "auto refresh")
	c.loadPricesLocked()
	c.loadTodayKPIsLocked()
	if c.params.SelectedDate == c.today() {
		c.loadCostsLocked(c.params.SelectedDate, false)
		c.loadExportLocked(c.params.SelectedDate, false)
	}
	c.loadBatteryLocked(true)
}

func (c *Coordinator) batteryTick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	c.loadBatteryLocked(true)
}

func (c *Coordinator) addPending() {
	c.pendingMu.Lock()
	c.pending++
	c.pendingMu.Unlock()
}

func (c *Coordinator) release() {
	c.pendingMu.Lock()
	c.pending--
	if c.pending == 0 {
		c.pendingCond.Broadcast()
	}
	c.pendingMu.Unlock()
}

func (c *Coordinator) spawn(f func()) {
	c.addPending()
	go func() {
		defer c.release()
		f()
	}()
}

// Wait blocks until no request started by the coordinator is in flight.
func (c *Coordinator) Wait() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for c.pending > 0 {
		c.pendingCond.Wait()
	}
}

// Subscribe returns a channel that receives a value whenever any resource or
// parameter changes. Bursts are coalesced. The channel is closed by the
// returned function or when the coordinator closes. After Close the channel
// is returned already closed.
func (c *Coordinator) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.subsMu.Lock()
	if c.subsClosed {
		c.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subs[ch] = struct{}{}
	c.subsMu.Unlock()
	return ch, func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
	}
}

func (c *Coordinator) notify() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
