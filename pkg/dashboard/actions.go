package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/elektroapp/elektrodash/pkg/api"
	"github.com/elektroapp/elektrodash/pkg/log"
	"github.com/elektroapp/elektrodash/pkg/types"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxPlannerDuration is the longest window the planner accepts, in minutes.
	MaxPlannerDuration = 360
	// PlannerCount is the number of windows requested from the planner.
	PlannerCount = 3

	MsgDurationMissing   = "Zadej delku programu 1-360 minut."
	MsgDurationTooLong   = "Okno je prilis dlouhe. Zadej delku 1-360 minut."
	msgPlannerFailed     = "Planovac neni k dispozici."
	msgPricesRefreshed   = "Ceny byly obnoveny."
	msgPricesRefreshFail = "Obnoveni cen selhalo."
)

var (
	// ErrDurationMissing is returned for an empty, non-numeric or
	// non-positive duration.
	ErrDurationMissing = errors.New(MsgDurationMissing)
	// ErrDurationTooLong is returned for a duration above MaxPlannerDuration.
	ErrDurationTooLong = errors.New(MsgDurationTooLong)
)

// NormalizeDuration parses a planner duration in minutes. Like parseInt, it
// reads the leading integer and ignores anything after it.
func NormalizeDuration(raw string) (int, error) {
	n, ok := leadingInt(raw)
	if !ok || n <= 0 {
		return 0, ErrDurationMissing
	}
	if n > MaxPlannerDuration {
		return 0, ErrDurationTooLong
	}
	return n, nil
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// out of range, keep the sign
		if strings.HasPrefix(s, "-") {
			return -1, true
		}
		return MaxPlannerDuration + 1, true
	}
	return n, true
}

func plannerErrorText(err error) string {
	msg := api.Extract(err)
	if msg.Status == http.StatusUnprocessableEntity {
		return fmt.Sprintf("%s [%s]", MsgDurationTooLong, msg.Code)
	}
	return api.FormatError(err, msgPlannerFailed)
}

// PlannerDuration returns the last requested planner duration.
func (c *Coordinator) PlannerDuration() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plannerDuration
}

// SetPlannerDuration stores the planner duration as typed by the user.
func (c *Coordinator) SetPlannerDuration(ctx context.Context, raw string) error {
	c.mu.Lock()
	changed := c.plannerDuration != raw
	c.plannerDuration = raw
	c.mu.Unlock()
	if !changed {
		return nil
	}
	c.notify()
	if c.prefs == nil {
		return nil
	}
	if err := c.prefs.SetPlannerDuration(ctx, raw); err != nil {
		return fmt.Errorf("error persisting planner duration: %w", err)
	}
	return nil
}

// LoadPlanner validates raw and asks the planner for the cheapest windows of
// that many minutes. Invalid durations never reach the backend; they are
// stored as the planner validation message and returned.
func (c *Coordinator) LoadPlanner(ctx context.Context, raw string) (types.Schedule, error) {
	if err := c.SetPlannerDuration(ctx, raw); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to persist planner duration", slog.Any("error", err))
	}
	minutes, err := NormalizeDuration(raw)
	c.mu.Lock()
	if err != nil {
		c.plannerValidation = err.Error()
	} else {
		c.plannerValidation = ""
	}
	c.mu.Unlock()
	if err != nil {
		c.notify()
		return types.Schedule{}, err
	}

	return fetch(ctx, c, "planner", func(s *state) *Slice[types.Schedule] { return &s.Planner }, loadOpts{errorText: plannerErrorText}, func(ctx context.Context) (types.Schedule, error) {
		return c.api.GetSchedule(ctx, minutes, PlannerCount)
	})
}

// RefreshPrices asks the backend to refetch prices from the provider and then
// reloads everything derived from prices. The refresh stays loading until the
// follow-up loads finish.
func (c *Coordinator) RefreshPrices(ctx context.Context) (PricesRefreshResult, error) {
	sel := func(s *state) *Slice[PricesRefreshResult] { return &s.PricesRefresh }
	o := loadOpts{reset: true, errorText: formatted(msgPricesRefreshFail)}
	return fetch(ctx, c, "prices refresh", sel, o, func(ctx context.Context) (PricesRefreshResult, error) {
		res, err := c.api.RefreshPrices(ctx)
		if err != nil {
			return PricesRefreshResult{}, err
		}
		out := PricesRefreshResult{Message: refreshSummary(res.Refreshed), Refreshed: res.Refreshed}
		c.reloadAfterPricesRefresh(ctx)
		return out, nil
	})
}

func refreshSummary(refreshed []types.RefreshedDate) string {
	parts := make([]string, 0, len(refreshed))
	for _, r := range refreshed {
		parts = append(parts, fmt.Sprintf("%s: %d zaznamu", r.Date, r.Count))
	}
	if len(parts) == 0 {
		return msgPricesRefreshed
	}
	return strings.Join(parts, " | ")
}

// reloadAfterPricesRefresh reloads every price dependent slice concurrently.
// Failures are stored in the slices themselves.
func (c *Coordinator) reloadAfterPricesRefresh(ctx context.Context) {
	c.mu.Lock()
	p := c.params
	c.mu.Unlock()
	today := c.today()

	var g errgroup.Group
	g.Go(func() error {
		_, err := fetch(ctx, c, "prices", func(s *state) *Slice[types.Prices] { return &s.Prices }, loadOpts{}, func(ctx context.Context) (types.Prices, error) {
			return c.api.GetPrices(ctx, "")
		})
		return err
	})
	kpi := loadOpts{silent: true, clearOnError: true}
	g.Go(func() error {
		_, err := fetch(ctx, c, "today costs", func(s *state) *Slice[types.Costs] { return &s.TodayCosts }, kpi, func(ctx context.Context) (types.Costs, error) {
			return c.api.GetCosts(ctx, today)
		})
		return err
	})
	g.Go(func() error {
		_, err := fetch(ctx, c, "today export", func(s *state) *Slice[types.Export] { return &s.TodayExport }, kpi, func(ctx context.Context) (types.Export, error) {
			return c.api.GetExport(ctx, today)
		})
		return err
	})
	if p.SelectedDate == today {
		g.Go(func() error {
			_, err := fetch(ctx, c, "costs", func(s *state) *Slice[types.Costs] { return &s.Costs }, loadOpts{}, func(ctx context.Context) (types.Costs, error) {
				return c.api.GetCosts(ctx, today)
			})
			return err
		})
		g.Go(func() error {
			_, err := fetch(ctx, c, "export", func(s *state) *Slice[types.Export] { return &s.Export }, loadOpts{}, func(ctx context.Context) (types.Export, error) {
				return c.api.GetExport(ctx, today)
			})
			return err
		})
	}
	if p.ShowConfig {
		g.Go(func() error {
			_, err := fetch(ctx, c, "cache status", func(s *state) *Slice[types.CacheStatus] { return &s.CacheStatus }, loadOpts{silent: true, errorText: formatted("")}, c.api.GetCacheStatus)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "reload after prices refresh incomplete", slog.Any("error", err))
	}
}
