package dashboard

import (
	"context"
	"testing"

	"github.com/elektroapp/elektrodash/pkg/api"
	"github.com/elektroapp/elektrodash/pkg/feeshistory"
	"github.com/elektroapp/elektrodash/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDuration(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		err  error
	}{
		{"120", 120, nil},
		{" 45 ", 45, nil},
		{"90min", 90, nil},
		{"1", 1, nil},
		{"360", 360, nil},
		{"361", 0, ErrDurationTooLong},
		{"99999999999999999999", 0, ErrDurationTooLong},
		{"", 0, ErrDurationMissing},
		{"abc", 0, ErrDurationMissing},
		{"0", 0, ErrDurationMissing},
		{"-5", 0, ErrDurationMissing},
		{"-", 0, ErrDurationMissing},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeDuration(tt.raw)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadPlanner(t *testing.T) {
	ctx := context.Background()

	t.Run("ValidationBlocksRequest", func(t *testing.T) {
		f := &fakeAPI{}
		c := newTestCoordinator(t, f, nil)

		_, err := c.LoadPlanner(ctx, "")
		assert.ErrorIs(t, err, ErrDurationMissing)
		assert.Equal(t, MsgDurationMissing, c.View().PlannerValidation)

		_, err = c.LoadPlanner(ctx, "400")
		assert.ErrorIs(t, err, ErrDurationTooLong)
		assert.Equal(t, MsgDurationTooLong, c.View().PlannerValidation)
		assert.Equal(t, "400", c.PlannerDuration())

		assert.Equal(t, 0, f.count("GetSchedule"))
	})

	t.Run("Success", func(t *testing.T) {
		f := &fakeAPI{
			schedule: func(ctx context.Context, duration, count int) (types.Schedule, error) {
				return types.Schedule{
					Duration:        duration,
					Recommendations: []types.ScheduleWindow{{Start: "2026-03-15T13:00:00+01:00", AvgPrice: 1.5}},
				}, nil
			},
		}
		c := newTestCoordinator(t, f, nil)

		_, err := c.LoadPlanner(ctx, "")
		require.Error(t, err)

		s, err := c.LoadPlanner(ctx, "90")
		require.NoError(t, err)
		assert.Equal(t, 90, s.Duration)
		assert.Equal(t, []string{"GetSchedule(90,3)"}, f.Calls()[len(f.Calls())-1:])

		v := c.View()
		assert.Empty(t, v.PlannerValidation)
		require.NotNil(t, v.Planner.Data)
		assert.Len(t, v.Planner.Data.Recommendations, 1)
		assert.Equal(t, "90", v.PlannerDuration)
	})

	t.Run("UnprocessableIsTooLong", func(t *testing.T) {
		f := &fakeAPI{
			schedule: func(ctx context.Context, duration, count int) (types.Schedule, error) {
				return types.Schedule{}, &api.StructuredError{Status: 422, Code: "VALIDATION_ERROR", Message: strPtr("duration out of range")}
			},
		}
		c := newTestCoordinator(t, f, nil)

		_, err := c.LoadPlanner(ctx, "300")
		require.Error(t, err)
		v := c.View()
		require.NotNil(t, v.Planner.Error)
		assert.Equal(t, MsgDurationTooLong+" [VALIDATION_ERROR]", v.Planner.Error.Text)
	})

	t.Run("Unavailable", func(t *testing.T) {
		f := &fakeAPI{
			schedule: func(ctx context.Context, duration, count int) (types.Schedule, error) {
				return types.Schedule{}, &api.HTTPError{Status: 503}
			},
		}
		c := newTestCoordinator(t, f, nil)

		_, err := c.LoadPlanner(ctx, "60")
		require.Error(t, err)
		assert.Equal(t, "HTTP 503 [HTTP_503]", c.View().Planner.Error.Text)
	})
}

func TestRefreshPrices(t *testing.T) {
	ctx := context.Background()

	t.Run("Summary", func(t *testing.T) {
		f := &fakeAPI{
			refreshPrices: func(ctx context.Context) (types.PricesRefresh, error) {
				return types.PricesRefresh{Refreshed: []types.RefreshedDate{
					{Date: "2026-03-15", Count: 96},
					{Date: "2026-03-16", Count: 96},
				}}, nil
			},
		}
		c := newTestCoordinator(t, f, func(p *Params) { p.ShowConfig = true })
		f.reset()

		res, err := c.RefreshPrices(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2026-03-15: 96 zaznamu | 2026-03-16: 96 zaznamu", res.Message)
		assert.ElementsMatch(t, []string{
			"RefreshPrices()",
			"GetPrices()",
			"GetCosts(2026-03-15)",
			"GetExport(2026-03-15)",
			"GetCosts(2026-03-15)",
			"GetExport(2026-03-15)",
			"GetCacheStatus()",
		}, f.Calls())

		v := c.View()
		assert.False(t, v.PricesRefresh.Loading)
		require.NotNil(t, v.PricesRefresh.Data)
		assert.Equal(t, res.Message, v.PricesRefresh.Data.Message)
	})

	t.Run("EmptySummaryPastDate", func(t *testing.T) {
		f := &fakeAPI{}
		c := newTestCoordinator(t, f, func(p *Params) { p.SelectedDate = "2026-03-01" })
		f.reset()

		res, err := c.RefreshPrices(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Ceny byly obnoveny.", res.Message)
		assert.ElementsMatch(t, []string{
			"RefreshPrices()",
			"GetPrices()",
			"GetCosts(2026-03-15)",
			"GetExport(2026-03-15)",
		}, f.Calls())
	})

	t.Run("Failure", func(t *testing.T) {
		f := &fakeAPI{
			refreshPrices: func(ctx context.Context) (types.PricesRefresh, error) {
				return types.PricesRefresh{}, &api.NetworkError{}
			},
		}
		c := newTestCoordinator(t, f, nil)
		f.reset()

		_, err := c.RefreshPrices(ctx)
		require.Error(t, err)
		assert.Equal(t, []string{"RefreshPrices()"}, f.Calls())
		v := c.View()
		require.NotNil(t, v.PricesRefresh.Error)
		assert.Equal(t, "Obnoveni cen selhalo. [NETWORK_ERROR]", v.PricesRefresh.Error.Text)
		assert.Nil(t, v.PricesRefresh.Data)
	})
}

func TestSaveFeesHistory(t *testing.T) {
	ctx := context.Background()
	var saved []types.FeeScheduleInput
	f := &fakeAPI{
		config: func(ctx context.Context) (types.Config, error) {
			return types.Config{DPH: 21}, nil
		},
		saveFees: func(ctx context.Context, history []types.FeeScheduleInput) ([]types.FeeScheduleEntry, error) {
			saved = history
			out := make([]types.FeeScheduleEntry, len(history))
			for i, h := range history {
				out[i] = types.FeeScheduleEntry{EffectiveFrom: h.EffectiveFrom, EffectiveTo: strPtr(h.EffectiveTo)}
			}
			return out, nil
		},
	}
	c := newTestCoordinator(t, f, nil)

	var id string
	err := c.EditFees(func(e *feeshistory.Editor) error {
		id = e.Add()
		return e.UpdateDraft(id, func(d *feeshistory.Draft) {
			d.EffectiveFrom = "2026-01-01"
			d.EffectiveTo = "2026-01-31"
		})
	})
	require.NoError(t, err)

	err = c.EditFees(func(e *feeshistory.Editor) error { return e.Save(ctx) })
	require.NoError(t, err)

	require.Len(t, saved, 1)
	assert.Equal(t, "2026-01-01", saved[0].EffectiveFrom)
	assert.Equal(t, 21.0, saved[0].Snapshot.DPH)

	v := c.View()
	require.NotNil(t, v.FeesHistory.Data)
	assert.Len(t, v.FeesHistory.Data.History, 1)
	assert.Empty(t, v.FeesEditor.EditingID)
	require.Len(t, v.FeesEditor.Entries, 1)

	t.Run("Failure", func(t *testing.T) {
		f.saveFees = func(ctx context.Context, history []types.FeeScheduleInput) ([]types.FeeScheduleEntry, error) {
			return nil, &api.HTTPError{Status: 500}
		}
		err := c.EditFees(func(e *feeshistory.Editor) error {
			if err := e.Edit(v.FeesEditor.Entries[0].ID); err != nil {
				return err
			}
			return e.Save(ctx)
		})
		require.Error(t, err)
		fv := c.View()
		require.NotNil(t, fv.FeesHistory.Error)
		assert.Equal(t, "HTTP 500 [HTTP_500]", fv.FeesHistory.Error.Text)
	})
}
