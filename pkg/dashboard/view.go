package dashboard

import (
	"github.com/elektroapp/elektrodash/pkg/feeshistory"
	"github.com/elektroapp/elektrodash/pkg/storage"
)

// View is a consistent snapshot of everything the dashboard renders.
type View struct {
	Today  string `json:"today"`
	Params Params `json:"params"`
	Resources

	KPIs              []KPI             `json:"kpis"`
	BatteryETA        string            `json:"battery_eta,omitempty"`
	FeesEditor        feeshistory.State `json:"fees_editor"`
	Theme             string            `json:"theme"`
	PlannerDuration   string            `json:"planner_duration"`
	PlannerValidation string            `json:"planner_validation,omitempty"`
	TimersActive      bool              `json:"timers_active"`
}

// View returns a snapshot of the current state.
func (c *Coordinator) View() View {
	now := c.localNow()
	c.mu.Lock()
	v := View{
		Today:             c.today(),
		Params:            c.params,
		Resources:         c.state,
		PlannerDuration:   c.plannerDuration,
		PlannerValidation: c.plannerValidation,
		TimersActive:      c.refreshTimer != nil,
	}
	c.mu.Unlock()

	v.KPIs = BuildKPIs(now, kpiInputs(&v.Resources), c.loc)
	v.BatteryETA = BatteryETA(v.Battery.Data, c.loc)
	v.FeesEditor = c.fees.State()
	v.Theme = storage.ThemeLight
	if c.prefs != nil {
		v.Theme = c.prefs.Theme()
	}
	return v
}

// KPIs returns the today tiles.
func (c *Coordinator) KPIs() []KPI {
	now := c.localNow()
	c.mu.Lock()
	in := kpiInputs(&c.state)
	c.mu.Unlock()
	return BuildKPIs(now, in, c.loc)
}

func kpiInputs(r *Resources) KPIInputs {
	return KPIInputs{
		Prices:      r.Prices.Data,
		TodayCosts:  r.TodayCosts.Data,
		TodayExport: r.TodayExport.Data,
		Battery:     r.Battery.Data,
	}
}
