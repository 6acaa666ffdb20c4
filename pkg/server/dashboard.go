package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/elektroapp/elektrodash/pkg/dashboard"
	"github.com/elektroapp/elektrodash/pkg/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.dash.View(), http.StatusOK)
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.dash.KPIs(), http.StatusOK)
}

func (s *Server) handleGetParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.dash.Params(), http.StatusOK)
}

// handleUpdateParams applies a partial JSON patch: fields missing from the
// body keep their current value.
func (s *Server) handleUpdateParams(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var patch json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var decodeErr error
	params, err := s.dash.Update(ctx, func(p *dashboard.Params) {
		next := *p
		if decodeErr = json.Unmarshal(patch, &next); decodeErr == nil {
			*p = next
		}
	})
	if decodeErr != nil {
		log.Ctx(ctx).WarnContext(ctx, "invalid params patch", slog.Any("error", decodeErr))
		writeJSONError(w, "invalid params: "+decodeErr.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, params, http.StatusOK)
}

func (s *Server) handleRefreshBattery(w http.ResponseWriter, r *http.Request) {
	s.dash.RefreshBattery()
	writeJSON(w, struct {
		Status string `json:"status"`
	}{Status: "refreshing"}, http.StatusAccepted)
}

func (s *Server) handleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.dash.RefreshPrices(ctx)
	if err != nil {
		v := s.dash.View()
		msg := "failed to refresh prices"
		if v.PricesRefresh.Error != nil {
			msg = v.PricesRefresh.Error.Text
		}
		writeJSONError(w, msg, http.StatusBadGateway)
		return
	}
	writeJSON(w, res, http.StatusOK)
}

type plannerReq struct {
	Duration json.RawMessage `json:"duration"`
}

// durationString accepts the duration as a JSON string or number.
func (p plannerReq) durationString() string {
	var str string
	if err := json.Unmarshal(p.Duration, &str); err == nil {
		return str
	}
	var n json.Number
	if err := json.Unmarshal(p.Duration, &n); err == nil {
		return n.String()
	}
	return ""
}

func (s *Server) handlePlanner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req plannerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	schedule, err := s.dash.LoadPlanner(ctx, req.durationString())
	switch {
	case errors.Is(err, dashboard.ErrDurationMissing), errors.Is(err, dashboard.ErrDurationTooLong):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		msg := "planner unavailable"
		if v := s.dash.View(); v.Planner.Error != nil {
			msg = v.Planner.Error.Text
		}
		writeJSONError(w, msg, http.StatusBadGateway)
		return
	}
	writeJSON(w, schedule, http.StatusOK)
}
