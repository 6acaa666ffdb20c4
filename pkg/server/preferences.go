package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/elektroapp/elektrodash/pkg/dashboard"
	"github.com/elektroapp/elektrodash/pkg/log"
	"github.com/elektroapp/elektrodash/pkg/storage"
)

// PreferencesRes mirrors the persisted viewer preferences.
type PreferencesRes struct {
	Theme              string `json:"theme"`
	AutoRefreshEnabled bool   `json:"auto_refresh_enabled"`
	PlannerDuration    string `json:"planner_duration"`
}

// PreferencesReq is a partial update. Nil fields are left alone.
type PreferencesReq struct {
	Theme              *string `json:"theme"`
	AutoRefreshEnabled *bool   `json:"auto_refresh_enabled"`
	PlannerDuration    *string `json:"planner_duration"`
}

func (s *Server) preferences() PreferencesRes {
	theme := storage.ThemeLight
	if s.prefs != nil {
		theme = s.prefs.Theme()
	}
	return PreferencesRes{
		Theme:              theme,
		AutoRefreshEnabled: s.dash.Params().AutoRefreshEnabled,
		PlannerDuration:    s.dash.PlannerDuration(),
	}
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.preferences(), http.StatusOK)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PreferencesReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Theme != nil {
		if *req.Theme != storage.ThemeLight && *req.Theme != storage.ThemeDark {
			writeJSONError(w, "theme must be light or dark", http.StatusBadRequest)
			return
		}
		if s.prefs == nil {
			writeJSONError(w, "preferences are not configured", http.StatusServiceUnavailable)
			return
		}
		if err := s.prefs.SetTheme(ctx, *req.Theme); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to save theme", slog.Any("error", err))
			writeJSONError(w, "failed to save preferences", http.StatusInternalServerError)
			return
		}
	}
	if req.AutoRefreshEnabled != nil {
		enabled := *req.AutoRefreshEnabled
		if _, err := s.dash.Update(ctx, func(p *dashboard.Params) { p.AutoRefreshEnabled = enabled }); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.PlannerDuration != nil {
		if err := s.dash.SetPlannerDuration(ctx, *req.PlannerDuration); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to save planner duration", slog.Any("error", err))
			writeJSONError(w, "failed to save preferences", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, s.preferences(), http.StatusOK)
}
