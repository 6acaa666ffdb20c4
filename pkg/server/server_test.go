package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elektroapp/elektrodash/pkg/api"
	"github.com/elektroapp/elektrodash/pkg/dashboard"
	"github.com/elektroapp/elektrodash/pkg/feeshistory"
	"github.com/elektroapp/elektrodash/pkg/storage"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 15, 10, 7, 0, 0, time.UTC)

// backend is a fake of the dashboard backend API.
type backend struct {
	mu       sync.Mutex
	requests []string
	saved    string

	schedule func(w http.ResponseWriter, r *http.Request)
}

func (b *backend) seen(prefix string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.requests {
		if strings.HasPrefix(r, prefix) {
			return true
		}
	}
	return false
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/prices":
		w.Write([]byte(`{"prices":[]}`))
	case "/api/costs":
		w.Write([]byte(`{"points":[],"summary":{"kwh_total":3.5,"cost_total":12.5}}`))
	case "/api/export":
		w.Write([]byte(`{"points":[],"summary":{"export_kwh_total":1,"sell_total":2.5}}`))
	case "/api/battery":
		w.Write([]byte(`{"enabled":true,"is_today":true,"status":{"soc_percent":80,"battery_state":"idle"}}`))
	case "/api/config":
		w.Write([]byte(`{"dph":21}`))
	case "/api/version":
		w.Write([]byte(`{"version":"2.0.0"}`))
	case "/api/daily-summary":
		w.Write([]byte(`{"month":"` + r.URL.Query().Get("month") + `","days":[]}`))
	case "/api/fees-history":
		if r.Method == http.MethodPut {
			body, _ := io.ReadAll(r.Body)
			b.mu.Lock()
			b.saved = string(body)
			b.mu.Unlock()
			w.Write([]byte(`{"history":[{"effective_from":"2025-01-01","effective_to":"2025-01-31","snapshot":{"dph_percent":21}},{"effective_from":"2026-01-01","snapshot":{"dph_percent":21}}]}`))
			return
		}
		w.Write([]byte(`{"history":[{"effective_from":"2026-01-01","snapshot":{"dph_percent":21}}]}`))
	case "/api/schedule":
		b.mu.Lock()
		schedule := b.schedule
		b.mu.Unlock()
		if schedule != nil {
			schedule(w, r)
			return
		}
		w.Write([]byte(`{"duration":90,"recommendations":[{"start":"2026-03-15T13:00:00Z","end":"2026-03-15T14:30:00Z","avg_price":1.2,"total_cost":3.4}]}`))
	default:
		w.Write([]byte(`{}`))
	}
}

type testEnv struct {
	backend *backend
	dash    *dashboard.Coordinator
	srv     *Server
	ts      *httptest.Server
}

func newTestEnv(t *testing.T, prefs *storage.Preferences) *testEnv {
	t.Helper()
	b := &backend{}
	bs := httptest.NewServer(b)
	t.Cleanup(bs.Close)

	dash := dashboard.New(api.New(bs.URL+"/api", bs.Client()), prefs, dashboard.Options{
		Now:      func() time.Time { return testNow },
		Location: time.UTC,
	})
	_, err := dash.Update(context.Background(), func(p *dashboard.Params) { p.AutoRefreshEnabled = false })
	require.NoError(t, err)
	dash.Start(context.Background())
	dash.Wait()
	t.Cleanup(dash.Close)

	srv := New(dash, prefs)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.hub.Run(ctx, dash)
	ts := httptest.NewServer(srv.setupHandler())
	t.Cleanup(func() {
		cancel()
		srv.hub.CloseAll()
		ts.Close()
	})
	return &testEnv{backend: b, dash: dash, srv: srv, ts: ts}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, r)
	require.NoError(t, err)
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func decodeError(t *testing.T, b []byte) string {
	t.Helper()
	var e struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(b, &e))
	return e.Error
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Server"), "elektrodash/"))
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var v dashboard.View
	require.NoError(t, json.Unmarshal(body, &v))
	assert.Equal(t, "2026-03-15", v.Today)
	assert.Len(t, v.KPIs, 7)
	require.NotNil(t, v.Version.Data)
	assert.Equal(t, "2.0.0", v.Version.Data.Version)
	assert.Equal(t, "Baterie je zhruba ve stabilnim stavu (vykon pod prahem pro ETA).", v.BatteryETA)
	assert.Equal(t, "light", v.Theme)

	resp, body = env.do(t, http.MethodGet, "/api/kpis", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var kpis []dashboard.KPI
	require.NoError(t, json.Unmarshal(body, &kpis))
	require.Len(t, kpis, 7)
	assert.Equal(t, "net-today", kpis[5].Key)
	assert.Equal(t, "10.00,-Kc", kpis[5].Value)
}

func TestUpdateParams(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("Patch", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/params", `{"selected_date":"2026-03-01","show_billing":true,"billing_mode":"year"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var p dashboard.Params
		require.NoError(t, json.Unmarshal(body, &p))
		assert.Equal(t, "2026-03-01", p.SelectedDate)
		assert.Equal(t, "2026-03", p.SelectedMonth)
		assert.True(t, p.ShowBilling)

		env.dash.Wait()
		assert.True(t, env.backend.seen("GET /api/costs?date=2026-03-01"))
		assert.True(t, env.backend.seen("GET /api/billing-year?year=2026"))
	})

	t.Run("InvalidDate", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/params", `{"selected_date":"yesterday"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "2026-03-01", env.dash.Params().SelectedDate)
	})

	t.Run("WrongType", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/params", `{"selected_date":"2026-02-01","show_billing":"yes"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "2026-03-01", env.dash.Params().SelectedDate)
	})

	t.Run("Malformed", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/params", `{`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestPlanner(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/api/planner", `{"duration":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, dashboard.MsgDurationMissing, decodeError(t, body))
	assert.False(t, env.backend.seen("GET /api/schedule"))

	resp, body = env.do(t, http.MethodPost, "/api/planner", `{"duration":90}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.backend.seen("GET /api/schedule?count=3&duration=90"))
	assert.Contains(t, string(body), `"avg_price":1.2`)

	env.backend.mu.Lock()
	env.backend.schedule = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"code":"VALIDATION_ERROR","message":"duration too long"}}`))
	}
	env.backend.mu.Unlock()
	resp, body = env.do(t, http.MethodPost, "/api/planner", `{"duration":"300"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, dashboard.MsgDurationTooLong+" [VALIDATION_ERROR]", decodeError(t, body))
}

func TestPreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	prefs := storage.NewPreferences(storage.NewFileStore(path))
	require.NoError(t, prefs.Init(context.Background()))
	env := newTestEnv(t, prefs)

	resp, body := env.do(t, http.MethodGet, "/api/preferences", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"theme":"light","auto_refresh_enabled":false,"planner_duration":"120"}`, string(body))

	resp, body = env.do(t, http.MethodPut, "/api/preferences", `{"theme":"dark","planner_duration":"45"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"theme":"dark","auto_refresh_enabled":false,"planner_duration":"45"}`, string(body))

	resp, _ = env.do(t, http.MethodPut, "/api/preferences", `{"theme":"blue"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	reloaded := storage.NewPreferences(storage.NewFileStore(path))
	require.NoError(t, reloaded.Init(context.Background()))
	assert.Equal(t, storage.ThemeDark, reloaded.Theme())
	assert.Equal(t, "45", reloaded.PlannerDuration())
	assert.False(t, reloaded.AutoRefreshEnabled())
}

func TestFeesHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.dash.Update(context.Background(), func(p *dashboard.Params) {
		p.ShowConfig = true
		p.ShowFeesHistory = true
	})
	require.NoError(t, err)
	env.dash.Wait()

	resp, body := env.do(t, http.MethodGet, "/api/fees-history", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st feeshistory.State
	require.NoError(t, json.Unmarshal(body, &st))
	require.Len(t, st.Entries, 1)
	assert.True(t, st.Entries[0].IsCurrent)

	current := st.Entries[0].ID
	resp, _ = env.do(t, http.MethodPost, "/api/fees-history/"+current+"/edit", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/fees-history/add", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, body = env.do(t, http.MethodPost, "/api/fees-history/cancel", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Len(t, st.Entries, 1)
	assert.Empty(t, st.EditingID)

	resp, body = env.do(t, http.MethodPost, "/api/fees-history/add", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var added struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &added))
	require.NotEmpty(t, added.ID)

	resp, body = env.do(t, http.MethodPut, "/api/fees-history/"+added.ID, `{"effective_from":"2026-02-01","effective_to":"2026-01-01","values":{"dph":"21"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/fees-history/"+added.ID+"/save", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Platne do musi byt stejne nebo pozdeji nez Platne od.", decodeError(t, body))

	resp, _ = env.do(t, http.MethodPut, "/api/fees-history/"+added.ID, `{"effective_from":"2025-01-01","effective_to":"2025-01-31","values":{"dph":"21"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/fees-history/"+added.ID+"/save", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Len(t, st.Entries, 2)
	assert.Empty(t, st.EditingID)
	assert.Contains(t, env.backend.saved, `"effective_from":"2025-01-01"`)

	resp, body = env.do(t, http.MethodPost, "/api/fees-history/2025-01-01/delete", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"deleted":false`)
	assert.Contains(t, string(body), `"countdown":5`)

	resp, _ = env.do(t, http.MethodPost, "/api/fees-history/2025-01-01/delete", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/fees-history/2025-01-01/cancel-delete", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Empty(t, st.ConfirmDeleteID)

	resp, _ = env.do(t, http.MethodPost, "/api/fees-history/missing/delete", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocket(t *testing.T) {
	env := newTestEnv(t, nil)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() dashboard.View {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var v dashboard.View
		require.NoError(t, json.Unmarshal(msg, &v))
		return v
	}

	v := read()
	assert.Equal(t, "2026-03-15", v.Params.SelectedDate)
	assert.Eventually(t, func() bool { return env.srv.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	resp, _ := env.do(t, http.MethodPost, "/api/params", `{"selected_month":"2026-02"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// snapshots follow every change, the last one has the new month loaded
	for {
		v = read()
		if v.Params.SelectedMonth == "2026-02" && v.Monthly.Data != nil && !v.Monthly.Loading {
			break
		}
	}
	assert.Equal(t, "2026-02", v.Monthly.Data.Month)
}
