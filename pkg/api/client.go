package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/elektroapp/elektrodash/pkg/common"
	"github.com/elektroapp/elektrodash/pkg/log"
	"github.com/elektroapp/elektrodash/pkg/types"
	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"
)

const requestIDHeader = "X-Request-ID"

// Client talks to the elektroapp backend API.
type Client struct {
	baseURL string
	client  *http.Client
}

// Configured returns a Client whose base URL and timeout come from flags.
func Configured() *Client {
	apiURL := lflag.String("api-url", "http://localhost:8000/api", "Base URL of the elektroapp backend API")
	timeout := lflag.Duration("api-timeout", 30*time.Second, "Timeout for a single backend request")

	c := &Client{}
	lflag.Do(func() {
		if _, err := url.Parse(*apiURL); err != nil {
			panic(fmt.Sprintf("invalid api-url: %v", err))
		}
		c.baseURL = *apiURL
		c.client = common.HTTPClient(*timeout)
	})
	return c
}

// New returns a Client for baseURL. A nil httpClient uses the default
// User-Agent client with a 30 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = common.HTTPClient(30 * time.Second)
	}
	return &Client{baseURL: baseURL, client: httpClient}
}

func newRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, params url.Values, payload any) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", endpoint, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, newRequestID())
	return req, nil
}

// do performs the request and decodes a successful body into dest. Every
// failure is returned as one of StructuredError, LegacyError, HTTPError or
// NetworkError.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, payload, dest any) error {
	req, err := c.newRequest(ctx, method, endpoint, params, payload)
	if err != nil {
		return &NetworkError{Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Ctx(ctx).DebugContext(ctx, "backend request failed", slog.String("endpoint", endpoint), slog.Any("error", err))
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	requestID := resp.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = req.Header.Get(requestIDHeader)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &HTTPError{Status: resp.StatusCode, RequestID: requestID, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Ctx(ctx).DebugContext(
			ctx,
			"backend returned error",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			slog.String("requestID", requestID),
		)
		return parseErrorBody(resp.StatusCode, body, requestID)
	}

	if dest == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode backend response", slog.String("endpoint", endpoint), slog.Any("error", err))
		return &HTTPError{Status: resp.StatusCode, RequestID: requestID, Err: fmt.Errorf("failed to decode %s response: %w", endpoint, err)}
	}
	return nil
}

func optional(key, value string) url.Values {
	if value == "" {
		return nil
	}
	return url.Values{key: {value}}
}

// GetPrices returns the 15-minute price slots for date, or for today and
// tomorrow when date is empty.
func (c *Client) GetPrices(ctx context.Context, date string) (types.Prices, error) {
	var p types.Prices
	err := c.do(ctx, http.MethodGet, "/prices", optional("date", date), nil, &p)
	return p, err
}

// RefreshPrices asks the backend to re-download prices from its provider.
func (c *Client) RefreshPrices(ctx context.Context) (types.PricesRefresh, error) {
	var r types.PricesRefresh
	err := c.do(ctx, http.MethodPost, "/prices/refresh", nil, struct{}{}, &r)
	return r, err
}

func (c *Client) GetConfig(ctx context.Context) (types.Config, error) {
	var cfg types.Config
	err := c.do(ctx, http.MethodGet, "/config", nil, nil, &cfg)
	return cfg, err
}

func (c *Client) GetVersion(ctx context.Context) (types.Version, error) {
	var v types.Version
	err := c.do(ctx, http.MethodGet, "/version", nil, nil, &v)
	return v, err
}

func (c *Client) GetCacheStatus(ctx context.Context) (types.CacheStatus, error) {
	var s types.CacheStatus
	err := c.do(ctx, http.MethodGet, "/cache-status", nil, nil, &s)
	return s, err
}

// GetCosts returns the import cost series for a YYYY-MM-DD date.
func (c *Client) GetCosts(ctx context.Context, date string) (types.Costs, error) {
	var costs types.Costs
	err := c.do(ctx, http.MethodGet, "/costs", url.Values{"date": {date}}, nil, &costs)
	return costs, err
}

// GetExport returns the export revenue series for a YYYY-MM-DD date.
func (c *Client) GetExport(ctx context.Context, date string) (types.Export, error) {
	var e types.Export
	err := c.do(ctx, http.MethodGet, "/export", url.Values{"date": {date}}, nil, &e)
	return e, err
}

// GetBattery returns the battery state. An empty date means now.
func (c *Client) GetBattery(ctx context.Context, date string) (types.Battery, error) {
	var b types.Battery
	err := c.do(ctx, http.MethodGet, "/battery", optional("date", date), nil, &b)
	return b, err
}

func (c *Client) GetDailySummary(ctx context.Context, month string) (types.DailySummary, error) {
	var s types.DailySummary
	err := c.do(ctx, http.MethodGet, "/daily-summary", url.Values{"month": {month}}, nil, &s)
	return s, err
}

func (c *Client) GetBillingMonth(ctx context.Context, month string) (types.BillingMonth, error) {
	var b types.BillingMonth
	err := c.do(ctx, http.MethodGet, "/billing-month", url.Values{"month": {month}}, nil, &b)
	return b, err
}

func (c *Client) GetBillingYear(ctx context.Context, year int) (types.BillingYear, error) {
	var b types.BillingYear
	err := c.do(ctx, http.MethodGet, "/billing-year", url.Values{"year": {strconv.Itoa(year)}}, nil, &b)
	return b, err
}

func (c *Client) GetEnergyBalance(ctx context.Context, period types.Period, anchor string) (types.EnergyBalance, error) {
	var eb types.EnergyBalance
	params := url.Values{"period": {string(period)}, "anchor": {anchor}}
	err := c.do(ctx, http.MethodGet, "/energy-balance", params, nil, &eb)
	return eb, err
}

func (c *Client) GetHistoryHeatmap(ctx context.Context, month string, metric types.HeatmapMetric) (types.Heatmap, error) {
	var h types.Heatmap
	params := url.Values{"month": {month}, "metric": {string(metric)}}
	err := c.do(ctx, http.MethodGet, "/history-heatmap", params, nil, &h)
	return h, err
}

func (c *Client) GetFeesHistory(ctx context.Context) ([]types.FeeScheduleEntry, error) {
	var h types.FeesHistory
	if err := c.do(ctx, http.MethodGet, "/fees-history", nil, nil, &h); err != nil {
		return nil, err
	}
	return h.History, nil
}

// SaveFeesHistory replaces the whole fee history and returns the collection
// as stored by the backend.
func (c *Client) SaveFeesHistory(ctx context.Context, history []types.FeeScheduleInput) ([]types.FeeScheduleEntry, error) {
	if history == nil {
		history = []types.FeeScheduleInput{}
	}
	payload := struct {
		History []types.FeeScheduleInput `json:"history"`
	}{history}
	var h types.FeesHistory
	if err := c.do(ctx, http.MethodPut, "/fees-history", nil, payload, &h); err != nil {
		return nil, err
	}
	return h.History, nil
}

// GetSchedule returns the count cheapest windows of duration minutes.
func (c *Client) GetSchedule(ctx context.Context, duration, count int) (types.Schedule, error) {
	var s types.Schedule
	params := url.Values{"duration": {strconv.Itoa(duration)}, "count": {strconv.Itoa(count)}}
	err := c.do(ctx, http.MethodGet, "/schedule", params, nil, &s)
	return s, err
}
