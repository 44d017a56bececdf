package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/putscan/internal/app"
	"github.com/bobmcallan/putscan/internal/common"
	"github.com/bobmcallan/putscan/internal/models"
)

type fakeScanService struct {
	mu       sync.Mutex
	requests []models.ScanRequest
	err      error
	report   *models.ScanReport
}

func (f *fakeScanService) Scan(ctx context.Context, req models.ScanRequest) (*models.ScanReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.report != nil {
		return f.report, nil
	}
	return &models.ScanReport{
		Results:   []models.TickerResult{{Symbol: "AAPL", Status: models.TickerStatusDone}},
		Scanned:   1,
		Succeeded: 1,
		Summary:   "Scanned 1/1 tickers. No picks found.",
		Errors:    []string{},
	}, nil
}

func (f *fakeScanService) DefaultTickers() []string { return []string{"AAPL", "SPY"} }

func (f *fakeScanService) lastRequest() models.ScanRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestServer(t *testing.T, svc *fakeScanService) (*Server, *app.App) {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Analysis.Enabled = false
	a := &app.App{
		Config:      cfg,
		Logger:      common.NewSilentLogger(),
		ScanService: svc,
		StartupTime: time.Now(),
	}
	t.Cleanup(a.Close)
	return NewServer(a), a
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanService{})

	rr := serve(s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Len(t, rr.Header().Get("X-Correlation-ID"), 8)
}

func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanService{})

	rr := serve(s, http.MethodDelete, "/api/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, HEAD", rr.Header().Get("Allow"))
}

func TestVersionEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanService{})

	rr := serve(s, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, common.GetVersion(), body["version"])
}

func TestConfigEndpoint_DoesNotLeakKeys(t *testing.T) {
	s, a := newTestServer(t, &fakeScanService{})
	a.Config.Clients.Gemini.APIKey = "secret-gemini"
	a.Config.Clients.EODHD.APIKey = "secret-eodhd"

	rr := serve(s, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret-")

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "yahoo", body["provider"])
	assert.Equal(t, []interface{}{"AAPL", "SPY"}, body["default_tickers"])
}

func TestScanEndpoint_Post(t *testing.T) {
	svc := &fakeScanService{}
	s, _ := newTestServer(t, svc)

	rr := serve(s, http.MethodPost, "/api/scan", `{"tickers":["tsla"],"custom_ticker":"xyz","target_return":1.5,"focus":"XYZ"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	req := svc.lastRequest()
	assert.Equal(t, []string{"tsla"}, req.Tickers)
	assert.Equal(t, "xyz", req.CustomTicker)
	assert.Equal(t, "XYZ", req.FocusSymbol)
	require.NotNil(t, req.TargetReturnPercent)
	assert.Equal(t, 1.5, *req.TargetReturnPercent)

	var report models.ScanReport
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
	assert.Equal(t, 1, report.Scanned)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "AAPL", report.Results[0].Symbol)
}

func TestScanEndpoint_PostEmptyBodyScansDefaults(t *testing.T) {
	svc := &fakeScanService{}
	s, _ := newTestServer(t, svc)

	rr := serve(s, http.MethodPost, "/api/scan", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.ScanRequest{}, svc.lastRequest())
}

func TestScanEndpoint_InvalidJSON(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanService{})

	rr := serve(s, http.MethodPost, "/api/scan", `{"tickers":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScanEndpoint_GetQuery(t *testing.T) {
	svc := &fakeScanService{}
	s, _ := newTestServer(t, svc)

	rr := serve(s, http.MethodGet, "/api/scan?tickers=AAPL,%20TSLA,&custom=XYZ&target=2&skip_defaults=true", "")
	require.Equal(t, http.StatusOK, rr.Code)

	req := svc.lastRequest()
	assert.Equal(t, []string{"AAPL", "TSLA"}, req.Tickers)
	assert.Equal(t, "XYZ", req.CustomTicker)
	assert.True(t, req.SkipDefaults)
	require.NotNil(t, req.TargetReturnPercent)
	assert.Equal(t, 2.0, *req.TargetReturnPercent)
}

func TestScanEndpoint_GetQueryValidation(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanService{})

	for _, q := range []string{"target=abc", "target=-1", "skip_defaults=maybe"} {
		t.Run(q, func(t *testing.T) {
			rr := serve(s, http.MethodGet, "/api/scan?"+q, "")
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestScanEndpoint_EmptyUniverse(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanService{err: models.ErrEmptyUniverse})

	rr := serve(s, http.MethodPost, "/api/scan", `{"skip_defaults":true}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "empty_universe", body.Code)
}

func TestScanEndpoint_InternalError(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanService{err: fmt.Errorf("boom")})

	rr := serve(s, http.MethodPost, "/api/scan", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestScanEndpoint_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanService{})

	rr := serve(s, http.MethodPut, "/api/scan", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestScanLatest_NoReport(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanService{})

	rr := serve(s, http.MethodGet, "/api/scan/latest", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestScanLatest_AfterScheduledScan(t *testing.T) {
	svc := &fakeScanService{report: &models.ScanReport{Summary: "scheduled", Scanned: 2, Errors: []string{}}}
	s, a := newTestServer(t, svc)
	a.Config.Scan.RefreshInterval = "1h"

	a.StartScheduler()
	require.Eventually(t, func() bool { return a.LatestReport() != nil }, 2*time.Second, 5*time.Millisecond)

	rr := serve(s, http.MethodGet, "/api/scan/latest", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var report models.ScanReport
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
	assert.Equal(t, "scheduled", report.Summary)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanService{})

	rr := serve(s, http.MethodOptions, "/api/scan", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorrelationID_Propagated(t *testing.T) {
	s, _ := newTestServer(t, &fakeScanService{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "abc123", rr.Header().Get("X-Correlation-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(common.NewSilentLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/scan", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, splitList(" A, ,B,"))
	assert.Nil(t, splitList(""))
}
