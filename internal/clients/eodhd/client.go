// Package eodhd provides a client for the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/putscan/internal/common"
	"github.com/bobmcallan/putscan/internal/interfaces"
	"github.com/bobmcallan/putscan/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" || s == "NA" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultExchange  = "US"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	providerName = "eodhd"
	dateLayout   = "2006-01-02"
)

// Client implements MarketDataProvider and EarningsCalendar against EODHD
type Client struct {
	baseURL    string
	apiKey     string
	exchange   string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	now        func() time.Time
}

var (
	_ interfaces.MarketDataProvider = (*Client)(nil)
	_ interfaces.EarningsCalendar   = (*Client)(nil)
)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithExchange sets the exchange suffix appended to bare symbols
func WithExchange(exchange string) ClientOption {
	return func(c *Client) {
		if exchange != "" {
			c.exchange = strings.ToUpper(exchange)
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithClock overrides the clock used to skip expired expirations
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		apiKey:   apiKey,
		exchange: DefaultExchange,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the provider name
func (c *Client) Name() string {
	return providerName
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

var errDecode = errors.New("failed to decode response")

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	// Add API key
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}

	return nil
}

// ticker qualifies a bare symbol with the configured exchange
func (c *Client) ticker(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + "." + c.exchange
}

// optionsResponse represents the /options payload
type optionsResponse struct {
	Code string `json:"code"`
	Data []struct {
		ExpirationDate string `json:"expirationDate"`
		Options        struct {
			PUT []optionContract `json:"PUT"`
		} `json:"options"`
	} `json:"data"`
}

type optionContract struct {
	ContractName      string      `json:"contractName"`
	Strike            flexFloat64 `json:"strike"`
	Bid               flexFloat64 `json:"bid"`
	Ask               flexFloat64 `json:"ask"`
	Volume            flexFloat64 `json:"volume"`
	OpenInterest      flexFloat64 `json:"openInterest"`
	ImpliedVolatility flexFloat64 `json:"impliedVolatility"`
}

// RealTimeQuote is the subset of /real-time used for the spot quote
type RealTimeQuote struct {
	Code          string
	Timestamp     time.Time
	Close         float64
	PreviousClose float64
	Change        float64
	ChangePercent float64
}

type realTimeResponse struct {
	Code          string      `json:"code"`
	Timestamp     int64       `json:"timestamp"`
	Close         flexFloat64 `json:"close"`
	PreviousClose flexFloat64 `json:"previousClose"`
	Change        flexFloat64 `json:"change"`
	ChangeP       flexFloat64 `json:"change_p"`
}

// GetRealTimeQuote retrieves the live (delayed) quote for a ticker
func (c *Client) GetRealTimeQuote(ctx context.Context, ticker string) (*RealTimeQuote, error) {
	path := fmt.Sprintf("/real-time/%s", ticker)

	var resp realTimeResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	return &RealTimeQuote{
		Code:          resp.Code,
		Timestamp:     time.Unix(resp.Timestamp, 0),
		Close:         float64(resp.Close),
		PreviousClose: float64(resp.PreviousClose),
		Change:        float64(resp.Change),
		ChangePercent: float64(resp.ChangeP),
	}, nil
}

// Technicals is the 52-week range block of the fundamentals endpoint
type Technicals struct {
	Beta             float64
	FiftyTwoWeekHigh float64
	FiftyTwoWeekLow  float64
}

type technicalsResponse struct {
	Beta             flexFloat64 `json:"Beta"`
	FiftyTwoWeekHigh flexFloat64 `json:"52WeekHigh"`
	FiftyTwoWeekLow  flexFloat64 `json:"52WeekLow"`
}

// GetTechnicals retrieves the Technicals section of a ticker's fundamentals
func (c *Client) GetTechnicals(ctx context.Context, ticker string) (*Technicals, error) {
	path := fmt.Sprintf("/fundamentals/%s", ticker)
	params := url.Values{}
	params.Set("filter", "Technicals")

	var resp technicalsResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	return &Technicals{
		Beta:             float64(resp.Beta),
		FiftyTwoWeekHigh: float64(resp.FiftyTwoWeekHigh),
		FiftyTwoWeekLow:  float64(resp.FiftyTwoWeekLow),
	}, nil
}

// FetchChain retrieves the spot quote and nearest non-expired put chain.
// The 52-week range is best effort; its failure is logged and ignored.
func (c *Client) FetchChain(ctx context.Context, symbol string) (*models.ChainSnapshot, error) {
	ticker := c.ticker(symbol)

	rt, err := c.GetRealTimeQuote(ctx, ticker)
	if err != nil {
		return nil, c.fetchError(symbol, err)
	}

	var opts optionsResponse
	if err := c.get(ctx, fmt.Sprintf("/options/%s", ticker), nil, &opts); err != nil {
		return nil, c.fetchError(symbol, err)
	}
	if len(opts.Data) == 0 {
		return nil, models.NewFetchError(providerName, symbol, models.FetchNotFound, errors.New("no option expirations"))
	}

	today := c.now().UTC().Truncate(24 * time.Hour)
	type expiry struct {
		date time.Time
		puts []optionContract
	}
	var expiries []expiry
	for _, d := range opts.Data {
		date, err := time.Parse(dateLayout, d.ExpirationDate)
		if err != nil {
			c.logger.Debug().Str("symbol", symbol).Str("expiration", d.ExpirationDate).Msg("Skipping unparseable expiration")
			continue
		}
		expiries = append(expiries, expiry{date: date, puts: d.Options.PUT})
	}
	if len(expiries) == 0 {
		return nil, models.NewFetchError(providerName, symbol, models.FetchMalformed, errors.New("no parseable expirations"))
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i].date.Before(expiries[j].date) })

	nearest := expiries[0]
	for _, e := range expiries {
		if !e.date.Before(today) {
			nearest = e
			break
		}
	}
	if len(nearest.puts) == 0 {
		return nil, models.NewFetchError(providerName, symbol, models.FetchEmptyChain, nil)
	}

	snapshot := &models.ChainSnapshot{
		Quote: models.Quote{
			Symbol:        symbol,
			Price:         rt.Close,
			PercentChange: rt.ChangePercent,
		},
		Expiration: nearest.date,
		Provider:   providerName,
	}

	if tech, err := c.GetTechnicals(ctx, ticker); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("52-week range unavailable")
	} else {
		snapshot.Quote.FiftyTwoWeekHigh = tech.FiftyTwoWeekHigh
		snapshot.Quote.FiftyTwoWeekLow = tech.FiftyTwoWeekLow
	}

	snapshot.Puts = make([]models.OptionContract, 0, len(nearest.puts))
	for _, p := range nearest.puts {
		oc := models.OptionContract{
			Strike:       float64(p.Strike),
			Bid:          float64(p.Bid),
			Ask:          float64(p.Ask),
			Volume:       int64(p.Volume),
			OpenInterest: int64(p.OpenInterest),
		}
		// EODHD reports IV in percent
		if iv := float64(p.ImpliedVolatility); iv > 0 {
			oc.ImpliedVolatility = &iv
		}
		snapshot.Puts = append(snapshot.Puts, oc)
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Int("puts", len(snapshot.Puts)).
		Str("expiration", nearest.date.Format(dateLayout)).
		Msg("EODHD chain fetched")

	return snapshot, nil
}

// earningsCalendarResponse represents the /calendar/earnings payload
type earningsCalendarResponse struct {
	Earnings []struct {
		Code       string `json:"code"`
		ReportDate string `json:"report_date"`
		Date       string `json:"date"`
	} `json:"earnings"`
}

// GetNextEarnings returns the earliest report date for symbol in [from, to]
func (c *Client) GetNextEarnings(ctx context.Context, symbol string, from, to time.Time) (*time.Time, error) {
	ticker := c.ticker(symbol)
	params := url.Values{}
	params.Set("symbols", ticker)
	params.Set("from", from.Format(dateLayout))
	params.Set("to", to.Format(dateLayout))

	var resp earningsCalendarResponse
	if err := c.get(ctx, "/calendar/earnings", params, &resp); err != nil {
		return nil, err
	}

	var next *time.Time
	for _, e := range resp.Earnings {
		if e.Code != "" && !strings.EqualFold(e.Code, ticker) {
			continue
		}
		d, err := time.Parse(dateLayout, e.ReportDate)
		if err != nil {
			continue
		}
		if next == nil || d.Before(*next) {
			next = &d
		}
	}
	return next, nil
}

// fetchError maps transport and HTTP failures onto FetchError kinds
func (c *Client) fetchError(symbol string, err error) *models.FetchError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return models.NewFetchError(providerName, symbol, models.FetchNotFound, err)
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return models.NewFetchError(providerName, symbol, models.FetchRateLimited, err)
		case apiErr.StatusCode >= 500, apiErr.StatusCode == http.StatusUnauthorized, apiErr.StatusCode == http.StatusForbidden:
			return models.NewFetchError(providerName, symbol, models.FetchUnreachable, err)
		default:
			return models.NewFetchError(providerName, symbol, models.FetchMalformed, err)
		}
	case errors.Is(err, errDecode):
		return models.NewFetchError(providerName, symbol, models.FetchMalformed, err)
	default:
		return models.NewFetchError(providerName, symbol, models.FetchUnreachable, err)
	}
}
