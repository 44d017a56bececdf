// Package yahoo provides a market data client for the Yahoo Finance options endpoint
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/putscan/internal/common"
	"github.com/bobmcallan/putscan/internal/interfaces"
	"github.com/bobmcallan/putscan/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultUserAgent = "Mozilla/5.0"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second

	providerName = "yahoo"
)

// Client fetches quotes and put chains from Yahoo Finance
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

var _ interfaces.MarketDataProvider = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithUserAgent sets the User-Agent header. Yahoo rejects requests without one.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
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

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
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

// APIError represents a non-200 response from Yahoo
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Yahoo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// errDecode marks a response body that could not be decoded
var errDecode = errors.New("failed to decode response")

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", reqURL).Msg("Yahoo API request")

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

// optionsResponse is the /v7/finance/options payload
type optionsResponse struct {
	OptionChain struct {
		Result []optionResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"optionChain"`
}

type optionResult struct {
	UnderlyingSymbol string        `json:"underlyingSymbol"`
	ExpirationDates  []int64       `json:"expirationDates"`
	Quote            *quoteFields  `json:"quote"`
	Options          []optionBlock `json:"options"`
}

type quoteFields struct {
	Symbol                     string  `json:"symbol"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
	FiftyTwoWeekHigh           float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow            float64 `json:"fiftyTwoWeekLow"`
	EarningsTimestamp          *int64  `json:"earningsTimestamp"`
	EarningsTimestampStart     *int64  `json:"earningsTimestampStart"`
}

type optionBlock struct {
	ExpirationDate int64      `json:"expirationDate"`
	Puts           []contract `json:"puts"`
}

type contract struct {
	Strike            float64  `json:"strike"`
	Bid               float64  `json:"bid"`
	Ask               float64  `json:"ask"`
	Volume            int64    `json:"volume"`
	OpenInterest      int64    `json:"openInterest"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
}

// FetchChain retrieves the quote and nearest-expiration puts for symbol
func (c *Client) FetchChain(ctx context.Context, symbol string) (*models.ChainSnapshot, error) {
	path := "/v7/finance/options/" + url.PathEscape(symbol)

	var resp optionsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, c.fetchError(symbol, err)
	}

	if len(resp.OptionChain.Result) == 0 {
		if e := resp.OptionChain.Error; e != nil {
			return nil, models.NewFetchError(providerName, symbol, models.FetchNotFound, errors.New(e.Description))
		}
		return nil, models.NewFetchError(providerName, symbol, models.FetchNotFound, errors.New("no options data"))
	}

	result := resp.OptionChain.Result[0]
	if result.Quote == nil {
		return nil, models.NewFetchError(providerName, symbol, models.FetchMalformed, errors.New("no quote in response"))
	}

	snapshot := &models.ChainSnapshot{
		Quote: models.Quote{
			Symbol:           symbol,
			Price:            result.Quote.RegularMarketPrice,
			PercentChange:    result.Quote.RegularMarketChangePercent,
			FiftyTwoWeekHigh: result.Quote.FiftyTwoWeekHigh,
			FiftyTwoWeekLow:  result.Quote.FiftyTwoWeekLow,
		},
		Provider: providerName,
	}

	if ts := result.Quote.EarningsTimestamp; ts != nil && *ts > 0 {
		d := time.Unix(*ts, 0).UTC()
		snapshot.Quote.EarningsDate = &d
	} else if ts := result.Quote.EarningsTimestampStart; ts != nil && *ts > 0 {
		d := time.Unix(*ts, 0).UTC()
		snapshot.Quote.EarningsDate = &d
	}

	var block *optionBlock
	if len(result.Options) > 0 {
		block = &result.Options[0]
	}
	if block == nil || len(block.Puts) == 0 {
		return nil, models.NewFetchError(providerName, symbol, models.FetchEmptyChain, nil)
	}

	switch {
	case len(result.ExpirationDates) > 0:
		snapshot.Expiration = time.Unix(result.ExpirationDates[0], 0).UTC()
	case block.ExpirationDate > 0:
		snapshot.Expiration = time.Unix(block.ExpirationDate, 0).UTC()
	}

	snapshot.Puts = make([]models.OptionContract, 0, len(block.Puts))
	for _, p := range block.Puts {
		oc := models.OptionContract{
			Strike:       p.Strike,
			Bid:          p.Bid,
			Ask:          p.Ask,
			Volume:       p.Volume,
			OpenInterest: p.OpenInterest,
		}
		// Yahoo reports IV as a fraction
		if p.ImpliedVolatility != nil && *p.ImpliedVolatility > 0 {
			iv := *p.ImpliedVolatility * 100
			oc.ImpliedVolatility = &iv
		}
		snapshot.Puts = append(snapshot.Puts, oc)
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Int("puts", len(snapshot.Puts)).
		Time("expiration", snapshot.Expiration).
		Msg("Yahoo chain fetched")

	return snapshot, nil
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
