package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/trogers1052/virfolio/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second

	userAgent = "Mozilla/5.0 (compatible; virfolio/1.0)"
)

// YahooProvider implements Provider against the Yahoo Finance chart and quote
// summary endpoints
type YahooProvider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// YahooOption configures the provider
type YahooOption func(*YahooProvider)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) YahooOption {
	return func(y *YahooProvider) {
		y.baseURL = baseURL
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) YahooOption {
	return func(y *YahooProvider) {
		y.httpClient.Timeout = timeout
	}
}

// WithRateLimit sets the rate limit in requests per second
func WithRateLimit(requestsPerSecond int) YahooOption {
	return func(y *YahooProvider) {
		y.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithProviderLogger sets the logger
func WithProviderLogger(log zerolog.Logger) YahooOption {
	return func(y *YahooProvider) {
		y.log = log
	}
}

// NewYahooProvider creates a new Yahoo Finance provider
func NewYahooProvider(opts ...YahooOption) *YahooProvider {
	y := &YahooProvider{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		log:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(y)
	}

	return y
}

// APIError represents a non-200 response from the provider
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo finance error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request and decodes the JSON body
func (y *YahooProvider) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := y.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	y.log.Debug().Str("url", y.baseURL+path).Msg("Yahoo Finance request")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// History returns daily bars for symbol over period, oldest first. Bars
// without a close are skipped.
func (y *YahooProvider) History(ctx context.Context, symbol, period string) ([]models.PriceDataDaily, error) {
	params := url.Values{}
	params.Set("range", period)
	params.Set("interval", "1d")

	var resp chartResponse
	if err := y.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]models.PriceDataDaily, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePrice := at(quote.Close, i)
		if closePrice == nil {
			continue
		}
		bar := models.PriceDataDaily{
			Symbol: symbol,
			Date:   time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close:  decimal.NewFromFloat(*closePrice),
		}
		if v := at(quote.Open, i); v != nil {
			bar.Open = decimal.NewFromFloat(*v)
		}
		if v := at(quote.High, i); v != nil {
			bar.High = decimal.NewFromFloat(*v)
		}
		if v := at(quote.Low, i); v != nil {
			bar.Low = decimal.NewFromFloat(*v)
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} wrapper
type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				LongName           string   `json:"longName"`
				Currency           string   `json:"currency"`
				RegularMarketPrice rawValue `json:"regularMarketPrice"`
			} `json:"price"`
			SummaryDetail struct {
				DayHigh          rawValue `json:"dayHigh"`
				DayLow           rawValue `json:"dayLow"`
				Volume           rawValue `json:"volume"`
				MarketCap        rawValue `json:"marketCap"`
				ForwardPE        rawValue `json:"forwardPE"`
				TrailingPE       rawValue `json:"trailingPE"`
				FiftyTwoWeekHigh rawValue `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow  rawValue `json:"fiftyTwoWeekLow"`
				Currency         string   `json:"currency"`
			} `json:"summaryDetail"`
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
			FinancialData struct {
				CurrentPrice rawValue `json:"currentPrice"`
			} `json:"financialData"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

// Info returns the metadata bag for symbol
func (y *YahooProvider) Info(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{}
	params.Set("modules", "price,summaryDetail,assetProfile,financialData")

	var resp quoteSummaryResponse
	if err := y.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("quote summary %s: %s", symbol, resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("quote summary %s: empty result", symbol)
	}

	r := resp.QuoteSummary.Result[0]
	q := &Quote{
		LongName:           r.Price.LongName,
		Sector:             r.AssetProfile.Sector,
		Industry:           r.AssetProfile.Industry,
		Currency:           r.Price.Currency,
		CurrentPrice:       r.FinancialData.CurrentPrice.Raw,
		RegularMarketPrice: r.Price.RegularMarketPrice.Raw,
		DayHigh:            r.SummaryDetail.DayHigh.Raw,
		DayLow:             r.SummaryDetail.DayLow.Raw,
		Volume:             r.SummaryDetail.Volume.Raw,
		MarketCap:          r.SummaryDetail.MarketCap.Raw,
		ForwardPE:          r.SummaryDetail.ForwardPE.Raw,
		TrailingPE:         r.SummaryDetail.TrailingPE.Raw,
		FiftyTwoWeekHigh:   r.SummaryDetail.FiftyTwoWeekHigh.Raw,
		FiftyTwoWeekLow:    r.SummaryDetail.FiftyTwoWeekLow.Raw,
	}
	if q.Currency == "" {
		q.Currency = r.SummaryDetail.Currency
	}
	return q, nil
}
