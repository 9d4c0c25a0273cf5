package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"signal-screener/internal/types"
)

const finnhubSource = "finnhub"

// ErrMissingCredentials is returned by providers that have no API key.
var ErrMissingCredentials = errors.New("credentials not configured")

// FinnhubSource reads daily candles from the Finnhub stock/candle endpoint.
type FinnhubSource struct {
	client *resty.Client
	apiKey string
	cache  *Cache
}

// FinnhubOption configures a FinnhubSource.
type FinnhubOption func(*FinnhubSource)

// WithCache caches raw candle payloads.
func WithCache(c *Cache) FinnhubOption {
	return func(f *FinnhubSource) {
		f.cache = c
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) FinnhubOption {
	return func(f *FinnhubSource) {
		f.client = resty.NewWithClient(hc).SetBaseURL(f.client.BaseURL)
	}
}

// NewFinnhubSource creates a Finnhub client against baseURL.
func NewFinnhubSource(baseURL, apiKey string, opts ...FinnhubOption) *FinnhubSource {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Accept", "application/json")

	f := &FinnhubSource{client: client, apiKey: apiKey}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FinnhubSource) Name() string { return finnhubSource }

// candleResponse is the subset of the Finnhub candle body the screener uses.
// Fields are pointers so absence can be told apart from empty.
type candleResponse struct {
	Status *string    `json:"s"`
	Close  *[]float64 `json:"c"`
	Time   *[]int64   `json:"t"`
}

// Candles implements interfaces.PriceSource.
func (f *FinnhubSource) Candles(ctx context.Context, ticker string, from, to time.Time, res types.Resolution) ([]types.PricePoint, error) {
	if f.apiKey == "" {
		return nil, &types.SourceFetchError{Source: finnhubSource, Err: ErrMissingCredentials}
	}

	key := MakeKey(finnhubSource, ticker, string(res), from.Format("2006-01-02"), to.Format("2006-01-02"))
	if body, ok := f.cache.Get(key); ok {
		return parseCandles(body)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":     ticker,
			"resolution": string(res),
			"from":       strconv.FormatInt(from.Unix(), 10),
			"to":         strconv.FormatInt(to.Unix(), 10),
			"token":      f.apiKey,
		}).
		Get("/stock/candle")
	if err != nil {
		return nil, &types.SourceFetchError{Source: finnhubSource, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &types.SourceFetchError{
			Source: finnhubSource,
			Err:    fmt.Errorf("API error %d for %s", resp.StatusCode(), ticker),
		}
	}

	points, err := parseCandles(resp.Body())
	if err != nil {
		return nil, err
	}
	if len(points) > 0 {
		_ = f.cache.Set(key, resp.Body())
	}
	return points, nil
}

// parseCandles checks the candle body shape and converts it to points.
// A "no_data" status yields an empty, error-free result.
func parseCandles(body []byte) ([]types.PricePoint, error) {
	var cr candleResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, &types.MalformedResponseError{Source: finnhubSource, Reason: "decode body: " + err.Error()}
	}
	if cr.Status == nil {
		return nil, &types.MalformedResponseError{Source: finnhubSource, Reason: "missing status field"}
	}
	switch *cr.Status {
	case "no_data":
		return nil, nil
	case "ok":
	default:
		return nil, &types.MalformedResponseError{Source: finnhubSource, Reason: fmt.Sprintf("status %q", *cr.Status)}
	}
	if cr.Close == nil || cr.Time == nil {
		return nil, &types.MalformedResponseError{Source: finnhubSource, Reason: "missing c or t array"}
	}
	closes, stamps := *cr.Close, *cr.Time
	if len(closes) != len(stamps) {
		return nil, &types.MalformedResponseError{
			Source: finnhubSource,
			Reason: fmt.Sprintf("c has %d values, t has %d", len(closes), len(stamps)),
		}
	}

	points := make([]types.PricePoint, len(closes))
	for i := range closes {
		points[i] = types.PricePoint{Timestamp: stamps[i], Close: closes[i]}
	}
	sortPoints(points)
	return points, nil
}

func sortPoints(points []types.PricePoint) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
}
