package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public CoinGecko v3 API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

const maxErrorBody = 512

// CoinGeckoFetcher implements Fetcher using the CoinGecko market_chart endpoint.
type CoinGeckoFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	logger  zerolog.Logger
}

// NewCoinGeckoFetcher creates a fetcher with optional proxy support.
// An empty apiKey sends unauthenticated requests.
func NewCoinGeckoFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *CoinGeckoFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CoinGeckoFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: log.With().Str("component", "coingecko_fetcher").Logger(),
	}
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

// marketChart is the subset of the market_chart response we use.
// Each entry is [epoch_ms, price]; either element may be null.
type marketChart struct {
	Prices [][]*float64 `json:"prices"`
}

// FetchPrices issues a single GET and converts the prices array to raw points.
// Any non-200 status, transport error or undecodable body yields a *FetchError and no points.
func (f *CoinGeckoFetcher) FetchPrices(ctx context.Context, q Query) ([]RawPoint, error) {
	endpoint := f.endpoint(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Source: f.Name(), Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if f.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", f.APIKey)
	}

	f.logger.Debug().Str("url", endpoint).Msg("Fetching market chart")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: f.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Source: f.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Source: f.Name(), StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}

	var chart marketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		f.logger.Error().Err(err).Str("response", truncate(string(body), maxErrorBody)).Msg("Error parsing JSON")
		return nil, &FetchError{Source: f.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("parsing JSON: %w", err)}
	}
	if chart.Prices == nil {
		return nil, &FetchError{Source: f.Name(), StatusCode: resp.StatusCode, Err: errors.New("response has no prices array")}
	}

	points := make([]RawPoint, len(chart.Prices))
	for i, row := range chart.Prices {
		var p RawPoint
		if len(row) > 0 && row[0] != nil {
			ms := int64(*row[0])
			p.EpochMillis = &ms
		}
		if len(row) > 1 && row[1] != nil {
			price := *row[1]
			p.Price = &price
		}
		points[i] = p
	}

	f.logger.Debug().Int("count", len(points)).Msg("Fetched prices")
	return points, nil
}

func (f *CoinGeckoFetcher) endpoint(q Query) string {
	params := url.Values{}
	params.Set("vs_currency", q.VsCurrency)
	params.Set("days", strconv.Itoa(q.Days))
	if q.Interval != "" {
		params.Set("interval", q.Interval)
	}
	return fmt.Sprintf("%s/coins/%s/market_chart?%s", f.BaseURL, url.PathEscape(q.CoinID), params.Encode())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
