package snapshotsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"coinpulse/internal/domain"
	"coinpulse/internal/observability"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoClient pulls market data from the CoinGecko public API.
type CoinGeckoClient struct {
	baseURL       string
	vsCurrency    string
	client        *http.Client
	retryAttempts int
	retryDelay    time.Duration
	requestPause  time.Duration
	logger        zerolog.Logger
}

// CoinGeckoOptions configures a CoinGeckoClient. Zero values take
// conservative defaults.
type CoinGeckoOptions struct {
	BaseURL       string
	VsCurrency    string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	RequestPause  time.Duration
	Logger        zerolog.Logger
}

// NewCoinGeckoClient builds a client with retry and pacing behavior.
func NewCoinGeckoClient(opts CoinGeckoOptions) *CoinGeckoClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.VsCurrency == "" {
		opts.VsCurrency = "usd"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.RequestPause == 0 {
		opts.RequestPause = time.Second
	}
	return &CoinGeckoClient{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		vsCurrency:    opts.VsCurrency,
		client:        &http.Client{Timeout: opts.Timeout},
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
		requestPause:  opts.RequestPause,
		logger:        opts.Logger,
	}
}

var _ HistorySource = (*CoinGeckoClient)(nil)

type marketRow struct {
	ID                string   `json:"id"`
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	CurrentPrice      *float64 `json:"current_price"`
	MarketCap         *float64 `json:"market_cap"`
	TotalVolume       *float64 `json:"total_volume"`
	CirculatingSupply *float64 `json:"circulating_supply"`
	Change24h         *float64 `json:"price_change_percentage_24h"`
	Change7d          *float64 `json:"price_change_percentage_7d_in_currency"`
	Change30d         *float64 `json:"price_change_percentage_30d_in_currency"`
	ATH               *float64 `json:"ath"`
	ATL               *float64 `json:"atl"`
	ATHDate           *string  `json:"ath_date"`
	ATLDate           *string  `json:"atl_date"`
	LastUpdated       string   `json:"last_updated"`
}

// GetCurrent fetches the latest market snapshot for every coin in the
// universe. Coins the provider does not know are absent from the result.
func (c *CoinGeckoClient) GetCurrent(ctx context.Context, universe []string) (map[string]domain.Snapshot, error) {
	if len(universe) == 0 {
		return map[string]domain.Snapshot{}, nil
	}

	q := url.Values{}
	q.Set("vs_currency", c.vsCurrency)
	q.Set("ids", strings.Join(universe, ","))
	q.Set("price_change_percentage", "24h,7d,30d")
	q.Set("per_page", fmt.Sprintf("%d", len(universe)))

	var rows []marketRow
	if err := c.getJSON(ctx, "/coins/markets", q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	out := make(map[string]domain.Snapshot, len(rows))
	for _, row := range rows {
		out[row.ID] = row.toSnapshot()
	}
	return out, nil
}

// GetHistory fetches up to days of daily price points for one coin and
// maps them to archive snapshots. Only price and volume are populated.
func (c *CoinGeckoClient) GetHistory(ctx context.Context, coinID string, days int) ([]domain.Snapshot, error) {
	q := url.Values{}
	q.Set("vs_currency", c.vsCurrency)
	q.Set("days", fmt.Sprintf("%d", days))
	q.Set("interval", "daily")

	var chart struct {
		Prices       [][2]float64 `json:"prices"`
		MarketCaps   [][2]float64 `json:"market_caps"`
		TotalVolumes [][2]float64 `json:"total_volumes"`
	}
	path := fmt.Sprintf("/coins/%s/market_chart", url.PathEscape(coinID))
	if err := c.getJSON(ctx, path, q, &chart); err != nil {
		return nil, err
	}
	if len(chart.Prices) == 0 {
		return nil, ErrNoData
	}

	caps := indexByDay(chart.MarketCaps)
	vols := indexByDay(chart.TotalVolumes)

	snaps := make([]domain.Snapshot, 0, len(chart.Prices))
	for _, point := range chart.Prices {
		ts := time.UnixMilli(int64(point[0])).UTC()
		day := truncateDay(ts)
		price := point[1]
		snap := domain.Snapshot{
			CoinID:    coinID,
			Timestamp: ts,
			PriceUSD:  &price,
		}
		if mc, ok := caps[day]; ok {
			v := mc
			snap.MarketCap = &v
		}
		if vol, ok := vols[day]; ok {
			v := vol
			snap.TotalVolume = &v
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Pace blocks for the configured request pause, respecting cancellation.
// Callers use it between successive history pulls to stay under provider
// rate limits.
func (c *CoinGeckoClient) Pace(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.requestPause):
		return nil
	}
}

func indexByDay(points [][2]float64) map[time.Time]float64 {
	m := make(map[time.Time]float64, len(points))
	for _, p := range points {
		m[truncateDay(time.UnixMilli(int64(p[0])))] = p[1]
	}
	return m
}

// getJSON performs a GET with fixed-delay retries. 429 and 5xx answers
// count as retryable.
func (c *CoinGeckoClient) getJSON(ctx context.Context, path string, q url.Values, dst any) error {
	endpoint := c.baseURL + path + "?" + q.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		err := c.doOnce(ctx, endpoint, dst)
		if err == nil {
			return nil
		}
		lastErr = err
		observability.RecordProviderError(path)
		c.logger.Warn().
			Err(err).
			Str("path", path).
			Int("attempt", attempt).
			Msg("provider request failed")
	}
	return fmt.Errorf("provider %s: %w", path, lastErr)
}

func (c *CoinGeckoClient) doOnce(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (r marketRow) toSnapshot() domain.Snapshot {
	snap := domain.Snapshot{
		CoinID:            r.ID,
		Name:              r.Name,
		Symbol:            strings.ToUpper(r.Symbol),
		PriceUSD:          r.CurrentPrice,
		MarketCap:         r.MarketCap,
		TotalVolume:       r.TotalVolume,
		CirculatingSupply: r.CirculatingSupply,
		Change24hPct:      r.Change24h,
		Change7dPct:       r.Change7d,
		Change30dPct:      r.Change30d,
		ATH:               r.ATH,
		ATL:               r.ATL,
	}
	if ts, err := time.Parse(time.RFC3339, r.LastUpdated); err == nil {
		snap.Timestamp = ts.UTC()
	} else {
		snap.Timestamp = time.Now().UTC()
	}
	if r.ATHDate != nil {
		if ts, err := time.Parse(time.RFC3339, *r.ATHDate); err == nil {
			utc := ts.UTC()
			snap.ATHDate = &utc
		}
	}
	if r.ATLDate != nil {
		if ts, err := time.Parse(time.RFC3339, *r.ATLDate); err == nil {
			utc := ts.UTC()
			snap.ATLDate = &utc
		}
	}
	return snap
}
