package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/heodongun/DongunCoinHub/internal/pricing"
)

// CoinGeckoClient fetches market quotes from the CoinGecko REST API.
// The coin's price_source_id is its CoinGecko id (e.g. "bitcoin").
type CoinGeckoClient struct {
	baseURL    string
	vsCurrency string
	httpClient *http.Client
}

func NewCoinGeckoClient(baseURL, vsCurrency string) *CoinGeckoClient {
	if vsCurrency == "" {
		vsCurrency = "krw"
	}
	return &CoinGeckoClient{
		baseURL:    baseURL,
		vsCurrency: vsCurrency,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type geckoMarket struct {
	CurrentPrice         decimal.Decimal `json:"current_price"`
	TotalVolume          decimal.Decimal `json:"total_volume"`
	High24h              decimal.Decimal `json:"high_24h"`
	Low24h               decimal.Decimal `json:"low_24h"`
	PriceChangePct24h    decimal.Decimal `json:"price_change_percentage_24h"`
	MarketCap            decimal.Decimal `json:"market_cap"`
}

func (c *CoinGeckoClient) FetchQuote(ctx context.Context, sourceID string) (pricing.Quote, error) {
	if sourceID == "" {
		return pricing.Quote{}, fmt.Errorf("source id is required")
	}

	endpoint := fmt.Sprintf("%s/coins/markets?vs_currency=%s&ids=%s",
		c.baseURL, url.QueryEscape(c.vsCurrency), url.QueryEscape(sourceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pricing.Quote{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("coingecko request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pricing.Quote{}, fmt.Errorf("coingecko status %d", resp.StatusCode)
	}

	var markets []geckoMarket
	if err := json.NewDecoder(resp.Body).Decode(&markets); err != nil {
		return pricing.Quote{}, fmt.Errorf("decode coingecko response: %w", err)
	}
	if len(markets) == 0 {
		return pricing.Quote{}, fmt.Errorf("no market data for %s", sourceID)
	}

	m := markets[0]
	return pricing.Quote{
		Price:        m.CurrentPrice,
		Volume24h:    m.TotalVolume,
		High24h:      m.High24h,
		Low24h:       m.Low24h,
		ChangePct24h: m.PriceChangePct24h,
		MarketCap:    m.MarketCap,
	}, nil
}
