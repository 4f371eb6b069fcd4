package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EtherscanClient reads chain metrics through the Etherscan proxy API.
type EtherscanClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewEtherscanClient(baseURL, apiKey string) *EtherscanClient {
	return &EtherscanClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type etherscanProxyResponse struct {
	Result string `json:"result"`
}

func (c *EtherscanClient) LatestBlock(ctx context.Context) (int64, error) {
	result, err := c.proxy(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	return parseHexInt(result)
}

func (c *EtherscanClient) GasPrice(ctx context.Context) (decimal.Decimal, error) {
	result, err := c.proxy(ctx, "eth_gasPrice")
	if err != nil {
		return decimal.Decimal{}, err
	}
	wei, err := parseHexInt(result)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromInt(wei), nil
}

func (c *EtherscanClient) proxy(ctx context.Context, action string) (string, error) {
	endpoint := fmt.Sprintf("%s?module=proxy&action=%s&apikey=%s", c.baseURL, action, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("etherscan request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("etherscan status %d", resp.StatusCode)
	}

	var body etherscanProxyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode etherscan response: %w", err)
	}
	if body.Result == "" {
		return "", fmt.Errorf("empty etherscan result for %s", action)
	}
	return body.Result, nil
}

func parseHexInt(hex string) (int64, error) {
	trimmed := strings.TrimPrefix(hex, "0x")
	n, err := strconv.ParseInt(trimmed, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex %q: %w", hex, err)
	}
	return n, nil
}
