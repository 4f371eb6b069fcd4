package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// transferSelector is the 4-byte selector of safeTransferFrom(address,address,uint256).
const transferSelector = "0x42842e0e"

// Web3Client submits custody transfers through a JSON-RPC node that holds
// the vault signing key (eth_sendTransaction against a managed account)
// and checks confirmation depth via receipts.
type Web3Client struct {
	rpcURL       string
	vaultAddress string
	httpClient   *http.Client
	reqID        atomic.Int64
}

func NewWeb3Client(rpcURL, vaultAddress string) *Web3Client {
	return &Web3Client{
		rpcURL:       rpcURL,
		vaultAddress: strings.ToLower(vaultAddress),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// Transfer moves a token from the vault to the target wallet and returns
// the transaction hash.
func (c *Web3Client) Transfer(ctx context.Context, contractAddress, tokenID, toAddress string) (string, error) {
	data, err := encodeTransferCall(c.vaultAddress, toAddress, tokenID)
	if err != nil {
		return "", err
	}
	params := map[string]string{
		"from": c.vaultAddress,
		"to":   strings.ToLower(contractAddress),
		"data": data,
	}
	var txHash string
	if err := c.call(ctx, "eth_sendTransaction", []any{params}, &txHash); err != nil {
		return "", fmt.Errorf("send transfer: %w", err)
	}
	if txHash == "" {
		return "", fmt.Errorf("empty tx hash from node")
	}
	return txHash, nil
}

type txReceipt struct {
	BlockNumber string `json:"blockNumber"`
	Status      string `json:"status"`
}

// IsConfirmed reports whether the transaction is mined, succeeded, and
// buried under at least minConfirmations blocks. A missing receipt means
// not confirmed yet, not an error.
func (c *Web3Client) IsConfirmed(ctx context.Context, txHash string, minConfirmations int) (bool, error) {
	var receipt *txReceipt
	if err := c.call(ctx, "eth_getTransactionReceipt", []any{txHash}, &receipt); err != nil {
		return false, err
	}
	if receipt == nil || receipt.BlockNumber == "" {
		return false, nil
	}
	if receipt.Status != "0x1" {
		return false, fmt.Errorf("transaction %s reverted", txHash)
	}

	var latestHex string
	if err := c.call(ctx, "eth_blockNumber", []any{}, &latestHex); err != nil {
		return false, err
	}
	txBlock, err := parseHexInt(receipt.BlockNumber)
	if err != nil {
		return false, err
	}
	latest, err := parseHexInt(latestHex)
	if err != nil {
		return false, err
	}
	return latest-txBlock+1 >= int64(minConfirmations), nil
}

func (c *Web3Client) call(ctx context.Context, method string, params []any, out any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.reqID.Add(1),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc request: %w", err)
	}
	defer resp.Body.Close()

	var body rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if body.Error != nil {
		return body.Error
	}
	if out != nil && len(body.Result) > 0 {
		if err := json.Unmarshal(body.Result, out); err != nil {
			return fmt.Errorf("decode rpc result: %w", err)
		}
	}
	return nil
}

// encodeTransferCall ABI-encodes safeTransferFrom(from, to, tokenId).
func encodeTransferCall(from, to, tokenID string) (string, error) {
	fromWord, err := addressWord(from)
	if err != nil {
		return "", err
	}
	toWord, err := addressWord(to)
	if err != nil {
		return "", err
	}
	idWord, err := uintWord(tokenID)
	if err != nil {
		return "", err
	}
	return transferSelector + fromWord + toWord + idWord, nil
}

func addressWord(addr string) (string, error) {
	hex := strings.ToLower(strings.TrimPrefix(addr, "0x"))
	if len(hex) != 40 {
		return "", fmt.Errorf("invalid address %q", addr)
	}
	return strings.Repeat("0", 24) + hex, nil
}

// uintWord encodes a decimal token id as a uint256 word. Token ids
// derived from hashes exceed uint64, so the parse goes through math/big.
func uintWord(dec string) (string, error) {
	if dec == "" || dec[0] == '+' || dec[0] == '-' {
		return "", fmt.Errorf("token id must be an unsigned decimal integer")
	}
	n, ok := new(big.Int).SetString(dec, 10)
	if !ok {
		return "", fmt.Errorf("token id must be an unsigned decimal integer")
	}
	hex := n.Text(16)
	if len(hex) > 64 {
		return "", fmt.Errorf("token id %s exceeds uint256", dec)
	}
	return strings.Repeat("0", 64-len(hex)) + hex, nil
}
