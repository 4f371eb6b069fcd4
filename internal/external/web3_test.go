package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func rpcServer(t *testing.T, handler func(method string, params []any) (any, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
			return
		}
		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestTransferEncodesAndReturnsHash(t *testing.T) {
	var gotData string
	srv := rpcServer(t, func(method string, params []any) (any, *rpcError) {
		if method != "eth_sendTransaction" {
			t.Errorf("unexpected method %s", method)
			return nil, &rpcError{Code: -32601, Message: "method not found"}
		}
		tx := params[0].(map[string]any)
		gotData = tx["data"].(string)
		return "0xhash123", nil
	})
	defer srv.Close()

	c := NewWeb3Client(srv.URL, "0x1111111111111111111111111111111111111111")
	hash, err := c.Transfer(context.Background(), "0x2222222222222222222222222222222222222222", "7", "0x3333333333333333333333333333333333333333")
	if err != nil {
		t.Fatalf("expected transfer, got %v", err)
	}
	if hash != "0xhash123" {
		t.Fatalf("expected hash, got %q", hash)
	}
	if !strings.HasPrefix(gotData, transferSelector) {
		t.Fatalf("expected selector prefix, got %q", gotData)
	}
	// selector + 3 words of 64 hex chars
	if len(gotData) != len(transferSelector)+3*64 {
		t.Fatalf("unexpected calldata length %d", len(gotData))
	}
	if !strings.HasSuffix(gotData, "0000000000000000000000000000000000000000000000000000000000000007") {
		t.Fatalf("expected token id word, got %q", gotData)
	}
}

func TestTransferRejectsBadTokenID(t *testing.T) {
	c := NewWeb3Client("http://unused", "0x1111111111111111111111111111111111111111")
	if _, err := c.Transfer(context.Background(), "0x2222222222222222222222222222222222222222", "abc", "0x3333333333333333333333333333333333333333"); err == nil {
		t.Fatalf("expected error for non-decimal token id")
	}
}

func TestUintWordHandlesHashDerivedIDs(t *testing.T) {
	// 2^64 + 1: one past uint64, a common size for hash-derived ids.
	word, err := uintWord("18446744073709551617")
	if err != nil {
		t.Fatalf("expected encoding, got %v", err)
	}
	if len(word) != 64 || !strings.HasSuffix(word, "10000000000000001") {
		t.Fatalf("unexpected word %q", word)
	}

	// 2^256 does not fit a uint256 word.
	if _, err := uintWord("115792089237316195423570985008687907853269984665640564039457584007913129639936"); err == nil {
		t.Fatalf("expected error for id past uint256")
	}

	for _, bad := range []string{"", "-7", "+7", "12ab"} {
		if _, err := uintWord(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestIsConfirmedPendingReceipt(t *testing.T) {
	srv := rpcServer(t, func(method string, params []any) (any, *rpcError) {
		return nil, nil
	})
	defer srv.Close()

	c := NewWeb3Client(srv.URL, "0x1111111111111111111111111111111111111111")
	confirmed, err := c.IsConfirmed(context.Background(), "0xabc", 3)
	if err != nil {
		t.Fatalf("missing receipt is not an error, got %v", err)
	}
	if confirmed {
		t.Fatalf("expected not confirmed")
	}
}

func TestIsConfirmedDepth(t *testing.T) {
	latest := "0x14"
	srv := rpcServer(t, func(method string, params []any) (any, *rpcError) {
		switch method {
		case "eth_getTransactionReceipt":
			return map[string]string{"blockNumber": "0x12", "status": "0x1"}, nil
		case "eth_blockNumber":
			return latest, nil
		}
		return nil, &rpcError{Code: -32601, Message: "method not found"}
	})
	defer srv.Close()

	c := NewWeb3Client(srv.URL, "0x1111111111111111111111111111111111111111")

	// blocks 0x12..0x14 inclusive: 3 confirmations.
	confirmed, err := c.IsConfirmed(context.Background(), "0xabc", 3)
	if err != nil {
		t.Fatalf("expected depth check, got %v", err)
	}
	if !confirmed {
		t.Fatalf("expected confirmed at depth 3")
	}

	confirmed, err = c.IsConfirmed(context.Background(), "0xabc", 4)
	if err != nil {
		t.Fatalf("expected depth check, got %v", err)
	}
	if confirmed {
		t.Fatalf("expected not confirmed at depth 4")
	}
}

func TestIsConfirmedRevertedTransaction(t *testing.T) {
	srv := rpcServer(t, func(method string, params []any) (any, *rpcError) {
		return map[string]string{"blockNumber": "0x12", "status": "0x0"}, nil
	})
	defer srv.Close()

	c := NewWeb3Client(srv.URL, "0x1111111111111111111111111111111111111111")
	if _, err := c.IsConfirmed(context.Background(), "0xabc", 1); err == nil {
		t.Fatalf("expected error for reverted transaction")
	}
}

func TestEtherscanLatestBlockAndGasPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "eth_blockNumber":
			json.NewEncoder(w).Encode(etherscanProxyResponse{Result: "0x10"})
		case "eth_gasPrice":
			json.NewEncoder(w).Encode(etherscanProxyResponse{Result: "0x3b9aca00"})
		default:
			http.Error(w, "bad action", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := NewEtherscanClient(srv.URL, "key")
	block, err := c.LatestBlock(context.Background())
	if err != nil {
		t.Fatalf("latest block: %v", err)
	}
	if block != 16 {
		t.Fatalf("expected block 16, got %d", block)
	}

	gas, err := c.GasPrice(context.Background())
	if err != nil {
		t.Fatalf("gas price: %v", err)
	}
	if gas.String() != "1000000000" {
		t.Fatalf("expected 1 gwei in wei, got %s", gas)
	}
}
