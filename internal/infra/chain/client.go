package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bioshield/internal/usecase"
)

// Client talks to the blockchain gateway service over HTTP. The gateway
// custodies funds; this client only submits operations and reads state.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) SubmitTransaction(ctx context.Context, op string, params map[string]any) (string, error) {
	if op == "" {
		return "", errors.New("operation is required")
	}
	var resp struct {
		TxHash string `json:"tx_hash"`
	}
	err := c.post(ctx, "/v1/transactions", map[string]any{
		"op":     op,
		"params": params,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.TxHash == "" {
		return "", errors.New("gateway returned no tx hash")
	}
	return resp.TxHash, nil
}

func (c *Client) GetBalance(ctx context.Context, address, tokenKind string) (int64, error) {
	var resp struct {
		Amount int64 `json:"amount"`
	}
	path := fmt.Sprintf("/v1/balances/%s?token=%s", address, tokenKind)
	if err := c.get(ctx, path, &resp); err != nil {
		return 0, err
	}
	return resp.Amount, nil
}

func (c *Client) GetCoverageState(ctx context.Context, id, chainName string) (string, error) {
	var resp struct {
		State string `json:"state"`
	}
	path := fmt.Sprintf("/v1/coverages/%s/state?chain=%s", id, chainName)
	if err := c.get(ctx, path, &resp); err != nil {
		return "", err
	}
	return resp.State, nil
}

func (c *Client) ProcessPayout(ctx context.Context, transfer usecase.PayoutTransfer) (string, error) {
	var resp struct {
		TxHash string `json:"tx_hash"`
	}
	err := c.post(ctx, "/v1/payouts", map[string]any{
		"claim_id":     transfer.ClaimID,
		"amount":       transfer.Amount,
		"recipient":    transfer.Recipient,
		"pay_discount": transfer.PayDiscount,
		"chain":        transfer.Chain,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.TxHash, nil
}

func (c *Client) ProcessRefund(ctx context.Context, transfer usecase.RefundTransfer) (string, error) {
	var resp struct {
		TxHash string `json:"tx_hash"`
	}
	err := c.post(ctx, "/v1/refunds", map[string]any{
		"coverage_id":  transfer.CoverageID,
		"amount":       transfer.Amount,
		"recipient":    transfer.Recipient,
		"pay_discount": transfer.PayDiscount,
		"chain":        transfer.Chain,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.TxHash, nil
}

func (c *Client) GetPoolData(ctx context.Context) (usecase.PoolData, error) {
	var resp struct {
		TotalCoverage  int64 `json:"total_coverage"`
		TotalLiquidity int64 `json:"total_liquidity"`
	}
	if err := c.get(ctx, "/v1/pool", &resp); err != nil {
		return usecase.PoolData{}, err
	}
	return usecase.PoolData{
		TotalCoverage:  resp.TotalCoverage,
		TotalLiquidity: resp.TotalLiquidity,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chain gateway %s: status %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

var _ usecase.ChainClient = (*Client)(nil)
