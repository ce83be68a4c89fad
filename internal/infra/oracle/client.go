package oracle

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

	"bioshield/internal/domain"
	"bioshield/internal/usecase"
)

// Client talks to the oracle aggregation service over HTTP. The service
// fans out to its upstream data providers and exposes a polling surface
// for the verification status.
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

func (c *Client) RequestVerification(ctx context.Context, claimID, evidenceRef string, conditions []domain.TriggerCondition, urgent bool) (string, error) {
	if claimID == "" {
		return "", errors.New("claim id is required")
	}
	reqConditions := make([]map[string]string, 0, len(conditions))
	for _, cond := range conditions {
		reqConditions = append(reqConditions, map[string]string{
			"type":    string(cond.Type),
			"outcome": cond.Outcome,
		})
	}
	var resp struct {
		RequestID string `json:"request_id"`
	}
	err := c.post(ctx, "/v1/verifications", map[string]any{
		"claim_id":     claimID,
		"evidence_ref": evidenceRef,
		"conditions":   reqConditions,
		"urgent":       urgent,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.RequestID == "" {
		return "", errors.New("oracle returned no request id")
	}
	return resp.RequestID, nil
}

func (c *Client) PollStatus(ctx context.Context, requestID string) (usecase.OracleStatus, error) {
	var resp struct {
		Status     string   `json:"status"`
		Consensus  bool     `json:"consensus"`
		Signatures []string `json:"signatures"`
		DataPoints []struct {
			Type      string    `json:"type"`
			Value     string    `json:"value"`
			Source    string    `json:"source"`
			Timestamp time.Time `json:"timestamp"`
		} `json:"data_points"`
	}
	if err := c.get(ctx, "/v1/verifications/"+requestID, &resp); err != nil {
		return usecase.OracleStatus{}, err
	}

	status := usecase.OracleStatus{
		Pending:   resp.Status != "complete",
		Consensus: resp.Consensus,
	}
	for _, sig := range resp.Signatures {
		status.Signatures = append(status.Signatures, []byte(sig))
	}
	for _, dp := range resp.DataPoints {
		status.DataPoints = append(status.DataPoints, domain.DataPoint{
			Type:      domain.DataPointType(dp.Type),
			Value:     dp.Value,
			Source:    dp.Source,
			Timestamp: dp.Timestamp,
		})
	}
	return status, nil
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
		return fmt.Errorf("oracle %s: status %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

var _ usecase.OracleClient = (*Client)(nil)
