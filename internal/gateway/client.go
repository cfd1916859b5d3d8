package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Cyclone1070/butterfi/internal/chain"
	"github.com/Cyclone1070/butterfi/internal/reply"
)

// APIError is a non-2xx response from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the gateway over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	normalizer *reply.Normalizer
}

// NewClient creates a client for baseURL. A nil httpClient uses one with a
// three minute timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 3 * time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		normalizer: reply.NewNormalizer(nil),
	}
}

// UserQuery submits a query and returns the reply and its thread id.
func (c *Client) UserQuery(ctx context.Context, req UserQueryRequest) (reply.Reply, string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/userQuery", req)
	if err != nil {
		return reply.Reply{}, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply.Reply{}, "", fmt.Errorf("read reply: %w", err)
	}
	r, err := c.normalizer.Parse(string(body))
	if err != nil {
		return reply.Reply{}, "", err
	}
	return r, resp.Header.Get(HeaderThreadID), nil
}

// Query submits a legacy query.
func (c *Client) Query(ctx context.Context, req LegacyQueryRequest) (*LegacyQueryResponse, string, error) {
	var out LegacyQueryResponse
	threadID, err := c.call(ctx, http.MethodPost, "/query", req, &out)
	if err != nil {
		return nil, "", err
	}
	return &out, threadID, nil
}

// Stake approves and stakes amount in a strategy.
func (c *Client) Stake(ctx context.Context, strategyID int, amount string) (string, error) {
	var out TxResponse
	if _, err := c.call(ctx, http.MethodPost, "/stake", TxRequest{StrategyID: strategyID, Amount: Amount(amount)}, &out); err != nil {
		return "", err
	}
	return out.TxHash, nil
}

// Withdraw withdraws amount from a strategy.
func (c *Client) Withdraw(ctx context.Context, strategyID int, amount string) (string, error) {
	var out TxResponse
	if _, err := c.call(ctx, http.MethodPost, "/withdraw", TxRequest{StrategyID: strategyID, Amount: Amount(amount)}, &out); err != nil {
		return "", err
	}
	return out.TxHash, nil
}

// Positions lists an address's positions.
func (c *Client) Positions(ctx context.Context, address string) ([]chain.Position, error) {
	var out []chain.Position
	if _, err := c.call(ctx, http.MethodGet, "/positions/"+url.PathEscape(address), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health checks that the gateway is up.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	_, err := c.call(ctx, http.MethodGet, "/healthz", nil, &out)
	return err
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) (string, error) {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.Header.Get(HeaderThreadID), nil
}

// do sends the request and converts non-2xx responses to *APIError. The
// caller closes the body of successful responses.
func (c *Client) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 == 2 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var er ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		apiErr.Message = er.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return nil, apiErr
}
