package wam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const controlPort = "55001"

// Client issues UIC/CPM commands to WAM speakers over HTTP GET.
// Uses connection pooling since the hub talks to the same few speakers
// repeatedly.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a command client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Execute sends one encoded command to the speaker and returns the parsed
// response envelope. Transport failures surface as TimeoutError or
// UnreachableError; a malformed or device-rejected reply surfaces as
// ProtocolError. No retries; retry policy belongs to the caller.
func (c *Client) Execute(ctx context.Context, addr string, endpoint Endpoint, cmd Command) (*Response, error) {
	reqURL := fmt.Sprintf("http://%s/%s?cmd=%s", hostPort(addr), endpoint, cmd.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{Command: cmd.Name, Addr: addr}
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, &TimeoutError{Command: cmd.Name, Addr: addr}
		}
		return nil, &UnreachableError{Command: cmd.Name, Addr: addr, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnreachableError{Command: cmd.Name, Addr: addr, Err: err}
	}

	if resp.StatusCode >= 300 {
		return nil, &ProtocolError{
			Command: cmd.Name,
			Addr:    addr,
			Reason:  fmt.Sprintf("http %d", resp.StatusCode),
			Raw:     string(payload),
		}
	}

	return parseResponse(cmd.Name, addr, endpoint, payload)
}

// hostPort appends the control port when addr does not already carry one.
// Test servers pass host:port directly.
func hostPort(addr string) string {
	if strings.Contains(addr, ":") {
		return addr
	}
	return net.JoinHostPort(addr, controlPort)
}
