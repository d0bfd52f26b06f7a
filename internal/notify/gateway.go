package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrGatewayRejected marks a delivery the gateway refused; retrying will not help.
var ErrGatewayRejected = errors.New("sms gateway rejected message")

// Gateway posts messages to an HTTP SMS gateway.
type Gateway struct {
	endpoint string
	client   *http.Client
}

// NewGateway builds a gateway client. An empty endpoint yields nil.
func NewGateway(endpoint string, timeout time.Duration) *Gateway {
	if endpoint == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

// Send delivers body to the phone number. The gateway takes both as query parameters.
func (g *Gateway) Send(ctx context.Context, to, body string) error {
	if g == nil {
		return errors.New("sms gateway not configured")
	}
	u, err := url.Parse(g.endpoint)
	if err != nil {
		return fmt.Errorf("sms gateway url: %w", err)
	}
	q := u.Query()
	q.Set("to", to)
	q.Set("message", body)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrGatewayRejected, resp.StatusCode)
	default:
		return fmt.Errorf("sms gateway: status %d", resp.StatusCode)
	}
}
