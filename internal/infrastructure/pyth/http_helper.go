package pyth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"livefeed/internal/domain"
)

const maxErrorBody = 512

// get performs a rate-limited GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observer.UpstreamStatus(serviceName, 0)
		return nil, fmt.Errorf("pyth request %s: %w", path, err)
	}
	defer resp.Body.Close()
	c.observer.UpstreamStatus(serviceName, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &domain.UpstreamError{Service: serviceName, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
