// Package fetch is the single boundary for talking to external reading
// platforms. Everything here is fail-soft: a request gets one attempt with a
// fixed timeout, and any failure (timeout, refused connection, non-2xx,
// undecodable body) is classified, logged, and swallowed. Callers receive
// (zero, false) and are expected to fall back; a network error never escapes
// this package.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client wraps a resty client for one external platform.
type Client struct {
	name string
	http *resty.Client
}

// NewClient builds a client for the given platform. name is only used as the
// log prefix. The timeout applies per request; there are no automatic
// retries, the next scheduled sync run is the retry mechanism.
func NewClient(name, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", defaultUserAgent).
		SetHeader("Accept", "application/json")

	return &Client{name: name, http: r}
}

// SetBearerToken attaches an Authorization header to every subsequent
// request. Used for FantLab API keys and Author.Today session tokens.
func (c *Client) SetBearerToken(token string) {
	c.http.SetAuthToken(token)
}

// SetHeader sets a default header on every subsequent request.
func (c *Client) SetHeader(key, value string) {
	c.http.SetHeader(key, value)
}

// JSON issues a GET against path and decodes the body as JSON. The payload
// may be any JSON value (the platforms return both objects and bare lists).
func (c *Client) JSON(ctx context.Context, path string, params map[string]string) (any, bool) {
	req := c.http.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(path)
	if err != nil {
		c.logTransportError(path, err)
		return nil, false
	}
	if !c.checkStatus(path, resp) {
		return nil, false
	}

	var payload any
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		log.Printf("[%s] decode failed for %s: %v", c.name, path, err)
		return nil, false
	}
	return payload, true
}

// PostJSON issues a POST with a JSON body and decodes the JSON response.
// Same fail-soft semantics as JSON.
func (c *Client) PostJSON(ctx context.Context, path string, body any) (any, bool) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	if err != nil {
		c.logTransportError(path, err)
		return nil, false
	}
	if !c.checkStatus(path, resp) {
		return nil, false
	}

	var payload any
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		log.Printf("[%s] decode failed for %s: %v", c.name, path, err)
		return nil, false
	}
	return payload, true
}

// HTML fetches a page as raw text. url may be absolute or relative to the
// client base URL.
func (c *Client) HTML(ctx context.Context, url string) (string, bool) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		Get(url)
	if err != nil {
		c.logTransportError(url, err)
		return "", false
	}
	if !c.checkStatus(url, resp) {
		return "", false
	}
	return string(resp.Body()), true
}

func (c *Client) checkStatus(path string, resp *resty.Response) bool {
	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		return true
	case code == http.StatusNotFound:
		log.Printf("[%s] not found: %s", c.name, path)
	default:
		body := resp.Body()
		if len(body) > 200 {
			body = body[:200]
		}
		log.Printf("[%s] status %d for %s: %s", c.name, code, path, body)
	}
	return false
}

func (c *Client) logTransportError(path string, err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), os.IsTimeout(err):
		log.Printf("[%s] timeout for %s", c.name, path)
	case errors.As(err, &netErr) && netErr.Timeout():
		log.Printf("[%s] timeout for %s", c.name, path)
	default:
		log.Printf("[%s] request failed for %s: %v", c.name, path, err)
	}
}
