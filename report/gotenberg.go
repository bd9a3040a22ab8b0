// Package report renders HTML documents to PDF through a Gotenberg service.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps interactions with the Gotenberg API.
type Client struct {
	http *resty.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(30 * time.Second),
	}
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode())
	}
	return nil
}

// RenderHTML converts raw HTML into a PDF document using Gotenberg.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("files", "index.html", strings.NewReader(html)).
		SetFormData(map[string]string{"landscape": "true"}).
		Post("/forms/chromium/convert/html")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("render failed with status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}
