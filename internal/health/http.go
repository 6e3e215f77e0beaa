package health

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPChecker considers the machine healthy while GET on URL answers with a
// non-error status. Point it at whatever service the box exists to run.
type HTTPChecker struct {
	URL    string
	Client *http.Client // defaults to http.DefaultClient
}

func (c *HTTPChecker) Name() string { return "http" }

func (c *HTTPChecker) Check(ctx context.Context) error {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s returned %s", c.URL, resp.Status)
	}
	return nil
}
