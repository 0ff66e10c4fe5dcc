// Package prow provides a client for a Prow deployment: the job-list
// document (prowjobs.js), build result pages and the artifact listings they link to.
package prow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"arcalog/src/contracts"
	"arcalog/src/paths"
	"arcalog/src/provider"
)

const (
	// JobListDocument is the path of the job-list document below a Prow location.
	JobListDocument = "prowjobs.js"

	// maxErrorBody bounds how much of an error response is quoted in errors.
	maxErrorBody = 512
)

// Client is a Prow HTTP client.
type Client struct {
	httpClient *http.Client
	opts       provider.Options
}

// NewClient creates a new Prow client.
func NewClient(opts provider.Options) *Client {
	defaults := provider.DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = defaults.Attempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaults.Backoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaults.MaxBackoff
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}

	return &Client{
		httpClient: NewHTTPClient(opts.Timeout),
		opts:       opts,
	}
}

// NewHTTPClient returns an http.Client with a bounded per-request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// GetJobList downloads and decodes the job-list document below location.
func (c *Client) GetJobList(ctx context.Context, location string) (*provider.JobListing, error) {
	url := paths.CheckSlash(location) + JobListDocument

	var raw []byte
	err := Retry(ctx, c.opts.Attempts, c.opts.Backoff, c.opts.MaxBackoff, func() error {
		resp, err := c.get(ctx, url, "application/json")
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err = io.ReadAll(resp.Body)
		if err != nil {
			return &provider.TransientNetworkError{URL: url, Err: fmt.Errorf("failed to read body: %w", err)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var list struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &provider.RemoteFormatError{URL: url, Err: fmt.Errorf("failed to decode job list: %w", err)}
	}

	// A bad item costs only itself; the document is kept as served.
	listing := &provider.JobListing{URL: url, Raw: raw}
	for i, item := range list.Items {
		record, err := decodeRecord(item)
		if err != nil {
			listing.Skipped = append(listing.Skipped, &provider.RemoteFormatError{URL: url, Err: fmt.Errorf("failed to decode item %d: %w", i, err)})
			continue
		}
		listing.Jobs = append(listing.Jobs, record)
	}

	return listing, nil
}

// GetPage fetches an HTML page and returns its body.
func (c *Client) GetPage(ctx context.Context, url string) (string, error) {
	var body string
	err := Retry(ctx, c.opts.Attempts, c.opts.Backoff, c.opts.MaxBackoff, func() error {
		resp, err := c.get(ctx, url, "text/html")
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &provider.TransientNetworkError{URL: url, Err: fmt.Errorf("failed to read body: %w", err)}
		}
		body = string(data)
		return nil
	})
	return body, err
}

// Download streams the body at url into dst. Only the request itself is
// retried; a failure while copying the body is returned as is, because dst
// may already hold a prefix of the content.
func (c *Client) Download(ctx context.Context, url string, dst io.Writer) (int64, error) {
	var resp *http.Response
	err := Retry(ctx, c.opts.Attempts, c.opts.Backoff, c.opts.MaxBackoff, func() error {
		var err error
		resp, err = c.get(ctx, url, "")
		return err
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return n, &provider.TransientNetworkError{URL: url, Err: fmt.Errorf("failed to read artifact content: %w", err)}
	}
	return n, nil
}

// get executes a GET request and classifies failures. On success the caller
// owns the response body.
func (c *Client) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &provider.RemoteFormatError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", c.opts.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &provider.TransientNetworkError{URL: url, Err: fmt.Errorf("failed to execute request: %w", err)}
	}

	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	statusErr := fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &provider.TransientNetworkError{URL: url, Err: errors.Join(provider.ErrRateLimited, statusErr)}
	}
	if resp.StatusCode >= 500 {
		return nil, &provider.TransientNetworkError{URL: url, Err: statusErr}
	}
	return nil, &provider.RemoteFormatError{URL: url, Err: statusErr}
}

// decodeRecord decodes one job item. Labels and annotations are free-form
// string maps; a non-string value is rendered with its JSON text.
func decodeRecord(item json.RawMessage) (contracts.JobRecord, error) {
	var record contracts.JobRecord
	if err := json.Unmarshal(item, &record); err == nil {
		return record, nil
	}

	var loose struct {
		Kind     string `json:"kind"`
		Metadata struct {
			Name              string                     `json:"name"`
			Namespace         string                     `json:"namespace"`
			CreationTimestamp string                     `json:"creationTimestamp"`
			Labels            map[string]json.RawMessage `json:"labels"`
			Annotations       map[string]json.RawMessage `json:"annotations"`
		} `json:"metadata"`
		Spec   json.RawMessage `json:"spec"`
		Status json.RawMessage `json:"status"`
	}
	if err := json.Unmarshal(item, &loose); err != nil {
		return record, err
	}

	record.Kind = loose.Kind
	record.Metadata.Name = loose.Metadata.Name
	record.Metadata.Namespace = loose.Metadata.Namespace
	record.Metadata.CreationTimestamp = loose.Metadata.CreationTimestamp
	record.Metadata.Labels = flatten(loose.Metadata.Labels)
	record.Metadata.Annotations = flatten(loose.Metadata.Annotations)
	if len(loose.Spec) > 0 {
		if err := json.Unmarshal(loose.Spec, &record.Spec); err != nil {
			return record, fmt.Errorf("spec: %w", err)
		}
	}
	if len(loose.Status) > 0 {
		if err := json.Unmarshal(loose.Status, &record.Status); err != nil {
			return record, fmt.Errorf("status: %w", err)
		}
	}
	return record, nil
}

func flatten(m map[string]json.RawMessage) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	return out
}
