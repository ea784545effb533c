package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fauna/internal/api"
)

// daemonClient talks to the faunad HTTP API.
type daemonClient struct {
	base string
	http *http.Client
}

func newDaemonClient(base string) *daemonClient {
	return &daemonClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Reachable probes the daemon with a quick status request.
func (c *daemonClient) Reachable() bool {
	probe := &http.Client{Timeout: 2 * time.Second}
	resp, err := probe.Get(c.base + "/api/status")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *daemonClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *daemonClient) post(ctx context.Context, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *daemonClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("daemon response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(payload, out)
}

// Submit uploads an image file and returns the accepted item id.
func (c *daemonClient) Submit(ctx context.Context, owner, path string, data []byte) (api.UploadResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if owner != "" {
		if err := writer.WriteField("owner", owner); err != nil {
			return api.UploadResponse{}, err
		}
	}
	part, err := writer.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return api.UploadResponse{}, err
	}
	if _, err := part.Write(data); err != nil {
		return api.UploadResponse{}, err
	}
	if err := writer.Close(); err != nil {
		return api.UploadResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/photos", &body)
	if err != nil {
		return api.UploadResponse{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var accepted api.UploadResponse
	if err := c.do(req, &accepted); err != nil {
		return api.UploadResponse{}, err
	}
	return accepted, nil
}

func (c *daemonClient) PhotoStatus(ctx context.Context, id string) (api.StatusResponse, error) {
	var status api.StatusResponse
	err := c.get(ctx, "/api/photos/"+url.PathEscape(id), &status)
	return status, err
}

func (c *daemonClient) Describe(ctx context.Context, id string) (api.QueueItemResponse, error) {
	var item api.QueueItemResponse
	err := c.get(ctx, "/api/queue/"+url.PathEscape(id), &item)
	return item, err
}

func (c *daemonClient) List(ctx context.Context, statuses []string) (api.QueueListResponse, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var list api.QueueListResponse
	err := c.get(ctx, path, &list)
	return list, err
}

func (c *daemonClient) Recent(ctx context.Context, owner string, limit int) (api.QueueListResponse, error) {
	values := url.Values{}
	values.Set("owner", owner)
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var list api.QueueListResponse
	err := c.get(ctx, "/api/queue?"+values.Encode(), &list)
	return list, err
}

func (c *daemonClient) Remove(ctx context.Context, id string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.base+"/api/queue/"+url.PathEscape(id), nil)
	if err != nil {
		return false, err
	}
	var removed struct {
		Removed bool `json:"removed"`
	}
	if err := c.do(req, &removed); err != nil {
		if isNotFoundErr(err) {
			return false, nil
		}
		return false, err
	}
	return removed.Removed, nil
}

func (c *daemonClient) Stats(ctx context.Context) (api.QueueStatsResponse, error) {
	var stats api.QueueStatsResponse
	err := c.get(ctx, "/api/queue/stats", &stats)
	return stats, err
}

func (c *daemonClient) Retry(ctx context.Context, ids []string) (api.RetryResponse, error) {
	var retried api.RetryResponse
	err := c.post(ctx, "/api/queue/retry", api.RetryRequest{IDs: ids}, &retried)
	return retried, err
}

func (c *daemonClient) Clear(ctx context.Context, scope string) (int64, error) {
	var removed struct {
		Removed int64 `json:"removed"`
	}
	err := c.post(ctx, "/api/queue/clear?scope="+url.QueryEscape(scope), nil, &removed)
	return removed.Removed, err
}

func (c *daemonClient) Health(ctx context.Context) (api.HealthResponse, error) {
	var health api.HealthResponse
	err := c.get(ctx, "/api/health", &health)
	return health, err
}

func (c *daemonClient) DaemonStatus(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.get(ctx, "/api/status", &status)
	return status, err
}
