package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kamathanirudh/labstack/pkg/types"
)

// Client is an HTTP client for the labstack API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new labstack API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

func decodeOrError(resp *http.Response, ok int, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode != ok {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CreateLab requests a new lab of the given type. A nil ttlMinutes leaves
// the choice to the server; an explicit value, including 0, is sent as-is.
func (c *Client) CreateLab(ctx context.Context, labType string, ttlMinutes *int) (*types.CreateLabResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/labs", types.CreateLabRequest{
		LabType:    labType,
		TTLMinutes: ttlMinutes,
	})
	if err != nil {
		return nil, err
	}

	var created types.CreateLabResponse
	if err := decodeOrError(resp, http.StatusCreated, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// LabStatus fetches the current status of a lab.
func (c *Client) LabStatus(ctx context.Context, labID string) (*types.LabStatusResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/labs/"+labID+"/status", nil)
	if err != nil {
		return nil, err
	}

	var status types.LabStatusResponse
	if err := decodeOrError(resp, http.StatusOK, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// TerminateLab requests termination of a lab.
func (c *Client) TerminateLab(ctx context.Context, labID string) (*types.TerminateLabResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/labs/"+labID+"/terminate", nil)
	if err != nil {
		return nil, err
	}

	var ack types.TerminateLabResponse
	if err := decodeOrError(resp, http.StatusOK, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// ListTemplates returns the lab templates the server offers.
func (c *Client) ListTemplates(ctx context.Context) ([]types.LabTemplate, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/templates", nil)
	if err != nil {
		return nil, err
	}

	var templates []types.LabTemplate
	if err := decodeOrError(resp, http.StatusOK, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}
