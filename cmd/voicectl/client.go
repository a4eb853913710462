package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"maitre/internal/models"
)

// ApiClient talks to the maitre API
type ApiClient struct {
	httpClient *http.Client
	BaseURL    string
	Token      string
}

func NewApiClient(baseURL, token string) *ApiClient {
	return &ApiClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		BaseURL: baseURL,
		Token:   token,
	}
}

// CommandResult is the part of a command outcome the terminal shows
type CommandResult struct {
	Success    bool   `json:"success"`
	Response   string `json:"response"`
	Transcript string `json:"transcript"`
	Normalized string `json:"normalized"`
	Analysis   struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	} `json:"analysis"`
	AnalysisSource string `json:"analysisSource"`
}

// OrderList is the orders endpoint payload
type OrderList struct {
	Orders []models.Order     `json:"orders"`
	Counts models.OrderCounts `json:"counts"`
}

type apiError struct {
	Error string `json:"error"`
}

// CheckHealth checks if the API is up and running
func (c *ApiClient) CheckHealth() error {
	resp, err := c.httpClient.Get(c.BaseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API health check failed with status code: %d", resp.StatusCode)
	}
	return nil
}

// SendCommand submits one completed command
func (c *ApiClient) SendCommand(command string) (*CommandResult, error) {
	data, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return nil, err
	}

	var result CommandResult
	if err := c.do(http.MethodPost, "/api/v1/voice/command", bytes.NewReader(data), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetOrders retrieves orders, optionally filtered by status
func (c *ApiClient) GetOrders(status string) (*OrderList, error) {
	path := "/api/v1/orders"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var list OrderList
	if err := c.do(http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *ApiClient) do(method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return json.Unmarshal(raw, out)
}
