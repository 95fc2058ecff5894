package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client wraps HTTP calls to the scripper server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new scripper API client.
func NewClient(serverURL, token string) *Client {
	return &Client{
		baseURL: serverURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Minute, // downloads can run long
		},
	}
}

func (c *Client) newRequest(method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// apiError extracts the server's error message from a non-2xx response.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("server error %d: %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
}

func (c *Client) get(path string, result any) error {
	req, err := c.newRequest(http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *Client) post(path string, body any, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	req, err := c.newRequest(http.MethodPost, path, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return apiError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) delete(path string) error {
	req, err := c.newRequest(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

// API response types (mirror server types)

type HealthResponse struct {
	Status string `json:"status"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type TrackResult struct {
	Success  bool   `json:"success"`
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

type DownloadResponse struct {
	Success bool          `json:"success"`
	Total   int           `json:"total"`
	Results []TrackResult `json:"results"`
}

type FileEntry struct {
	Filename string `json:"filename"`
}

type ListResponse struct {
	Files []FileEntry `json:"files"`
}

// API methods

func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get("/api/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Login(password string) (string, error) {
	var resp LoginResponse
	if err := c.post("/api/login", map[string]string{"password": password}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *Client) Download(trackURL string) (*DownloadResponse, error) {
	var resp DownloadResponse
	if err := c.post("/api/download", map[string]string{"url": trackURL}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) List() (*ListResponse, error) {
	var resp ListResponse
	if err := c.get("/api/downloads", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Fetch streams the named file into w.
func (c *Client) Fetch(filename string, w io.Writer) error {
	req, err := c.newRequest(http.MethodGet, "/api/downloads/"+url.PathEscape(filename), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

func (c *Client) Remove(filename string) error {
	return c.delete("/api/downloads/" + url.PathEscape(filename))
}
