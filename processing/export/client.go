package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Client downloads project exports from a Label Studio server.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// ExportPath is where the JSON export of a project is stored.
func ExportPath(dir string, projectID int) string {
	return filepath.Join(dir, fmt.Sprintf("project_%d_ls.json", projectID))
}

// FetchJSON downloads the JSON export of a project into dir and returns the
// file path. The file is only replaced once the download completed.
func (c *Client) FetchJSON(ctx context.Context, projectID int, dir string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid label studio url: %w", err)
	}
	u = u.JoinPath("api", "projects", strconv.Itoa(projectID), "export")
	u.RawQuery = url.Values{"exportType": {"JSON"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fetch export: %s: %s", resp.Status, body)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	out := ExportPath(dir, projectID)
	tmp, err := os.CreateTemp(dir, filepath.Base(out)+".tmp-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("fetch export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return "", err
	}

	log.Printf("label studio export saved: %s (%d bytes)", out, n)
	return out, nil
}
