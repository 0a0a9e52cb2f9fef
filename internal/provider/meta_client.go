package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const graphAPIBase = "https://graph.facebook.com/v19.0"

// MetaClient talks to the WhatsApp Business Cloud (Graph) API.
type MetaClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewMetaClient(timeout time.Duration) *MetaClient {
	return &MetaClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    graphAPIBase,
	}
}

func (c *MetaClient) sendRequest(ctx context.Context, token, method, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return respBody, ErrMediaGone
	}
	if resp.StatusCode >= 400 {
		return respBody, fmt.Errorf("API error: %s - %s", resp.Status, string(respBody))
	}
	return respBody, nil
}

// RetrieveMediaURL resolves a media id to its short-lived download URL.
func (c *MetaClient) RetrieveMediaURL(ctx context.Context, token, mediaID string) (string, string, error) {
	body, err := c.sendRequest(ctx, token, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, mediaID))
	if err != nil {
		return "", "", err
	}

	var obj struct {
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", "", err
	}
	if obj.URL == "" {
		return "", "", ErrMediaGone
	}
	return obj.URL, obj.MimeType, nil
}

// DownloadMedia fetches media bytes from a URL previously returned by
// RetrieveMediaURL. The URL expires quickly, so the caller re-uploads the
// bytes into durable storage immediately.
func (c *MetaClient) DownloadMedia(ctx context.Context, token, url string) ([]byte, error) {
	return c.sendRequest(ctx, token, http.MethodGet, url)
}

// FetchMessageMedia resolves and downloads the media of a cloud-API message
// in one step.
func (c *MetaClient) FetchMessageMedia(ctx context.Context, token, mediaID string) ([]byte, string, error) {
	url, mimeType, err := c.RetrieveMediaURL(ctx, token, mediaID)
	if err != nil {
		return nil, "", err
	}
	data, err := c.DownloadMedia(ctx, token, url)
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}
