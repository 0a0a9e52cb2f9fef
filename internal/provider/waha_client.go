package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrUnauthorized is returned when every credential strategy was rejected.
var ErrUnauthorized = errors.New("provider rejected all credential strategies")

// ErrMediaGone is returned when the provider no longer holds the media.
var ErrMediaGone = errors.New("provider media expired")

// authStrategy applies one credential header style to a request. Self-hosted
// gateways disagree on which header carries the API key, so the client probes
// the known styles in order and caches the first one that is not rejected.
type authStrategy func(req *http.Request, token string)

var authStrategies = []authStrategy{
	func(req *http.Request, token string) { req.Header.Set("X-Api-Key", token) },
	func(req *http.Request, token string) { req.Header.Set("Authorization", "Bearer "+token) },
	func(req *http.Request, token string) { req.Header.Set("Authorization", token) },
}

// WAHAClient talks to a self-hosted gateway instance.
type WAHAClient struct {
	httpClient *http.Client

	mu     sync.Mutex
	winner map[uuid.UUID]int // instance id -> index of accepted auth strategy
}

func NewWAHAClient(timeout time.Duration) *WAHAClient {
	return &WAHAClient{
		httpClient: &http.Client{Timeout: timeout},
		winner:     make(map[uuid.UUID]int),
	}
}

// Instance identifies one gateway connection for API calls.
type Instance struct {
	ID      uuid.UUID
	BaseURL string
	Token   string
	Session string
}

func (c *WAHAClient) request(ctx context.Context, inst Instance, method, path string, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	start := c.winner[inst.ID]
	c.mu.Unlock()

	var lastStatus int
	for i := 0; i < len(authStrategies); i++ {
		idx := (start + i) % len(authStrategies)

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, inst.BaseURL+path, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		authStrategies[idx](req, inst.Token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}

		if resp.StatusCode == http.StatusUnauthorized {
			lastStatus = resp.StatusCode
			continue
		}

		c.mu.Lock()
		c.winner[inst.ID] = idx
		c.mu.Unlock()

		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			return respBody, ErrMediaGone
		}
		if resp.StatusCode >= 400 {
			return respBody, fmt.Errorf("gateway error: %s - %s", resp.Status, string(respBody))
		}
		return respBody, nil
	}

	logrus.WithFields(logrus.Fields{
		"instance": inst.ID,
		"status":   lastStatus,
	}).Warn("gateway rejected every auth header style")
	return nil, ErrUnauthorized
}

// ResolveLID translates an opaque contact reference into a phone-keyed chat
// id. An empty result means the gateway does not know the mapping.
func (c *WAHAClient) ResolveLID(ctx context.Context, inst Instance, lid string) (string, error) {
	path := fmt.Sprintf("/api/%s/lids/%s", inst.Session, lid)
	body, err := c.request(ctx, inst, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}

	var out struct {
		LID string `json:"lid"`
		PN  string `json:"pn"` // phone-number chat id, e.g. 5511...@c.us
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode lid resolution: %w", err)
	}
	return out.PN, nil
}

// FetchMessageMedia retrieves the media of a message by its external id. The
// gateway answers with either a fetchable URL or inline base64 data.
func (c *WAHAClient) FetchMessageMedia(ctx context.Context, inst Instance, messageID string) ([]byte, string, error) {
	path := fmt.Sprintf("/api/%s/messages/%s/media", inst.Session, messageID)
	body, err := c.request(ctx, inst, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}

	var out struct {
		URL      string `json:"url"`
		Data     string `json:"data"`
		MimeType string `json:"mimetype"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, "", fmt.Errorf("decode media response: %w", err)
	}

	if out.Data != "" {
		raw, err := base64.StdEncoding.DecodeString(out.Data)
		if err != nil {
			return nil, "", fmt.Errorf("decode inline media: %w", err)
		}
		return raw, out.MimeType, nil
	}
	if out.URL == "" {
		return nil, "", ErrMediaGone
	}

	data, err := c.download(ctx, inst, out.URL)
	if err != nil {
		return nil, "", err
	}
	return data, out.MimeType, nil
}

func (c *WAHAClient) download(ctx context.Context, inst Instance, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	idx := c.winner[inst.ID]
	c.mu.Unlock()
	authStrategies[idx](req, inst.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil, ErrMediaGone
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("media download failed: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// SendText sends a plain text message through the gateway and returns the
// provider external id.
func (c *WAHAClient) SendText(ctx context.Context, inst Instance, chatID, text string) (string, error) {
	body, err := c.request(ctx, inst, http.MethodPost, "/api/sendText", map[string]string{
		"session": inst.Session,
		"chatId":  chatID,
		"text":    text,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		ID struct {
			Serialized string `json:"_serialized"`
		} `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode send response: %w", err)
	}
	return out.ID.Serialized, nil
}
