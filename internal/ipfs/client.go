// Package ipfs talks to a Kubo-compatible node over its HTTP API and owns
// the content-identifier helpers the rest of the pipeline relies on.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	addEndpoint     = "/api/v0/add?cid-version=1&pin=true"
	versionEndpoint = "/api/v0/version"
	defaultTimeout  = 60 * time.Second
)

var ErrEmptyPayload = errors.New("ipfs: refusing to upload an empty payload")

type AddResult struct {
	CID  string
	Size int64
}

// Client uploads files and JSON documents to one IPFS API endpoint. Requests
// are paced by a token bucket so bursts of uploads do not trip node-side
// limits.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient accepts the API endpoint as a multiaddr, the convention IPFS
// tooling uses (e.g. /ip4/127.0.0.1/tcp/5001 or /dns4/node.example/tcp/443/https).
func NewClient(apiAddr string, log *slog.Logger) (*Client, error) {
	baseURL, err := apiURLFromMultiaddr(apiAddr)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(4), 8),
		log:     log,
	}, nil
}

// UploadFile adds one file and returns its content identifier.
func (c *Client) UploadFile(ctx context.Context, name string, data []byte) (AddResult, error) {
	if len(data) == 0 {
		return AddResult{}, ErrEmptyPayload
	}
	if name == "" {
		name = "file"
	}
	return c.add(ctx, name, data)
}

// UploadJSON serializes v and adds it as a standalone document.
func (c *Client) UploadJSON(ctx context.Context, v any) (AddResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return AddResult{}, fmt.Errorf("ipfs: encode json: %w", err)
	}
	return c.add(ctx, "metadata.json", payload)
}

// Ping checks that the node's API answers. Used by readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+versionEndpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ipfs: node unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ipfs: version returned %d", resp.StatusCode)
	}
	return nil
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

func (c *Client) add(ctx context.Context, name string, data []byte) (AddResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return AddResult{}, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return AddResult{}, err
	}
	if _, err := part.Write(data); err != nil {
		return AddResult{}, err
	}
	if err := writer.Close(); err != nil {
		return AddResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+addEndpoint, &body)
	if err != nil {
		return AddResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return AddResult{}, fmt.Errorf("ipfs: add request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return AddResult{}, fmt.Errorf("ipfs: add returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var parsed addResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return AddResult{}, fmt.Errorf("ipfs: decode add response: %w", err)
	}
	if err := ValidateCID(parsed.Hash); err != nil {
		return AddResult{}, err
	}

	c.log.Info("ipfs add",
		"name", name,
		"cid", parsed.Hash,
		"bytes", len(data),
		"latency_ms", time.Since(started).Milliseconds())
	return AddResult{CID: parsed.Hash, Size: int64(len(data))}, nil
}
